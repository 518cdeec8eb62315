package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"calorie-cam/internal/capture"
	"calorie-cam/internal/health"
	"calorie-cam/internal/pipeline"
	"calorie-cam/internal/tracker"
)

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSession(c *gin.Context) {
	var body struct {
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.APIKey != s.apiKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return
	}
	token, expiresAt, err := s.issueToken()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiresAt.Unix()})
}

// handleAnalyze accepts either a JSON body with a base64 data URI or a
// multipart upload under the "image" field.
func (s *Server) handleAnalyze(c *gin.Context) {
	img, err := s.readRequestImage(c)
	if err != nil {
		writeError(c, err)
		return
	}
	analysis, err := s.app.AnalyzeImage(c.Request.Context(), img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) readRequestImage(c *gin.Context) (capture.Image, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("image")
		if err != nil {
			return capture.Image{}, capture.ErrNoImage
		}
		f, err := file.Open()
		if err != nil {
			return capture.Image{}, err
		}
		defer f.Close()
		return capture.ReadImage(f, s.maxImageBytes)
	}

	var body struct {
		PhotoDataURI string `json:"photo_data_uri" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		return capture.Image{}, capture.ErrNoImage
	}
	img, err := capture.ParseDataURI(body.PhotoDataURI)
	if err != nil {
		return capture.Image{}, err
	}
	if int64(len(img.Data)) > s.maxImageBytes {
		return capture.Image{}, capture.ErrImageTooLarge
	}
	return img, nil
}

func (s *Server) handleListLog(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Log.History())
}

func (s *Server) handleLogMeal(c *gin.Context) {
	var body struct {
		Items []pipeline.FoodItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := s.app.Log.LogMeal(c.Request.Context(), body.Items, tracker.ComputeTotals(body.Items))
	if err != nil {
		if errors.Is(err, tracker.ErrEmptyMeal) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleClearLog(c *gin.Context) {
	s.app.Log.ClearAll(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveEntry(c *gin.Context) {
	s.app.Log.RemoveEntry(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleLogDays(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Log.GroupByDay(time.Now()))
}

func (s *Server) handleGetProfile(c *gin.Context) {
	profile, err := s.app.Health.Profile(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no profile saved"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handlePutProfile(c *gin.Context) {
	var profile health.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := profile.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	goal, err := s.app.Health.SaveProfile(c.Request.Context(), profile)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "goal": goal})
}

func (s *Server) handleGetGoal(c *gin.Context) {
	goal, err := s.app.Health.Goal(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	macros, err := s.app.Health.MacroGoals(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": goal, "macroTargets": macros})
}

func (s *Server) handlePutGoal(c *gin.Context) {
	var body struct {
		Goal int `json:"goal" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.app.Health.SetGoal(c.Request.Context(), body.Goal); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": body.Goal})
}

func (s *Server) handleSummary(c *gin.Context) {
	at := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		at = parsed
	}
	summary, err := s.app.DailySummary(c.Request.Context(), at)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
