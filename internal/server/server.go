package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"calorie-cam/internal/app"
	"calorie-cam/internal/capture"
	"calorie-cam/internal/config"
	"calorie-cam/internal/logging"
	"calorie-cam/internal/pipeline"
)

// Server exposes the application over a JSON HTTP API.
type Server struct {
	app           *app.App
	apiKey        string
	secret        []byte
	maxImageBytes int64
	router        *gin.Engine
}

func New(a *app.App, cfg *config.Config) *Server {
	s := &Server{
		app:           a,
		apiKey:        cfg.APIKey,
		secret:        []byte(cfg.SessionSecret),
		maxImageBytes: cfg.MaxImageBytes,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetTrustedProxies(nil)

	r.GET("/healthz", s.handleHealthz)

	v1 := r.Group("/api/v1")
	v1.POST("/session", s.handleSession)

	protected := v1.Group("")
	protected.Use(s.authMiddleware())
	{
		protected.POST("/analyze", s.handleAnalyze)
		protected.GET("/log", s.handleListLog)
		protected.POST("/log", s.handleLogMeal)
		protected.DELETE("/log", s.handleClearLog)
		protected.DELETE("/log/:id", s.handleRemoveEntry)
		protected.GET("/log/days", s.handleLogDays)
		protected.GET("/profile", s.handleGetProfile)
		protected.PUT("/profile", s.handlePutProfile)
		protected.GET("/goal", s.handleGetGoal)
		protected.PUT("/goal", s.handlePutGoal)
		protected.GET("/summary", s.handleSummary)
	}

	return r
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server on addr and blocks.
func (s *Server) Run(addr string) error {
	logging.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, capture.ErrImageTooLarge),
		errors.Is(err, capture.ErrUnsupportedImage),
		errors.Is(err, capture.ErrNoImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNotFood),
		errors.Is(err, pipeline.ErrNoFoodItems):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logging.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
