package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"calorie-cam/internal/app"
	"calorie-cam/internal/config"
	"calorie-cam/internal/health"
	"calorie-cam/internal/llm"
	"calorie-cam/internal/pipeline"
	"calorie-cam/internal/storage"
	"calorie-cam/internal/tracker"
)

type mockVisionGenerator struct {
	response string
	err      error
}

func (m *mockVisionGenerator) DescribeImage(ctx context.Context, prompt, mimeType string, data []byte) (llm.ContentResponse, error) {
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.response}, nil
}

type mockTextGenerator struct {
	response string
	err      error
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	return llm.ContentResponse{Content: m.response}, nil
}

const (
	testAPIKey = "test-api-key"
	recognized = `{"is_food": true, "food_items": ["apple (1 whole)"]}`
	enriched   = `{"items": [{"name": "apple", "quantity": "1 whole", "nutrient_info": {"calories": 95, "protein": 0.5, "fat": 0.3, "carbohydrates": 25}}]}`
	notFood    = `{"is_food": false, "food_items": []}`
)

func newTestServer(t *testing.T, vision *mockVisionGenerator, text *mockTextGenerator) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := storage.NewMemoryStore()
	log, err := tracker.NewLog(context.Background(), kv)
	if err != nil {
		t.Fatalf("failed to create log: %v", err)
	}
	analyzer := pipeline.NewAnalyzer(pipeline.NewRecognizer(vision), pipeline.NewLLMNutrientSource(text))
	a := app.New(analyzer, log, health.NewService(kv), nil)

	cfg := &config.Config{
		APIKey:        testAPIKey,
		SessionSecret: "test-session-secret",
		MaxImageBytes: config.DefaultMaxImageBytes,
	}
	return New(a, cfg)
}

func (s *Server) testToken(t *testing.T) string {
	t.Helper()
	token, _, err := s.issueToken()
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func doJSON(s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func testDataURI() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("not a real jpeg"))
}

func TestSession(t *testing.T) {
	s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})

	t.Run("ValidKeyIssuesToken", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/session", "", gin.H{"api_key": testAPIKey})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Token == "" {
			t.Error("expected a token in the response")
		}

		w = doJSON(s, http.MethodGet, "/api/v1/log", resp.Token, nil)
		if w.Code != http.StatusOK {
			t.Errorf("expected issued token to be accepted, got %d", w.Code)
		}
	})

	t.Run("WrongKeyRejected", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/session", "", gin.H{"api_key": "wrong"})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("MissingTokenRejected", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/api/v1/log", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})

	t.Run("GarbageTokenRejected", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/api/v1/log", "not.a.token", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
	})
}

func TestAnalyze(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})
		token := s.testToken(t)

		w := doJSON(s, http.MethodPost, "/api/v1/analyze", token, gin.H{"photo_data_uri": testDataURI()})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var analysis app.Analysis
		if err := json.Unmarshal(w.Body.Bytes(), &analysis); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(analysis.Items) != 1 || analysis.Items[0].Name != "apple" {
			t.Errorf("unexpected items: %+v", analysis.Items)
		}
		if analysis.Totals.Calories != 95 {
			t.Errorf("expected 95 total calories, got %v", analysis.Totals.Calories)
		}
	})

	t.Run("NotFoodReturns422", func(t *testing.T) {
		s := newTestServer(t, &mockVisionGenerator{response: notFood}, &mockTextGenerator{response: enriched})
		token := s.testToken(t)

		w := doJSON(s, http.MethodPost, "/api/v1/analyze", token, gin.H{"photo_data_uri": testDataURI()})
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("BadDataURIReturns400", func(t *testing.T) {
		s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})
		token := s.testToken(t)

		w := doJSON(s, http.MethodPost, "/api/v1/analyze", token, gin.H{"photo_data_uri": "http://example.com/pic.jpg"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("OversizeImageReturns400", func(t *testing.T) {
		s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})
		s.maxImageBytes = 16
		token := s.testToken(t)

		uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("x"), 64))
		w := doJSON(s, http.MethodPost, "/api/v1/analyze", token, gin.H{"photo_data_uri": uri})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("MissingBodyReturns400", func(t *testing.T) {
		s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})
		token := s.testToken(t)

		w := doJSON(s, http.MethodPost, "/api/v1/analyze", token, gin.H{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestMealLogEndpoints(t *testing.T) {
	s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})
	token := s.testToken(t)

	items := []pipeline.FoodItem{
		{Name: "apple", Quantity: "1 whole", NutrientInfo: pipeline.NutrientInfo{Calories: 95, Protein: 0.5, Fat: 0.3, Carbohydrates: 25}},
	}

	w := doJSON(s, http.MethodPost, "/api/v1/log", token, gin.H{"items": items})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var entry tracker.LogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if entry.TotalCalories != 95 {
		t.Errorf("expected totals computed server-side, got %v", entry.TotalCalories)
	}

	w = doJSON(s, http.MethodGet, "/api/v1/log", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var history []tracker.LogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &history); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(history))
	}

	w = doJSON(s, http.MethodGet, "/api/v1/log/days", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from /log/days, got %d", w.Code)
	}

	w = doJSON(s, http.MethodDelete, fmt.Sprintf("/api/v1/log/%s", entry.ID), token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}

	w = doJSON(s, http.MethodDelete, "/api/v1/log", token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 from clear, got %d", w.Code)
	}

	w = doJSON(s, http.MethodPost, "/api/v1/log", token, gin.H{"items": []pipeline.FoodItem{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty meal, got %d", w.Code)
	}
}

func TestProfileAndGoalEndpoints(t *testing.T) {
	s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})
	token := s.testToken(t)

	t.Run("ProfileMissingReturns404", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/api/v1/profile", token, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("SaveProfileReturnsRecomputedGoal", func(t *testing.T) {
		profile := health.UserProfile{
			Age: 30, Gender: health.GenderMale, WeightKg: 80, HeightCm: 180,
			ActivityLevel: health.ActivityModeratelyActive,
		}
		w := doJSON(s, http.MethodPut, "/api/v1/profile", token, profile)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp struct {
			Goal int `json:"goal"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Goal != 2759 {
			t.Errorf("expected goal 2759, got %d", resp.Goal)
		}

		w = doJSON(s, http.MethodGet, "/api/v1/profile", token, nil)
		if w.Code != http.StatusOK {
			t.Errorf("expected profile to be retrievable, got %d", w.Code)
		}
	})

	t.Run("InvalidProfileReturns400", func(t *testing.T) {
		w := doJSON(s, http.MethodPut, "/api/v1/profile", token, gin.H{"age": -1})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("ManualGoalOverride", func(t *testing.T) {
		w := doJSON(s, http.MethodPut, "/api/v1/goal", token, gin.H{"goal": 1800})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		w = doJSON(s, http.MethodGet, "/api/v1/goal", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"goal":1800`) {
			t.Errorf("expected goal 1800 in response, got %s", w.Body.String())
		}
	})

	t.Run("NonPositiveGoalRejected", func(t *testing.T) {
		w := doJSON(s, http.MethodPut, "/api/v1/goal", token, gin.H{"goal": -5})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestSummaryEndpoint(t *testing.T) {
	s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})
	token := s.testToken(t)

	items := []pipeline.FoodItem{
		{Name: "pasta", NutrientInfo: pipeline.NutrientInfo{Calories: 600, Protein: 20, Fat: 10, Carbohydrates: 90}},
	}
	if w := doJSON(s, http.MethodPost, "/api/v1/log", token, gin.H{"items": items}); w.Code != http.StatusCreated {
		t.Fatalf("failed to seed log: %d", w.Code)
	}

	w := doJSON(s, http.MethodGet, "/api/v1/summary", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var summary app.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if summary.Consumed.Calories != 600 {
		t.Errorf("expected 600 consumed calories, got %v", summary.Consumed.Calories)
	}
	if summary.Goal != health.DefaultDailyGoal {
		t.Errorf("expected default goal %d, got %d", health.DefaultDailyGoal, summary.Goal)
	}
	if summary.Remaining != health.DefaultDailyGoal-600 {
		t.Errorf("expected remaining %d, got %d", health.DefaultDailyGoal-600, summary.Remaining)
	}
	if summary.HasProfile {
		t.Error("expected HasProfile to be false")
	}

	if w := doJSON(s, http.MethodGet, "/api/v1/summary?date=not-a-date", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &mockVisionGenerator{response: recognized}, &mockTextGenerator{response: enriched})
	w := doJSON(s, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
