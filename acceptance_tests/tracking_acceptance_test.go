package acceptance_tests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"calorie-cam/internal/app"
	"calorie-cam/internal/capture"
	"calorie-cam/internal/database"
	"calorie-cam/internal/health"
	"calorie-cam/internal/llm"
	"calorie-cam/internal/metrics"
	"calorie-cam/internal/pipeline"
	"calorie-cam/internal/storage"
	"calorie-cam/internal/tracker"
)

// --- Mock Vision Client ---
type mockVisionClient struct {
	describeImageCalls int
}

func (m *mockVisionClient) DescribeImage(ctx context.Context, prompt, mimeType string, data []byte) (llm.ContentResponse, error) {
	m.describeImageCalls++
	return llm.ContentResponse{Content: `{
		"is_food": true,
		"food_items": ["scrambled eggs (2 eggs)", "toast (1 slice)"]
	}`}, nil
}

// --- Mock Text Client ---
type mockTextClient struct {
	generateContentCalls int
}

func (m *mockTextClient) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.generateContentCalls++
	if !strings.Contains(prompt, "scrambled eggs") {
		return llm.ContentResponse{Content: `{"items": []}`}, nil
	}
	return llm.ContentResponse{Content: `{"items": [
		{"name": "scrambled eggs", "quantity": "2 eggs", "nutrient_info": {"calories": 180, "protein": 12, "fat": 13, "carbohydrates": 2}},
		{"name": "toast", "quantity": "1 slice", "nutrient_info": {"calories": 80, "protein": 3, "fat": 1, "carbohydrates": 15}}
	]}`}, nil
}

// --- Acceptance Test ---
func TestFullTrackingWorkflow(t *testing.T) {
	ctx := context.Background()

	// 1. Set up a temporary SQLite database
	tempDir, err := os.MkdirTemp("", "acceptance_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	db, err := database.Open(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 2. Initialize mocks and real stores
	vision := &mockVisionClient{}
	text := &mockTextClient{}
	kv := storage.NewSQLiteStore(db.SQL)

	mealLog, err := tracker.NewLog(ctx, kv)
	if err != nil {
		t.Fatalf("Failed to load meal log: %v", err)
	}

	analyzer := pipeline.NewAnalyzer(pipeline.NewRecognizer(vision), pipeline.NewLLMNutrientSource(text))
	application := app.New(analyzer, mealLog, health.NewService(kv), metrics.NewStore(db.SQL))

	// --- 3. Step 1: Analyze a photo ---
	t.Log("--- Step 1: Analyzing Photo ---")
	img := capture.Image{MIMEType: "image/jpeg", Data: []byte("fake jpeg bytes")}

	analysis, err := application.AnalyzeImage(ctx, img)
	if err != nil {
		t.Fatalf("Analysis failed: %v", err)
	}
	if vision.describeImageCalls != 1 {
		t.Errorf("Expected 1 vision call, got %d", vision.describeImageCalls)
	}
	if text.generateContentCalls != 1 {
		t.Errorf("Expected 1 text call, got %d", text.generateContentCalls)
	}
	if len(analysis.Items) != 2 {
		t.Fatalf("Expected 2 food items, got %d", len(analysis.Items))
	}
	if analysis.Totals.Calories != 260 {
		t.Errorf("Expected 260 total calories, got %v", analysis.Totals.Calories)
	}

	// --- 4. Step 2: Log the meal ---
	t.Log("--- Step 2: Logging Meal ---")
	entry, err := application.LogAnalysis(ctx, analysis)
	if err != nil {
		t.Fatalf("Logging failed: %v", err)
	}
	if entry.TotalCalories != 260 {
		t.Errorf("Expected entry with 260 calories, got %v", entry.TotalCalories)
	}

	// --- 5. Step 3: Set up a profile and check the summary ---
	t.Log("--- Step 3: Daily Summary ---")
	goal, err := application.Health.SaveProfile(ctx, health.UserProfile{
		Age: 30, Gender: health.GenderFemale, WeightKg: 60, HeightCm: 165,
		ActivityLevel: health.ActivityLightlyActive,
	})
	if err != nil {
		t.Fatalf("Profile save failed: %v", err)
	}

	summary, err := application.DailySummary(ctx, time.Now())
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Goal != goal {
		t.Errorf("Expected summary goal %d, got %d", goal, summary.Goal)
	}
	if summary.Consumed.Calories != 260 {
		t.Errorf("Expected 260 consumed calories, got %v", summary.Consumed.Calories)
	}
	if !summary.HasProfile {
		t.Error("Expected HasProfile after saving a profile")
	}

	// --- 6. Step 4: History survives a reload ---
	t.Log("--- Step 4: Reload From Disk ---")
	reloaded, err := tracker.NewLog(ctx, kv)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	history := reloaded.History()
	if len(history) != 1 {
		t.Fatalf("Expected 1 persisted entry, got %d", len(history))
	}
	if history[0].ID != entry.ID {
		t.Errorf("Expected persisted entry %s, got %s", entry.ID, history[0].ID)
	}

	// --- 7. Step 5: Metrics were recorded ---
	t.Log("--- Step 5: Metrics ---")
	// The mocks report no token usage, but both stages measured latency
	// and so still count as executions.
	usage, err := application.Metrics.GetDailyUsage(1)
	if err != nil {
		t.Fatalf("Metrics query failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected 1 usage day, got %d", len(usage))
	}
	if usage[0].TotalExecutions != 2 {
		t.Errorf("Expected 2 stage executions, got %d", usage[0].TotalExecutions)
	}
	if usage[0].TotalPrompt != 0 || usage[0].TotalCompletion != 0 {
		t.Errorf("Expected zero token totals for the mocks, got %+v", usage[0])
	}

	// --- 8. Step 6: Remove the entry ---
	t.Log("--- Step 6: Remove Entry ---")
	reloaded.RemoveEntry(ctx, entry.ID)
	if len(reloaded.History()) != 0 {
		t.Error("Expected empty history after removal")
	}
}
