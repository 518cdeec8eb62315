package pipeline

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"calorie-cam/internal/capture"
	"calorie-cam/internal/llm"
	"calorie-cam/internal/shared"
)

//go:embed recognize_prompt.md
var recognizePrompt string

var (
	// ErrNotFood is returned when the model decides the photo contains no food.
	ErrNotFood = errors.New("the image does not appear to contain food")
	// ErrNoFoodItems is returned when the photo is food but nothing
	// identifiable was listed. The pipeline aborts here rather than running
	// the enrichment stage on an empty list.
	ErrNoFoodItems = errors.New("could not identify any food items in the image")
)

// RecognitionResult is the schema-validated output of the recognize stage.
type RecognitionResult struct {
	IsFood    bool     `json:"is_food"`
	FoodItems []string `json:"food_items"`
}

// Recognizer maps a still image to the list of food items it shows.
type Recognizer struct {
	vision llm.VisionGenerator
}

func NewRecognizer(vision llm.VisionGenerator) *Recognizer {
	return &Recognizer{vision: vision}
}

// Recognize runs the recognition prompt against the photo. The model output
// is treated as an untrusted contract: it must parse as the expected JSON
// shape, and the is-food / empty-list conditions surface as typed errors.
func (r *Recognizer) Recognize(ctx context.Context, img capture.Image) (RecognitionResult, shared.StageMeta, error) {
	start := time.Now()

	resp, err := r.vision.DescribeImage(ctx, recognizePrompt, img.MIMEType, img.Data)
	meta := shared.StageMeta{StageName: "Recognize", Usage: resp.Usage, Latency: time.Since(start)}
	if err != nil {
		return RecognitionResult{}, meta, fmt.Errorf("recognition request failed: %w", err)
	}

	var result RecognitionResult
	if err := json.Unmarshal([]byte(resp.Content), &result); err != nil {
		return RecognitionResult{}, meta, fmt.Errorf(
			"failed to parse recognition response %w. Response: %s", err, resp.Content)
	}

	if !result.IsFood {
		return result, meta, ErrNotFood
	}
	if len(result.FoodItems) == 0 {
		return result, meta, ErrNoFoodItems
	}
	return result, meta, nil
}
