package pipeline

import (
	"context"

	"calorie-cam/internal/capture"
	"calorie-cam/internal/shared"
)

// Analyzer runs the two-stage photo analysis: recognize the food items in an
// image, then enrich each one with nutrient estimates. The stages run
// sequentially with no retries or caching; any failure aborts the whole
// analysis with no partial result.
type Analyzer struct {
	recognizer *Recognizer
	source     NutrientSource
}

func NewAnalyzer(recognizer *Recognizer, source NutrientSource) *Analyzer {
	return &Analyzer{recognizer: recognizer, source: source}
}

// Analyze resolves a photo to enriched food items. The returned StageMeta
// slice carries usage for every stage that ran, including failed ones.
func (a *Analyzer) Analyze(ctx context.Context, img capture.Image) ([]FoodItem, []shared.StageMeta, error) {
	recognition, recognizeMeta, err := a.recognizer.Recognize(ctx, img)
	metas := []shared.StageMeta{recognizeMeta}
	if err != nil {
		return nil, metas, err
	}

	queries := make([]ItemQuery, 0, len(recognition.FoodItems))
	for _, name := range recognition.FoodItems {
		queries = append(queries, SplitQuantity(name))
	}

	items, enrichMeta, err := a.source.Lookup(ctx, queries)
	metas = append(metas, enrichMeta)
	if err != nil {
		return nil, metas, err
	}
	return items, metas, nil
}
