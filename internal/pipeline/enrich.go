package pipeline

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"calorie-cam/internal/llm"
	"calorie-cam/internal/shared"
)

//go:embed enrich_prompt.md
var enrichPrompt string

// NutrientSource resolves food names to per-item nutrient estimates. It is
// the pluggable boundary of the enrichment stage: the default implementation
// asks a language model, an alternate one scrapes a nutrition-facts site.
type NutrientSource interface {
	Lookup(ctx context.Context, items []ItemQuery) ([]FoodItem, shared.StageMeta, error)
}

// LLMNutrientSource estimates nutrients with a text model.
type LLMNutrientSource struct {
	textGen llm.TextGenerator
}

func NewLLMNutrientSource(textGen llm.TextGenerator) *LLMNutrientSource {
	return &LLMNutrientSource{textGen: textGen}
}

// rawEnrichment mirrors the prompt's output contract. Pointer fields force
// every nutrient number to be present, not merely defaulted.
type rawEnrichment struct {
	Items []struct {
		Name         string `json:"name"`
		Quantity     string `json:"quantity"`
		NutrientInfo struct {
			Calories      *float64 `json:"calories"`
			Protein       *float64 `json:"protein"`
			Fat           *float64 `json:"fat"`
			Carbohydrates *float64 `json:"carbohydrates"`
		} `json:"nutrient_info"`
	} `json:"items"`
}

func (s *LLMNutrientSource) Lookup(ctx context.Context, items []ItemQuery) ([]FoodItem, shared.StageMeta, error) {
	start := time.Now()

	var b strings.Builder
	b.WriteString(enrichPrompt)
	for _, it := range items {
		if it.Quantity != "" {
			fmt.Fprintf(&b, "- Name: %s, Quantity: %s\n", it.Name, it.Quantity)
		} else {
			fmt.Fprintf(&b, "- Name: %s\n", it.Name)
		}
	}

	resp, err := s.textGen.GenerateContent(ctx, b.String())
	meta := shared.StageMeta{StageName: "Enrich", Usage: resp.Usage, Latency: time.Since(start)}
	if err != nil {
		return nil, meta, fmt.Errorf("nutrient estimation request failed: %w", err)
	}

	var raw rawEnrichment
	if err := json.Unmarshal([]byte(resp.Content), &raw); err != nil {
		return nil, meta, fmt.Errorf(
			"failed to parse nutrient response %w. Response: %s", err, resp.Content)
	}

	result, err := validateEnrichment(raw, len(items))
	if err != nil {
		return nil, meta, err
	}
	return result, meta, nil
}

// validateEnrichment enforces the stage's output contract: one entry per
// input item, every nutrient field present and non-negative.
func validateEnrichment(raw rawEnrichment, want int) ([]FoodItem, error) {
	if len(raw.Items) != want {
		return nil, fmt.Errorf("nutrient response has %d items, expected %d", len(raw.Items), want)
	}

	result := make([]FoodItem, 0, len(raw.Items))
	for i, it := range raw.Items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, fmt.Errorf("nutrient response item %d has no name", i)
		}
		n := it.NutrientInfo
		for field, v := range map[string]*float64{
			"calories":      n.Calories,
			"protein":       n.Protein,
			"fat":           n.Fat,
			"carbohydrates": n.Carbohydrates,
		} {
			if v == nil {
				return nil, fmt.Errorf("nutrient response item %q is missing %s", it.Name, field)
			}
			if *v < 0 {
				return nil, fmt.Errorf("nutrient response item %q has negative %s", it.Name, field)
			}
		}
		result = append(result, FoodItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			NutrientInfo: NutrientInfo{
				Calories:      *n.Calories,
				Protein:       *n.Protein,
				Fat:           *n.Fat,
				Carbohydrates: *n.Carbohydrates,
			},
		})
	}
	return result, nil
}
