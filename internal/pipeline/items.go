package pipeline

import (
	"strings"
)

// NutrientInfo holds the estimated nutrients for a single food item.
// Protein, fat and carbohydrates are grams; calories are kcal.
type NutrientInfo struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
}

// FoodItem is a recognized food with its nutrient estimates. Produced only by
// the enrichment stage and never mutated afterwards.
type FoodItem struct {
	Name         string       `json:"name"`
	Quantity     string       `json:"quantity,omitempty"`
	NutrientInfo NutrientInfo `json:"nutrientInfo"`
}

// ItemQuery is the input to a nutrient lookup: a food name with an optional
// quantity like "2 slices".
type ItemQuery struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
}

// SplitQuantity parses the "name (quantity)" pattern the recognition model
// sometimes produces, e.g. "apple (2 slices)" -> ("apple", "2 slices").
// Names without a trailing parenthesized part are returned unchanged.
func SplitQuantity(recognized string) ItemQuery {
	name := strings.TrimSpace(recognized)
	if !strings.HasSuffix(name, ")") {
		return ItemQuery{Name: name}
	}
	open := strings.LastIndex(name, "(")
	if open <= 0 {
		return ItemQuery{Name: name}
	}
	quantity := strings.TrimSpace(name[open+1 : len(name)-1])
	base := strings.TrimSpace(name[:open])
	if base == "" || quantity == "" {
		return ItemQuery{Name: name}
	}
	return ItemQuery{Name: base, Quantity: quantity}
}
