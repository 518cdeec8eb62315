package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"calorie-cam/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

// WebNutrientSource resolves nutrients by scraping an HTML nutrition-facts
// endpoint. The endpoint URL contains a %s placeholder for the food name and
// must serve a table whose rows pair a nutrient label with a numeric value,
// e.g. <tr><td>Protein</td><td>5.2 g</td></tr>.
type WebNutrientSource struct {
	endpoint   string
	httpClient *http.Client
}

func NewWebNutrientSource(endpoint string) *WebNutrientSource {
	return &WebNutrientSource{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *WebNutrientSource) Lookup(ctx context.Context, items []ItemQuery) ([]FoodItem, shared.StageMeta, error) {
	start := time.Now()
	meta := shared.StageMeta{StageName: "Enrich"}

	result := make([]FoodItem, 0, len(items))
	for _, it := range items {
		info, err := s.lookupOne(ctx, it.Name)
		if err != nil {
			meta.Latency = time.Since(start)
			return nil, meta, fmt.Errorf("nutrient lookup for %q failed: %w", it.Name, err)
		}
		result = append(result, FoodItem{Name: it.Name, Quantity: it.Quantity, NutrientInfo: info})
	}

	meta.Latency = time.Since(start)
	return result, meta, nil
}

func (s *WebNutrientSource) lookupOne(ctx context.Context, name string) (NutrientInfo, error) {
	reqURL := fmt.Sprintf(s.endpoint, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return NutrientInfo{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return NutrientInfo{}, fmt.Errorf("failed to fetch nutrition facts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NutrientInfo{}, fmt.Errorf("nutrition facts endpoint returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return NutrientInfo{}, fmt.Errorf("failed to parse nutrition facts page: %w", err)
	}

	var info NutrientInfo
	found := map[string]bool{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value, err := parseLeadingNumber(cells.Eq(1).Text())
		if err != nil {
			return
		}
		switch {
		case strings.Contains(label, "calorie") || strings.Contains(label, "energy"):
			info.Calories, found["calories"] = value, true
		case strings.Contains(label, "protein"):
			info.Protein, found["protein"] = value, true
		case label == "fat" || strings.Contains(label, "total fat"):
			// Exact or "total fat" only, so "saturated fat" rows don't win.
			info.Fat, found["fat"] = value, true
		case strings.Contains(label, "carbohydrate"):
			info.Carbohydrates, found["carbohydrates"] = value, true
		}
	})

	for _, field := range []string{"calories", "protein", "fat", "carbohydrates"} {
		if !found[field] {
			return NutrientInfo{}, fmt.Errorf("nutrition facts page has no %s row", field)
		}
	}
	if info.Calories < 0 || info.Protein < 0 || info.Fat < 0 || info.Carbohydrates < 0 {
		return NutrientInfo{}, fmt.Errorf("nutrition facts page has negative values: %+v", info)
	}
	return info, nil
}

// parseLeadingNumber extracts the numeric prefix of strings like "5.2 g".
func parseLeadingNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("no number in %q", s)
	}
	return strconv.ParseFloat(s[:end], 64)
}
