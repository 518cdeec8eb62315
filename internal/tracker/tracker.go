package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"calorie-cam/internal/logging"
	"calorie-cam/internal/pipeline"
	"calorie-cam/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const historyKey = "meal_history"

// ErrEmptyMeal is returned when an attempt is made to log a meal without items.
var ErrEmptyMeal = errors.New("cannot log an empty meal")

// Totals are aggregate nutrients across a set of food items.
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Add accumulates another Totals into this one.
func (t *Totals) Add(o Totals) {
	t.Calories += o.Calories
	t.Protein += o.Protein
	t.Fat += o.Fat
	t.Carbs += o.Carbs
}

// ComputeTotals sums nutrients across items. Zero items yield zero totals.
func ComputeTotals(items []pipeline.FoodItem) Totals {
	var t Totals
	for _, it := range items {
		t.Calories += it.NutrientInfo.Calories
		t.Protein += it.NutrientInfo.Protein
		t.Fat += it.NutrientInfo.Fat
		t.Carbs += it.NutrientInfo.Carbohydrates
	}
	return t
}

// LogEntry is a confirmed, logged meal. Its totals are frozen at creation
// time and never recomputed from the items on read.
type LogEntry struct {
	ID                 string              `json:"id"`
	Date               time.Time           `json:"date"`
	MealItems          []pipeline.FoodItem `json:"mealItems"`
	TotalCalories      float64             `json:"totalCalories"`
	TotalProtein       float64             `json:"totalProtein"`
	TotalFat           float64             `json:"totalFat"`
	TotalCarbohydrates float64             `json:"totalCarbohydrates"`
}

// Log is the ordered (most-recent-first) history of logged meals. The
// in-memory copy is authoritative; every mutation is persisted best-effort
// to the key-value store, and a failed write is logged but never surfaced.
type Log struct {
	mu      sync.Mutex
	kv      storage.KeyValueStore
	entries []LogEntry
	now     func() time.Time
}

// NewLog loads the persisted history. A missing key starts an empty log; a
// corrupt value is treated the same and reported to the caller.
func NewLog(ctx context.Context, kv storage.KeyValueStore) (*Log, error) {
	l := &Log{kv: kv, now: time.Now}
	if _, err := storage.Read(ctx, kv, historyKey, &l.entries); err != nil {
		return l, fmt.Errorf("failed to load meal history: %w", err)
	}
	return l, nil
}

// History returns a copy of the log, most recent first.
func (l *Log) History() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// LogMeal prepends a new entry for the given items. Empty meals are rejected
// and never touch the log.
func (l *Log) LogMeal(ctx context.Context, items []pipeline.FoodItem, totals Totals) (*LogEntry, error) {
	if len(items) == 0 {
		return nil, ErrEmptyMeal
	}

	now := l.now()
	entry := LogEntry{
		ID:                 fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Date:               now,
		MealItems:          items,
		TotalCalories:      totals.Calories,
		TotalProtein:       totals.Protein,
		TotalFat:           totals.Fat,
		TotalCarbohydrates: totals.Carbs,
	}

	l.mu.Lock()
	l.entries = append([]LogEntry{entry}, l.entries...)
	l.mu.Unlock()

	l.persist(ctx)
	return &entry, nil
}

// RemoveEntry deletes the entry with the given id. Removing an absent id is
// a no-op, so the call is idempotent.
func (l *Log) RemoveEntry(ctx context.Context, id string) {
	l.mu.Lock()
	kept := l.entries[:0]
	changed := false
	for _, e := range l.entries {
		if e.ID == id {
			changed = true
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	l.mu.Unlock()

	if changed {
		l.persist(ctx)
	}
}

// ClearAll replaces the log with an empty sequence.
func (l *Log) ClearAll(ctx context.Context) {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	l.persist(ctx)
}

// persist writes the whole log. Write failures are logged to the diagnostic
// channel only; the accepted policy is silent degradation.
func (l *Log) persist(ctx context.Context) {
	l.mu.Lock()
	snapshot := make([]LogEntry, len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	if err := storage.Write(ctx, l.kv, historyKey, snapshot); err != nil {
		logging.Error("failed to persist meal history", zap.Error(err))
	}
}

// DayGroup is one calendar day of history with aggregated totals.
type DayGroup struct {
	Label   string     `json:"label"`
	Date    string     `json:"date"` // YYYY-MM-DD
	Entries []LogEntry `json:"entries"`
	Totals  Totals     `json:"totals"`
}

// GroupByDay projects the log into per-day groups, newest day first. Groups
// are labeled "Today" and "Yesterday" relative to now, otherwise by date.
func (l *Log) GroupByDay(now time.Time) []DayGroup {
	entries := l.History()

	groups := make(map[string]*DayGroup)
	for _, e := range entries {
		day := e.Date.Format("2006-01-02")
		g, ok := groups[day]
		if !ok {
			g = &DayGroup{Date: day, Label: dayLabel(e.Date, now)}
			groups[day] = g
		}
		g.Entries = append(g.Entries, e)
		g.Totals.Add(Totals{
			Calories: e.TotalCalories,
			Protein:  e.TotalProtein,
			Fat:      e.TotalFat,
			Carbs:    e.TotalCarbohydrates,
		})
	}

	out := make([]DayGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// ConsumedOn aggregates totals for the calendar day containing at.
func (l *Log) ConsumedOn(at time.Time) Totals {
	var t Totals
	day := at.Format("2006-01-02")
	for _, e := range l.History() {
		if e.Date.Format("2006-01-02") == day {
			t.Add(Totals{
				Calories: e.TotalCalories,
				Protein:  e.TotalProtein,
				Fat:      e.TotalFat,
				Carbs:    e.TotalCarbohydrates,
			})
		}
	}
	return t
}

func dayLabel(date, now time.Time) string {
	day := date.Format("2006-01-02")
	switch day {
	case now.Format("2006-01-02"):
		return "Today"
	case now.AddDate(0, 0, -1).Format("2006-01-02"):
		return "Yesterday"
	default:
		return date.Format("Jan 2, 2006")
	}
}
