package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"calorie-cam/internal/capture"
	"calorie-cam/internal/health"
	"calorie-cam/internal/logging"
	"calorie-cam/internal/metrics"
	"calorie-cam/internal/pipeline"
	"calorie-cam/internal/shared"
	"calorie-cam/internal/tracker"
)

// App wires the analysis pipeline, meal log and health service together
// behind the operations every surface (HTTP, bot, CLI) exposes.
type App struct {
	Analyzer *pipeline.Analyzer
	Log      *tracker.Log
	Health   *health.Service
	Metrics  *metrics.Store
}

func New(analyzer *pipeline.Analyzer, log *tracker.Log, h *health.Service, m *metrics.Store) *App {
	return &App{Analyzer: analyzer, Log: log, Health: h, Metrics: m}
}

// Analysis is the outcome of a successful photo analysis, ready to be logged
// or discarded.
type Analysis struct {
	Items  []pipeline.FoodItem `json:"items"`
	Totals tracker.Totals      `json:"totals"`
}

// AnalyzeImage runs recognition and enrichment on the image. Stage metrics
// are recorded best-effort even when the pipeline fails partway.
func (a *App) AnalyzeImage(ctx context.Context, img capture.Image) (Analysis, error) {
	items, metas, err := a.Analyzer.Analyze(ctx, img)
	a.recordMetas(metas)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{Items: items, Totals: tracker.ComputeTotals(items)}, nil
}

// LogAnalysis appends the analysis result to the meal history.
func (a *App) LogAnalysis(ctx context.Context, an Analysis) (*tracker.LogEntry, error) {
	return a.Log.LogMeal(ctx, an.Items, an.Totals)
}

// Summary describes progress against the daily goal for a single day.
type Summary struct {
	Date         string              `json:"date"`
	Goal         int                 `json:"goal"`
	Consumed     tracker.Totals      `json:"consumed"`
	Remaining    int                 `json:"remaining"`
	MacroTargets health.MacroTargets `json:"macroTargets"`
	OverGoal     bool                `json:"overGoal"`
	EntryCount   int                 `json:"entryCount"`
	HasProfile   bool                `json:"hasProfile"`
}

// DailySummary reports what was consumed on the given day against the
// current goal and macro targets.
func (a *App) DailySummary(ctx context.Context, at time.Time) (Summary, error) {
	goal, err := a.Health.Goal(ctx)
	if err != nil {
		return Summary{}, err
	}
	macros, err := a.Health.MacroGoals(ctx)
	if err != nil {
		return Summary{}, err
	}
	hasProfile, err := a.Health.SetupComplete(ctx)
	if err != nil {
		return Summary{}, err
	}
	consumed := a.Log.ConsumedOn(at)
	day := at.Format("2006-01-02")
	entryCount := 0
	for _, e := range a.Log.History() {
		if e.Date.Format("2006-01-02") == day {
			entryCount++
		}
	}
	remaining := goal - int(consumed.Calories)
	return Summary{
		Date:         at.Format("2006-01-02"),
		Goal:         goal,
		Consumed:     consumed,
		Remaining:    remaining,
		MacroTargets: macros,
		OverGoal:     remaining < 0,
		EntryCount:   entryCount,
		HasProfile:   hasProfile,
	}, nil
}

func (a *App) recordMetas(metas []shared.StageMeta) {
	if a.Metrics == nil {
		return
	}
	for _, meta := range metas {
		if err := a.Metrics.RecordMeta(meta); err != nil {
			logging.Warn("failed to record stage metrics",
				zap.String("stage", meta.StageName), zap.Error(err))
		}
	}
}
