package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"calorie-cam/internal/app"
	"calorie-cam/internal/capture"
	"calorie-cam/internal/config"
	"calorie-cam/internal/database"
	"calorie-cam/internal/health"
	"calorie-cam/internal/llm"
	"calorie-cam/internal/logging"
	"calorie-cam/internal/metrics"
	"calorie-cam/internal/pipeline"
	"calorie-cam/internal/server"
	"calorie-cam/internal/storage"
	"calorie-cam/internal/tracker"
)

func main() {
	logging.Init()
	defer logging.Sync()

	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		logging.Fatal("failed to load configuration", zap.Error(err))
	}

	geminiClient, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to initialize Gemini client", zap.Error(err))
	}
	defer geminiClient.Close()

	var textGen llm.TextGenerator = geminiClient
	if cfg.TextProvider == "groq" {
		textGen = llm.NewGroqClient(cfg)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logging.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	kv := storage.NewSQLiteStore(db.SQL)
	mealLog, err := tracker.NewLog(ctx, kv)
	if err != nil {
		logging.Fatal("failed to load meal history", zap.Error(err))
	}

	var source pipeline.NutrientSource = pipeline.NewLLMNutrientSource(textGen)
	if cfg.NutrientSourceURL != "" {
		source = pipeline.NewWebNutrientSource(cfg.NutrientSourceURL)
	}

	metricsStore := metrics.NewStore(db.SQL)
	analyzer := pipeline.NewAnalyzer(pipeline.NewRecognizer(geminiClient), source)
	application := app.New(analyzer, mealLog, health.NewService(kv), metricsStore)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		srv := server.New(application, cfg)
		if err := srv.Run(cfg.ListenAddr); err != nil {
			logging.Fatal("server failed", zap.Error(err))
		}
	case "analyze":
		analyzeCmd := flag.NewFlagSet("analyze", flag.ExitOnError)
		logMeal := analyzeCmd.Bool("log", false, "Log the analyzed meal to the history")
		analyzeCmd.Parse(os.Args[2:])

		if analyzeCmd.NArg() < 1 {
			fmt.Println("Usage: calorie-cam analyze [--log] <image-path>")
			os.Exit(1)
		}
		if err := runAnalyze(ctx, application, cfg, analyzeCmd.Arg(0), *logMeal); err != nil {
			logging.Fatal("analysis failed", zap.Error(err))
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := metricsStore.Cleanup(*days)
		if err != nil {
			logging.Fatal("cleanup failed", zap.Error(err))
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runAnalyze(ctx context.Context, application *app.App, cfg *config.Config, path string, logMeal bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := capture.ReadImage(f, cfg.MaxImageBytes)
	if err != nil {
		return err
	}

	analysis, err := application.AnalyzeImage(ctx, img)
	if err != nil {
		return err
	}

	for _, item := range analysis.Items {
		quantity := item.Quantity
		if quantity == "" {
			quantity = "1 serving"
		}
		fmt.Printf("%-30s %-15s %6.0f kcal  (P %.1fg / F %.1fg / C %.1fg)\n",
			item.Name, quantity,
			item.NutrientInfo.Calories, item.NutrientInfo.Protein,
			item.NutrientInfo.Fat, item.NutrientInfo.Carbohydrates)
	}
	fmt.Printf("\nTotal: %.0f kcal (P %.1fg / F %.1fg / C %.1fg)\n",
		analysis.Totals.Calories, analysis.Totals.Protein, analysis.Totals.Fat, analysis.Totals.Carbs)

	if logMeal {
		entry, err := application.LogAnalysis(ctx, analysis)
		if err != nil {
			return err
		}
		fmt.Printf("Logged as entry %s\n", entry.ID)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: calorie-cam <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve              Start the HTTP API server")
	fmt.Println("  analyze            Analyze a meal photo from disk")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
