package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"calorie-cam/internal/app"
	"calorie-cam/internal/config"
	"calorie-cam/internal/database"
	"calorie-cam/internal/health"
	"calorie-cam/internal/llm"
	"calorie-cam/internal/logging"
	"calorie-cam/internal/metrics"
	"calorie-cam/internal/pipeline"
	"calorie-cam/internal/storage"
	"calorie-cam/internal/telegram"
	"calorie-cam/internal/tracker"
)

func main() {
	logging.Init()
	defer logging.Sync()

	cfg, err := config.NewFromEnv()
	if err != nil {
		logging.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.TelegramBotToken == "" {
		logging.Fatal("TELEGRAM_BOT_TOKEN environment variable not set")
	}

	ctx := context.Background()

	geminiClient, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to create Gemini client", zap.Error(err))
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

	metricsStore := metrics.NewStore(db.SQL)
	analyzer := pipeline.NewAnalyzer(
		pipeline.NewRecognizer(geminiClient),
		pipeline.NewLLMNutrientSource(textGen),
	)
	application := app.New(analyzer, mealLog, health.NewService(kv), metricsStore)

	bot, err := telegram.NewBot(cfg, application, metricsStore)
	if err != nil {
		logging.Fatal("failed to initialize Telegram bot", zap.Error(err))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		logging.Info("telegram bot server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logging.Fatal("server forced to shutdown", zap.Error(err))
	}

	logging.Info("server exiting")
}
