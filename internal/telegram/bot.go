package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"calorie-cam/internal/app"
	"calorie-cam/internal/capture"
	"calorie-cam/internal/config"
	"calorie-cam/internal/logging"
	"calorie-cam/internal/metrics"
)

// Bot wraps the Telegram API around the analysis pipeline and meal log.
// Send a food photo, get an estimate back, confirm it into the history.
type Bot struct {
	api          *tgbotapi.BotAPI
	app          *app.App
	metricsStore *metrics.Store
	cfg          *config.Config

	mu      sync.Mutex
	pending map[string]app.Analysis
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, a *app.App, metricsStore *metrics.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	logging.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logging.Info("webhook set", zap.String("response", resp.Description))

	return &Bot{
		api:          api,
		app:          a,
		metricsStore: metricsStore,
		cfg:          cfg,
		pending:      make(map[string]app.Analysis),
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		logging.Warn("failed to parse telegram update", zap.Error(err))
		return
	}

	if update.CallbackQuery != nil {
		if update.CallbackQuery.From.ID == b.cfg.TelegramAllowedUserID {
			b.handleCallbackQuery(update.CallbackQuery)
		}
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.From.ID != b.cfg.TelegramAllowedUserID {
		logging.Warn("unauthorized telegram access attempt",
			zap.Int64("user_id", update.Message.From.ID),
			zap.String("username", update.Message.From.UserName))
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	if len(msg.Photo) > 0 {
		b.handlePhoto(msg)
		return
	}

	switch {
	case msg.Text == "/start":
		b.reply(msg.Chat.ID, "📸 Send me a photo of your meal and I'll estimate the calories.\n\nCommands:\n/today - today's consumption\n/goal <calories> - set a daily goal")
	case msg.Text == "/today":
		b.handleToday(msg.Chat.ID)
	case strings.HasPrefix(msg.Text, "/goal"):
		b.handleGoal(msg.Chat.ID, msg.Text)
	case msg.Text == "/metrics":
		b.handleMetricsRequest(msg)
	default:
		b.reply(msg.Chat.ID, "Send a food photo, or /today for your daily summary.")
	}
}

func (b *Bot) handlePhoto(msg *tgbotapi.Message) {
	statusMsg := tgbotapi.NewMessage(msg.Chat.ID, "🔍 *Analyzing your meal...*")
	statusMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(statusMsg)
	if err != nil {
		logging.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	// Telegram sends multiple sizes, the last one is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	img, err := b.downloadPhoto(ctx, photo.FileID)
	if err == nil {
		var analysis app.Analysis
		analysis, err = b.app.AnalyzeImage(ctx, img)
		if err == nil {
			id := uuid.NewString()[:8]
			b.mu.Lock()
			b.pending[id] = analysis
			b.mu.Unlock()

			keyboard := tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("✅ Log it", "log|"+id),
					tgbotapi.NewInlineKeyboardButtonData("🗑 Discard", "discard|"+id),
				),
			)
			edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, formatAnalysisMarkdown(analysis))
			edit.ParseMode = "Markdown"
			edit.ReplyMarkup = &keyboard
			b.api.Send(edit)
			return
		}
	}

	logging.Warn("photo analysis failed", zap.Error(err))
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID,
		fmt.Sprintf("❌ *Couldn't analyze that photo:*\n```\n%v\n```", safeErr))
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func (b *Bot) downloadPhoto(ctx context.Context, fileID string) (capture.Image, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return capture.Image{}, fmt.Errorf("failed to resolve photo URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return capture.Image{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return capture.Image{}, fmt.Errorf("failed to download photo: %w", err)
	}
	defer resp.Body.Close()

	return capture.ReadImage(resp.Body, b.cfg.MaxImageBytes)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	action, id, ok := strings.Cut(query.Data, "|")
	if !ok {
		return
	}

	b.mu.Lock()
	analysis, found := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	if !found {
		b.editMarkdown(chatID, messageID, "⌛ That analysis has expired. Send the photo again.")
		return
	}

	if action != "log" {
		b.editMarkdown(chatID, messageID, "🗑 Discarded.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry, err := b.app.LogAnalysis(ctx, analysis)
	if err != nil {
		logging.Warn("failed to log meal from telegram", zap.Error(err))
		b.editMarkdown(chatID, messageID, "❌ Failed to log the meal. Try again.")
		return
	}

	summary, err := b.app.DailySummary(ctx, time.Now())
	text := fmt.Sprintf("✅ *Logged!* %.0f kcal added.", entry.TotalCalories)
	if err == nil {
		text += fmt.Sprintf("\n\nToday: %.0f / %d kcal", summary.Consumed.Calories, summary.Goal)
	}
	b.editMarkdown(chatID, messageID, text)
}

func (b *Bot) handleToday(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := b.app.DailySummary(ctx, time.Now())
	if err != nil {
		logging.Warn("failed to build daily summary", zap.Error(err))
		b.reply(chatID, "❌ Couldn't load today's summary.")
		return
	}
	b.replyMarkdown(chatID, formatSummaryMarkdown(summary))
}

func (b *Bot) handleGoal(chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		b.reply(chatID, "Usage: /goal <calories>")
		return
	}
	goal, err := strconv.Atoi(fields[1])
	if err != nil || goal <= 0 {
		b.reply(chatID, "The goal must be a positive number of calories.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.app.Health.SetGoal(ctx, goal); err != nil {
		logging.Warn("failed to set goal from telegram", zap.Error(err))
		b.reply(chatID, "❌ Failed to save the goal.")
		return
	}
	b.replyMarkdown(chatID, fmt.Sprintf("🎯 Daily goal set to *%d kcal*.", goal))
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.TelegramAdminID {
		b.replyMarkdown(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	b.handleMetricsCommand(msg.Chat.ID)
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth("data")

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecutions))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))

	b.replyMarkdown(chatID, sb.String())
}

func (b *Bot) reply(chatID int64, text string) {
	b.api.Send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	b.api.Send(msg)
}

func (b *Bot) editMarkdown(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func formatAnalysisMarkdown(a app.Analysis) string {
	var sb strings.Builder
	sb.WriteString("🍽 *Meal Analysis*\n\n")

	for _, item := range a.Items {
		sb.WriteString(fmt.Sprintf("*%s*", item.Name))
		if item.Quantity != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", item.Quantity))
		}
		sb.WriteString(fmt.Sprintf(": %.0f kcal\n", item.NutrientInfo.Calories))
	}

	sb.WriteString(fmt.Sprintf("\n*Total:* %.0f kcal\n", a.Totals.Calories))
	sb.WriteString(fmt.Sprintf("P %.1fg • F %.1fg • C %.1fg", a.Totals.Protein, a.Totals.Fat, a.Totals.Carbs))
	return sb.String()
}

func formatSummaryMarkdown(s app.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Today* (%s)\n\n", s.Date))
	sb.WriteString(fmt.Sprintf("🔥 Consumed: *%.0f / %d kcal*\n", s.Consumed.Calories, s.Goal))
	if s.OverGoal {
		sb.WriteString(fmt.Sprintf("⚠️ Over goal by %d kcal\n", -s.Remaining))
	} else {
		sb.WriteString(fmt.Sprintf("✅ Remaining: %d kcal\n", s.Remaining))
	}
	sb.WriteString(fmt.Sprintf("\n🥩 Protein: %.0fg / %dg\n", s.Consumed.Protein, s.MacroTargets.ProteinG))
	sb.WriteString(fmt.Sprintf("🧈 Fat: %.0fg / %dg\n", s.Consumed.Fat, s.MacroTargets.FatG))
	sb.WriteString(fmt.Sprintf("🍞 Carbs: %.0fg / %dg\n", s.Consumed.Carbs, s.MacroTargets.CarbsG))
	sb.WriteString(fmt.Sprintf("\n🍽 Meals logged: %d", s.EntryCount))
	return sb.String()
}
