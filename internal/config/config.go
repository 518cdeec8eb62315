package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultMaxImageBytes is the upload cap enforced before any model call is
// made.
const DefaultMaxImageBytes = 5 * 1024 * 1024

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey string
	GroqAPIKey   string
	// TextProvider selects the model used for the nutrient estimation stage:
	// "gemini" (default) or "groq".
	TextProvider string

	DatabasePath  string
	ListenAddr    string
	APIKey        string // shared secret exchanged for a session token
	SessionSecret string // HS256 signing key for session tokens

	// NutrientSourceURL, when set, switches nutrient lookups from the model
	// to an HTML nutrition-facts endpoint ("%s" is replaced with the food name).
	NutrientSourceURL string

	MaxImageBytes int64

	// Telegram Config (optional for the server, required for the bot)
	TelegramBotToken      string
	TelegramWebhookURL    string
	TelegramAllowedUserID int64
	TelegramAdminID       int64
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first if present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	textProvider := os.Getenv("TEXT_PROVIDER")
	if textProvider == "" {
		textProvider = "gemini"
	}
	if textProvider != "gemini" && textProvider != "groq" {
		return nil, fmt.Errorf("TEXT_PROVIDER must be \"gemini\" or \"groq\", got %q", textProvider)
	}

	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if textProvider == "groq" && groqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable not set")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/calorie-cam.db"
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	maxImageBytes := int64(DefaultMaxImageBytes)
	if v := os.Getenv("MAX_IMAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_IMAGE_BYTES must be a positive integer, got %q", v)
		}
		maxImageBytes = n
	}

	var allowedUserID, adminID int64
	if v := os.Getenv("TELEGRAM_ALLOW_USER_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ALLOW_USER_ID must be an integer, got %q", v)
		}
		allowedUserID = n
	}
	if v := os.Getenv("TELEGRAM_ADMIN_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ADMIN_ID must be an integer, got %q", v)
		}
		adminID = n
	}

	return &Config{
		GeminiAPIKey:          geminiAPIKey,
		GroqAPIKey:            groqAPIKey,
		TextProvider:          textProvider,
		DatabasePath:          dbPath,
		ListenAddr:            listenAddr,
		APIKey:                os.Getenv("API_KEY"),
		SessionSecret:         sessionSecret,
		NutrientSourceURL:     os.Getenv("NUTRIENT_SOURCE_URL"),
		MaxImageBytes:         maxImageBytes,
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:    os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserID: allowedUserID,
		TelegramAdminID:       adminID,
	}, nil
}
