package config

import (
	"fmt"
	"os"
	"strconv"
)

// Mode selects how generation requests are issued.
type Mode string

const (
	// ModeDirect calls the Gemini generateContent endpoint with the user's API key.
	ModeDirect Mode = "direct"
	// ModeProxy calls an intermediary backend instead of the model provider.
	ModeProxy Mode = "proxy"
)

// Config holds the configuration for the application.
type Config struct {
	Mode Mode

	// Direct mode. An empty key means "not configured"; the planner rejects
	// direct-mode generation until the user sets one.
	GeminiAPIKey string
	GeminiModel  string

	// Proxy mode.
	BackendURL string
	// ServiceKey authenticates against the backend, formatted as "id:secret"
	// (hex secret). The Gemini key itself is never sent to the backend.
	ServiceKey string

	// Local persistence.
	DBPath string

	// Server.
	ListenAddr string

	// Telegram bot (optional).
	TelegramBotToken    string
	TelegramAllowUserID int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	mode := Mode(os.Getenv("MEAL_PLANNER_MODE"))
	switch mode {
	case "":
		mode = ModeDirect
	case ModeDirect, ModeProxy:
	default:
		return nil, fmt.Errorf("MEAL_PLANNER_MODE must be %q or %q, got %q", ModeDirect, ModeProxy, mode)
	}

	backendURL := os.Getenv("BACKEND_URL")
	if mode == ModeProxy && backendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL environment variable not set")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-1.5-flash"
	}

	dbPath := os.Getenv("MEAL_PLANNER_DB")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dbPath = home + "/.meal-planner-buddy/meal-planner.db"
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8000"
	}

	var allowUserID int64
	if v := os.Getenv("TELEGRAM_ALLOW_USER_ID"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ALLOW_USER_ID must be an integer: %w", err)
		}
		allowUserID = parsed
	}

	return &Config{
		Mode:                mode,
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         model,
		BackendURL:          backendURL,
		ServiceKey:          os.Getenv("SERVICE_KEY"),
		DBPath:              dbPath,
		ListenAddr:          listenAddr,
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAllowUserID: allowUserID,
	}, nil
}
