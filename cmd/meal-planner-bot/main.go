package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/karanpatel1993/meal-planner-buddy/internal/config"
	"github.com/karanpatel1993/meal-planner-buddy/internal/database"
	"github.com/karanpatel1993/meal-planner-buddy/internal/genclient"
	"github.com/karanpatel1993/meal-planner-buddy/internal/importer"
	"github.com/karanpatel1993/meal-planner-buddy/internal/llm"
	"github.com/karanpatel1993/meal-planner-buddy/internal/metrics"
	"github.com/karanpatel1993/meal-planner-buddy/internal/planner"
	"github.com/karanpatel1993/meal-planner-buddy/internal/settings"
	"github.com/karanpatel1993/meal-planner-buddy/internal/store"
	"github.com/karanpatel1993/meal-planner-buddy/internal/telegram"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required to run the bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	settingsStore := settings.NewStore(db.SQL)
	apiKey := cfg.GeminiAPIKey
	if apiKey == "" {
		if apiKey, err = settingsStore.Get(ctx, settings.KeyAPIKey); err != nil {
			log.Fatalf("Failed to load API key: %v", err)
		}
	}

	var gen genclient.Generator
	var repo store.Repository
	if cfg.Mode == config.ModeProxy {
		proxyClient := genclient.NewProxyClient(cfg.BackendURL, cfg.ServiceKey)
		gen = proxyClient
		repo = store.NewRemoteRepository(proxyClient)
	} else {
		gen = genclient.NewGeminiClient(apiKey, cfg.GeminiModel)
		repo = store.NewSQLiteRepository(db.SQL)
	}

	recipes, err := store.NewWithCache(ctx, repo, store.NewSQLiteCandidateCache(db.SQL))
	if err != nil {
		log.Fatalf("Failed to load saved recipes: %v", err)
	}

	metricsStore := metrics.NewStore(db.SQL)
	mealPlanner := planner.New(string(cfg.Mode), cfg.GeminiModel, gen, recipes, metricsStore)

	// Import needs the model SDK directly, so it is only wired when a key is
	// available.
	var imp *importer.Importer
	if apiKey != "" {
		textGen, err := llm.NewGeminiClient(ctx, apiKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		if closer, ok := textGen.(llm.Closer); ok {
			defer closer.Close()
		}
		imp = importer.New(textGen, recipes)
	}

	bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramAllowUserID, mealPlanner, recipes, imp, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	log.Println("Bot is running. Press Ctrl-C to stop.")
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Bot stopped: %v", err)
	}
}
