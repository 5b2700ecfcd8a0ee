package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karanpatel1993/meal-planner-buddy/internal/config"
	"github.com/karanpatel1993/meal-planner-buddy/internal/database"
	"github.com/karanpatel1993/meal-planner-buddy/internal/llm"
	"github.com/karanpatel1993/meal-planner-buddy/internal/server"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is required to run the server")
	}

	ctx := context.Background()

	geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}
	if closer, ok := geminiClient.(llm.Closer); ok {
		defer closer.Close()
	}

	db, err := database.NewDB(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(geminiClient, db, cfg.ServiceKey).Router(),
	}

	go func() {
		log.Printf("Listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
}
