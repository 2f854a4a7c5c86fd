// Package main implements the entry point for the hancard server, which
// turns Korean vocabulary lists into mnemonic flashcards through a
// two-stage LLM pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/seonbi/hancard/internal/config"
	"github.com/seonbi/hancard/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env vars take precedence)")
	flag.Parse()

	// Load .env if present; real environments set variables directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_provider", cfg.LLM.Provider,
		"model", cfg.LLM.ModelName)

	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		appLogger.Error("server error", "error", err)
		app.cleanup()
		os.Exit(1)
	}
}
