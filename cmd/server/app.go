package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/seonbi/hancard/internal/api"
	"github.com/seonbi/hancard/internal/breaker"
	"github.com/seonbi/hancard/internal/cache"
	"github.com/seonbi/hancard/internal/config"
	"github.com/seonbi/hancard/internal/generation"
	"github.com/seonbi/hancard/internal/pipeline"
	"github.com/seonbi/hancard/internal/platform/gemini"
	"github.com/seonbi/hancard/internal/platform/openrouter"
	"github.com/seonbi/hancard/internal/platform/sqlite"
	"github.com/seonbi/hancard/internal/ratelimit"
	"github.com/seonbi/hancard/internal/service"
	"github.com/seonbi/hancard/internal/store"
	"github.com/seonbi/hancard/internal/task"
)

// application holds all initialized components. Every dependency is owned
// here and passed down by reference; nothing is process-global.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	batchStore     store.BatchStore
	vocabStore     store.VocabularyStore
	flashcardStore store.FlashcardStore

	// Generation stack
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	cache   *cache.Cache
	client  *generation.Client

	// Pipeline and services
	pipeline     *pipeline.Pipeline
	batchService service.BatchService

	// Task handling
	taskRunner *task.Runner
}

// newApplication creates an application instance with all dependencies
// initialized, from the database connection up to the HTTP handlers.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	// Open the database and run migrations.
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.db = db
	logger.Info("database ready", "path", cfg.Database.Path)

	// Initialize stores.
	app.batchStore = sqlite.NewBatchStore(db, logger)
	app.vocabStore = sqlite.NewVocabularyStore(db, logger)
	app.flashcardStore = sqlite.NewFlashcardStore(db, logger)

	// Build the generation stack: provider behind a rate limiter, circuit
	// breaker, and response cache.
	provider, err := newProvider(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	app.limiter, err = ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	app.breaker, err = breaker.New(cfg.Breaker.FailureThreshold, cfg.Breaker.ResetTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
	}

	app.cache, err = cache.New(cache.Config{
		CapacityBytes: cfg.Cache.CapacityBytes,
		MaxEntries:    cfg.Cache.MaxEntries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	app.client, err = generation.NewClient(provider, app.limiter, app.breaker, app.cache,
		generation.Config{
			Model:       cfg.LLM.ModelName,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			CacheTTL:    cfg.Cache.TTL,
			Retry: generation.RetryConfig{
				MaxAttempts: cfg.Retry.MaxAttempts,
				BaseDelay:   cfg.Retry.BaseDelay,
				MaxDelay:    cfg.Retry.MaxDelay,
			},
		}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}
	logger.Info("generation client initialized", "provider", cfg.LLM.Provider)

	// Per-batch item fan-out pool.
	pool, err := task.NewPool(cfg.Worker.Count, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	app.pipeline, err = pipeline.New(app.client, pool, app.batchStore, app.flashcardStore,
		pipeline.Config{ItemTimeout: cfg.Worker.ItemTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	// Background runner: batch statuses are persisted through the batches
	// table, so interrupted work is visible after a restart.
	statusStore, err := service.NewBatchStatusStore(app.batchStore)
	if err != nil {
		return nil, fmt.Errorf("failed to create status store: %w", err)
	}

	app.taskRunner, err = task.NewRunner(statusStore, task.RunnerConfig{
		WorkerCount:  1,
		QueueSize:    64,
		DrainTimeout: cfg.Worker.DrainTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task runner: %w", err)
	}
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	app.batchService, err = service.NewBatchService(db, app.batchStore, app.vocabStore,
		app.flashcardStore, app.pipeline, app.taskRunner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// newProvider selects the LLM backend from configuration.
func newProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.New(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey}, logger)
	case "openrouter":
		return openrouter.New(openrouter.Config{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.RequestTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// setupRouter builds the HTTP routing table from the application's handlers.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(api.RouterDeps{
		Batches:    api.NewBatchHandler(app.batchService),
		Flashcards: api.NewFlashcardHandler(app.batchService),
		Health:     api.NewHealthHandler(app.db, app.breaker, app.cache),
		Logger:     app.logger,
	})
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
