package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/seonbi/hancard/internal/api/middleware"
)

// RouterDeps bundles the handlers the router mounts.
type RouterDeps struct {
	Batches    *BatchHandler
	Flashcards *FlashcardHandler
	Health     *HealthHandler
	Logger     *slog.Logger
}

// NewRouter builds the HTTP routing table.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(deps.Logger))

	r.Get("/healthz", deps.Health.Check)

	r.Route("/api", func(r chi.Router) {
		r.Post("/batches", deps.Batches.CreateBatch)
		r.Get("/batches/{batchID}", deps.Batches.GetBatch)
		r.Get("/batches/{batchID}/results", deps.Batches.GetResults)
		r.Get("/flashcards", deps.Flashcards.ListFlashcards)
	})

	return r
}
