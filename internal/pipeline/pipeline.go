package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/generation"
	"github.com/seonbi/hancard/internal/store"
	"github.com/seonbi/hancard/internal/task"
)

// Construction errors.
var (
	ErrNilInvoker        = errors.New("stage invoker cannot be nil")
	ErrNilPool           = errors.New("worker pool cannot be nil")
	ErrNilBatchStore     = errors.New("batch store cannot be nil")
	ErrNilFlashcardStore = errors.New("flashcard store cannot be nil")
	ErrNilLogger         = errors.New("logger cannot be nil")
	ErrNoItems           = errors.New("batch has no items")
)

// KindPersistenceFailure labels items whose content generated fine but
// could not be saved. The content is not regenerated on retry; only the
// save is repeated.
const KindPersistenceFailure = "persistence_failure"

// Invoker runs one generation stage. Implemented by *generation.Client.
type Invoker interface {
	Invoke(ctx context.Context, req *generation.StageRequest) (*generation.StageResult, error)
}

// Config holds pipeline tuning.
type Config struct {
	// ItemTimeout bounds the two stages of a single item together.
	ItemTimeout time.Duration
}

// ItemOutcome is the per-item accounting ProcessBatch returns: exactly one
// per submitted item, regardless of what happened to the item.
type ItemOutcome struct {
	Item      *domain.VocabularyItem
	Status    domain.ItemStatus
	ErrorKind string
	Err       error
	CacheHits int
	Usage     generation.Usage
	Duration  time.Duration
}

// BatchResult aggregates the outcomes of one ProcessBatch run.
type BatchResult struct {
	BatchID   uuid.UUID
	Outcomes  []ItemOutcome
	Completed int
	Failed    int
}

// Pipeline drives batch flashcard generation. All collaborators are shared
// by reference and owned by the caller.
type Pipeline struct {
	invoker Invoker
	pool    *task.Pool
	batches store.BatchStore
	cards   store.FlashcardStore
	cfg     Config
	logger  *slog.Logger
}

// New wires a Pipeline.
func New(
	invoker Invoker,
	pool *task.Pool,
	batches store.BatchStore,
	cards store.FlashcardStore,
	cfg Config,
	logger *slog.Logger,
) (*Pipeline, error) {
	if invoker == nil {
		return nil, ErrNilInvoker
	}
	if pool == nil {
		return nil, ErrNilPool
	}
	if batches == nil {
		return nil, ErrNilBatchStore
	}
	if cards == nil {
		return nil, ErrNilFlashcardStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 2 * time.Minute
	}

	return &Pipeline{
		invoker: invoker,
		pool:    pool,
		batches: batches,
		cards:   cards,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// ProcessBatch generates flashcards for every item in the batch and
// returns one outcome per item. Item failures are recorded, never
// escalated: the siblings keep processing. The returned error covers only
// batch-level problems (no items).
func (p *Pipeline) ProcessBatch(ctx context.Context, batchID uuid.UUID, items []*domain.VocabularyItem) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	log := p.logger.With("batch_id", batchID)
	log.Info("processing batch", "items", len(items))

	outcomes := make([]ItemOutcome, len(items))

	poolOutcomes := p.pool.Run(ctx, len(items), func(ctx context.Context, i int) error {
		outcomes[i] = p.processItem(ctx, batchID, items[i])
		if outcomes[i].Err != nil {
			return outcomes[i].Err
		}
		return nil
	})

	result := &BatchResult{BatchID: batchID, Outcomes: outcomes}
	for i, po := range poolOutcomes {
		// Items skipped by the pool after cancellation never reached
		// processItem; synthesize their outcome here so the accounting
		// stays complete.
		if outcomes[i].Status == "" {
			outcomes[i] = ItemOutcome{
				Item:      items[i],
				Status:    domain.ItemStatusFailed,
				ErrorKind: string(generation.KindCancelled),
				Err:       po.Err,
			}
			p.recordItem(batchID, items[i], outcomes[i])
		}

		switch outcomes[i].Status {
		case domain.ItemStatusCompleted:
			result.Completed++
		default:
			result.Failed++
		}
	}

	log.Info("batch processed",
		"completed", result.Completed,
		"failed", result.Failed)

	return result, nil
}

// processItem runs the per-item state machine: pending -> nuance ->
// flashcard -> saved. The first failed step decides the item's error kind;
// a nuance failure means the flashcard stage is never attempted.
func (p *Pipeline) processItem(ctx context.Context, batchID uuid.UUID, item *domain.VocabularyItem) ItemOutcome {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ItemTimeout)
	defer cancel()

	log := p.logger.With("batch_id", batchID, "term", item.Term)
	start := time.Now()

	outcome := ItemOutcome{Item: item, Status: domain.ItemStatusProcessing}
	p.recordItem(batchID, item, outcome)

	fail := func(err error, kind string) ItemOutcome {
		outcome.Status = domain.ItemStatusFailed
		outcome.Err = err
		outcome.ErrorKind = kind
		outcome.Duration = time.Since(start)
		log.Warn("item failed", "kind", kind, "error", err)
		p.recordItem(batchID, item, outcome)
		return outcome
	}

	nuance, err := p.invoker.Invoke(ctx, &generation.StageRequest{
		Item:  item,
		Stage: generation.StageNuance,
	})
	if err != nil {
		return fail(fmt.Errorf("nuance stage: %w", err), string(generation.KindOf(err)))
	}
	outcome.Usage = addUsage(outcome.Usage, nuance.Usage)
	if nuance.CacheHit {
		outcome.CacheHits++
	}

	cards, err := p.invoker.Invoke(ctx, &generation.StageRequest{
		Item:   item,
		Stage:  generation.StageFlashcard,
		Nuance: nuance.Nuance,
	})
	if err != nil {
		return fail(fmt.Errorf("flashcard stage: %w", err), string(generation.KindOf(err)))
	}
	outcome.Usage = addUsage(outcome.Usage, cards.Usage)
	if cards.CacheHit {
		outcome.CacheHits++
	}

	flashcard, err := domain.NewFlashcard(item.ID, batchID, nuance.Payload, cards.Rows)
	if err != nil {
		return fail(fmt.Errorf("assembling flashcard: %w", err), string(generation.KindPermanentFailure))
	}
	if err := p.cards.SaveFlashcard(ctx, flashcard); err != nil {
		return fail(fmt.Errorf("saving flashcard: %w", err), KindPersistenceFailure)
	}

	p.archiveStage(ctx, item.ID, generation.StageNuance, nuance.Payload)
	p.archiveStage(ctx, item.ID, generation.StageFlashcard, cards.Payload)

	outcome.Status = domain.ItemStatusCompleted
	outcome.Duration = time.Since(start)
	p.recordItem(batchID, item, outcome)

	log.Debug("item completed",
		"cache_hits", outcome.CacheHits,
		"duration", outcome.Duration)
	return outcome
}

// recordItem persists an item's current state. Bookkeeping failures are
// logged, not escalated: the in-memory outcome remains authoritative for
// the caller.
func (p *Pipeline) recordItem(batchID uuid.UUID, item *domain.VocabularyItem, outcome ItemOutcome) {
	var msg string
	if outcome.Err != nil {
		msg = outcome.Err.Error()
	}

	// A fresh context: item state must be recordable even after the
	// item's own context was cancelled.
	err := p.batches.UpdateItem(context.Background(), &domain.BatchItem{
		BatchID:      batchID,
		VocabularyID: item.ID,
		Position:     item.Position,
		Term:         item.Term,
		Status:       outcome.Status,
		ErrorKind:    outcome.ErrorKind,
		ErrorMessage: msg,
		CacheHits:    outcome.CacheHits,
		Duration:     outcome.Duration,
	})
	if err != nil {
		p.logger.Error("failed to record item state",
			"batch_id", batchID,
			"term", item.Term,
			"error", err)
	}
}

// archiveStage stores a raw stage payload for later inspection. Archival
// is best effort.
func (p *Pipeline) archiveStage(ctx context.Context, vocabularyID uuid.UUID, stage generation.Stage, payload []byte) {
	if err := p.cards.SaveStageOutput(ctx, vocabularyID, string(stage), payload); err != nil {
		p.logger.Warn("failed to archive stage output",
			"vocabulary_id", vocabularyID,
			"stage", stage,
			"error", err)
	}
}

func addUsage(a, b generation.Usage) generation.Usage {
	return generation.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
