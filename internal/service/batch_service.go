package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/pipeline"
	"github.com/seonbi/hancard/internal/store"
	"github.com/seonbi/hancard/internal/task"
)

// Common sentinel errors for BatchService.
var (
	// ErrBatchNotFound indicates that the batch does not exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrEmptyBatch indicates a submission without items.
	ErrEmptyBatch = errors.New("batch must contain at least one item")
)

// ItemInput is one vocabulary entry as submitted by a client.
type ItemInput struct {
	Position     int
	Term         string
	Gloss        string
	PartOfSpeech string
	Difficulty   string
}

// BatchService provides batch submission and query operations.
type BatchService interface {
	// SubmitBatch persists a new batch and enqueues it for background
	// processing. The returned batch is in pending state.
	SubmitBatch(ctx context.Context, inputs []ItemInput) (*domain.Batch, error)

	// ProcessBatchSync persists a new batch and processes it inline,
	// returning the full per-item accounting.
	ProcessBatchSync(ctx context.Context, inputs []ItemInput) (*domain.Batch, *pipeline.BatchResult, error)

	// GetBatch returns a batch with its aggregate progress counters.
	GetBatch(ctx context.Context, id uuid.UUID) (*domain.Batch, error)

	// GetResults returns the per-item outcomes of a batch.
	GetResults(ctx context.Context, id uuid.UUID) ([]*domain.BatchItem, error)

	// GetFlashcards returns the flashcards generated for a batch.
	GetFlashcards(ctx context.Context, batchID uuid.UUID) ([]*domain.Flashcard, error)
}

// TaskRunner defines the interface for submitting background jobs.
type TaskRunner interface {
	Submit(ctx context.Context, t task.Task) error
}

// BatchServiceError wraps errors from the batch service with context.
type BatchServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *BatchServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("batch service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *BatchServiceError) Unwrap() error {
	return e.Err
}

// newBatchServiceError wraps err with operation context, passing known
// sentinels through unwrapped.
func newBatchServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrBatchNotFound) || errors.Is(err, ErrBatchNotFound) {
		return ErrBatchNotFound
	}
	return &BatchServiceError{Operation: operation, Message: message, Err: err}
}

// batchServiceImpl implements the BatchService interface.
type batchServiceImpl struct {
	db      *sql.DB
	batches store.BatchStore
	vocab   store.VocabularyStore
	cards   store.FlashcardStore
	pipe    *pipeline.Pipeline
	runner  TaskRunner
	logger  *slog.Logger
}

// NewBatchService creates a BatchService. It returns an error if any of
// the required dependencies are nil.
func NewBatchService(
	db *sql.DB,
	batches store.BatchStore,
	vocab store.VocabularyStore,
	cards store.FlashcardStore,
	pipe *pipeline.Pipeline,
	runner TaskRunner,
	logger *slog.Logger,
) (BatchService, error) {
	if db == nil {
		return nil, &BatchServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if batches == nil {
		return nil, &BatchServiceError{Operation: "create_service", Message: "batch store cannot be nil"}
	}
	if vocab == nil {
		return nil, &BatchServiceError{Operation: "create_service", Message: "vocabulary store cannot be nil"}
	}
	if cards == nil {
		return nil, &BatchServiceError{Operation: "create_service", Message: "flashcard store cannot be nil"}
	}
	if pipe == nil {
		return nil, &BatchServiceError{Operation: "create_service", Message: "pipeline cannot be nil"}
	}
	if runner == nil {
		return nil, &BatchServiceError{Operation: "create_service", Message: "task runner cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &batchServiceImpl{
		db:      db,
		batches: batches,
		vocab:   vocab,
		cards:   cards,
		pipe:    pipe,
		runner:  runner,
		logger:  logger.With("component", "batch_service"),
	}, nil
}

// SubmitBatch implements BatchService.SubmitBatch.
func (s *batchServiceImpl) SubmitBatch(ctx context.Context, inputs []ItemInput) (*domain.Batch, error) {
	batch, items, err := s.createBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}

	t := newBatchTask(batch.ID, items, s.pipe)
	if err := s.runner.Submit(ctx, t); err != nil {
		s.logger.Error("failed to enqueue batch",
			"batch_id", batch.ID,
			"error", err)
		return nil, newBatchServiceError("submit_batch", "failed to enqueue batch", err)
	}

	s.logger.Info("batch submitted", "batch_id", batch.ID, "items", len(items))
	return batch, nil
}

// ProcessBatchSync implements BatchService.ProcessBatchSync.
func (s *batchServiceImpl) ProcessBatchSync(ctx context.Context, inputs []ItemInput) (*domain.Batch, *pipeline.BatchResult, error) {
	batch, items, err := s.createBatch(ctx, inputs)
	if err != nil {
		return nil, nil, err
	}

	if err := s.batches.UpdateBatchStatus(ctx, batch.ID, domain.BatchStatusProcessing, ""); err != nil {
		return nil, nil, newBatchServiceError("process_batch", "failed to mark batch processing", err)
	}

	result, err := s.pipe.ProcessBatch(ctx, batch.ID, items)
	if err != nil {
		_ = s.batches.UpdateBatchStatus(ctx, batch.ID, domain.BatchStatusFailed, err.Error())
		return nil, nil, newBatchServiceError("process_batch", "pipeline failed", err)
	}

	status, msg := finalStatus(result)
	if err := s.batches.UpdateBatchStatus(ctx, batch.ID, status, msg); err != nil {
		return nil, nil, newBatchServiceError("process_batch", "failed to finalize batch", err)
	}

	final, err := s.batches.GetBatch(ctx, batch.ID)
	if err != nil {
		return nil, nil, newBatchServiceError("process_batch", "failed to reload batch", err)
	}
	return final, result, nil
}

// GetBatch implements BatchService.GetBatch.
func (s *batchServiceImpl) GetBatch(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	batch, err := s.batches.GetBatch(ctx, id)
	if err != nil {
		return nil, newBatchServiceError("get_batch", "failed to load batch", err)
	}
	return batch, nil
}

// GetResults implements BatchService.GetResults.
func (s *batchServiceImpl) GetResults(ctx context.Context, id uuid.UUID) ([]*domain.BatchItem, error) {
	items, err := s.batches.GetItems(ctx, id)
	if err != nil {
		return nil, newBatchServiceError("get_results", "failed to load batch items", err)
	}
	return items, nil
}

// GetFlashcards implements BatchService.GetFlashcards.
func (s *batchServiceImpl) GetFlashcards(ctx context.Context, batchID uuid.UUID) ([]*domain.Flashcard, error) {
	// Verify the batch exists so unknown IDs read as 404, not an empty list.
	if _, err := s.batches.GetBatch(ctx, batchID); err != nil {
		return nil, newBatchServiceError("get_flashcards", "failed to load batch", err)
	}

	cards, err := s.cards.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, newBatchServiceError("get_flashcards", "failed to load flashcards", err)
	}
	return cards, nil
}

// createBatch validates the inputs and persists the batch, its vocabulary
// items, and the per-item status rows in one transaction.
func (s *batchServiceImpl) createBatch(ctx context.Context, inputs []ItemInput) (*domain.Batch, []*domain.VocabularyItem, error) {
	if len(inputs) == 0 {
		return nil, nil, ErrEmptyBatch
	}

	batch, err := domain.NewBatch(len(inputs))
	if err != nil {
		return nil, nil, newBatchServiceError("create_batch", "invalid batch", err)
	}

	items := make([]*domain.VocabularyItem, len(inputs))
	batchItems := make([]*domain.BatchItem, len(inputs))
	for i, in := range inputs {
		position := in.Position
		if position == 0 {
			position = i + 1
		}

		item, err := domain.NewVocabularyItem(position, in.Term, in.PartOfSpeech)
		if err != nil {
			return nil, nil, newBatchServiceError("create_batch",
				fmt.Sprintf("invalid item %d", i+1), err)
		}
		item.Gloss = in.Gloss
		item.Difficulty = in.Difficulty
		items[i] = item

		batchItems[i] = &domain.BatchItem{
			BatchID:      batch.ID,
			VocabularyID: item.ID,
			Position:     item.Position,
			Term:         item.Term,
			Status:       domain.ItemStatusPending,
			UpdatedAt:    time.Now().UTC(),
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.batches.WithTx(tx).CreateBatch(ctx, batch, batchItems); err != nil {
			return err
		}
		return s.vocab.WithTx(tx).SaveItems(ctx, batch.ID, items)
	})
	if err != nil {
		return nil, nil, newBatchServiceError("create_batch", "failed to persist batch", err)
	}

	return batch, items, nil
}

// finalStatus decides a finished batch's terminal state. Partial failure
// still completes; only a batch where nothing succeeded is failed.
func finalStatus(result *pipeline.BatchResult) (domain.BatchStatus, string) {
	if result.Completed == 0 && result.Failed > 0 {
		return domain.BatchStatusFailed, "all items failed"
	}
	return domain.BatchStatusCompleted, ""
}
