package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/pipeline"
	"github.com/seonbi/hancard/internal/store"
	"github.com/seonbi/hancard/internal/task"
)

// batchTask runs the generation pipeline for one batch as a background
// job. Its ID is the batch ID, so the runner's status transitions land on
// the batch row.
type batchTask struct {
	batchID uuid.UUID
	items   []*domain.VocabularyItem
	pipe    *pipeline.Pipeline
}

func newBatchTask(batchID uuid.UUID, items []*domain.VocabularyItem, pipe *pipeline.Pipeline) *batchTask {
	return &batchTask{batchID: batchID, items: items, pipe: pipe}
}

// ID implements task.Task.
func (t *batchTask) ID() uuid.UUID { return t.batchID }

// Type implements task.Task.
func (t *batchTask) Type() string { return task.TypeBatchGeneration }

// Execute implements task.Task. Partial failure is a successful run; the
// per-item rows carry the detail. Only a batch where nothing succeeded
// reports failure to the runner.
func (t *batchTask) Execute(ctx context.Context) error {
	result, err := t.pipe.ProcessBatch(ctx, t.batchID, t.items)
	if err != nil {
		return fmt.Errorf("processing batch %s: %w", t.batchID, err)
	}

	if result.Completed == 0 && result.Failed > 0 {
		return errors.New("all items failed")
	}
	return nil
}

// batchStatusStore adapts store.BatchStore to the task runner's
// StatusStore. Task statuses and batch statuses share their vocabulary.
type batchStatusStore struct {
	batches store.BatchStore
}

// NewBatchStatusStore returns a task.StatusStore writing through to the
// batches table.
func NewBatchStatusStore(batches store.BatchStore) (task.StatusStore, error) {
	if batches == nil {
		return nil, errors.New("batch store cannot be nil")
	}
	return &batchStatusStore{batches: batches}, nil
}

// UpdateTaskStatus implements task.StatusStore.
func (s *batchStatusStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status task.Status, errorMsg string) error {
	return s.batches.UpdateBatchStatus(ctx, id, domain.BatchStatus(status), errorMsg)
}

// ResetInterrupted implements task.StatusStore.
func (s *batchStatusStore) ResetInterrupted(ctx context.Context) (int, error) {
	return s.batches.ResetInterrupted(ctx)
}
