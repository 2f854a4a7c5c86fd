package task

import (
	"context"

	"github.com/google/uuid"
)

// Status represents the current state of a background job.
type Status string

// Possible job status values.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task type constants.
const (
	// TypeBatchGeneration identifies jobs that generate flashcards for a
	// whole vocabulary batch.
	TypeBatchGeneration = "batch_generation"
)

// Task represents a unit of background work to be processed.
type Task interface {
	// ID returns the task's unique identifier. For batch generation this
	// is the batch ID.
	ID() uuid.UUID

	// Type returns the task type identifier.
	Type() string

	// Execute runs the task logic.
	Execute(ctx context.Context) error
}

// StatusStore persists job status transitions so a batch's lifecycle is
// observable through the API and across restarts.
type StatusStore interface {
	// UpdateTaskStatus records a status transition. errorMsg is stored
	// only for failed transitions.
	UpdateTaskStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error

	// ResetInterrupted marks jobs left in "processing" by a previous run
	// as failed. Generation cannot resume mid-item; rerunning a batch is
	// cheap because completed stages are served from cache and store.
	ResetInterrupted(ctx context.Context) (int, error)
}
