package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/domain"
)

// BatchStore persists batches and their per-item processing state.
type BatchStore interface {
	// CreateBatch stores a new batch and its per-item status rows.
	CreateBatch(ctx context.Context, batch *domain.Batch, items []*domain.BatchItem) error

	// GetBatch returns a batch with its aggregate counters computed from
	// the per-item rows. Returns ErrBatchNotFound if it does not exist.
	GetBatch(ctx context.Context, id uuid.UUID) (*domain.Batch, error)

	// UpdateBatchStatus records a batch lifecycle transition. errorMsg is
	// stored only for failed transitions.
	UpdateBatchStatus(ctx context.Context, id uuid.UUID, status domain.BatchStatus, errorMsg string) error

	// UpdateItem records one item's processing state.
	UpdateItem(ctx context.Context, item *domain.BatchItem) error

	// GetItems returns a batch's per-item rows ordered by position.
	GetItems(ctx context.Context, batchID uuid.UUID) ([]*domain.BatchItem, error)

	// ResetInterrupted marks batches left in "processing" by a previous
	// run as failed and returns how many were affected.
	ResetInterrupted(ctx context.Context) (int, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) BatchStore
}
