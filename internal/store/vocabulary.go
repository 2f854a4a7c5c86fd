package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/domain"
)

// VocabularyStore persists the vocabulary items submitted with a batch.
type VocabularyStore interface {
	// SaveItems stores the items belonging to a batch. All items are
	// written or none; callers run it inside a transaction when combined
	// with batch creation.
	SaveItems(ctx context.Context, batchID uuid.UUID, items []*domain.VocabularyItem) error

	// GetByBatch returns a batch's items ordered by position.
	// Returns ErrBatchNotFound if the batch has no items.
	GetByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.VocabularyItem, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) VocabularyStore
}
