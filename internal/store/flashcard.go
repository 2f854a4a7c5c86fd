package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/domain"
)

// FlashcardStore persists generated flashcards and archived stage payloads.
type FlashcardStore interface {
	// SaveFlashcard stores a generated flashcard. Saves are idempotent
	// per vocabulary item: a retry after a partial failure overwrites the
	// earlier row instead of duplicating it.
	SaveFlashcard(ctx context.Context, card *domain.Flashcard) error

	// GetByVocabularyID returns the flashcard generated for one item.
	// Returns ErrFlashcardNotFound if none exists.
	GetByVocabularyID(ctx context.Context, vocabularyID uuid.UUID) (*domain.Flashcard, error)

	// GetByBatch returns all flashcards generated for a batch, ordered by
	// item position.
	GetByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.Flashcard, error)

	// SaveStageOutput archives a raw stage payload for later inspection.
	SaveStageOutput(ctx context.Context, vocabularyID uuid.UUID, stage string, payload []byte) error

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) FlashcardStore
}
