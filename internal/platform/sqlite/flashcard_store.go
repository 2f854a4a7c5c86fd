package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/platform/logger"
	"github.com/seonbi/hancard/internal/store"
)

// FlashcardStore implements store.FlashcardStore on SQLite.
type FlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewFlashcardStore creates a SQLite implementation of the FlashcardStore
// interface. It accepts a database connection or transaction managed by
// the caller.
func NewFlashcardStore(db store.DBTX, log *slog.Logger) *FlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &FlashcardStore{
		db:     db,
		logger: log.With(slog.String("component", "flashcard_store")),
	}
}

var _ store.FlashcardStore = (*FlashcardStore)(nil)

// SaveFlashcard implements store.FlashcardStore.SaveFlashcard. The upsert
// on vocabulary_id makes retried saves idempotent: regenerating an item
// replaces its flashcard instead of duplicating it.
func (s *FlashcardStore) SaveFlashcard(ctx context.Context, card *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rowsJSON, err := json.Marshal(card.Rows)
	if err != nil {
		return fmt.Errorf("encoding flashcard rows: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flashcards (id, vocabulary_id, batch_id, nuance, card_rows, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(vocabulary_id) DO UPDATE SET
			batch_id = excluded.batch_id,
			nuance = excluded.nuance,
			card_rows = excluded.card_rows
	`,
		card.ID.String(),
		card.VocabularyID.String(),
		card.BatchID.String(),
		string(card.Nuance),
		string(rowsJSON),
		card.CreatedAt,
	)
	if err != nil {
		log.Error("failed to save flashcard",
			"vocabulary_id", card.VocabularyID,
			"error", err)
		return fmt.Errorf("saving flashcard: %w", MapError(err))
	}

	return nil
}

// GetByVocabularyID implements store.FlashcardStore.GetByVocabularyID.
func (s *FlashcardStore) GetByVocabularyID(ctx context.Context, vocabularyID uuid.UUID) (*domain.Flashcard, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, vocabulary_id, batch_id, nuance, card_rows, created_at
		FROM flashcards
		WHERE vocabulary_id = ?
	`, vocabularyID.String())

	card, err := scanFlashcard(row.Scan)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrFlashcardNotFound
		}
		return nil, err
	}
	return card, nil
}

// GetByBatch implements store.FlashcardStore.GetByBatch.
func (s *FlashcardStore) GetByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.Flashcard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.vocabulary_id, f.batch_id, f.nuance, f.card_rows, f.created_at
		FROM flashcards f
		JOIN vocabulary_items v ON v.id = f.vocabulary_id
		WHERE f.batch_id = ?
		ORDER BY v.position
	`, batchID.String())
	if err != nil {
		return nil, fmt.Errorf("querying flashcards: %w", MapError(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	var cards []*domain.Flashcard
	for rows.Next() {
		card, err := scanFlashcard(rows.Scan)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating flashcards: %w", err)
	}
	return cards, nil
}

// SaveStageOutput implements store.FlashcardStore.SaveStageOutput.
func (s *FlashcardStore) SaveStageOutput(ctx context.Context, vocabularyID uuid.UUID, stage string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_outputs (vocabulary_id, stage, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, vocabularyID.String(), stage, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archiving %s output: %w", stage, MapError(err))
	}
	return nil
}

// WithTx implements store.FlashcardStore.WithTx.
func (s *FlashcardStore) WithTx(tx *sql.Tx) store.FlashcardStore {
	return NewFlashcardStore(tx, s.logger)
}

func scanFlashcard(scan func(dest ...any) error) (*domain.Flashcard, error) {
	var (
		idStr      string
		vocabIDStr string
		batchIDStr string
		nuance     string
		rowsJSON   string
		createdAt  time.Time
	)
	if err := scan(&idStr, &vocabIDStr, &batchIDStr, &nuance, &rowsJSON, &createdAt); err != nil {
		return nil, err
	}

	card := &domain.Flashcard{
		Nuance:    json.RawMessage(nuance),
		CreatedAt: createdAt,
	}

	var err error
	if card.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parsing flashcard id %q: %w", idStr, err)
	}
	if card.VocabularyID, err = uuid.Parse(vocabIDStr); err != nil {
		return nil, fmt.Errorf("parsing vocabulary id %q: %w", vocabIDStr, err)
	}
	if card.BatchID, err = uuid.Parse(batchIDStr); err != nil {
		return nil, fmt.Errorf("parsing batch id %q: %w", batchIDStr, err)
	}
	if err := json.Unmarshal([]byte(rowsJSON), &card.Rows); err != nil {
		return nil, fmt.Errorf("decoding flashcard rows: %w", err)
	}

	return card, nil
}
