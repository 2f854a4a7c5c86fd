package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/platform/logger"
	"github.com/seonbi/hancard/internal/store"
)

// VocabularyStore implements store.VocabularyStore on SQLite.
type VocabularyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewVocabularyStore creates a SQLite implementation of the
// VocabularyStore interface. It accepts a database connection or
// transaction managed by the caller.
func NewVocabularyStore(db store.DBTX, log *slog.Logger) *VocabularyStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &VocabularyStore{
		db:     db,
		logger: log.With(slog.String("component", "vocabulary_store")),
	}
}

var _ store.VocabularyStore = (*VocabularyStore)(nil)

// SaveItems implements store.VocabularyStore.SaveItems.
func (s *VocabularyStore) SaveItems(ctx context.Context, batchID uuid.UUID, items []*domain.VocabularyItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO vocabulary_items
			(id, batch_id, position, term, gloss, part_of_speech, difficulty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, item := range items {
		_, err := s.db.ExecContext(ctx, query,
			item.ID.String(),
			batchID.String(),
			item.Position,
			item.Term,
			item.Gloss,
			string(item.PartOfSpeech),
			item.Difficulty,
			item.CreatedAt,
		)
		if err != nil {
			log.Error("failed to save vocabulary item",
				"batch_id", batchID,
				"term", item.Term,
				"error", err)
			return fmt.Errorf("saving vocabulary item %q: %w", item.Term, MapError(err))
		}
	}

	return nil
}

// GetByBatch implements store.VocabularyStore.GetByBatch.
func (s *VocabularyStore) GetByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.VocabularyItem, error) {
	query := `
		SELECT id, position, term, gloss, part_of_speech, difficulty, created_at
		FROM vocabulary_items
		WHERE batch_id = ?
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, batchID.String())
	if err != nil {
		return nil, fmt.Errorf("querying vocabulary items: %w", MapError(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []*domain.VocabularyItem
	for rows.Next() {
		item, err := scanVocabularyItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vocabulary items: %w", err)
	}

	// Batches are created with at least one item, so an empty result
	// means the batch does not exist.
	if len(items) == 0 {
		return nil, store.ErrBatchNotFound
	}

	return items, nil
}

// WithTx implements store.VocabularyStore.WithTx.
func (s *VocabularyStore) WithTx(tx *sql.Tx) store.VocabularyStore {
	return NewVocabularyStore(tx, s.logger)
}

func scanVocabularyItem(rows *sql.Rows) (*domain.VocabularyItem, error) {
	var (
		idStr     string
		item      domain.VocabularyItem
		pos       string
		createdAt time.Time
	)
	if err := rows.Scan(&idStr, &item.Position, &item.Term, &item.Gloss, &pos, &item.Difficulty, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning vocabulary item: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing vocabulary item id %q: %w", idStr, err)
	}

	item.ID = id
	item.PartOfSpeech = domain.PartOfSpeech(pos)
	item.CreatedAt = createdAt
	return &item, nil
}
