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

// BatchStore implements store.BatchStore on SQLite.
type BatchStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewBatchStore creates a SQLite implementation of the BatchStore
// interface. It accepts a database connection or transaction managed by
// the caller.
func NewBatchStore(db store.DBTX, log *slog.Logger) *BatchStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &BatchStore{
		db:     db,
		logger: log.With(slog.String("component", "batch_store")),
	}
}

var _ store.BatchStore = (*BatchStore)(nil)

// CreateBatch implements store.BatchStore.CreateBatch.
func (s *BatchStore) CreateBatch(ctx context.Context, batch *domain.Batch, items []*domain.BatchItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, status, total_items, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		batch.ID.String(),
		string(batch.Status),
		batch.TotalItems,
		batch.ErrorMessage,
		batch.CreatedAt,
		batch.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create batch", "batch_id", batch.ID, "error", err)
		return fmt.Errorf("creating batch: %w", MapError(err))
	}

	itemQuery := `
		INSERT INTO batch_items
			(batch_id, vocabulary_id, position, term, status, error_kind,
			 error_message, cache_hits, duration_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, item := range items {
		_, err := s.db.ExecContext(ctx, itemQuery,
			item.BatchID.String(),
			item.VocabularyID.String(),
			item.Position,
			item.Term,
			string(item.Status),
			item.ErrorKind,
			item.ErrorMessage,
			item.CacheHits,
			item.Duration.Milliseconds(),
			item.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create batch item",
				"batch_id", item.BatchID,
				"term", item.Term,
				"error", err)
			return fmt.Errorf("creating batch item %q: %w", item.Term, MapError(err))
		}
	}

	return nil
}

// GetBatch implements store.BatchStore.GetBatch. Aggregate counters are
// computed from the per-item rows so they are always consistent with the
// item statuses.
func (s *BatchStore) GetBatch(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			b.id, b.status, b.total_items, b.error_message, b.created_at, b.updated_at,
			(SELECT COUNT(*) FROM batch_items i WHERE i.batch_id = b.id AND i.status = 'completed'),
			(SELECT COUNT(*) FROM batch_items i WHERE i.batch_id = b.id AND i.status = 'failed')
		FROM batches b
		WHERE b.id = ?
	`, id.String())

	var (
		idStr  string
		status string
		batch  domain.Batch
	)
	err := row.Scan(&idStr, &status, &batch.TotalItems, &batch.ErrorMessage,
		&batch.CreatedAt, &batch.UpdatedAt, &batch.CompletedItems, &batch.FailedItems)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrBatchNotFound
		}
		return nil, fmt.Errorf("querying batch: %w", MapError(err))
	}

	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing batch id %q: %w", idStr, err)
	}
	batch.ID = parsed
	batch.Status = domain.BatchStatus(status)

	return &batch, nil
}

// UpdateBatchStatus implements store.BatchStore.UpdateBatchStatus.
func (s *BatchStore) UpdateBatchStatus(ctx context.Context, id uuid.UUID, status domain.BatchStatus, errorMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE batches SET status = ?, error_message = ?, updated_at = ? WHERE id = ?
	`, string(status), errorMsg, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("updating batch status: %w", MapError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking batch status update: %w", err)
	}
	if affected == 0 {
		return store.ErrBatchNotFound
	}
	return nil
}

// UpdateItem implements store.BatchStore.UpdateItem.
func (s *BatchStore) UpdateItem(ctx context.Context, item *domain.BatchItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE batch_items
		SET status = ?, error_kind = ?, error_message = ?, cache_hits = ?,
		    duration_ms = ?, updated_at = ?
		WHERE batch_id = ? AND vocabulary_id = ?
	`,
		string(item.Status),
		item.ErrorKind,
		item.ErrorMessage,
		item.CacheHits,
		item.Duration.Milliseconds(),
		time.Now().UTC(),
		item.BatchID.String(),
		item.VocabularyID.String(),
	)
	if err != nil {
		return fmt.Errorf("updating batch item: %w", MapError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking batch item update: %w", err)
	}
	if affected == 0 {
		return store.ErrVocabularyItemNotFound
	}
	return nil
}

// GetItems implements store.BatchStore.GetItems.
func (s *BatchStore) GetItems(ctx context.Context, batchID uuid.UUID) ([]*domain.BatchItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, vocabulary_id, position, term, status, error_kind,
		       error_message, cache_hits, duration_ms, updated_at
		FROM batch_items
		WHERE batch_id = ?
		ORDER BY position
	`, batchID.String())
	if err != nil {
		return nil, fmt.Errorf("querying batch items: %w", MapError(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []*domain.BatchItem
	for rows.Next() {
		var (
			batchIDStr string
			vocabIDStr string
			status     string
			durationMS int64
			item       domain.BatchItem
		)
		err := rows.Scan(&batchIDStr, &vocabIDStr, &item.Position, &item.Term,
			&status, &item.ErrorKind, &item.ErrorMessage, &item.CacheHits,
			&durationMS, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning batch item: %w", err)
		}

		if item.BatchID, err = uuid.Parse(batchIDStr); err != nil {
			return nil, fmt.Errorf("parsing batch id %q: %w", batchIDStr, err)
		}
		if item.VocabularyID, err = uuid.Parse(vocabIDStr); err != nil {
			return nil, fmt.Errorf("parsing vocabulary id %q: %w", vocabIDStr, err)
		}
		item.Status = domain.ItemStatus(status)
		item.Duration = time.Duration(durationMS) * time.Millisecond
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch items: %w", err)
	}

	if len(items) == 0 {
		return nil, store.ErrBatchNotFound
	}
	return items, nil
}

// ResetInterrupted implements store.BatchStore.ResetInterrupted.
func (s *BatchStore) ResetInterrupted(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	// Items first, while the interrupted batches are still identifiable.
	_, err := s.db.ExecContext(ctx, `
		UPDATE batch_items
		SET status = 'failed', error_kind = 'transient_failure',
		    error_message = 'interrupted by restart', updated_at = ?
		WHERE status IN ('pending', 'processing')
		  AND batch_id IN (SELECT id FROM batches WHERE status = 'processing')
	`, now)
	if err != nil {
		return 0, fmt.Errorf("resetting interrupted items: %w", MapError(err))
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE batches
		SET status = 'failed', error_message = 'interrupted by restart', updated_at = ?
		WHERE status = 'processing'
	`, now)
	if err != nil {
		return 0, fmt.Errorf("resetting interrupted batches: %w", MapError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting reset batches: %w", err)
	}
	return int(affected), nil
}

// WithTx implements store.BatchStore.WithTx.
func (s *BatchStore) WithTx(tx *sql.Tx) store.BatchStore {
	return NewBatchStore(tx, s.logger)
}
