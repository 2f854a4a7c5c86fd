package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func seedBatch(t *testing.T, db *sql.DB, terms ...string) (*domain.Batch, []*domain.VocabularyItem) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	batches := NewBatchStore(db, logger)
	vocab := NewVocabularyStore(db, logger)

	batch, err := domain.NewBatch(len(terms))
	require.NoError(t, err)

	items := make([]*domain.VocabularyItem, len(terms))
	batchItems := make([]*domain.BatchItem, len(terms))
	for i, term := range terms {
		item, err := domain.NewVocabularyItem(i+1, term, "n")
		require.NoError(t, err)
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

	ctx := context.Background()
	require.NoError(t, store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if err := batches.WithTx(tx).CreateBatch(ctx, batch, batchItems); err != nil {
			return err
		}
		return vocab.WithTx(tx).SaveItems(ctx, batch.ID, items)
	}))

	return batch, items
}

func TestBatchRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batch, items := seedBatch(t, db, "안녕", "책", "먹다")

	batches := NewBatchStore(db, slog.New(slog.DiscardHandler))
	vocab := NewVocabularyStore(db, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	got, err := batches.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)
	assert.Equal(t, domain.BatchStatusPending, got.Status)
	assert.Equal(t, 3, got.TotalItems)
	assert.Zero(t, got.CompletedItems)
	assert.Zero(t, got.FailedItems)

	gotItems, err := vocab.GetByBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, gotItems, 3)
	for i, item := range gotItems {
		assert.Equal(t, items[i].ID, item.ID)
		assert.Equal(t, items[i].Term, item.Term)
		assert.Equal(t, i+1, item.Position)
		assert.Equal(t, domain.POSNoun, item.PartOfSpeech)
	}
}

func TestGetBatchNotFound(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batches := NewBatchStore(db, slog.New(slog.DiscardHandler))

	_, err := batches.GetBatch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrBatchNotFound)

	vocab := NewVocabularyStore(db, slog.New(slog.DiscardHandler))
	_, err = vocab.GetByBatch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrBatchNotFound)
}

func TestBatchCountersFollowItemStatuses(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batch, items := seedBatch(t, db, "안녕", "책", "먹다")

	batches := NewBatchStore(db, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	require.NoError(t, batches.UpdateItem(ctx, &domain.BatchItem{
		BatchID:      batch.ID,
		VocabularyID: items[0].ID,
		Status:       domain.ItemStatusCompleted,
		CacheHits:    2,
		Duration:     1500 * time.Millisecond,
	}))
	require.NoError(t, batches.UpdateItem(ctx, &domain.BatchItem{
		BatchID:      batch.ID,
		VocabularyID: items[1].ID,
		Status:       domain.ItemStatusFailed,
		ErrorKind:    "permanent_failure",
		ErrorMessage: "model returned garbage",
	}))

	got, err := batches.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedItems)
	assert.Equal(t, 1, got.FailedItems)

	rows, err := batches.GetItems(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.ItemStatusCompleted, rows[0].Status)
	assert.Equal(t, 2, rows[0].CacheHits)
	assert.Equal(t, 1500*time.Millisecond, rows[0].Duration)
	assert.Equal(t, domain.ItemStatusFailed, rows[1].Status)
	assert.Equal(t, "permanent_failure", rows[1].ErrorKind)
	assert.Equal(t, domain.ItemStatusPending, rows[2].Status)
}

func TestUpdateItemUnknownVocabulary(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batch, _ := seedBatch(t, db, "안녕")

	batches := NewBatchStore(db, slog.New(slog.DiscardHandler))
	err := batches.UpdateItem(context.Background(), &domain.BatchItem{
		BatchID:      batch.ID,
		VocabularyID: uuid.New(),
		Status:       domain.ItemStatusCompleted,
	})
	assert.ErrorIs(t, err, store.ErrVocabularyItemNotFound)
}

func TestUpdateBatchStatus(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batch, _ := seedBatch(t, db, "안녕")

	batches := NewBatchStore(db, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	require.NoError(t, batches.UpdateBatchStatus(ctx, batch.ID, domain.BatchStatusProcessing, ""))
	got, err := batches.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusProcessing, got.Status)

	require.NoError(t, batches.UpdateBatchStatus(ctx, batch.ID, domain.BatchStatusFailed, "provider down"))
	got, err = batches.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, "provider down", got.ErrorMessage)

	err = batches.UpdateBatchStatus(ctx, uuid.New(), domain.BatchStatusCompleted, "")
	assert.ErrorIs(t, err, store.ErrBatchNotFound)
}

func TestResetInterrupted(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batch, items := seedBatch(t, db, "안녕", "책")

	batches := NewBatchStore(db, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	require.NoError(t, batches.UpdateBatchStatus(ctx, batch.ID, domain.BatchStatusProcessing, ""))
	require.NoError(t, batches.UpdateItem(ctx, &domain.BatchItem{
		BatchID:      batch.ID,
		VocabularyID: items[0].ID,
		Status:       domain.ItemStatusCompleted,
	}))

	reset, err := batches.ResetInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reset)

	got, err := batches.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusFailed, got.Status)

	rows, err := batches.GetItems(ctx, batch.ID)
	require.NoError(t, err)
	// Completed work is kept; only unfinished items are marked failed.
	assert.Equal(t, domain.ItemStatusCompleted, rows[0].Status)
	assert.Equal(t, domain.ItemStatusFailed, rows[1].Status)
	assert.Equal(t, "interrupted by restart", rows[1].ErrorMessage)
}

func TestSaveFlashcardIsIdempotent(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batch, items := seedBatch(t, db, "안녕")

	cards := NewFlashcardStore(db, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	rows := []domain.FlashcardRow{{
		Position: 1, Term: "안녕", TermNumber: 1, TabName: "Greetings",
		Primer: "p", Front: "f", Back: "b", Tags: "beginner",
	}}

	first, err := domain.NewFlashcard(items[0].ID, batch.ID, json.RawMessage(`{"term":"안녕"}`), rows)
	require.NoError(t, err)
	require.NoError(t, cards.SaveFlashcard(ctx, first))

	// A retried save for the same vocabulary item replaces the row.
	rows[0].Back = "updated back"
	second, err := domain.NewFlashcard(items[0].ID, batch.ID, json.RawMessage(`{"term":"안녕"}`), rows)
	require.NoError(t, err)
	require.NoError(t, cards.SaveFlashcard(ctx, second))

	got, err := cards.GetByVocabularyID(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "updated back", got.Rows[0].Back)

	all, err := cards.GetByBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "upsert must not duplicate")
}

func TestGetFlashcardNotFound(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	cards := NewFlashcardStore(db, slog.New(slog.DiscardHandler))

	_, err := cards.GetByVocabularyID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrFlashcardNotFound)
}

func TestGetByBatchOrdersByPosition(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batch, items := seedBatch(t, db, "안녕", "책", "먹다")

	cards := NewFlashcardStore(db, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	// Save out of order.
	for _, i := range []int{2, 0, 1} {
		rows := []domain.FlashcardRow{{
			Position: items[i].Position, Term: items[i].Term, TermNumber: 1,
			TabName: "t", Primer: "p", Front: "f", Back: "b", Tags: "g",
		}}
		card, err := domain.NewFlashcard(items[i].ID, batch.ID, json.RawMessage(`{}`), rows)
		require.NoError(t, err)
		require.NoError(t, cards.SaveFlashcard(ctx, card))
	}

	all, err := cards.GetByBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, card := range all {
		assert.Equal(t, items[i].ID, card.VocabularyID)
	}
}

func TestSaveStageOutput(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	_, items := seedBatch(t, db, "안녕")

	cards := NewFlashcardStore(db, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	require.NoError(t, cards.SaveStageOutput(ctx, items[0].ID, "nuance", []byte(`{"term":"안녕"}`)))
	require.NoError(t, cards.SaveStageOutput(ctx, items[0].ID, "flashcard", []byte("1\t안녕")))

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM stage_outputs WHERE vocabulary_id = ?`,
		items[0].ID.String(),
	).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestRunInTransactionRollsBack(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	logger := slog.New(slog.DiscardHandler)
	batches := NewBatchStore(db, logger)

	batch, err := domain.NewBatch(1)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		if err := batches.WithTx(tx).CreateBatch(ctx, batch, nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = batches.GetBatch(context.Background(), batch.ID)
	assert.ErrorIs(t, err, store.ErrBatchNotFound)
}

func TestMapErrorDuplicate(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	batch, _ := seedBatch(t, db, "안녕")

	batches := NewBatchStore(db, slog.New(slog.DiscardHandler))
	err := batches.CreateBatch(context.Background(), batch, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}
