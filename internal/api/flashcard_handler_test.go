package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/service"
)

func newFlashcardRouter(svc service.BatchService) http.Handler {
	h := NewFlashcardHandler(svc)
	r := chi.NewRouter()
	r.Get("/api/flashcards", h.ListFlashcards)
	return r
}

func TestListFlashcards(t *testing.T) {
	t.Parallel()

	batchID := uuid.New()
	svc := &stubBatchService{
		getCardsFn: func(ctx context.Context, id uuid.UUID) ([]*domain.Flashcard, error) {
			assert.Equal(t, batchID, id)
			return []*domain.Flashcard{{
				ID:           uuid.New(),
				VocabularyID: uuid.New(),
				BatchID:      batchID,
				Nuance:       json.RawMessage(`{"term":"안녕"}`),
				Rows: []domain.FlashcardRow{{
					Position: 1, Term: "안녕", TermNumber: 1,
					TabName: "Greetings", Primer: "p", Front: "f", Back: "b", Tags: "kr",
				}},
			}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/flashcards?batch_id="+batchID.String(), nil)
	rec := httptest.NewRecorder()
	newFlashcardRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp FlashcardListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, batchID.String(), resp.BatchID)
	require.Len(t, resp.Flashcards, 1)
	require.Len(t, resp.Flashcards[0].Rows, 1)
	assert.Equal(t, "안녕", resp.Flashcards[0].Rows[0].Term)
}

func TestListFlashcardsRequiresBatchID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/flashcards", nil)
	rec := httptest.NewRecorder()
	newFlashcardRouter(&stubBatchService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFlashcardsInvalidBatchID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/flashcards?batch_id=nope", nil)
	rec := httptest.NewRecorder()
	newFlashcardRouter(&stubBatchService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFlashcardsUnknownBatchIs404(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		getCardsFn: func(ctx context.Context, id uuid.UUID) ([]*domain.Flashcard, error) {
			return nil, service.ErrBatchNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/flashcards?batch_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	newFlashcardRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
