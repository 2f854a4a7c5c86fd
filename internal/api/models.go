package api

import (
	"encoding/json"
	"time"

	"github.com/seonbi/hancard/internal/domain"
)

// ItemRequest is one vocabulary entry in a batch submission.
type ItemRequest struct {
	Position     int    `json:"position,omitempty" validate:"omitempty,min=1"`
	Term         string `json:"term" validate:"required,min=1"`
	Gloss        string `json:"gloss,omitempty"`
	PartOfSpeech string `json:"part_of_speech,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
}

// CreateBatchRequest represents the request body for submitting a batch.
type CreateBatchRequest struct {
	Items []ItemRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

// BatchResponse represents the response data for a batch.
type BatchResponse struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	TotalItems     int       `json:"total_items"`
	CompletedItems int       `json:"completed_items"`
	FailedItems    int       `json:"failed_items"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BatchItemResponse represents the per-item outcome of a batch.
type BatchItemResponse struct {
	VocabularyID string    `json:"vocabulary_id"`
	Position     int       `json:"position"`
	Term         string    `json:"term"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CacheHits    int       `json:"cache_hits"`
	DurationMS   int64     `json:"duration_ms"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BatchResultsResponse wraps a batch with its per-item outcomes.
type BatchResultsResponse struct {
	Batch BatchResponse       `json:"batch"`
	Items []BatchItemResponse `json:"items"`
}

// FlashcardResponse represents one generated flashcard.
type FlashcardResponse struct {
	ID           string                `json:"id"`
	VocabularyID string                `json:"vocabulary_id"`
	BatchID      string                `json:"batch_id"`
	Nuance       json.RawMessage       `json:"nuance"`
	Rows         []domain.FlashcardRow `json:"rows"`
	CreatedAt    time.Time             `json:"created_at"`
}

// FlashcardListResponse wraps a list of flashcards.
type FlashcardListResponse struct {
	BatchID    string              `json:"batch_id"`
	Flashcards []FlashcardResponse `json:"flashcards"`
}

// batchToResponse converts a domain.Batch to a BatchResponse.
func batchToResponse(batch *domain.Batch) BatchResponse {
	return BatchResponse{
		ID:             batch.ID.String(),
		Status:         string(batch.Status),
		TotalItems:     batch.TotalItems,
		CompletedItems: batch.CompletedItems,
		FailedItems:    batch.FailedItems,
		ErrorMessage:   batch.ErrorMessage,
		CreatedAt:      batch.CreatedAt,
		UpdatedAt:      batch.UpdatedAt,
	}
}

// itemToResponse converts a domain.BatchItem to a BatchItemResponse.
func itemToResponse(item *domain.BatchItem) BatchItemResponse {
	return BatchItemResponse{
		VocabularyID: item.VocabularyID.String(),
		Position:     item.Position,
		Term:         item.Term,
		Status:       string(item.Status),
		ErrorKind:    item.ErrorKind,
		ErrorMessage: item.ErrorMessage,
		CacheHits:    item.CacheHits,
		DurationMS:   item.Duration.Milliseconds(),
		UpdatedAt:    item.UpdatedAt,
	}
}

// resultsToResponse bundles a batch and its per-item outcomes.
func resultsToResponse(batch *domain.Batch, items []*domain.BatchItem) BatchResultsResponse {
	out := BatchResultsResponse{
		Batch: batchToResponse(batch),
		Items: make([]BatchItemResponse, len(items)),
	}
	for i, item := range items {
		out.Items[i] = itemToResponse(item)
	}
	return out
}

// cardToResponse converts a domain.Flashcard to a FlashcardResponse.
func cardToResponse(card *domain.Flashcard) FlashcardResponse {
	return FlashcardResponse{
		ID:           card.ID.String(),
		VocabularyID: card.VocabularyID.String(),
		BatchID:      card.BatchID.String(),
		Nuance:       card.Nuance,
		Rows:         card.Rows,
		CreatedAt:    card.CreatedAt,
	}
}
