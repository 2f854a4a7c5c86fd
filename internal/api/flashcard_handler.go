package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/api/shared"
	"github.com/seonbi/hancard/internal/service"
)

// FlashcardHandler handles flashcard-related HTTP requests
type FlashcardHandler struct {
	batchService service.BatchService
}

// NewFlashcardHandler creates a new FlashcardHandler
func NewFlashcardHandler(batchService service.BatchService) *FlashcardHandler {
	return &FlashcardHandler{batchService: batchService}
}

// ListFlashcards handles GET /api/flashcards?batch_id={id} requests.
func (h *FlashcardHandler) ListFlashcards(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("batch_id")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "batch_id query parameter is required")
		return
	}

	batchID, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	cards, err := h.batchService.GetFlashcards(r.Context(), batchID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	response := FlashcardListResponse{
		BatchID:    batchID.String(),
		Flashcards: make([]FlashcardResponse, len(cards)),
	}
	for i, card := range cards {
		response.Flashcards[i] = cardToResponse(card)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}
