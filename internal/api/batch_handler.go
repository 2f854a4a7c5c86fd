package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/seonbi/hancard/internal/api/shared"
	"github.com/seonbi/hancard/internal/service"
)

// BatchHandler handles batch-related HTTP requests
type BatchHandler struct {
	batchService service.BatchService
	validator    *validator.Validate
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batchService service.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		validator:    validator.New(),
	}
}

// CreateBatch handles POST /api/batches requests. By default the batch is
// processed in the background and the handler answers 202 Accepted with the
// pending batch. With ?sync=true the batch is processed inline and the
// handler answers 200 with the finished batch and per-item outcomes.
func (h *BatchHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	inputs := make([]service.ItemInput, len(req.Items))
	for i, item := range req.Items {
		inputs[i] = service.ItemInput{
			Position:     item.Position,
			Term:         item.Term,
			Gloss:        item.Gloss,
			PartOfSpeech: item.PartOfSpeech,
			Difficulty:   item.Difficulty,
		}
	}

	if r.URL.Query().Get("sync") == "true" {
		h.createBatchSync(w, r, inputs)
		return
	}

	batch, err := h.batchService.SubmitBatch(r.Context(), inputs)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, batchToResponse(batch))
}

// createBatchSync processes the batch inline and returns the full accounting.
func (h *BatchHandler) createBatchSync(w http.ResponseWriter, r *http.Request, inputs []service.ItemInput) {
	batch, _, err := h.batchService.ProcessBatchSync(r.Context(), inputs)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	items, err := h.batchService.GetResults(r.Context(), batch.ID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resultsToResponse(batch, items))
}

// GetBatch handles GET /api/batches/{batchID} requests. The response is
// the full accounting: aggregate counters plus every item's status.
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseBatchID(w, r)
	if !ok {
		return
	}

	batch, err := h.batchService.GetBatch(r.Context(), batchID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	items, err := h.batchService.GetResults(r.Context(), batchID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resultsToResponse(batch, items))
}

// GetResults handles GET /api/batches/{batchID}/results requests.
func (h *BatchHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseBatchID(w, r)
	if !ok {
		return
	}

	batch, err := h.batchService.GetBatch(r.Context(), batchID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	items, err := h.batchService.GetResults(r.Context(), batchID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resultsToResponse(batch, items))
}

// parseBatchID extracts and validates the batchID URL parameter, writing a
// 400 response on failure.
func parseBatchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "batchID")
	batchID, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid batch ID")
		return uuid.Nil, false
	}
	return batchID, true
}
