package api

import (
	"errors"
	"net/http"

	"github.com/seonbi/hancard/internal/api/shared"
	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/generation"
	"github.com/seonbi/hancard/internal/service"
	"github.com/seonbi/hancard/internal/store"
	"github.com/seonbi/hancard/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrBatchNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Capacity errors: the generation backend or the job queue cannot take
	// more work right now.
	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrRunnerClosed),
		errors.Is(err, generation.ErrServiceUnavailable):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		return "Batch not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, service.ErrEmptyBatch):
		return "Batch must contain at least one item"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, task.ErrQueueFull):
		return "Server is busy, try again later"

	case errors.Is(err, task.ErrRunnerClosed):
		return "Server is shutting down"

	case errors.Is(err, generation.ErrServiceUnavailable):
		return "Generation service is temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// HandleServiceError writes the appropriate error response for an error
// bubbling up from the service layer.
func HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
