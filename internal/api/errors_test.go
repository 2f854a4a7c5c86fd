package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/generation"
	"github.com/seonbi/hancard/internal/service"
	"github.com/seonbi/hancard/internal/store"
	"github.com/seonbi/hancard/internal/task"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"batch not found", service.ErrBatchNotFound, http.StatusNotFound},
		{"store not found", store.ErrBatchNotFound, http.StatusNotFound},
		{"empty batch", service.ErrEmptyBatch, http.StatusBadRequest},
		{"domain validation", fmt.Errorf("%w: term empty", domain.ErrValidation), http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"queue full", task.ErrQueueFull, http.StatusServiceUnavailable},
		{"runner closed", task.ErrRunnerClosed, http.StatusServiceUnavailable},
		{"breaker open upstream", generation.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped service error", &service.BatchServiceError{
			Operation: "get_batch", Message: "db down", Err: errors.New("io"),
		}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessageNeverLeaksDetail(t *testing.T) {
	t.Parallel()

	internal := fmt.Errorf("dial tcp 10.0.0.3:5432: connection refused")
	msg := GetSafeErrorMessage(internal)
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "10.0.0.3")

	assert.Equal(t, "Batch not found", GetSafeErrorMessage(service.ErrBatchNotFound))
	assert.Equal(t, "Server is busy, try again later", GetSafeErrorMessage(task.ErrQueueFull))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
