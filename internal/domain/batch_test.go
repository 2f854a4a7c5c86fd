package domain

import (
	"errors"
	"testing"
)

func TestNewBatch(t *testing.T) {
	t.Parallel()

	b, err := NewBatch(5)
	if err != nil {
		t.Fatalf("NewBatch returned error: %v", err)
	}
	if b.Status != BatchStatusPending {
		t.Errorf("new batch status = %q, want %q", b.Status, BatchStatusPending)
	}
	if b.TotalItems != 5 {
		t.Errorf("TotalItems = %d, want 5", b.TotalItems)
	}
	if b.CompletedItems != 0 || b.FailedItems != 0 {
		t.Errorf("new batch counters must be zero, got %d/%d", b.CompletedItems, b.FailedItems)
	}
	if b.ID.String() == "" {
		t.Error("batch ID must be set")
	}
}

func TestNewBatchRejectsEmpty(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1} {
		if _, err := NewBatch(n); !errors.Is(err, ErrValidation) {
			t.Errorf("NewBatch(%d) error = %v, want ErrValidation", n, err)
		}
	}
}

func TestBatchTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status BatchStatus
		want   bool
	}{
		{BatchStatusPending, false},
		{BatchStatusProcessing, false},
		{BatchStatusCompleted, true},
		{BatchStatusFailed, true},
	}

	for _, tt := range tests {
		b := &Batch{Status: tt.status}
		if got := b.Terminal(); got != tt.want {
			t.Errorf("Terminal() with status %q = %v, want %v", tt.status, got, tt.want)
		}
	}
}
