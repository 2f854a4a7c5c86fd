package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BatchStatus represents the lifecycle state of a vocabulary batch.
type BatchStatus string

// Possible batch status values.
const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// ItemStatus represents the per-item processing state within a batch.
type ItemStatus string

// Possible item status values.
const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
)

// Batch groups the vocabulary items submitted together and tracks their
// aggregate progress. A batch is terminal once every item is terminal; a
// batch with failed items still completes, the counters carry the
// accounting.
type Batch struct {
	ID             uuid.UUID
	Status         BatchStatus
	TotalItems     int
	CompletedItems int
	FailedItems    int
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewBatch creates a pending batch for the given number of items.
func NewBatch(totalItems int) (*Batch, error) {
	if totalItems <= 0 {
		return nil, fmt.Errorf("%w: batch must contain at least one item", ErrValidation)
	}

	now := time.Now().UTC()
	return &Batch{
		ID:         uuid.New(),
		Status:     BatchStatusPending,
		TotalItems: totalItems,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Terminal reports whether the batch has finished processing.
func (b *Batch) Terminal() bool {
	return b.Status == BatchStatusCompleted || b.Status == BatchStatusFailed
}

// BatchItem records the processing state of one vocabulary item within a
// batch, including the typed error kind when it failed and how many of its
// stages were served from cache.
type BatchItem struct {
	BatchID      uuid.UUID
	VocabularyID uuid.UUID
	Position     int
	Term         string
	Status       ItemStatus
	ErrorKind    string
	ErrorMessage string
	CacheHits    int
	Duration     time.Duration
	UpdatedAt    time.Time
}
