package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTraceIDGeneratesUniqueIDs(t *testing.T) {
	t.Parallel()

	ctx1 := SetTraceID(context.Background())
	ctx2 := SetTraceID(context.Background())

	id1 := GetTraceID(ctx1)
	id2 := GetTraceID(ctx2)

	require.Len(t, id1, TraceIDLength*2, "trace ID is hex-encoded")
	assert.NotEqual(t, id1, id2)
}

func TestGetTraceIDMissing(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetTraceID(context.Background()))
}

func TestGenerateFallbackTraceIDNotStatic(t *testing.T) {
	t.Parallel()

	id := generateFallbackTraceID()
	assert.Len(t, id, TraceIDLength*2)
}
