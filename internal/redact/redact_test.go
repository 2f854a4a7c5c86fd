package redact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringRedactsProviderKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		leaked string
	}{
		{
			name:   "openrouter key",
			input:  "request failed: key sk-or-v1-abcdef1234567890 rejected",
			leaked: "sk-or-v1-abcdef1234567890",
		},
		{
			name:   "google key",
			input:  "401 for AIzaSyD-abcdef1234567890",
			leaked: "AIzaSyD-abcdef1234567890",
		},
		{
			name:   "bearer header",
			input:  "Authorization: Bearer abc123def456ghi789",
			leaked: "abc123def456ghi789",
		},
		{
			name:   "generic api key pair",
			input:  `api_key="supersecretvalue123"`,
			leaked: "supersecretvalue123",
		},
		{
			name:   "database path",
			input:  "open /var/lib/hancard/data.db: permission denied",
			leaked: "/var/lib/hancard/data.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := String(tt.input)
			assert.NotContains(t, got, tt.leaked)
			assert.Contains(t, got, "[REDACTED")
		})
	}
}

func TestStringLeavesPlainMessagesAlone(t *testing.T) {
	t.Parallel()

	msg := "batch must contain at least one item"
	assert.Equal(t, msg, String(msg))
	assert.Empty(t, String(""))
}

func TestError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Error(nil))
	got := Error(errors.New("Bearer tok_1234567890abc expired"))
	assert.NotContains(t, got, "tok_1234567890abc")
}
