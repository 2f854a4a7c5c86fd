package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/seonbi/hancard/internal/generation"
)

// Construction errors.
var (
	ErrMissingAPIKey = errors.New("gemini API key is required")
	ErrNilLogger     = errors.New("logger cannot be nil")
)

// Config holds the provider's connection parameters.
type Config struct {
	APIKey string
}

// Provider calls the Gemini generate-content endpoint.
type Provider struct {
	client *genai.Client
	logger *slog.Logger
}

// New creates a Gemini provider. The SDK client is built once and reused
// across all calls.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Provider{client: client, logger: logger}, nil
}

// Complete implements generation.Provider. Gemini has no message-role
// structure compatible with chat completions for our single-turn prompts,
// so the user messages are concatenated into one prompt.
func (p *Provider) Complete(ctx context.Context, req generation.ProviderRequest) (*generation.ProviderResponse, error) {
	var prompt strings.Builder
	for _, m := range req.Messages {
		if prompt.Len() > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(m.Content)
	}

	gcfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		gcfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		gcfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(prompt.String()), gcfg)
	if err != nil {
		return nil, p.mapError(ctx, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: response has no candidates", generation.ErrInvalidResponse)
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: content blocked by safety filters", generation.ErrInvalidResponse)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty candidate content", generation.ErrInvalidResponse)
	}

	out := &generation.ProviderResponse{Content: text}
	if um := resp.UsageMetadata; um != nil {
		out.Usage = generation.Usage{
			PromptTokens:     int(um.PromptTokenCount),
			CompletionTokens: int(um.CandidatesTokenCount),
			TotalTokens:      int(um.TotalTokenCount),
		}
	}
	return out, nil
}

// mapError converts SDK failures to the shared taxonomy. API errors carry
// an HTTP status code, which keeps retryability decisions identical across
// providers; everything else is either context cancellation or a transport
// failure worth retrying.
func (p *Provider) mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &generation.StatusError{
			StatusCode: apiErr.Code,
			Body:       apiErr.Message,
		}
	}

	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}
