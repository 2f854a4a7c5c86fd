package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/seonbi/hancard/internal/generation"
)

// DefaultBaseURL is the public OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// maxErrorBodyBytes bounds how much of an error response body is kept for
// diagnostics.
const maxErrorBodyBytes = 2048

// Construction errors.
var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("openrouter API key is required")
)

// Config holds the provider's connection parameters.
type Config struct {
	APIKey  string
	BaseURL string

	// Timeout bounds each HTTP request end to end.
	Timeout time.Duration

	// Referer and Title populate OpenRouter's attribution headers.
	Referer string
	Title   string
}

// Provider calls the OpenRouter chat-completions endpoint.
type Provider struct {
	cfg        Config
	httpClient *http.Client
}

// New creates an OpenRouter provider. The API key must be present; base URL
// and timeout fall back to sensible defaults.
func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Provider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// chatRequest is the OpenRouter chat-completions request body.
type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []generation.Message `json:"messages"`
	Temperature float64              `json:"temperature,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

// chatResponse is the subset of the chat-completions response the pipeline
// consumes.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete implements generation.Provider. Non-2xx statuses come back as
// *generation.StatusError (with Retry-After decoded on 429s), network and
// timeout failures as generation.ErrTransientFailure, and undecodable bodies
// as generation.ErrInvalidResponse.
func (p *Provider) Complete(ctx context.Context, req generation.ProviderRequest) (*generation.ProviderResponse, error) {
	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", p.cfg.Referer)
	}
	if p.cfg.Title != "" {
		httpReq.Header.Set("X-Title", p.cfg.Title)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, p.statusError(resp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %v", generation.ErrInvalidResponse, err)
	}

	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", generation.ErrInvalidResponse)
	}

	return &generation.ProviderResponse{
		Content: decoded.Choices[0].Message.Content,
		Usage: generation.Usage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		},
	}, nil
}

// statusError builds a *generation.StatusError from a non-2xx response,
// decoding the Retry-After header when the provider supplied one.
func (p *Provider) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	se := &generation.StatusError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		se.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}

	return se
}

// parseRetryAfter decodes a Retry-After header value, which is either a
// delay in seconds or an HTTP date. Unparseable values yield zero.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return 0
}
