package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seonbi/hancard/internal/domain"
)

// Stage identifies one of the two sequential generation calls per
// vocabulary item.
type Stage string

// The two pipeline stages.
const (
	// StageNuance is the semantic-analysis stage: term in, nuance JSON out.
	StageNuance Stage = "nuance"

	// StageFlashcard is the formatting stage: nuance in, card rows out.
	StageFlashcard Stage = "flashcard"
)

// Request construction errors.
var (
	// ErrNilItem is returned when a stage request has no vocabulary item.
	ErrNilItem = errors.New("stage request requires a vocabulary item")

	// ErrMissingNuance is returned when a flashcard-stage request lacks the
	// upstream nuance result.
	ErrMissingNuance = errors.New("flashcard stage requires the nuance result")
)

// Message is a single chat message sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports the provider's token accounting for one call. Cache hits
// report zero usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderRequest is the provider-agnostic form of one LLM call.
type ProviderRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ProviderResponse is the provider-agnostic result of one LLM call.
type ProviderResponse struct {
	Content string
	Usage   Usage
}

// Provider is the boundary to a concrete LLM backend. Implementations
// translate ProviderRequest into their wire format and surface failures as
// *StatusError (HTTP status), ErrTransientFailure (network/timeout), or
// ErrInvalidResponse (undecodable body).
type Provider interface {
	Complete(ctx context.Context, req ProviderRequest) (*ProviderResponse, error)
}

// StageRequest carries everything needed to invoke one stage for one item.
// For the flashcard stage, Nuance holds the upstream stage's parsed output.
type StageRequest struct {
	Item   *domain.VocabularyItem
	Stage  Stage
	Nuance *domain.NuanceResult
}

// Validate checks structural completeness of the request.
func (r *StageRequest) Validate() error {
	if r.Item == nil {
		return ErrNilItem
	}
	if r.Stage == StageFlashcard && r.Nuance == nil {
		return ErrMissingNuance
	}
	return nil
}

// CacheKey derives the deterministic cache key for this request: a SHA-256
// digest over the term, stage, and model identifier, plus the canonical
// stage-1 payload for flashcard requests so a changed nuance invalidates
// the downstream cache entry.
func (r *StageRequest) CacheKey(model string) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", r.Item.Term, r.Item.PartOfSpeech, r.Stage, model)

	if r.Stage == StageFlashcard {
		nuanceJSON, err := json.Marshal(r.Nuance)
		if err != nil {
			return "", fmt.Errorf("marshaling nuance for cache key: %w", err)
		}
		h.Write([]byte{0})
		h.Write(nuanceJSON)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Messages builds the chat messages for this request. Both stages send a
// single user message whose content is a compact JSON document, matching
// the prompt presets the models are tuned against.
func (r *StageRequest) Messages() ([]Message, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var body any
	switch r.Stage {
	case StageNuance:
		body = map[string]any{
			"position": r.Item.Position,
			"term":     r.Item.Term,
			"type":     r.Item.PartOfSpeech,
		}
	case StageFlashcard:
		body = map[string]any{
			"position":      r.Item.Position,
			"term":          r.Item.Term,
			"stage1_result": r.Nuance,
		}
	default:
		return nil, fmt.Errorf("unknown stage %q", r.Stage)
	}

	content, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request body: %w", r.Stage, err)
	}

	return []Message{{Role: "user", Content: string(content)}}, nil
}

// StageResult is the outcome of one successful stage invocation, either
// generated by the provider or served from the cache.
type StageResult struct {
	Stage   Stage           `json:"stage"`
	Payload json.RawMessage `json:"payload"`

	// Nuance is set for nuance-stage results.
	Nuance *domain.NuanceResult `json:"-"`

	// Rows is set for flashcard-stage results.
	Rows []domain.FlashcardRow `json:"-"`

	Usage    Usage         `json:"usage"`
	Latency  time.Duration `json:"latency"`
	CacheHit bool          `json:"cache_hit"`
}

// resultFromContent parses a raw provider response into a StageResult with
// the canonical payload for caching.
func resultFromContent(stage Stage, content string, usage Usage) (*StageResult, error) {
	switch stage {
	case StageNuance:
		nuance, err := domain.ParseNuance(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		payload, err := json.Marshal(nuance)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return &StageResult{Stage: stage, Payload: payload, Nuance: nuance, Usage: usage}, nil

	case StageFlashcard:
		rows, err := domain.ParseFlashcardTSV(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		payload, err := json.Marshal(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return &StageResult{Stage: stage, Payload: payload, Rows: rows, Usage: usage}, nil
	}

	return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidResponse, stage)
}

// resultFromPayload rebuilds a StageResult from a cached canonical payload.
func resultFromPayload(stage Stage, payload []byte) (*StageResult, error) {
	result := &StageResult{Stage: stage, Payload: payload, CacheHit: true}

	switch stage {
	case StageNuance:
		var nuance domain.NuanceResult
		if err := json.Unmarshal(payload, &nuance); err != nil {
			return nil, fmt.Errorf("decoding cached nuance payload: %w", err)
		}
		result.Nuance = &nuance

	case StageFlashcard:
		var rows []domain.FlashcardRow
		if err := json.Unmarshal(payload, &rows); err != nil {
			return nil, fmt.Errorf("decoding cached flashcard payload: %w", err)
		}
		result.Rows = rows

	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}

	return result, nil
}
