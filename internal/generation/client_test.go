package generation

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seonbi/hancard/internal/breaker"
	"github.com/seonbi/hancard/internal/cache"
	"github.com/seonbi/hancard/internal/domain"
	"github.com/seonbi/hancard/internal/ratelimit"
)

const validNuanceContent = `{
	"term_number": 1,
	"term": "안녕",
	"ipa": "[annjʌŋ]",
	"pos": "interjection",
	"primary_meaning": "hello",
	"metaphor": "a wave",
	"metaphor_noun": "wave",
	"metaphor_action": "waving",
	"suggested_location": "door",
	"anchor_object": "doormat",
	"anchor_sensory": "warmth",
	"explanation": "casual greeting",
	"comparison": {"vs": "안녕하세요", "nuance": "politeness"},
	"korean_keywords": ["인사"]
}`

// scriptedProvider returns canned outcomes in order, then repeats the last.
type scriptedProvider struct {
	mu       sync.Mutex
	script   []scriptStep
	calls    int
	lastSeen ProviderRequest
}

type scriptStep struct {
	content string
	err     error
}

func (p *scriptedProvider) Complete(ctx context.Context, req ProviderRequest) (*ProviderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	step := p.script[min(p.calls, len(p.script)-1)]
	p.calls++
	p.lastSeen = req

	if step.err != nil {
		return nil, step.err
	}
	return &ProviderResponse{
		Content: step.content,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func testItem(t *testing.T) *domain.VocabularyItem {
	t.Helper()
	item, err := domain.NewVocabularyItem(1, "안녕", "int")
	require.NoError(t, err)
	return item
}

func newTestClient(t *testing.T, provider Provider, maxAttempts int) *Client {
	t.Helper()

	limiter, err := ratelimit.New(1000, 1000)
	require.NoError(t, err)

	brk, err := breaker.New(100, time.Minute)
	require.NoError(t, err)

	c, err := cache.New(cache.Config{CapacityBytes: 1 << 20, MaxEntries: 100}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	client, err := NewClient(provider, limiter, brk, c, Config{
		Model:       "test-model",
		Temperature: 0.7,
		MaxTokens:   2000,
		CacheTTL:    time.Hour,
		Retry: RetryConfig{
			MaxAttempts: maxAttempts,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		},
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimit.New(10, 10)
	require.NoError(t, err)
	brk, err := breaker.New(5, time.Minute)
	require.NoError(t, err)
	c, err := cache.New(cache.Config{CapacityBytes: 1024, MaxEntries: 10}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	logger := slog.New(slog.DiscardHandler)
	cfg := Config{Retry: RetryConfig{MaxAttempts: 3}}

	_, err = NewClient(nil, limiter, brk, c, cfg, logger)
	assert.ErrorIs(t, err, ErrNilProvider)

	_, err = NewClient(&scriptedProvider{}, nil, brk, c, cfg, logger)
	assert.ErrorIs(t, err, ErrNilLimiter)

	_, err = NewClient(&scriptedProvider{}, limiter, nil, c, cfg, logger)
	assert.ErrorIs(t, err, ErrNilBreaker)

	_, err = NewClient(&scriptedProvider{}, limiter, brk, nil, cfg, logger)
	assert.ErrorIs(t, err, ErrNilCache)

	badCfg := Config{Retry: RetryConfig{MaxAttempts: 0}}
	_, err = NewClient(&scriptedProvider{}, limiter, brk, c, badCfg, logger)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestInvokeSuccessAfterTransientFailures(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []scriptStep{
		{err: &StatusError{StatusCode: 500}},
		{err: &StatusError{StatusCode: 500}},
		{content: validNuanceContent},
	}}
	client := newTestClient(t, provider, 3)

	result, err := client.Invoke(context.Background(), &StageRequest{
		Item:  testItem(t),
		Stage: StageNuance,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, provider.callCount(), "two failures then a success")
	assert.False(t, result.CacheHit)
	assert.Equal(t, "안녕", result.Nuance.Term)
	assert.Equal(t, 30, result.Usage.TotalTokens)
}

func TestInvokeExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []scriptStep{
		{err: &StatusError{StatusCode: 503}},
	}}
	client := newTestClient(t, provider, 3)

	_, err := client.Invoke(context.Background(), &StageRequest{
		Item:  testItem(t),
		Stage: StageNuance,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.Equal(t, 3, provider.callCount(), "attempt budget is total attempts")
	assert.Equal(t, KindTransientFailure, KindOf(err))
}

func TestInvokePermanentFailureNoRetry(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []scriptStep{
		{err: &StatusError{StatusCode: 404}},
	}}
	client := newTestClient(t, provider, 3)

	_, err := client.Invoke(context.Background(), &StageRequest{
		Item:  testItem(t),
		Stage: StageNuance,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermanentFailure)
	assert.Equal(t, 1, provider.callCount(), "4xx must not be retried")
	assert.Equal(t, KindPermanentFailure, KindOf(err))
}

func TestInvokeHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	const cooldown = 60 * time.Millisecond
	provider := &scriptedProvider{script: []scriptStep{
		{err: &StatusError{StatusCode: 429, RetryAfter: cooldown}},
		{content: validNuanceContent},
	}}
	client := newTestClient(t, provider, 3)

	start := time.Now()
	result, err := client.Invoke(context.Background(), &StageRequest{
		Item:  testItem(t),
		Stage: StageNuance,
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), cooldown,
		"Retry-After cooldown should override the 1ms backoff")
	assert.Equal(t, 2, provider.callCount())
	assert.False(t, result.CacheHit)
}

func TestInvokeMalformedResponseIsPermanent(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []scriptStep{
		{content: "this is not nuance JSON"},
	}}
	client := newTestClient(t, provider, 3)

	_, err := client.Invoke(context.Background(), &StageRequest{
		Item:  testItem(t),
		Stage: StageNuance,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, KindPermanentFailure, KindOf(err))
}

func TestInvokeServesSecondCallFromCache(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []scriptStep{
		{content: validNuanceContent},
	}}
	client := newTestClient(t, provider, 3)
	item := testItem(t)

	first, err := client.Invoke(context.Background(), &StageRequest{Item: item, Stage: StageNuance})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := client.Invoke(context.Background(), &StageRequest{Item: item, Stage: StageNuance})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, provider.callCount(), "second call must not reach the provider")
	assert.Zero(t, second.Usage.TotalTokens, "cache hits report zero token usage")
	assert.Zero(t, second.Latency, "cache hits report zero added latency")
	assert.Equal(t, first.Nuance.Term, second.Nuance.Term)
}

func TestInvokeCircuitOpenIsServiceUnavailable(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{script: []scriptStep{
		{content: validNuanceContent},
	}}

	limiter, err := ratelimit.New(1000, 1000)
	require.NoError(t, err)
	brk, err := breaker.New(1, time.Hour)
	require.NoError(t, err)
	c, err := cache.New(cache.Config{CapacityBytes: 1 << 20, MaxEntries: 100}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	client, err := NewClient(provider, limiter, brk, c, Config{
		Model:    "test-model",
		CacheTTL: time.Hour,
		Retry:    RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	// Trip the breaker directly.
	require.Error(t, brk.Execute(context.Background(), func(ctx context.Context) error {
		return assert.AnError
	}))
	require.Equal(t, breaker.StateOpen, brk.State())

	_, err = client.Invoke(context.Background(), &StageRequest{
		Item:  testItem(t),
		Stage: StageNuance,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, 0, provider.callCount(), "open circuit must not reach the provider")
	assert.Equal(t, KindServiceUnavailable, KindOf(err))
}

func TestStageRequestCacheKeyDistinguishesStagesAndModels(t *testing.T) {
	t.Parallel()

	item := testItem(t)
	nuance := &domain.NuanceResult{Term: "안녕", PrimaryMeaning: "hello"}

	k1, err := (&StageRequest{Item: item, Stage: StageNuance}).CacheKey("model-a")
	require.NoError(t, err)
	k2, err := (&StageRequest{Item: item, Stage: StageFlashcard, Nuance: nuance}).CacheKey("model-a")
	require.NoError(t, err)
	k3, err := (&StageRequest{Item: item, Stage: StageNuance}).CacheKey("model-b")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2, "stages must not share cache entries")
	assert.NotEqual(t, k1, k3, "models must not share cache entries")

	// Same inputs produce the same key.
	again, err := (&StageRequest{Item: item, Stage: StageNuance}).CacheKey("model-a")
	require.NoError(t, err)
	assert.Equal(t, k1, again)

	// A changed nuance invalidates the flashcard key.
	other := &domain.NuanceResult{Term: "안녕", PrimaryMeaning: "farewell"}
	k4, err := (&StageRequest{Item: item, Stage: StageFlashcard, Nuance: other}).CacheKey("model-a")
	require.NoError(t, err)
	assert.NotEqual(t, k2, k4)
}

func TestStageRequestValidate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, (&StageRequest{Stage: StageNuance}).Validate(), ErrNilItem)
	assert.ErrorIs(t, (&StageRequest{Item: testItem(t), Stage: StageFlashcard}).Validate(), ErrMissingNuance)
	assert.NoError(t, (&StageRequest{Item: testItem(t), Stage: StageNuance}).Validate())
}
