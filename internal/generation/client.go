package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/seonbi/hancard/internal/breaker"
	"github.com/seonbi/hancard/internal/cache"
	"github.com/seonbi/hancard/internal/ratelimit"
)

// Dependency validation errors returned by NewClient.
var (
	ErrNilProvider = errors.New("provider cannot be nil")
	ErrNilLimiter  = errors.New("rate limiter cannot be nil")
	ErrNilBreaker  = errors.New("circuit breaker cannot be nil")
	ErrNilCache    = errors.New("cache cannot be nil")
	ErrNilLogger   = errors.New("logger cannot be nil")

	// ErrInvalidMaxAttempts is returned when the retry budget is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)

// RetryConfig bounds the retry behavior for transient provider failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per call, first try
	// included.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff schedule.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff interval.
	MaxDelay time.Duration
}

// Config holds the client's generation parameters.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	CacheTTL    time.Duration
	Retry       RetryConfig
}

// Client invokes one generation stage at a time, applying the shared cache,
// rate limiter, and circuit breaker around the provider call. Clients are
// safe for concurrent use by all pipeline workers.
type Client struct {
	provider Provider
	limiter  *ratelimit.Limiter
	breaker  *breaker.Breaker
	cache    *cache.Cache
	cfg      Config
	logger   *slog.Logger
}

// NewClient wires a stage-invocation client. All dependencies are owned by
// the caller and shared by reference; nothing here is process-global.
func NewClient(
	provider Provider,
	limiter *ratelimit.Limiter,
	brk *breaker.Breaker,
	c *cache.Cache,
	cfg Config,
	logger *slog.Logger,
) (*Client, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if limiter == nil {
		return nil, ErrNilLimiter
	}
	if brk == nil {
		return nil, ErrNilBreaker
	}
	if c == nil {
		return nil, ErrNilCache
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxAttempts, cfg.Retry.MaxAttempts)
	}

	return &Client{
		provider: provider,
		limiter:  limiter,
		breaker:  brk,
		cache:    c,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Invoke runs one stage call: cache lookup, rate-limiter acquire, breaker-
// wrapped provider call with bounded retries, cache store. Terminal failures
// come back wrapped in ErrServiceUnavailable, ErrTransientFailure, or
// ErrPermanentFailure; context cancellation propagates the context's error.
func (c *Client) Invoke(ctx context.Context, req *StageRequest) (*StageResult, error) {
	key, err := req.CacheKey(c.cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanentFailure, err)
	}

	// Cache hit short-circuits everything: no token consumed, no breaker
	// accounting, zero added latency.
	if payload, ok := c.cache.Get(key); ok {
		result, err := resultFromPayload(req.Stage, payload)
		if err == nil {
			return result, nil
		}
		// Corrupt cached payload: fail open and regenerate.
		c.logger.Warn("discarding unreadable cache entry",
			"stage", req.Stage,
			"term", req.Item.Term,
			"error", err)
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	messages, err := req.Messages()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanentFailure, err)
	}

	preq := ProviderRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	result, err := c.callWithRetry(ctx, req, preq)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, result.Payload, c.cfg.CacheTTL)
	return result, nil
}

// callWithRetry drives the breaker-wrapped provider call through the backoff
// schedule. Transient failures (timeouts, 5xx, 429) are retried up to the
// attempt budget; everything else surfaces immediately.
func (c *Client) callWithRetry(ctx context.Context, req *StageRequest, preq ProviderRequest) (*StageResult, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.Retry.BaseDelay
	bo.MaxInterval = c.cfg.Retry.MaxDelay
	bo.MaxElapsedTime = 0 // attempt count, not wall clock, bounds the retries
	bo.Reset()

	start := time.Now()

	for attempt := 1; ; attempt++ {
		var resp *ProviderResponse
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			var callErr error
			resp, callErr = c.provider.Complete(ctx, preq)
			return callErr
		})

		if err == nil {
			result, perr := resultFromContent(req.Stage, resp.Content, resp.Usage)
			if perr != nil {
				// Malformed payloads are permanent: the model already spent
				// the tokens, retrying the identical prompt rarely helps.
				return nil, perr
			}
			result.Latency = time.Since(start)
			return result, nil
		}

		if errors.Is(err, breaker.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !retryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermanentFailure, err)
		}

		if attempt >= c.cfg.Retry.MaxAttempts {
			return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrTransientFailure, attempt, err)
		}

		delay := bo.NextBackOff()
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			// Provider cooldown overrides the computed backoff.
			delay = se.RetryAfter
		}

		c.logger.Warn("provider call failed, retrying",
			"stage", req.Stage,
			"term", req.Item.Term,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// retryable reports whether a provider error is worth another attempt:
// retryable HTTP statuses (429, 5xx) and network-level transient failures.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return errors.Is(err, ErrTransientFailure)
}
