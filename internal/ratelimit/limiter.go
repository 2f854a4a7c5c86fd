package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Configuration errors returned by New.
var (
	// ErrInvalidRate is returned when the refill rate is zero or negative.
	ErrInvalidRate = errors.New("rate must be positive")

	// ErrInvalidBurst is returned when the burst capacity is zero or negative.
	ErrInvalidBurst = errors.New("burst capacity must be positive")
)

// Limiter is a token-bucket rate limiter. Tokens accumulate continuously at
// the configured rate up to the burst capacity; each admitted call consumes
// one token. Refill is computed lazily on acquire from the elapsed time since
// the last refill, so no background timer runs.
//
// All accounting happens under a single mutex: concurrent Acquire calls are
// serialized and no call is ever over-admitted.
type Limiter struct {
	mu sync.Mutex

	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time

	// now is the clock source, injectable for tests.
	now func() time.Time
}

// Option customizes Limiter construction.
type Option func(*Limiter)

// WithClock overrides the limiter's clock source. Used by tests to simulate
// the passage of time without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter admitting rate calls per second with the given burst
// capacity. The bucket starts full. Invalid parameters fail here, at
// construction, never at acquire time.
func New(rate float64, burst int, opts ...Option) (*Limiter, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	if burst <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBurst, burst)
	}

	l := &Limiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.last = l.now()
	return l, nil
}

// Acquire blocks until a token is available, consumes it, and returns nil.
// It never fails on its own; the only error it returns is the context's
// error when the caller's context is cancelled or its deadline expires
// while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryTake()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryTake refills the bucket and consumes a token if one is available.
// When the bucket is empty it returns the time to wait for the next token.
func (l *Limiter) tryTake() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()

	if l.tokens >= 1 {
		l.tokens--
		return 0, true
	}

	deficit := 1 - l.tokens
	wait := time.Duration(deficit / l.rate * float64(time.Second))
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}

// refillLocked credits tokens for the time elapsed since the last refill.
// Callers must hold l.mu.
func (l *Limiter) refillLocked() {
	now := l.now()
	elapsed := now.Sub(l.last).Seconds()
	if elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+elapsed*l.rate)
	}
	l.last = now
}

// Available reports the current token count after a refill. Intended for
// monitoring; the value is stale the moment it is returned.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()
	return l.tokens
}
