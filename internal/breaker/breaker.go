package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the circuit breaker's current mode.
type State string

// Possible breaker states.
const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Errors returned by the breaker.
var (
	// ErrCircuitOpen is returned when a call is rejected because the circuit
	// is open, or because the single half-open trial slot is occupied. The
	// wrapped callable is never invoked in that case.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrInvalidThreshold is returned at construction for a non-positive
	// failure threshold.
	ErrInvalidThreshold = errors.New("failure threshold must be positive")

	// ErrInvalidResetTimeout is returned at construction for a non-positive
	// reset timeout.
	ErrInvalidResetTimeout = errors.New("reset timeout must be positive")
)

// Breaker counts consecutive failures in the closed state and, once the
// threshold is reached, rejects calls immediately for the reset timeout.
// After the timeout a single trial call is let through; its outcome decides
// whether the circuit closes again or re-opens.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	resetTimeout     time.Duration

	state         State
	failures      int
	lastFailure   time.Time
	changedAt     time.Time
	trialInFlight bool

	// now is the clock source, injectable for tests.
	now func() time.Time
}

// Option customizes Breaker construction.
type Option func(*Breaker)

// WithClock overrides the breaker's clock source. Used by tests to simulate
// the reset timeout elapsing without sleeping.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// New creates a Breaker that opens after failureThreshold consecutive
// failures and attempts a half-open trial after resetTimeout. Invalid
// parameters fail here, at construction.
func New(failureThreshold int, resetTimeout time.Duration, opts ...Option) (*Breaker, error) {
	if failureThreshold <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidThreshold, failureThreshold)
	}
	if resetTimeout <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidResetTimeout, resetTimeout)
	}

	b := &Breaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.changedAt = b.now()
	return b, nil
}

// Execute runs fn if the circuit permits and records the outcome. When the
// circuit is open (or the half-open trial slot is taken) it returns
// ErrCircuitOpen without invoking fn. Otherwise fn's own error or result is
// propagated unchanged.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// State returns the breaker's current state. An open circuit whose reset
// timeout has elapsed reports half-open, matching what the next Execute
// call would observe.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.changedAt) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// allow decides whether a call may proceed, transitioning open → half-open
// when the reset timeout has elapsed and claiming the trial slot.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.changedAt) < b.resetTimeout {
			return ErrCircuitOpen
		}
		b.transitionLocked(StateHalfOpen)
		b.trialInFlight = true
		return nil

	case StateHalfOpen:
		if b.trialInFlight {
			// Trial slot occupied; concurrent callers do not wait.
			return ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	}

	return ErrCircuitOpen
}

// recordSuccess resets the consecutive-failure counter and, after a
// successful half-open trial, closes the circuit.
func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0

	if b.state == StateHalfOpen {
		b.trialInFlight = false
		b.transitionLocked(StateClosed)
	}
}

// recordFailure increments the consecutive-failure counter and opens the
// circuit when the threshold is reached or a half-open trial fails. The
// reset timer restarts on every transition to open.
func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.failureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		b.trialInFlight = false
		b.transitionLocked(StateOpen)
	}
}

// transitionLocked records a state change. Callers must hold b.mu.
func (b *Breaker) transitionLocked(to State) {
	b.state = to
	b.changedAt = b.now()
}
