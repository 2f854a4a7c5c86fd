package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for deterministic limiter tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rate    float64
		burst   int
		wantErr error
	}{
		{"zero rate", 0, 10, ErrInvalidRate},
		{"negative rate", -1, 10, ErrInvalidRate},
		{"zero burst", 5, 0, ErrInvalidBurst},
		{"negative burst", 5, -3, ErrInvalidBurst},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.rate, tc.burst)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	l, err := New(10, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, l.Available(), 0.001, "bucket should start full")
}

func TestAcquireConsumesBurst(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l, err := New(1, 3, WithClock(clock.Now))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx))
	}

	assert.InDelta(t, 0.0, l.Available(), 0.001, "burst should be exhausted")

	// With the bucket empty and the clock frozen, Acquire must block until
	// the context deadline.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = l.Acquire(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLazyRefill(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l, err := New(2, 4, WithClock(clock.Now)) // 2 tokens/sec
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, l.Acquire(ctx))
	}

	// One second at 2 tokens/sec refills exactly two tokens.
	clock.Advance(time.Second)
	assert.InDelta(t, 2.0, l.Available(), 0.001)

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.InDelta(t, 0.0, l.Available(), 0.001)

	// Refill never exceeds the burst capacity.
	clock.Advance(time.Hour)
	assert.InDelta(t, 4.0, l.Available(), 0.001)
}

func TestAcquireBlocksUntilRefill(t *testing.T) {
	t.Parallel()

	// Real clock, high rate so the test stays fast: 100 tokens/sec means an
	// empty bucket admits the next caller after ~10ms.
	l, err := New(100, 1)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))

	start := time.Now()
	require.NoError(t, l.Acquire(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond,
		"second acquire should have waited for a refill")
}

func TestConcurrentAcquireExactAccounting(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	const burst = 10
	l, err := New(0.001, burst, WithClock(clock.Now)) // effectively no refill
	require.NoError(t, err)

	// More goroutines than tokens: exactly burst acquisitions may succeed
	// before the deadline, the rest must time out.
	const callers = 25
	var succeeded, timedOut int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			err := l.Acquire(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				timedOut++
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, burst, succeeded, "no over-admission beyond burst capacity")
	assert.EqualValues(t, callers-burst, timedOut)
}
