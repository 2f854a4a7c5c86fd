package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Pool sizing errors.
var ErrInvalidWorkerCount = errors.New("worker count must be positive")

// Outcome records what happened to one unit of work submitted to the pool.
// Every submitted index gets exactly one outcome.
type Outcome struct {
	// Index identifies the work unit within the submitted set.
	Index int

	// Err is nil on success, the work function's error on failure, or the
	// context's error for units skipped after cancellation.
	Err error

	// Duration is how long the work function ran. Zero for skipped units.
	Duration time.Duration
}

// Pool fans a set of independent work units out over a fixed number of
// worker goroutines. It is used to process the items of a batch with
// bounded concurrency: at most WorkerCount units are in flight at once.
type Pool struct {
	workers int
	logger  *slog.Logger
}

// NewPool creates a pool with the given concurrency.
func NewPool(workers int, logger *slog.Logger) (*Pool, error) {
	if workers <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Pool{workers: workers, logger: logger}, nil
}

// Run executes fn for indices 0..n-1 and blocks until every index has an
// outcome. Cancellation is cooperative: units already in flight see it
// through their context, and units not yet started are skipped with the
// context's error instead of being invoked. Outcomes are indexed by unit,
// so outcomes[i] always describes unit i.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, index int) error) []Outcome {
	outcomes := make([]Outcome, n)

	indices := make(chan int)
	var wg sync.WaitGroup

	workers := min(p.workers, n)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range indices {
				outcomes[i] = p.runOne(ctx, i, fn)
			}
		}(w)
	}

	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)

	wg.Wait()
	return outcomes
}

// runOne executes a single unit, honoring cancellation between units.
func (p *Pool) runOne(ctx context.Context, i int, fn func(ctx context.Context, index int) error) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Index: i, Err: err}
	}

	start := time.Now()
	err := fn(ctx, i)
	return Outcome{Index: i, Err: err, Duration: time.Since(start)}
}
