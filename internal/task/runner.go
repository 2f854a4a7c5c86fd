package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Runner errors.
var (
	ErrQueueFull    = errors.New("task queue is full")
	ErrRunnerClosed = errors.New("task runner is stopped")
)

// RunnerConfig holds configuration for the background job runner.
type RunnerConfig struct {
	// WorkerCount determines how many jobs run concurrently. Batches are
	// internally parallel already, so this stays small.
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue.
	QueueSize int

	// DrainTimeout bounds how long Stop waits for in-flight jobs before
	// cancelling them.
	DrainTimeout time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:  2,
		QueueSize:    100,
		DrainTimeout: 30 * time.Second,
	}
}

// Runner manages background job processing. Jobs are queued in memory and
// their status transitions persisted through a StatusStore, so an API
// client can poll a batch to completion.
type Runner struct {
	store    StatusStore
	taskChan chan Task
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	cfg      RunnerConfig
	logger   *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewRunner creates a Runner. Invalid worker counts fall back to one
// worker rather than failing, matching how the pool treats sizing.
func NewRunner(store StatusStore, cfg RunnerConfig, logger *slog.Logger) (*Runner, error) {
	if store == nil {
		return nil, errors.New("status store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.WorkerCount,
			"default_count", 1)
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultRunnerConfig().QueueSize
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultRunnerConfig().DrainTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:    store,
		taskChan: make(chan Task, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start marks jobs orphaned by a previous run as failed, then launches the
// worker goroutines.
func (r *Runner) Start() error {
	reset, err := r.store.ResetInterrupted(context.Background())
	if err != nil {
		return fmt.Errorf("resetting interrupted jobs: %w", err)
	}
	if reset > 0 {
		r.logger.Info("marked interrupted jobs as failed", "count", reset)
	}

	for i := 0; i < r.cfg.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return nil
}

// Submit persists the job as pending and adds it to the in-memory queue.
func (r *Runner) Submit(ctx context.Context, t Task) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	r.mu.Unlock()

	if err := r.store.UpdateTaskStatus(ctx, t.ID(), StatusPending, ""); err != nil {
		return fmt.Errorf("recording pending job: %w", err)
	}

	select {
	case r.taskChan <- t:
		r.logger.Debug("job enqueued",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"queue_len", len(r.taskChan),
			"queue_cap", cap(r.taskChan))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(r.taskChan))
	}
}

// Stop drains in-flight jobs for up to DrainTimeout, then cancels whatever
// is still running and waits for the workers to exit. Queued jobs that
// never started stay pending in the store.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.taskChan)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("task runner drained cleanly")
	case <-time.After(r.cfg.DrainTimeout):
		r.logger.Warn("drain timeout exceeded, cancelling in-flight jobs",
			"drain_timeout", r.cfg.DrainTimeout)
		r.cancel()
		<-done
	}
	r.cancel()
}

// worker consumes jobs until the queue closes or the runner is cancelled.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return
		case t, ok := <-r.taskChan:
			if !ok {
				r.logger.Debug("job queue closed, stopping worker", "worker_id", id)
				return
			}
			r.processTask(t, id)
		}
	}
}

// processTask handles execution of a single job, recording each status
// transition as it goes.
func (r *Runner) processTask(t Task, workerID int) {
	logger := r.logger.With(
		"task_id", t.ID(),
		"task_type", t.Type(),
		"worker_id", workerID,
	)

	// Status updates use a fresh context so a cancelled runner can still
	// record the terminal state.
	statusCtx := context.Background()

	if err := r.store.UpdateTaskStatus(statusCtx, t.ID(), StatusProcessing, ""); err != nil {
		logger.Error("failed to update job status to processing", "error", err)
		return
	}

	logger.Info("processing job")
	start := time.Now()

	err := t.Execute(r.ctx)
	if err != nil {
		logger.Error("job execution failed", "error", err, "duration", time.Since(start))
		if updateErr := r.store.UpdateTaskStatus(statusCtx, t.ID(), StatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update job status to failed", "error", updateErr)
		}
		return
	}

	logger.Info("job completed", "duration", time.Since(start))
	if updateErr := r.store.UpdateTaskStatus(statusCtx, t.ID(), StatusCompleted, ""); updateErr != nil {
		logger.Error("failed to update job status to completed", "error", updateErr)
	}
}
