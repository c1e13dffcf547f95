package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is the unit of work a Runner executes.
type Task func(context.Context) error

// RunnerConfig tunes retry behaviour.
type RunnerConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Runner executes a named task serially on a background goroutine.
// Triggers arriving while a run is already pending are coalesced, so a
// manual trigger and a ticker firing together produce a single run.
type Runner struct {
	name string
	task Task

	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	pending chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	started bool
}

// NewRunner builds a runner around the given task.
func NewRunner(name string, task Task, cfg RunnerConfig) *Runner {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{
		name:       name,
		task:       task,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		pending:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the worker goroutine. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.started = true
	go r.loop()
	r.logger.Sugar().Infow("runner started", "runner", r.name)
}

// Stop cancels the worker and waits for the current run to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()
	<-r.done
	r.logger.Sugar().Infow("runner stopped", "runner", r.name)
}

// Trigger requests a run. Returns without error when a run is already
// pending.
func (r *Runner) Trigger() error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return fmt.Errorf("runner %s not started", r.name)
	}
	select {
	case r.pending <- struct{}{}:
	default:
	}
	return nil
}

func (r *Runner) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.pending:
			r.run()
		}
	}
}

func (r *Runner) run() {
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		err := r.task(r.ctx)
		if err == nil {
			return
		}
		if r.ctx.Err() != nil {
			return
		}
		if attempt == r.maxRetries {
			r.logger.Sugar().Errorw("task exhausted retries", "runner", r.name, "attempts", attempt, "error", err)
			return
		}
		r.logger.Sugar().Warnw("task failed, retrying", "runner", r.name, "attempt", attempt, "error", err)

		timer := time.NewTimer(r.retryDelay)
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
