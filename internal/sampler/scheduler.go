// Package sampler runs a Task periodically in a single background goroutine.
//
// Ticks never overlap: a tick starts only after the previous one returned.
// Stop cancels the loop and waits for it to exit before running the task's
// OnEnd hook, so the task can safely read its own state afterwards.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is the strategy driven by a Scheduler.
type Task interface {
	// OnStart runs synchronously inside Start, before the first tick.
	OnStart(ctx context.Context) error

	// OnTick runs once per period. A non-nil error stops the loop.
	OnTick(ctx context.Context) error

	// OnEnd runs once inside Stop, after the loop has exited.
	OnEnd()
}

// Mode selects how ticks are spaced.
type Mode int

const (
	// FixedDelay waits a full interval after each tick completes.
	FixedDelay Mode = iota

	// FixedRate ticks on a fixed clock. Ticks that fall due while a tick
	// is still running are dropped.
	FixedRate
)

// String returns the flag spelling of the mode.
func (m Mode) String() string {
	switch m {
	case FixedDelay:
		return "fixed-delay"
	case FixedRate:
		return "fixed-rate"
	default:
		return "unknown"
	}
}

// ParseMode parses the flag spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fixed-delay":
		return FixedDelay, nil
	case "fixed-rate":
		return FixedRate, nil
	default:
		return FixedDelay, fmt.Errorf("unknown schedule mode %q (want fixed-delay or fixed-rate)", s)
	}
}

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrNotStarted is returned by Stop before Start succeeded.
	ErrNotStarted = errors.New("scheduler not started")
)

// Scheduler drives a Task on a fixed delay or fixed rate.
type Scheduler struct {
	task     Task
	interval time.Duration
	mode     Mode
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	err     error

	done  chan struct{}
	ticks atomic.Int64
}

// New creates a scheduler. The task is not started until Start.
func New(task Task, interval time.Duration, mode Mode, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		task:     task,
		interval: interval,
		mode:     mode,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs OnStart and launches the tick loop. The first tick runs
// immediately, later ones follow the configured mode.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %v", s.interval)
	}
	if err := s.task.OnStart(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.logger.Debug("scheduler_started", "interval", s.interval, "mode", s.mode.String())
	go s.run(runCtx)
	return nil
}

// Stop cancels the loop, waits for it to exit, runs OnEnd and returns the
// error that ended the loop, if any. Calling Stop again returns the same
// error without running OnEnd a second time.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	if s.stopped {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	<-s.done
	s.task.OnEnd()

	s.logger.Debug("scheduler_stopped", "ticks", s.ticks.Load())
	return s.Err()
}

// Done is closed when the tick loop exits, either after Stop or after a
// fatal tick error.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the loop, or nil.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Ticks returns the number of completed ticks.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	if !s.tick(ctx) {
		return
	}

	switch s.mode {
	case FixedRate:
		s.runFixedRate(ctx)
	default:
		s.runFixedDelay(ctx)
	}
}

// runFixedDelay reuses one timer and resets it after each tick.
func (s *Scheduler) runFixedDelay(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if !s.tick(ctx) {
				return
			}
			timer.Reset(s.interval)
		}
	}
}

// runFixedRate relies on the ticker dropping ticks for a slow receiver.
func (s *Scheduler) runFixedRate(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx) {
				return
			}
		}
	}
}

// tick runs OnTick once and reports whether the loop should continue.
func (s *Scheduler) tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	err := s.task.OnTick(ctx)
	s.ticks.Add(1)
	if err == nil {
		return true
	}

	// A tick interrupted by cancellation is not a failure.
	if ctx.Err() != nil {
		return false
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.logger.Debug("scheduler_tick_failed", "error", err)
	return false
}
