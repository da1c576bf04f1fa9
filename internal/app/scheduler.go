package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"propDesk/internal/ports"
)

// ErrSchedulerRunning is returned by Start when the scheduler is already running.
var ErrSchedulerRunning = errors.New("scheduler already running")

// Sweeper runs one evaluation pass over all active challenges.
type Sweeper interface {
	RunScheduledEvaluation(ctx context.Context) (*EvaluationReport, error)
}

// Scheduler triggers an evaluation sweep at a fixed interval.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   ports.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler that sweeps every interval.
func NewScheduler(sweeper Sweeper, interval time.Duration, logger ports.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{sweeper: sweeper, interval: interval, logger: logger}
}

// Start launches the sweep loop in the background. The loop ends when ctx is
// canceled or Stop is called. Starting a running scheduler returns ErrSchedulerRunning.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Info(ctx, "Evaluation scheduler started", map[string]interface{}{"interval": s.interval.String()})
	go s.loop(ctx, done)
	return nil
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
// Stopping a scheduler that is not running is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// release clears the running state when the loop ends on its own, e.g. after the
// parent context is canceled. A state already replaced by Stop or a new Start is left alone.
func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	s.cancel()
	s.cancel, s.done = nil, nil
}

// Running reports whether the sweep loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.release(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(context.Background(), "Evaluation scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.sweeper.RunScheduledEvaluation(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error(ctx, err, "Scheduled evaluation sweep failed")
			}
		}
	}
}
