package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrPassInProgress is returned by RunOnce when the previous pass has not
// finished yet.
var ErrPassInProgress = errors.New("scheduler pass already in progress")

// Promoter turns due scheduled entries into ledger entries.
type Promoter interface {
	PostDueEntries(ctx context.Context) (int, error)
}

// Lease coordinates passes across instances.
type Lease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Scheduler runs a promotion pass at start-up and then on every tick.
type Scheduler struct {
	promoter Promoter
	lease    Lease
	interval time.Duration
	logger   *zap.Logger

	running  sync.Mutex
	started  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler builds a scheduler. lease may be nil for a single instance.
func NewScheduler(promoter Promoter, lease Lease, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		promoter: promoter,
		lease:    lease,
		interval: interval,
		logger:   logger.Named("scheduler"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	defer close(s.done)

	s.logger.Info("Starting scheduler", zap.Duration("interval", s.interval))
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)

		case <-s.stopChan:
			s.logger.Info("Stopping scheduler")
			return

		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping scheduler")
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrPassInProgress):
		s.logger.Warn("Skipping tick, previous pass still running")
	case err != nil:
		s.logger.Error("Scheduled entry pass failed", zap.Error(err))
	case n > 0:
		s.logger.Info("Posted scheduled entries", zap.Int("count", n))
	}
}

// RunOnce performs a single pass. A panic inside the pass is reported as an
// error so the loop keeps running.
func (s *Scheduler) RunOnce(ctx context.Context) (n int, err error) {
	if !s.running.TryLock() {
		return 0, ErrPassInProgress
	}
	defer s.running.Unlock()

	if s.lease != nil {
		ok, err := s.lease.TryAcquire(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			s.logger.Debug("Lease held elsewhere, skipping pass")
			return 0, nil
		}
		defer func() {
			if rerr := s.lease.Release(context.WithoutCancel(ctx)); rerr != nil {
				s.logger.Warn("Lease release failed", zap.Error(rerr))
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("scheduler pass panicked: %v", r)
		}
	}()
	return s.promoter.PostDueEntries(ctx)
}
