package detection

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minisoc-systems/minisoc/internal/logging"
	"github.com/minisoc-systems/minisoc/internal/metrics"
)

// CycleRunner is the unit of work the scheduler drives on each tick.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler invokes a detector on a fixed interval. Cycles are single
// flight: a tick that fires while the previous cycle is still running is
// skipped rather than overlapped, so two cycles can never race each other
// through the dedup check. Stop prevents further ticks and waits for an
// in-flight cycle to finish; it does not cancel mid-query.
type Scheduler struct {
	detector CycleRunner
	interval time.Duration
	logger   *logging.Logger

	inFlight atomic.Bool
	wg       sync.WaitGroup
	stop     chan struct{}
	stopped  chan struct{}
}

// NewScheduler creates a scheduler; interval defaults to 30 seconds.
func NewScheduler(detector CycleRunner, interval time.Duration, logger *logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		detector: detector,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins the scheduling loop. Call it in a goroutine; the first cycle
// runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.stopped)

	s.logger.InfoContext(ctx, "detection scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle(ctx)

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx)
		case <-s.stop:
			s.logger.InfoContext(ctx, "detection scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "detection scheduler context cancelled")
			return
		}
	}
}

// Stop halts scheduling and waits for the loop and any in-flight cycle.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.stopped
	s.wg.Wait()
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.SkippedTicks.Inc()
		s.logger.WarnContext(ctx, "previous detection cycle still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)

		// One bad cycle is reported and forgotten; the next tick starts
		// clean.
		if err := s.detector.RunCycle(ctx); err != nil {
			s.logger.ErrorContext(ctx, "detection cycle failed", "error", err)
		}
	}()
}
