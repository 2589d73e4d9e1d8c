package detection

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRunner counts cycles and optionally blocks until released.
type countingRunner struct {
	mu      sync.Mutex
	runs    int
	block   chan struct{}
	started chan struct{}
}

func (r *countingRunner) RunCycle(ctx context.Context) error {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()

	if r.started != nil {
		select {
		case r.started <- struct{}{}:
		default:
		}
	}
	if r.block != nil {
		<-r.block
	}
	return nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func TestSchedulerRunsImmediatelyAndOnTicks(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 10*time.Millisecond, nil)

	go s.Start(context.Background())

	assert.Eventually(t, func() bool {
		return runner.count() >= 3
	}, time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestSchedulerSkipsTickWhileCycleInFlight(t *testing.T) {
	runner := &countingRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewScheduler(runner, 10*time.Millisecond, nil)

	go s.Start(context.Background())

	// Wait for the first cycle to start, then let several ticks pass while
	// it is still blocked.
	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("first cycle never started")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, runner.count())

	close(runner.block)
	s.Stop()
}

func TestSchedulerStopWaitsForInFlightCycle(t *testing.T) {
	runner := &countingRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewScheduler(runner, time.Hour, nil)

	go s.Start(context.Background())

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("first cycle never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// Stop must not return while the cycle is blocked.
	select {
	case <-stopped:
		t.Fatal("Stop returned before in-flight cycle finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.block)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned")
	}
}

func TestSchedulerContextCancelStopsLoop(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runner.count() >= 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestSchedulerDefaultInterval(t *testing.T) {
	s := NewScheduler(&countingRunner{}, 0, nil)
	assert.Equal(t, 30*time.Second, s.interval)
}
