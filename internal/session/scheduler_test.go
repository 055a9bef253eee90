package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

type countingRunner struct {
	runs    atomic.Int64
	active  atomic.Int64
	overlap atomic.Bool
	delay   time.Duration
}

func (r *countingRunner) Run(_ context.Context) pipeline.SessionReport {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.runs.Add(1)
	return pipeline.SessionReport{}
}

func TestSchedulerRunsImmediatelyThenOnInterval(t *testing.T) {
	runner := &countingRunner{}
	sched := NewScheduler(10*time.Millisecond, runner, zap.NewNop())
	sched.Start(context.Background())
	defer sched.Stop()

	require.Eventually(t, func() bool {
		return runner.runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerNeverOverlapsSessions(t *testing.T) {
	// Sessions take several intervals; ticks must be dropped, not stacked.
	runner := &countingRunner{delay: 30 * time.Millisecond}
	sched := NewScheduler(5*time.Millisecond, runner, zap.NewNop())
	sched.Start(context.Background())

	require.Eventually(t, func() bool {
		return runner.runs.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	sched.Stop()

	require.False(t, runner.overlap.Load())
}

func TestSchedulerStopWaitsForInFlightSession(t *testing.T) {
	runner := &countingRunner{delay: 50 * time.Millisecond}
	sched := NewScheduler(time.Hour, runner, zap.NewNop())
	sched.Start(context.Background())

	require.Eventually(t, func() bool {
		return runner.active.Load() == 1 || runner.runs.Load() == 1
	}, 2*time.Second, time.Millisecond)

	sched.Stop()
	require.EqualValues(t, 1, runner.runs.Load())
	require.Zero(t, runner.active.Load())

	// Stop is idempotent.
	sched.Stop()
}
