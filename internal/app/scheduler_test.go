package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingSweeper struct{ calls atomic.Int32 }

func (s *countingSweeper) ExpireStale(context.Context) (int64, error) {
	s.calls.Add(1)
	return 1, nil
}

type countingPruner struct{ calls atomic.Int32 }

func (p *countingPruner) Prune() int {
	p.calls.Add(1)
	return 0
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSchedulerRunsTasks(t *testing.T) {
	sweeper := &countingSweeper{}
	pruner := &countingPruner{}
	s := NewScheduler(sweeper, 10*time.Millisecond, pruner, zap.NewNop())

	s.Start(context.Background())
	waitFor(t, func() bool { return sweeper.calls.Load() >= 3 })
	waitFor(t, func() bool { return pruner.calls.Load() >= 1 })
	s.Stop()

	after := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if sweeper.calls.Load() != after {
		t.Fatal("expected sweep to stop after Stop")
	}
}

func TestSchedulerLazySweepOnly(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewScheduler(sweeper, 0, nil, zap.NewNop())

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	if got := sweeper.calls.Load(); got != 0 {
		t.Fatalf("expected no periodic sweep, got %d calls", got)
	}
}
