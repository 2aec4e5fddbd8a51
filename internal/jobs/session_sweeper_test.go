package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type fakeJanitor struct {
	deleteCalls atomic.Int32
	evictCalls  atomic.Int32
	deleteErr   error
}

func (f *fakeJanitor) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	f.deleteCalls.Add(1)
	return 2, f.deleteErr
}

func (f *fakeJanitor) EvictIdle(now time.Time) int {
	f.evictCalls.Add(1)
	return 1
}

type fakePruner struct{ calls atomic.Int32 }

func (f *fakePruner) Prune(now time.Time) int {
	f.calls.Add(1)
	return 0
}

func newTestSweeper(j *fakeJanitor, p *fakePruner, interval time.Duration) *SessionSweeper {
	return NewSessionSweeper(SessionSweeperConfig{
		Sessions: j,
		Pruners:  []Pruner{p},
		Interval: interval,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestSessionSweeper_RunOnce(t *testing.T) {
	t.Parallel()

	j, p := &fakeJanitor{}, &fakePruner{}
	s := newTestSweeper(j, p, time.Hour)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if j.deleteCalls.Load() != 1 || j.evictCalls.Load() != 1 || p.calls.Load() != 1 {
		t.Errorf("expected one call each, got delete=%d evict=%d prune=%d",
			j.deleteCalls.Load(), j.evictCalls.Load(), p.calls.Load())
	}
}

func TestSessionSweeper_RunOnceContinuesAfterDeleteError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	j, p := &fakeJanitor{deleteErr: boom}, &fakePruner{}
	s := newTestSweeper(j, p, time.Hour)

	if err := s.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected db error, got %v", err)
	}
	if j.evictCalls.Load() != 1 || p.calls.Load() != 1 {
		t.Error("eviction and pruning should still run")
	}
}

func TestSessionSweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	j, p := &fakeJanitor{}, &fakePruner{}
	s := newTestSweeper(j, p, 10*time.Millisecond)

	s.Start()
	s.Start() // no-op
	if !s.IsRunning() {
		t.Fatal("expected running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for j.deleteCalls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if j.deleteCalls.Load() < 2 {
		t.Errorf("expected at least 2 sweeps, got %d", j.deleteCalls.Load())
	}

	s.Stop()
	s.Stop() // no-op
	if s.IsRunning() {
		t.Error("expected stopped")
	}
}
