package console

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

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

func TestPoller_StartTwiceKeepsOneLoop(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller(10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop())

	p.Start(context.Background())
	p.Start(context.Background())
	defer p.Stop()

	if got := p.loops.Load(); got != 1 {
		t.Fatalf("loops = %d, want 1", got)
	}
	if !p.Running() {
		t.Error("Running should be true")
	}
	waitFor(t, func() bool { return runs.Load() >= 2 })
	if got := p.loops.Load(); got != 1 {
		t.Errorf("loops = %d after ticks, want 1", got)
	}
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller(5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop())

	p.Stop() // never started
	p.Start(context.Background())
	waitFor(t, func() bool { return runs.Load() >= 1 })
	p.Stop()
	p.Stop()

	if p.Running() {
		t.Error("Running should be false after Stop")
	}
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Error("task ran after Stop")
	}

	// Restart after stop works.
	p.Start(context.Background())
	defer p.Stop()
	waitFor(t, func() bool { return runs.Load() > after })
}

func TestPoller_ContextCancelEndsLoop(t *testing.T) {
	p := NewPoller(time.Hour, func(ctx context.Context) error { return nil }, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx)
	cancel()
	waitFor(t, func() bool { return !p.Running() })
	p.Stop()
}

func TestPoller_FailuresDoNotStopPolling(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller(5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("backend unreachable")
	}, zap.NewNop())

	p.Start(context.Background())
	defer p.Stop()
	waitFor(t, func() bool { return runs.Load() >= 3 })
}
