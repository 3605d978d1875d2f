package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); err == nil {
		t.Fatal("zero interval should be rejected")
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	sched, err := New(Options{Interval: 10 * time.Millisecond, Immediate: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, func(context.Context, time.Time) error {
			if ticks.Add(1) >= 3 {
				cancel()
			}
			return errors.New("provider down")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if ticks.Load() < 3 {
		t.Fatalf("tick errors should not stop the loop, ticks = %d", ticks.Load())
	}
}

func TestRunHonoursStartupDelayCancellation(t *testing.T) {
	sched, _ := New(Options{Interval: time.Hour, StartupDelay: time.Hour}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sched.Run(ctx, func(context.Context, time.Time) error {
		t.Fatal("tick should not run")
		return nil
	}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestNextTickAligned(t *testing.T) {
	sched, _ := New(Options{Interval: time.Minute, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2024, 3, 15, 10, 0, 30, 0, time.UTC)
	if got := sched.nextTick(now); !got.Equal(time.Date(2024, 3, 15, 10, 1, 0, 0, time.UTC)) {
		t.Fatalf("nextTick = %s", got)
	}
	onBoundary := time.Date(2024, 3, 15, 10, 1, 0, 0, time.UTC)
	if got := sched.nextTick(onBoundary); !got.Equal(onBoundary.Add(time.Minute)) {
		t.Fatalf("nextTick on boundary = %s", got)
	}
}
