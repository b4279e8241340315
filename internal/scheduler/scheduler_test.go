package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: 5 * time.Minute, AlignToStart: true}, zerolog.Nop())

	now := time.Date(2025, 3, 1, 10, 7, 30, 0, time.UTC)
	if got, want := s.nextTick(now), time.Date(2025, 3, 1, 10, 10, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("nextTick = %s, want %s", got, want)
	}

	onBoundary := time.Date(2025, 3, 1, 10, 10, 0, 0, time.UTC)
	if got, want := s.nextTick(onBoundary), time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("nextTick on boundary = %s, want %s", got, want)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Minute}, zerolog.Nop())
	now := time.Date(2025, 3, 1, 10, 7, 30, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected next tick %s", got)
	}
	if got := s.tickStart(now); !got.Equal(now) {
		t.Fatalf("unaligned tick start should be unchanged, got %s", got)
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	s := New(Options{Interval: 20 * time.Millisecond, RunAtStart: true}, zerolog.Nop())

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			if calls.Add(1) == 2 {
				return errors.New("transient")
			}
			return nil
		})
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 ticks, got %d", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}
