package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("after Advance Now() = %v", got)
	}

	c.Set(start)
	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("after Set Now() = %v", got)
	}
}

func TestReal_UsesLocation(t *testing.T) {
	loc := time.FixedZone("venue", 3*60*60)
	if got := NewReal(loc).Now().Location(); got != loc {
		t.Fatalf("location = %v, want %v", got, loc)
	}
}

func TestRun_TicksAndWakes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	wake := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		Run(ctx, NewFixed(time.Now()), time.Hour, wake, func(time.Time) {
			calls.Add(1)
		})
		close(done)
	}()

	wake <- struct{}{}

	deadline := time.After(time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("calls = %d, want at least 2", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("Run did not return after cancel")
	}
}
