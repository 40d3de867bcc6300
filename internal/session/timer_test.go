package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testTick = 5 * time.Millisecond

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	var expires atomic.Int32
	var mu sync.Mutex
	var ticks []int

	done := make(chan struct{})
	cd := NewCountdownWithInterval(5, testTick, func(remaining int) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
	}, func() {
		if expires.Add(1) == 1 {
			close(done)
		}
	})

	start := time.Now()
	cd.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never expired")
	}

	// Expiry must not come early: 5 ticks take at least 5 intervals.
	if elapsed := time.Since(start); elapsed < 5*testTick {
		t.Fatalf("expired after %v, want at least %v", elapsed, 5*testTick)
	}

	// Let any stray second expiry surface.
	time.Sleep(10 * testTick)
	if got := expires.Load(); got != 1 {
		t.Fatalf("expiry fired %d times, want exactly 1", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 5 {
		t.Fatalf("got %d ticks, want 5", len(ticks))
	}
	for i, r := range ticks {
		if want := 4 - i; r != want {
			t.Fatalf("tick %d reported remaining %d, want %d (monotonic decrease)", i, r, want)
		}
	}
}

func TestCountdownStopCancels(t *testing.T) {
	var expires atomic.Int32
	var ticksSeen atomic.Int32

	cd := NewCountdownWithInterval(10, testTick, func(int) {
		ticksSeen.Add(1)
	}, func() {
		expires.Add(1)
	})
	cd.Start()

	time.Sleep(3 * testTick)
	cd.Stop()
	after := ticksSeen.Load()

	// Nothing may fire after cancellation.
	time.Sleep(15 * testTick)
	if got := expires.Load(); got != 0 {
		t.Fatalf("expiry fired %d times after Stop, want 0", got)
	}
	// Allow at most one tick that was already in flight when Stop ran.
	if got := ticksSeen.Load(); got > after+1 {
		t.Fatalf("ticks kept arriving after Stop: %d then %d", after, got)
	}
}

func TestCountdownStopIsIdempotent(t *testing.T) {
	cd := NewCountdownWithInterval(3, testTick, nil, nil)
	cd.Start()
	cd.Stop()
	cd.Stop() // must not panic
}

func TestZeroDurationExpiresImmediately(t *testing.T) {
	fired := false
	cd := NewCountdown(0, nil, func() { fired = true })
	cd.Start()
	if !fired {
		t.Fatal("zero duration must fire expiry on Start")
	}
}

func TestCountdownInstancesAreIndependent(t *testing.T) {
	var aFired, bFired atomic.Int32

	a := NewCountdownWithInterval(2, testTick, nil, func() { aFired.Add(1) })
	b := NewCountdownWithInterval(20, testTick, nil, func() { bFired.Add(1) })
	a.Start()
	b.Start()
	defer b.Stop()

	time.Sleep(6 * testTick)
	b.Stop()

	if got := aFired.Load(); got != 1 {
		t.Fatalf("first countdown fired %d times, want 1", got)
	}
	if got := bFired.Load(); got != 0 {
		t.Fatalf("second countdown fired %d times, want 0", got)
	}
}
