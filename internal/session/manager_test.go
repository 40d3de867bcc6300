package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestLive(t *testing.T, contestID uuid.UUID, studentID int, expired *atomic.Int32) *Live {
	t.Helper()
	qs := testQuestions(1)
	c := newTestController(t, qs, &fakeGateway{})

	cd := NewCountdownWithInterval(50, testTick, nil, func() {
		if expired != nil {
			expired.Add(1)
		}
	})
	cd.Start()

	return &Live{
		ContestID:  contestID,
		StudentID:  studentID,
		Controller: c,
		Countdown:  cd,
		Monitor:    NewMonitor(testGrace, nil, nil, zerolog.Nop()),
	}
}

func TestAttachReplacesPreviousLiveSession(t *testing.T) {
	m := NewManager(zerolog.Nop())
	contestID := uuid.New()

	var oldExpired atomic.Int32
	old := newTestLive(t, contestID, 1, &oldExpired)
	m.Attach(old)

	replacement := newTestLive(t, contestID, 1, nil)
	m.Attach(replacement)
	defer m.CloseAll()

	if got := m.Len(); got != 1 {
		t.Fatalf("expected 1 live session after replace, got %d", got)
	}

	// The replaced session's countdown is dead: it never expires.
	time.Sleep(60 * testTick)
	if got := oldExpired.Load(); got != 0 {
		t.Fatalf("replaced session's countdown fired %d times, want 0", got)
	}
}

func TestDetachClosesAndRemoves(t *testing.T) {
	m := NewManager(zerolog.Nop())

	var expired atomic.Int32
	l := newTestLive(t, uuid.New(), 2, &expired)
	m.Attach(l)
	m.Detach(l)

	if got := m.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	time.Sleep(60 * testTick)
	if got := expired.Load(); got != 0 {
		t.Fatalf("detached session's countdown fired %d times, want 0", got)
	}
}

func TestDetachStaleSessionKeepsReplacement(t *testing.T) {
	m := NewManager(zerolog.Nop())
	contestID := uuid.New()

	old := newTestLive(t, contestID, 3, nil)
	m.Attach(old)
	replacement := newTestLive(t, contestID, 3, nil)
	m.Attach(replacement)
	defer m.CloseAll()

	// The old connection's deferred detach must not evict the replacement.
	m.Detach(old)
	if got := m.Len(); got != 1 {
		t.Fatalf("stale detach evicted the replacement, len=%d", got)
	}
}

func TestCloseAllTearsDownEverything(t *testing.T) {
	m := NewManager(zerolog.Nop())

	var expired atomic.Int32
	m.Attach(newTestLive(t, uuid.New(), 4, &expired))
	m.Attach(newTestLive(t, uuid.New(), 5, &expired))

	m.CloseAll()
	if got := m.Len(); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
	time.Sleep(60 * testTick)
	if got := expired.Load(); got != 0 {
		t.Fatalf("closed sessions fired %d countdown expiries, want 0", got)
	}
}
