package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/rs/zerolog"
)

const testGrace = 30 * time.Millisecond

func TestViolationForcesSubmitAfterGrace(t *testing.T) {
	var warnings, forced atomic.Int32

	m := NewMonitor(testGrace, func(model.ViolationKind, time.Duration) {
		warnings.Add(1)
	}, func() {
		forced.Add(1)
	}, zerolog.Nop())
	defer m.Close()

	m.Report(model.ViolationTabSwitch)

	time.Sleep(3 * testGrace)
	if got := forced.Load(); got != 1 {
		t.Fatalf("forced submission fired %d times, want 1", got)
	}
	if got := warnings.Load(); got != 1 {
		t.Fatalf("warning fired %d times, want 1", got)
	}
}

func TestRepeatViolationDoesNotRescheduleForce(t *testing.T) {
	var warnings, forced atomic.Int32

	m := NewMonitor(testGrace, func(model.ViolationKind, time.Duration) {
		warnings.Add(1)
	}, func() {
		forced.Add(1)
	}, zerolog.Nop())
	defer m.Close()

	m.Report(model.ViolationTabSwitch)
	time.Sleep(testGrace / 3)
	m.Report(model.ViolationFullscreenExit) // during grace period

	time.Sleep(4 * testGrace)
	if got := forced.Load(); got != 1 {
		t.Fatalf("forced submission fired %d times, want exactly 1", got)
	}
	// The student is still warned about each violation.
	if got := warnings.Load(); got != 2 {
		t.Fatalf("warnings fired %d times, want 2", got)
	}
}

func TestAcknowledgeDoesNotCancelPendingForce(t *testing.T) {
	var forced atomic.Int32

	m := NewMonitor(testGrace, nil, func() {
		forced.Add(1)
	}, zerolog.Nop())
	defer m.Close()

	m.Report(model.ViolationForbiddenKey)
	m.Acknowledge() // dialog dismissed; the scheduled force keeps running

	time.Sleep(3 * testGrace)
	if got := forced.Load(); got != 1 {
		t.Fatalf("acknowledgement must not cancel the pending force, fired %d times", got)
	}
}

func TestCloseCancelsPendingForce(t *testing.T) {
	var forced atomic.Int32

	m := NewMonitor(testGrace, nil, func() {
		forced.Add(1)
	}, zerolog.Nop())

	m.Report(model.ViolationContextMenu)
	m.Close()

	time.Sleep(3 * testGrace)
	if got := forced.Load(); got != 0 {
		t.Fatalf("no callback may fire after Close, fired %d times", got)
	}

	// Reports after Close are ignored.
	m.Report(model.ViolationTabSwitch)
	time.Sleep(2 * testGrace)
	if got := forced.Load(); got != 0 {
		t.Fatalf("report after Close scheduled a force, fired %d times", got)
	}
}

func TestViolationPipelineSubmitsOnce(t *testing.T) {
	qs := testQuestions(2)
	gw := &fakeGateway{}
	c := newTestController(t, qs, gw)

	m := NewMonitor(testGrace, nil, func() {
		c.ForceSubmit(context.Background(), model.ReasonViolation)
	}, zerolog.Nop())
	defer m.Close()

	m.Report(model.ViolationTabSwitch)
	m.Report(model.ViolationTabSwitch)

	time.Sleep(3 * testGrace)
	if got := gw.callCount(); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}
	if !c.Terminal() || c.Reason() != model.ReasonViolation {
		t.Fatalf("expected terminal VIOLATION session, got terminal=%v reason=%s", c.Terminal(), c.Reason())
	}
}
