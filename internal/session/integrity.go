package session

import (
	"sync"
	"time"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/rs/zerolog"
)

type monitorState int

const (
	stateNormal monitorState = iota
	stateWarning
	stateForced
)

// Monitor runs the integrity-violation pipeline for one session:
//
//	NORMAL --violation--> WARNING --grace elapses--> FORCED_SUBMIT
//
// Entering WARNING schedules a forced submission after a fixed grace period
// and notifies the client. Acknowledge returns the state to NORMAL but does
// NOT cancel the pending forced submission; dismissing the warning dialog
// never buys more time. A repeat violation during the grace period is
// recorded but does not schedule a second forced submission.
type Monitor struct {
	grace     time.Duration
	onWarning func(kind model.ViolationKind, grace time.Duration)
	onForced  func()

	mu         sync.Mutex
	state      monitorState
	pending    bool
	closed     bool
	graceTimer *time.Timer

	log zerolog.Logger
}

// NewMonitor wires a monitor to its callbacks. onWarning notifies the client
// that a forced submission is imminent; onForced performs it (exactly once).
func NewMonitor(grace time.Duration, onWarning func(kind model.ViolationKind, grace time.Duration), onForced func(), log zerolog.Logger) *Monitor {
	return &Monitor{
		grace:     grace,
		onWarning: onWarning,
		onForced:  onForced,
		log:       log.With().Str("component", "integrity_monitor").Logger(),
	}
}

// Report feeds one detected violation into the pipeline.
func (m *Monitor) Report(kind model.ViolationKind) {
	m.mu.Lock()

	if m.closed || m.state == stateForced {
		m.mu.Unlock()
		return
	}

	alreadyPending := m.pending
	m.state = stateWarning
	if !m.pending {
		m.pending = true
		m.graceTimer = time.AfterFunc(m.grace, m.fireForced)
	}
	m.mu.Unlock()

	if alreadyPending {
		m.log.Debug().Str("kind", string(kind)).Msg("Repeat violation during grace period")
	} else {
		m.log.Warn().Str("kind", string(kind)).Dur("grace", m.grace).Msg("Violation detected, grace period started")
	}

	if m.onWarning != nil {
		m.onWarning(kind, m.grace)
	}
}

// Acknowledge dismisses the warning. The scheduled forced submission keeps
// running.
func (m *Monitor) Acknowledge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state != stateWarning {
		return
	}
	m.state = stateNormal
}

func (m *Monitor) fireForced() {
	m.mu.Lock()
	if m.closed || m.state == stateForced {
		m.mu.Unlock()
		return
	}
	m.state = stateForced
	m.mu.Unlock()

	m.log.Warn().Msg("Grace period elapsed, forcing submission")
	if m.onForced != nil {
		m.onForced()
	}
}

// Close detaches the monitor. No callback fires after Close returns; a grace
// timer still pending is cancelled.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	if m.graceTimer != nil {
		m.graceTimer.Stop()
	}
}
