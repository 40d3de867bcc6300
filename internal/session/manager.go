package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Live bundles the moving parts of one mounted assessment session. Closing
// it tears everything down deterministically: the countdown stops, the
// integrity monitor detaches, and no callback fires afterwards.
type Live struct {
	ContestID  uuid.UUID
	StudentID  int
	Controller *Controller
	Countdown  *Countdown
	Monitor    *Monitor

	closeOnce sync.Once
}

// Close cancels the countdown and detaches the monitor. Idempotent.
func (l *Live) Close() {
	l.closeOnce.Do(func() {
		if l.Countdown != nil {
			l.Countdown.Stop()
		}
		if l.Monitor != nil {
			l.Monitor.Close()
		}
	})
}

// Manager tracks the live sessions currently mounted on this server, keyed
// by contest and student. A reconnect replaces the previous live session;
// the replaced one is fully closed before the new one is visible.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Live
	log      zerolog.Logger
}

// NewManager creates an empty session registry.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Live),
		log:      log.With().Str("component", "session_manager").Logger(),
	}
}

func liveKey(contestID uuid.UUID, studentID int) string {
	return fmt.Sprintf("%s:%d", contestID, studentID)
}

// Attach registers a live session, closing any previous one for the same
// contest-student pair (a reconnect from another tab or device).
func (m *Manager) Attach(l *Live) {
	key := liveKey(l.ContestID, l.StudentID)

	m.mu.Lock()
	prev := m.sessions[key]
	m.sessions[key] = l
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
		m.log.Info().
			Str("contest_id", l.ContestID.String()).
			Int("student_id", l.StudentID).
			Msg("Replaced live session on reconnect")
	}
}

// Detach closes and removes a live session. Removing a session that was
// already replaced by a newer attach is a no-op for the newer one.
func (m *Manager) Detach(l *Live) {
	key := liveKey(l.ContestID, l.StudentID)

	m.mu.Lock()
	if m.sessions[key] == l {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	l.Close()
}

// Len returns the number of currently mounted sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll tears down every live session. Called on server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Live, 0, len(m.sessions))
	for _, l := range m.sessions {
		all = append(all, l)
	}
	m.sessions = make(map[string]*Live)
	m.mu.Unlock()

	for _, l := range all {
		l.Close()
	}
	if len(all) > 0 {
		m.log.Info().Int("count", len(all)).Msg("Closed all live sessions")
	}
}
