package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationKind enumerates integrity violations reported by the client.
type ViolationKind string

const (
	ViolationTabSwitch      ViolationKind = "TAB_SWITCH"
	ViolationFullscreenExit ViolationKind = "FULLSCREEN_EXIT"
	ViolationForbiddenKey   ViolationKind = "FORBIDDEN_KEY"
	ViolationContextMenu    ViolationKind = "CONTEXT_MENU"
)

// KnownViolationKind reports whether the client-supplied kind is recognized.
func KnownViolationKind(k ViolationKind) bool {
	switch k {
	case ViolationTabSwitch, ViolationFullscreenExit, ViolationForbiddenKey, ViolationContextMenu:
		return true
	}
	return false
}

// Violation is a persisted integrity event for one session.
type Violation struct {
	ID         int64         `json:"id"`
	ContestID  uuid.UUID     `json:"contest_id"`
	StudentID  int           `json:"student_id"`
	Kind       ViolationKind `json:"kind"`
	Detail     string        `json:"detail,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
