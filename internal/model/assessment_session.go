package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates assessment session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// CompletionReason records which path ended the session.
type CompletionReason string

const (
	ReasonSubmitted CompletionReason = "SUBMITTED"
	ReasonTimeUp    CompletionReason = "TIME_UP"
	ReasonViolation CompletionReason = "VIOLATION"
)

// AssessmentSession represents a student's attempt at a contest.
type AssessmentSession struct {
	ID         uuid.UUID         `json:"id"`
	ContestID  uuid.UUID         `json:"contest_id"`
	StudentID  int               `json:"student_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Status     SessionStatus     `json:"status"`
	Reason     *CompletionReason `json:"reason,omitempty"`
	Score      *float64          `json:"score,omitempty"`
}

// JoinContestRequest is the payload for a student joining a contest.
type JoinContestRequest struct {
	EntryToken string `json:"entry_token" binding:"required,min=4,max=20"`
}

// SessionStateView is returned on page reload so the client can restore
// saved answers and the remaining countdown.
type SessionStateView struct {
	ContestID        uuid.UUID                 `json:"contest_id"`
	StudentID        int                       `json:"student_id"`
	SavedAnswers     map[string]string         `json:"saved_answers"`
	QuestionStatuses map[string]QuestionStatus `json:"question_statuses"`
	RemainingSeconds float64                   `json:"remaining_seconds"`
}
