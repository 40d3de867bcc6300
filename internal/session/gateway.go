package session

import (
	"context"
	"time"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/google/uuid"
)

// Submission is the full answer set handed to the gateway on a terminal
// transition. The controller builds it exactly once per session.
type Submission struct {
	SessionID   uuid.UUID                       `json:"session_id"`
	ContestID   uuid.UUID                       `json:"contest_id"`
	StudentID   int                             `json:"student_id"`
	Answers     map[string]model.AnswerValue    `json:"answers"`
	Statuses    map[string]model.QuestionStatus `json:"statuses"`
	Reason      model.CompletionReason          `json:"reason"`
	SubmittedAt time.Time                       `json:"submitted_at"`
}

// Gateway durably records a submission. The controller calls it at most once
// per session and never retries; failure handling differs by path (voluntary
// submits stay non-terminal so the student can retry, forced submits go
// terminal regardless).
type Gateway interface {
	Submit(ctx context.Context, sub *Submission) error
}
