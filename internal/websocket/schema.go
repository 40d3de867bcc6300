package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSaveAnswer  Action = "save_answer"
	ActionMarkReview  Action = "mark_review"
	ActionNavigate    Action = "navigate"
	ActionViolation   Action = "violation"
	ActionAcknowledge Action = "acknowledge"
	ActionSubmit      Action = "submit"
	ActionPing        Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SaveAnswerRequest is sent by the client to save a single answer.
// The answer is either a JSON string (text kinds) or a JSON array of
// strings (choice and multi-part kinds).
type SaveAnswerRequest struct {
	Action  Action          `json:"action"`
	QID     string          `json:"q_id"`
	Answer  json.RawMessage `json:"ans"`
	Advance bool            `json:"advance"` // true for save-and-next
}

// MarkReviewRequest flags a question for later review. An answer may ride
// along so the client can answer and mark in one round trip.
type MarkReviewRequest struct {
	Action  Action          `json:"action"`
	QID     string          `json:"q_id"`
	Answer  json.RawMessage `json:"ans,omitempty"`
	Advance bool            `json:"advance"`
}

// NavigateRequest moves the current question pointer.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// ViolationRequest is sent by the client to report an integrity event.
type ViolationRequest struct {
	Action Action `json:"action"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// AcknowledgeRequest dismisses the integrity warning dialog.
type AcknowledgeRequest struct {
	Action Action `json:"action"`
}

// SubmitRequest is sent by the client to finish the assessment.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSuccess   Event = "success"
	EventRemaining Event = "remaining"
	EventWarning   Event = "integrity_warning"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

type SuccessResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// RemainingResponse carries the authoritative remaining time, sent once
// per second.
type RemainingResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining"`
}

// WarningResponse tells the client to show the integrity warning dialog.
type WarningResponse struct {
	Event        Event  `json:"event"`
	Kind         string `json:"kind"`
	GraceSeconds int    `json:"grace_seconds"`
}

// SubmittedResponse is the terminal event. The session is over and the
// connection will be closed by the server.
type SubmittedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
