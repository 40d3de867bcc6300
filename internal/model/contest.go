package model

import (
	"time"

	"github.com/google/uuid"
)

// ContestStatus enumerates the possible states of a contest.
type ContestStatus string

const (
	ContestStatusDraft     ContestStatus = "DRAFT"
	ContestStatusPublished ContestStatus = "PUBLISHED"
	ContestStatusArchived  ContestStatus = "ARCHIVED"
)

// Contest represents a contest entity.
type Contest struct {
	ID               uuid.UUID     `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	AuthorID         int           `json:"author_id"`
	ScheduledStart   *time.Time    `json:"scheduled_start,omitempty"`
	ScheduledEnd     *time.Time    `json:"scheduled_end,omitempty"`
	DurationSeconds  int           `json:"duration_seconds"`
	EntryToken       string        `json:"entry_token,omitempty"`
	ShuffleQuestions bool          `json:"shuffle_questions"`
	Status           ContestStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// CreateContestRequest is the payload for creating a new contest.
type CreateContestRequest struct {
	Title           string     `json:"title" binding:"required,min=3,max=255"`
	Description     string     `json:"description" binding:"max=2000"`
	ScheduledStart  *time.Time `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
	DurationSeconds int        `json:"duration_seconds" binding:"required,min=1,max=28800"`
	EntryToken      string     `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

// UpdateContestRequest is the payload for updating an existing contest.
type UpdateContestRequest struct {
	Title            string     `json:"title" binding:"omitempty,min=3,max=255"`
	Description      string     `json:"description" binding:"omitempty,max=2000"`
	ScheduledStart   *time.Time `json:"scheduled_start" binding:"omitempty"`
	ScheduledEnd     *time.Time `json:"scheduled_end" binding:"omitempty,gtfield=ScheduledStart"`
	DurationSeconds  int        `json:"duration_seconds" binding:"omitempty,min=1,max=28800"`
	EntryToken       string     `json:"entry_token" binding:"omitempty,min=4,max=20"`
	ShuffleQuestions *bool      `json:"shuffle_questions" binding:"omitempty"`
}

// ContestPayload is the Redis-cached payload sent to students (no answer key).
type ContestPayload struct {
	ContestID       uuid.UUID            `json:"contest_id"`
	Title           string               `json:"title"`
	DurationSeconds int                  `json:"duration_seconds"`
	Questions       []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           uuid.UUID    `json:"id"`
	QuestionText string       `json:"question_text"`
	Kind         QuestionKind `json:"kind"`
	ImageURL     string       `json:"image_url,omitempty"`
	Choices      []string     `json:"choices,omitempty"`
	SubQuestions []string     `json:"sub_questions,omitempty"`
	OrderNum     int          `json:"order_num"`
}
