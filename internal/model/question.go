package model

import (
	"github.com/google/uuid"
)

// QuestionKind enumerates the supported question kinds.
type QuestionKind string

const (
	QuestionKindShortAnswer    QuestionKind = "SHORT_ANSWER"
	QuestionKindNumeric        QuestionKind = "NUMERIC"
	QuestionKindLongAnswer     QuestionKind = "LONG_ANSWER"
	QuestionKindMultiPart      QuestionKind = "MULTI_PART"
	QuestionKindMultipleChoice QuestionKind = "MULTIPLE_CHOICE"
)

// Question represents a single contest question.
// Questions are immutable once a session has loaded them.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	ContestID     uuid.UUID    `json:"contest_id"`
	QuestionText  string       `json:"question_text"`
	Kind          QuestionKind `json:"kind"`
	ImageURL      string       `json:"image_url,omitempty"`
	Choices       []string     `json:"choices,omitempty"`
	SubQuestions  []string     `json:"sub_questions,omitempty"`
	CorrectChoice string       `json:"correct_choice,omitempty"`
	OrderNum      int          `json:"order_num"`
}

// AddQuestionRequest is the payload for adding a question to a contest.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=4000"`
	Kind          string   `json:"kind" binding:"required,oneof=SHORT_ANSWER NUMERIC LONG_ANSWER MULTI_PART MULTIPLE_CHOICE"`
	ImageURL      string   `json:"image_url" binding:"omitempty,url"`
	Choices       []string `json:"choices" binding:"omitempty,dive,max=500"`
	SubQuestions  []string `json:"sub_questions" binding:"omitempty,dive,max=1000"`
	CorrectChoice string   `json:"correct_choice" binding:"omitempty,max=500"`
	OrderNum      int      `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a contest's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
