package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// QuestionStatus tracks how a student has handled a question.
type QuestionStatus string

const (
	StatusUnattempted     QuestionStatus = "UNATTEMPTED"
	StatusAttempted       QuestionStatus = "ATTEMPTED"
	StatusMarkedForReview QuestionStatus = "MARKED_FOR_REVIEW"
)

// Answer shape errors, raised when a value does not fit the question kind.
var (
	ErrAnswerWantsText = errors.New("answer must be a single text value for this question kind")
	ErrAnswerWantsList = errors.New("answer must be a list of values for this question kind")
	ErrChoiceUnknown   = errors.New("selected choice is not among the question's choices")
	ErrTooManyParts    = errors.New("more answer parts than the question has sub-questions")
	ErrNotNumeric      = errors.New("answer is not a valid number")
)

// AnswerValue is a tagged union over the shapes an answer can take.
// Scalar kinds (short answer, numeric, long answer) use Text; list kinds
// (multiple choice, multi-part) use List. Exactly one side is populated.
type AnswerValue struct {
	Text string   `json:"text,omitempty"`
	List []string `json:"list,omitempty"`
}

// TextAnswer builds a scalar answer value.
func TextAnswer(text string) AnswerValue {
	return AnswerValue{Text: text}
}

// ListAnswer builds a list answer value.
func ListAnswer(items ...string) AnswerValue {
	return AnswerValue{List: items}
}

// IsList reports whether the value carries a list payload.
func (v AnswerValue) IsList() bool {
	return v.List != nil
}

// Encode serializes the value for Redis/queue transport.
func (v AnswerValue) Encode() string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

// DecodeAnswerValue parses a value previously produced by Encode.
func DecodeAnswerValue(raw string) (AnswerValue, error) {
	var v AnswerValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return AnswerValue{}, fmt.Errorf("decode answer value: %w", err)
	}
	return v, nil
}

// ValidateAnswer checks that a value's shape matches the question kind.
// The check is done once, at the save boundary; everything downstream may
// assume a well-shaped value.
func ValidateAnswer(q *Question, v AnswerValue) error {
	switch q.Kind {
	case QuestionKindShortAnswer, QuestionKindLongAnswer:
		if v.IsList() {
			return ErrAnswerWantsText
		}
	case QuestionKindNumeric:
		if v.IsList() {
			return ErrAnswerWantsText
		}
		if v.Text != "" {
			if _, err := strconv.ParseFloat(v.Text, 64); err != nil {
				return ErrNotNumeric
			}
		}
	case QuestionKindMultipleChoice:
		if !v.IsList() {
			return ErrAnswerWantsList
		}
		for _, sel := range v.List {
			if !containsString(q.Choices, sel) {
				return ErrChoiceUnknown
			}
		}
	case QuestionKindMultiPart:
		if !v.IsList() {
			return ErrAnswerWantsList
		}
		if len(v.List) > len(q.SubQuestions) {
			return ErrTooManyParts
		}
	default:
		return fmt.Errorf("unknown question kind %q", q.Kind)
	}
	return nil
}

func containsString(set []string, want string) bool {
	for _, s := range set {
		if s == want {
			return true
		}
	}
	return false
}
