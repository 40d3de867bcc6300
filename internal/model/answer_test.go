package model

import (
	"errors"
	"testing"
)

func TestValidateAnswerShapes(t *testing.T) {
	short := &Question{Kind: QuestionKindShortAnswer}
	long := &Question{Kind: QuestionKindLongAnswer}
	numeric := &Question{Kind: QuestionKindNumeric}
	mcq := &Question{Kind: QuestionKindMultipleChoice, Choices: []string{"A", "B", "C"}}
	multi := &Question{Kind: QuestionKindMultiPart, SubQuestions: []string{"a", "b"}}

	cases := []struct {
		name    string
		q       *Question
		v       AnswerValue
		wantErr error
	}{
		{"short answer text ok", short, TextAnswer("hello"), nil},
		{"short answer rejects list", short, ListAnswer("hello"), ErrAnswerWantsText},
		{"long answer text ok", long, TextAnswer("an essay"), nil},
		{"numeric parses float", numeric, TextAnswer("3.14"), nil},
		{"numeric parses negative", numeric, TextAnswer("-42"), nil},
		{"numeric rejects word", numeric, TextAnswer("pi"), ErrNotNumeric},
		{"numeric rejects list", numeric, ListAnswer("1"), ErrAnswerWantsText},
		{"numeric allows empty", numeric, TextAnswer(""), nil},
		{"mcq known choice ok", mcq, ListAnswer("B"), nil},
		{"mcq multiple known ok", mcq, ListAnswer("A", "C"), nil},
		{"mcq unknown choice", mcq, ListAnswer("D"), ErrChoiceUnknown},
		{"mcq rejects text", mcq, TextAnswer("A"), ErrAnswerWantsList},
		{"multi part within bounds", multi, ListAnswer("x", "y"), nil},
		{"multi part too many", multi, ListAnswer("x", "y", "z"), ErrTooManyParts},
		{"multi part rejects text", multi, TextAnswer("x"), ErrAnswerWantsList},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAnswer(tc.q, tc.v)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ValidateAnswer() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateAnswerUnknownKind(t *testing.T) {
	q := &Question{Kind: QuestionKind("ESSAY_VIDEO")}
	if err := ValidateAnswer(q, TextAnswer("x")); err == nil {
		t.Fatal("expected error for unknown question kind")
	}
}

func TestAnswerValueRoundTrip(t *testing.T) {
	original := ListAnswer("A", "B")
	decoded, err := DecodeAnswerValue(original.Encode())
	if err != nil {
		t.Fatalf("DecodeAnswerValue() error = %v", err)
	}
	if !decoded.IsList() || len(decoded.List) != 2 || decoded.List[0] != "A" {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}

	text, err := DecodeAnswerValue(TextAnswer("42").Encode())
	if err != nil {
		t.Fatalf("DecodeAnswerValue() error = %v", err)
	}
	if text.IsList() || text.Text != "42" {
		t.Fatalf("round trip mismatch: %+v", text)
	}
}

func TestDecodeAnswerValueRejectsGarbage(t *testing.T) {
	if _, err := DecodeAnswerValue("{not json"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
