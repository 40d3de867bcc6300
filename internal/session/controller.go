package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Controller errors surfaced to callers. Invalid navigation is deliberately
// not an error; out-of-range requests are ignored.
var (
	ErrUnknownQuestion = errors.New("question is not part of this session")
	ErrSessionTerminal = errors.New("session is terminal, no further mutation permitted")
	ErrNoQuestions     = errors.New("session has no questions")
)

// Controller is the single source of truth for one student's attempt:
// navigation, answer capture, question statuses, and the terminal transition.
// All operations are serialized by an internal mutex; the countdown and the
// integrity monitor only ever call Controller operations, never touch its
// maps directly.
type Controller struct {
	sessionID uuid.UUID
	contestID uuid.UUID
	studentID int

	mu        sync.Mutex
	questions []model.Question
	byID      map[string]*model.Question
	answers   map[string]model.AnswerValue
	statuses  map[string]model.QuestionStatus
	current   int
	terminal  bool
	reason    model.CompletionReason
	inFlight  bool

	gateway Gateway
	log     zerolog.Logger
}

// NewController builds a controller over an ordered, immutable question set.
// Every question starts unattempted; exactly one status entry exists per
// question for the whole session lifetime.
func NewController(
	sessionID, contestID uuid.UUID,
	studentID int,
	questions []model.Question,
	gateway Gateway,
	log zerolog.Logger,
) (*Controller, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	byID := make(map[string]*model.Question, len(questions))
	statuses := make(map[string]model.QuestionStatus, len(questions))
	for i := range questions {
		id := questions[i].ID.String()
		byID[id] = &questions[i]
		statuses[id] = model.StatusUnattempted
	}

	return &Controller{
		sessionID: sessionID,
		contestID: contestID,
		studentID: studentID,
		questions: questions,
		byID:      byID,
		answers:   make(map[string]model.AnswerValue, len(questions)),
		statuses:  statuses,
		gateway:   gateway,
		log: log.With().
			Str("component", "session_controller").
			Str("contest_id", contestID.String()).
			Int("student_id", studentID).
			Logger(),
	}, nil
}

// RestoreAnswer seeds a previously saved answer without status side effects
// beyond marking it attempted. Used when rebuilding a session after reload.
func (c *Controller) RestoreAnswer(questionID string, v model.AnswerValue, status model.QuestionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminal {
		return
	}
	if _, ok := c.byID[questionID]; !ok {
		return
	}
	c.answers[questionID] = v
	if status == "" {
		status = model.StatusAttempted
	}
	c.statuses[questionID] = status
}

// SaveAnswer records an answer for a loaded question. The value shape must
// match the question kind. Overwriting a prior answer is not an error: last
// write wins. When advance is true (the "Save & Next" affordance) the current
// index moves forward; direct panel navigation saves with advance=false.
func (c *Controller) SaveAnswer(questionID string, v model.AnswerValue, advance bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal {
		return ErrSessionTerminal
	}
	q, ok := c.byID[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if err := model.ValidateAnswer(q, v); err != nil {
		return fmt.Errorf("answer for question %s: %w", questionID, err)
	}

	c.answers[questionID] = v
	c.statuses[questionID] = model.StatusAttempted

	if advance && c.current < len(c.questions)-1 {
		c.current++
	}
	return nil
}

// MarkForReview flags a question for later review. A non-nil value is saved
// through the same validation path as SaveAnswer, so "answer and mark" is a
// single operation. Advance mirrors the save-and-next affordance.
func (c *Controller) MarkForReview(questionID string, v *model.AnswerValue, advance bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal {
		return ErrSessionTerminal
	}
	q, ok := c.byID[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if v != nil {
		if err := model.ValidateAnswer(q, *v); err != nil {
			return fmt.Errorf("answer for question %s: %w", questionID, err)
		}
		c.answers[questionID] = *v
	}
	c.statuses[questionID] = model.StatusMarkedForReview

	if advance && c.current < len(c.questions)-1 {
		c.current++
	}
	return nil
}

// NavigateTo moves the current-question pointer. Out-of-range indexes and
// calls after the terminal transition are silently ignored.
func (c *Controller) NavigateTo(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal || index < 0 || index >= len(c.questions) {
		return
	}
	c.current = index
}

// FinalSubmit is the voluntary submission path. On gateway failure the
// session stays non-terminal and the error is returned so the student can
// retry. A call after the terminal transition is a no-op.
func (c *Controller) FinalSubmit(ctx context.Context) error {
	sub, ok := c.beginSubmit(model.ReasonSubmitted)
	if !ok {
		return nil
	}

	if err := c.gateway.Submit(ctx, sub); err != nil {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
		c.log.Error().Err(err).Msg("Voluntary submission failed, session stays open")
		return fmt.Errorf("submit answers: %w", err)
	}

	c.finish(model.ReasonSubmitted)
	c.log.Info().Int("answered", len(sub.Answers)).Msg("Session submitted")
	return nil
}

// ForceSubmit is the involuntary path, taken on countdown expiry or an
// unacknowledged integrity violation. It skips any confirmation and always
// transitions to terminal, even when the gateway call fails; a broken
// network must not trap the student in a dead session.
func (c *Controller) ForceSubmit(ctx context.Context, reason model.CompletionReason) {
	sub, ok := c.beginSubmit(reason)
	if !ok {
		return
	}

	if err := c.gateway.Submit(ctx, sub); err != nil {
		c.log.Error().Err(err).Str("reason", string(reason)).Msg("Forced submission failed, closing session locally")
	}

	c.finish(reason)
	c.log.Info().
		Str("reason", string(reason)).
		Int("answered", len(sub.Answers)).
		Msg("Session force-submitted")
}

// beginSubmit claims the single submission slot. It returns false when the
// session is already terminal or another submit is in flight, which makes
// every second submit call, voluntary or forced, concurrent or late, a
// no-op. The check and the claim happen under one lock acquisition so two
// racing callers cannot both reach the gateway.
func (c *Controller) beginSubmit(reason model.CompletionReason) (*Submission, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal || c.inFlight {
		return nil, false
	}
	c.inFlight = true

	answers := make(map[string]model.AnswerValue, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	statuses := make(map[string]model.QuestionStatus, len(c.statuses))
	for k, v := range c.statuses {
		statuses[k] = v
	}

	return &Submission{
		SessionID:   c.sessionID,
		ContestID:   c.contestID,
		StudentID:   c.studentID,
		Answers:     answers,
		Statuses:    statuses,
		Reason:      reason,
		SubmittedAt: time.Now(),
	}, true
}

func (c *Controller) finish(reason model.CompletionReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.terminal = true
	c.reason = reason
}

// CurrentIndex returns the current-question pointer.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Terminal reports whether the terminal transition has occurred.
func (c *Controller) Terminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal
}

// Reason returns the completion reason, empty until terminal.
func (c *Controller) Reason() model.CompletionReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// QuestionCount returns the size of the loaded question set.
func (c *Controller) QuestionCount() int {
	return len(c.questions)
}

// Status returns the status of one question.
func (c *Controller) Status(questionID string) model.QuestionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statuses[questionID]
}

// Snapshot returns copies of the answer and status maps for state recovery.
func (c *Controller) Snapshot() (map[string]model.AnswerValue, map[string]model.QuestionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	answers := make(map[string]model.AnswerValue, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	statuses := make(map[string]model.QuestionStatus, len(c.statuses))
	for k, v := range c.statuses {
		statuses[k] = v
	}
	return answers, statuses
}
