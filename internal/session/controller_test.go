package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	subs  []*Submission
	err   error
}

func (g *fakeGateway) Submit(_ context.Context, sub *Submission) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.subs = append(g.subs, sub)
	return g.err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGateway) lastSubmission() *Submission {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.subs) == 0 {
		return nil
	}
	return g.subs[len(g.subs)-1]
}

func testQuestions(n int) []model.Question {
	contestID := uuid.New()
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:           uuid.New(),
			ContestID:    contestID,
			QuestionText: "question",
			Kind:         model.QuestionKindShortAnswer,
			OrderNum:     i,
		}
	}
	return qs
}

func newTestController(t *testing.T, qs []model.Question, gw Gateway) *Controller {
	t.Helper()
	c, err := NewController(uuid.New(), qs[0].ContestID, 7, qs, gw, zerolog.Nop())
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func TestNewControllerRequiresQuestions(t *testing.T) {
	_, err := NewController(uuid.New(), uuid.New(), 1, nil, &fakeGateway{}, zerolog.Nop())
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestSaveAnswerTracksStatuses(t *testing.T) {
	qs := testQuestions(3)
	c := newTestController(t, qs, &fakeGateway{})

	if err := c.SaveAnswer(qs[0].ID.String(), model.TextAnswer("a"), false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	c.NavigateTo(5) // out of range, must be ignored

	if got := c.CurrentIndex(); got != 0 {
		t.Fatalf("expected index unchanged at 0, got %d", got)
	}
	if got := c.Status(qs[0].ID.String()); got != model.StatusAttempted {
		t.Fatalf("q1 status = %s, want ATTEMPTED", got)
	}
	for _, q := range qs[1:] {
		if got := c.Status(q.ID.String()); got != model.StatusUnattempted {
			t.Fatalf("untouched question status = %s, want UNATTEMPTED", got)
		}
	}
}

func TestSaveAnswerLastWriteWins(t *testing.T) {
	qs := testQuestions(1)
	c := newTestController(t, qs, &fakeGateway{})

	id := qs[0].ID.String()
	if err := c.SaveAnswer(id, model.TextAnswer("first"), false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := c.SaveAnswer(id, model.TextAnswer("second"), false); err != nil {
		t.Fatalf("overwrite must not error: %v", err)
	}

	answers, _ := c.Snapshot()
	if answers[id].Text != "second" {
		t.Fatalf("expected last write to win, got %q", answers[id].Text)
	}
}

func TestSaveAnswerRejectsWrongShape(t *testing.T) {
	qs := testQuestions(1)
	c := newTestController(t, qs, &fakeGateway{})

	err := c.SaveAnswer(qs[0].ID.String(), model.ListAnswer("a", "b"), false)
	if !errors.Is(err, model.ErrAnswerWantsText) {
		t.Fatalf("expected shape error, got %v", err)
	}
	if got := c.Status(qs[0].ID.String()); got != model.StatusUnattempted {
		t.Fatalf("rejected save must not change status, got %s", got)
	}
}

func TestSaveAnswerUnknownQuestion(t *testing.T) {
	qs := testQuestions(1)
	c := newTestController(t, qs, &fakeGateway{})

	err := c.SaveAnswer(uuid.New().String(), model.TextAnswer("x"), false)
	if !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestSaveAndNextAdvances(t *testing.T) {
	qs := testQuestions(2)
	c := newTestController(t, qs, &fakeGateway{})

	if err := c.SaveAnswer(qs[0].ID.String(), model.TextAnswer("a"), true); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got := c.CurrentIndex(); got != 1 {
		t.Fatalf("expected advance to 1, got %d", got)
	}

	// Already on the last question: saving with advance stays in range.
	if err := c.SaveAnswer(qs[1].ID.String(), model.TextAnswer("b"), true); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got := c.CurrentIndex(); got != 1 {
		t.Fatalf("index must stay within range, got %d", got)
	}
}

func TestNavigateToIsIdempotent(t *testing.T) {
	qs := testQuestions(3)
	c := newTestController(t, qs, &fakeGateway{})

	c.NavigateTo(2)
	c.NavigateTo(2)
	if got := c.CurrentIndex(); got != 2 {
		t.Fatalf("expected index 2, got %d", got)
	}
	c.NavigateTo(-1)
	c.NavigateTo(3)
	if got := c.CurrentIndex(); got != 2 {
		t.Fatalf("out-of-range navigation must be a no-op, got %d", got)
	}
}

func TestMarkForReview(t *testing.T) {
	qs := testQuestions(2)
	c := newTestController(t, qs, &fakeGateway{})

	if err := c.MarkForReview(qs[1].ID.String(), nil, false); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if got := c.Status(qs[1].ID.String()); got != model.StatusMarkedForReview {
		t.Fatalf("status = %s, want MARKED_FOR_REVIEW", got)
	}

	// A later save flips it back to attempted.
	if err := c.SaveAnswer(qs[1].ID.String(), model.TextAnswer("a"), false); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got := c.Status(qs[1].ID.String()); got != model.StatusAttempted {
		t.Fatalf("status = %s, want ATTEMPTED", got)
	}
}

func TestMarkForReviewWithAnswer(t *testing.T) {
	qs := testQuestions(2)
	c := newTestController(t, qs, &fakeGateway{})

	v := model.TextAnswer("draft answer")
	if err := c.MarkForReview(qs[0].ID.String(), &v, true); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if got := c.Status(qs[0].ID.String()); got != model.StatusMarkedForReview {
		t.Fatalf("status = %s, want MARKED_FOR_REVIEW", got)
	}
	if got := c.CurrentIndex(); got != 1 {
		t.Fatalf("index = %d, want 1 after advance", got)
	}

	answers, _ := c.Snapshot()
	if got := answers[qs[0].ID.String()]; got.Text != "draft answer" {
		t.Fatalf("answer = %+v, want saved draft", got)
	}

	// A malformed value is rejected through the same validation path.
	bad := model.ListAnswer("x")
	if err := c.MarkForReview(qs[1].ID.String(), &bad, false); err == nil {
		t.Fatal("expected shape error for list answer on short-answer question")
	}
}

func TestTerminalIsSticky(t *testing.T) {
	qs := testQuestions(2)
	gw := &fakeGateway{}
	c := newTestController(t, qs, gw)
	ctx := context.Background()

	if err := c.FinalSubmit(ctx); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !c.Terminal() {
		t.Fatal("expected terminal after submit")
	}
	if c.Reason() != model.ReasonSubmitted {
		t.Fatalf("reason = %s, want SUBMITTED", c.Reason())
	}

	// Every later submit path is a no-op; the gateway is called once total.
	if err := c.FinalSubmit(ctx); err != nil {
		t.Fatalf("second submit must be a silent no-op: %v", err)
	}
	c.ForceSubmit(ctx, model.ReasonTimeUp)
	if got := gw.callCount(); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}

	if err := c.SaveAnswer(qs[0].ID.String(), model.TextAnswer("x"), false); !errors.Is(err, ErrSessionTerminal) {
		t.Fatalf("expected ErrSessionTerminal, got %v", err)
	}
	c.NavigateTo(1)
	if got := c.CurrentIndex(); got != 0 {
		t.Fatalf("navigation after terminal must be ignored, got %d", got)
	}
}

func TestFinalSubmitFailureAllowsRetry(t *testing.T) {
	qs := testQuestions(1)
	gw := &fakeGateway{err: errors.New("gateway down")}
	c := newTestController(t, qs, gw)
	ctx := context.Background()

	if err := c.FinalSubmit(ctx); err == nil {
		t.Fatal("expected error from failed voluntary submit")
	}
	if c.Terminal() {
		t.Fatal("voluntary failure must leave the session open")
	}

	gw.mu.Lock()
	gw.err = nil
	gw.mu.Unlock()

	if err := c.FinalSubmit(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !c.Terminal() {
		t.Fatal("expected terminal after successful retry")
	}
	if got := gw.callCount(); got != 2 {
		t.Fatalf("gateway called %d times, want 2 (failed + retry)", got)
	}
}

func TestForceSubmitFailureStillTerminal(t *testing.T) {
	qs := testQuestions(1)
	gw := &fakeGateway{err: errors.New("gateway down")}
	c := newTestController(t, qs, gw)

	c.ForceSubmit(context.Background(), model.ReasonViolation)
	if !c.Terminal() {
		t.Fatal("forced path must go terminal even when the gateway fails")
	}
	if c.Reason() != model.ReasonViolation {
		t.Fatalf("reason = %s, want VIOLATION", c.Reason())
	}
}

func TestForceSubmitCarriesFullState(t *testing.T) {
	qs := testQuestions(3)
	gw := &fakeGateway{}
	c := newTestController(t, qs, gw)

	_ = c.SaveAnswer(qs[0].ID.String(), model.TextAnswer("a"), false)
	_ = c.MarkForReview(qs[1].ID.String(), nil, false)

	c.ForceSubmit(context.Background(), model.ReasonTimeUp)

	sub := gw.lastSubmission()
	if sub == nil {
		t.Fatal("expected a submission")
	}
	if len(sub.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(sub.Answers))
	}
	if sub.Statuses[qs[1].ID.String()] != model.StatusMarkedForReview {
		t.Fatalf("statuses must travel with the submission, got %+v", sub.Statuses)
	}
	if sub.Reason != model.ReasonTimeUp {
		t.Fatalf("reason = %s, want TIME_UP", sub.Reason)
	}
}

func TestTimeUpForcesSubmissionWithEmptyAnswers(t *testing.T) {
	qs := testQuestions(2)
	gw := &fakeGateway{}
	c := newTestController(t, qs, gw)

	done := make(chan struct{})
	cd := NewCountdownWithInterval(5, 5*time.Millisecond, nil, func() {
		c.ForceSubmit(context.Background(), model.ReasonTimeUp)
		close(done)
	})
	cd.Start()
	defer cd.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never expired")
	}

	if got := gw.callCount(); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}
	sub := gw.lastSubmission()
	if len(sub.Answers) != 0 {
		t.Fatalf("expected empty answer map, got %d entries", len(sub.Answers))
	}
	if sub.Reason != model.ReasonTimeUp {
		t.Fatalf("reason = %s, want TIME_UP", sub.Reason)
	}
}
