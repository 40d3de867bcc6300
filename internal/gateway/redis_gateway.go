package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/edulane/contest-backend/internal/config"
	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AnswerRecord is the queue payload consumed by the answer worker.
type AnswerRecord struct {
	StudentID  int    `json:"student_id"`
	ContestID  string `json:"contest_id"`
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	Status     string `json:"status"`
}

// CompletionRecord is the queue payload consumed by the completion worker.
type CompletionRecord struct {
	StudentID  int     `json:"student_id"`
	ContestID  string  `json:"contest_id"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
	FinishedAt int64   `json:"finished_at"`
}

// QueueGateway records submissions through the Redis persistence pipeline:
// the final answer map is written to the student's answer hash, each answer
// and the session completion are queued for the background workers, and
// multiple-choice questions are graded in RAM against the cached answer key.
//
// It implements session.Gateway and performs no retries of its own; the
// session controller decides what a failure means per submission path.
type QueueGateway struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewQueueGateway creates a QueueGateway.
func NewQueueGateway(rdb *redis.Client, log zerolog.Logger) *QueueGateway {
	return &QueueGateway{
		rdb: rdb,
		log: log.With().Str("component", "submission_gateway").Logger(),
	}
}

var _ session.Gateway = (*QueueGateway)(nil)

// Submit persists the submission. Called at most once per session by the
// controller.
func (g *QueueGateway) Submit(ctx context.Context, sub *session.Submission) error {
	contestID := sub.ContestID.String()
	score := g.grade(ctx, contestID, sub.Answers)

	answersKey := config.CacheKey.StudentAnswersKey(contestID, sub.StudentID)
	statusesKey := config.CacheKey.StudentStatusesKey(contestID, sub.StudentID)

	pipe := g.rdb.Pipeline()
	for qid, v := range sub.Answers {
		encoded := v.Encode()
		pipe.HSet(ctx, answersKey, qid, encoded)

		raw, _ := json.Marshal(AnswerRecord{
			StudentID:  sub.StudentID,
			ContestID:  contestID,
			QuestionID: qid,
			Answer:     encoded,
			Status:     string(sub.Statuses[qid]),
		})
		pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
	}
	for qid, st := range sub.Statuses {
		pipe.HSet(ctx, statusesKey, qid, string(st))
	}

	raw, _ := json.Marshal(CompletionRecord{
		StudentID:  sub.StudentID,
		ContestID:  contestID,
		Score:      score,
		Reason:     string(sub.Reason),
		FinishedAt: sub.SubmittedAt.Unix(),
	})
	pipe.RPush(ctx, config.WorkerKey.PersistCompletionsQueue, raw)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue submission: %w", err)
	}

	g.log.Info().
		Str("contest_id", contestID).
		Int("student_id", sub.StudentID).
		Str("reason", string(sub.Reason)).
		Float64("score", score).
		Int("answers", len(sub.Answers)).
		Msg("Submission queued")
	return nil
}

// grade scores the multiple-choice portion against the cached answer key.
// Other question kinds are left for manual review. A missing answer key
// (contest without multiple choice) grades to zero without failing the
// submission; grading is best-effort, persistence is not.
func (g *QueueGateway) grade(ctx context.Context, contestID string, answers map[string]model.AnswerValue) float64 {
	key, err := g.rdb.HGetAll(ctx, config.CacheKey.ContestAnswerKey(contestID)).Result()
	if err != nil {
		g.log.Warn().Err(err).Str("contest_id", contestID).Msg("Answer key unavailable, skipping grading")
		return 0
	}
	if len(key) == 0 {
		return 0
	}

	correct := 0
	for qid, want := range key {
		v, ok := answers[qid]
		if !ok {
			continue
		}
		if len(v.List) == 1 && v.List[0] == want {
			correct++
		}
	}
	return float64(correct) / float64(len(key)) * 100
}

// QueueViolation records an integrity event for asynchronous persistence.
// Violations are best-effort telemetry; a queue error is logged, not
// propagated, so a flaky Redis cannot break the violation pipeline itself.
func (g *QueueGateway) QueueViolation(ctx context.Context, v *model.Violation) {
	raw, _ := json.Marshal(map[string]interface{}{
		"contest_id":  v.ContestID.String(),
		"student_id":  v.StudentID,
		"kind":        string(v.Kind),
		"detail":      v.Detail,
		"occurred_at": v.OccurredAt.Unix(),
	})
	if err := g.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, raw).Err(); err != nil {
		g.log.Error().Err(err).Msg("Failed to queue violation")
	}
}

// QueueQuestionOrder records a student's shuffled question order for
// asynchronous persistence.
func (g *QueueGateway) QueueQuestionOrder(ctx context.Context, contestID string, studentID int, order []string) {
	raw, _ := json.Marshal(map[string]interface{}{
		"contest_id": contestID,
		"student_id": studentID,
		"order":      order,
	})
	if err := g.rdb.RPush(ctx, config.WorkerKey.PersistOrderQueue, raw).Err(); err != nil {
		g.log.Error().Err(err).Msg("Failed to queue question order")
	}
}
