package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edulane/contest-backend/internal/config"
	"github.com/edulane/contest-backend/internal/gateway"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	CompletionBatchSize    = 50
	CompletionBatchTimeout = 2 * time.Second
	CompletionPollTimeout  = 1 * time.Second
)

// CompletionWorker consumes persist_completions_queue and marks assessment
// sessions COMPLETED with their score and completion reason. After a
// successful flush it clears the students' autosave buffers in Redis.
type CompletionWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewCompletionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *CompletionWorker {
	return &CompletionWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "completion_worker").Logger(),
	}
}

func (w *CompletionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CompletionWorker started")

	batch := make([]*gateway.CompletionRecord, 0, CompletionBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= CompletionBatchSize || time.Since(lastFlush) >= CompletionBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, CompletionPollTimeout, config.WorkerKey.PersistCompletionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p gateway.CompletionRecord
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *CompletionWorker) flushSafe(ctx context.Context, batch []*gateway.CompletionRecord) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkComplete(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk completion update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistCompletionsQueue, raw)
			}
		}
		return
	}

	// Sessions are closed; the autosave buffers are no longer needed.
	w.bulkClearAutosaveBuffers(ctx, batch)
}

// bulkComplete updates all sessions in one statement using UNNEST.
func (w *CompletionWorker) bulkComplete(ctx context.Context, batch []*gateway.CompletionRecord) error {
	n := len(batch)

	contestIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	scores := make([]float64, 0, n)
	reasons := make([]string, 0, n)
	finishedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		cID, err := uuid.Parse(p.ContestID)
		if err != nil {
			return err
		}
		contestIDs = append(contestIDs, cID)
		students = append(students, p.StudentID)
		scores = append(scores, p.Score)
		reasons = append(reasons, p.Reason)
		finishedAts = append(finishedAts, time.Unix(p.FinishedAt, 0))
	}

	query := `
		UPDATE assessment_sessions AS s
		SET status = 'COMPLETED',
		    final_score = t.score,
		    completion_reason = t.reason,
		    finished_at = t.finished_at
		FROM (
			SELECT
				u.contest_id,
				u.student_id,
				u.score,
				u.reason,
				u.finished_at
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::float8[],
				$4::text[],
				$5::timestamptz[]
			) AS u (contest_id, student_id, score, reason, finished_at)
		) AS t
		WHERE s.contest_id = t.contest_id
		  AND s.student_id = t.student_id
	`

	_, err := w.pool.Exec(ctx, query, contestIDs, students, scores, reasons, finishedAts)
	return err
}

func (w *CompletionWorker) bulkClearAutosaveBuffers(ctx context.Context, batch []*gateway.CompletionRecord) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.StudentAnswersKey(p.ContestID, p.StudentID))
		pipe.Del(ctx, config.CacheKey.StudentStatusesKey(p.ContestID, p.StudentID))
	}

	_, _ = pipe.Exec(ctx)
}

func (w *CompletionWorker) persistSingle(ctx context.Context, p *gateway.CompletionRecord) error {
	cID, err := uuid.Parse(p.ContestID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET status = 'COMPLETED',
		     final_score = $1,
		     completion_reason = $2,
		     finished_at = $3
		 WHERE contest_id = $4 AND student_id = $5`,
		p.Score, p.Reason, time.Unix(p.FinishedAt, 0), cID, p.StudentID,
	)

	return err
}
