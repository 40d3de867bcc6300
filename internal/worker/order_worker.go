package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edulane/contest-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	OrderBatchSize    = 50
	OrderBatchTimeout = 2 * time.Second
	OrderPollTimeout  = 1 * time.Second
)

// OrderWorker persists each student's shuffled question order onto their
// assessment session row.
type OrderWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewOrderWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *OrderWorker {
	return &OrderWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "order_worker").Logger(),
	}
}

type orderPayload struct {
	ContestID string   `json:"contest_id"`
	StudentID int      `json:"student_id"`
	Order     []string `json:"order"`
}

func (w *OrderWorker) Start(ctx context.Context) {
	w.log.Info().Msg("OrderWorker started")

	batch := make([]*orderPayload, 0, OrderBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= OrderBatchSize || time.Since(lastFlush) >= OrderBatchTimeout) {

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
			item, err := w.rdb.BLPop(ctx, OrderPollTimeout, config.WorkerKey.PersistOrderQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p orderPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *OrderWorker) flushSafe(ctx context.Context, batch []*orderPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpdate(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk question order update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistOrderQueue, raw)
			}
		}
	}
}

func (w *OrderWorker) bulkUpdate(ctx context.Context, batch []*orderPayload) error {
	n := len(batch)

	contestIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	ordersBytes := make([][]byte, 0, n)

	for _, p := range batch {
		cID, err := uuid.Parse(p.ContestID)
		if err != nil {
			return err
		}

		ob, _ := json.Marshal(p.Order)

		contestIDs = append(contestIDs, cID)
		students = append(students, p.StudentID)
		ordersBytes = append(ordersBytes, ob)
	}

	query := `
		UPDATE assessment_sessions AS s
		SET question_order = t.qo
		FROM (
			SELECT
				u.contest_id,
				u.student_id,
				u.qo
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::jsonb[]
			) AS u (contest_id, student_id, qo)
		) AS t
		WHERE s.contest_id = t.contest_id
		  AND s.student_id = t.student_id
	`

	_, err := w.pool.Exec(ctx, query, contestIDs, students, ordersBytes)
	return err
}

func (w *OrderWorker) persistSingle(ctx context.Context, p *orderPayload) error {
	cID, err := uuid.Parse(p.ContestID)
	if err != nil {
		return err
	}

	ob, _ := json.Marshal(p.Order)

	_, err = w.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET question_order = $1
		 WHERE contest_id = $2 AND student_id = $3`,
		ob, cID, p.StudentID,
	)

	return err
}
