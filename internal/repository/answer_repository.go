package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository reads persisted answers. Writes go through the answer
// worker, never through request handlers.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// MapByContestAndStudent returns the student's saved answers and question
// statuses keyed by question ID. Used to rebuild session state when the
// Redis autosave buffer is gone.
func (r *AnswerRepository) MapByContestAndStudent(ctx context.Context, contestID uuid.UUID, studentID int) (map[string]string, map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, answer, status
		 FROM student_answers
		 WHERE contest_id = $1 AND student_id = $2`, contestID, studentID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	answers := make(map[string]string)
	statuses := make(map[string]string)
	for rows.Next() {
		var qid uuid.UUID
		var answer, status string
		if err := rows.Scan(&qid, &answer, &status); err != nil {
			return nil, nil, err
		}
		answers[qid.String()] = answer
		statuses[qid.String()] = status
	}
	return answers, statuses, rows.Err()
}
