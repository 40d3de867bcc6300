package repository

import (
	"context"
	"encoding/json"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
// Choices and sub-questions are stored as jsonb arrays.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByContest retrieves all questions for a contest ordered by order_num.
func (r *QuestionRepository) ListByContest(ctx context.Context, contestID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, contest_id, question_text, kind, image_url, choices, sub_questions, correct_choice, order_num
		 FROM questions
		 WHERE contest_id = $1
		 ORDER BY order_num ASC`, contestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, contest_id, question_text, kind, image_url, choices, sub_questions, correct_choice, order_num
		 FROM questions WHERE id = $1`, id,
	)
	return scanQuestion(row)
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	choices, _ := json.Marshal(q.Choices)
	subs, _ := json.Marshal(q.SubQuestions)

	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (contest_id, question_text, kind, image_url, choices, sub_questions, correct_choice, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		q.ContestID, q.QuestionText, q.Kind, q.ImageURL, choices, subs, q.CorrectChoice, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceAll atomically replaces every question of a contest.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, contestID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE contest_id = $1`, contestID); err != nil {
		return err
	}

	for i := range questions {
		q := &questions[i]
		choices, _ := json.Marshal(q.Choices)
		subs, _ := json.Marshal(q.SubQuestions)

		err := tx.QueryRow(ctx,
			`INSERT INTO questions (contest_id, question_text, kind, image_url, choices, sub_questions, correct_choice, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			contestID, q.QuestionText, q.Kind, q.ImageURL, choices, subs, q.CorrectChoice, q.OrderNum,
		).Scan(&q.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes a question by ID.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	var choices, subs []byte

	err := row.Scan(&q.ID, &q.ContestID, &q.QuestionText, &q.Kind, &q.ImageURL,
		&choices, &subs, &q.CorrectChoice, &q.OrderNum)
	if err != nil {
		return nil, err
	}

	if len(choices) > 0 {
		if err := json.Unmarshal(choices, &q.Choices); err != nil {
			return nil, err
		}
	}
	if len(subs) > 0 {
		if err := json.Unmarshal(subs, &q.SubQuestions); err != nil {
			return nil, err
		}
	}
	return q, nil
}
