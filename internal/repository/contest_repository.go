package repository

import (
	"context"
	"strconv"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContestRepository handles contest data access.
type ContestRepository struct {
	pool *pgxpool.Pool
}

// NewContestRepository creates a new ContestRepository.
func NewContestRepository(pool *pgxpool.Pool) *ContestRepository {
	return &ContestRepository{pool: pool}
}

// GetByID retrieves a contest by ID.
func (r *ContestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contest, error) {
	c := &model.Contest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, author_id, scheduled_start, scheduled_end,
		        duration_seconds, entry_token, shuffle_questions, status, created_at, updated_at
		 FROM contests WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.AuthorID, &c.ScheduledStart, &c.ScheduledEnd,
		&c.DurationSeconds, &c.EntryToken, &c.ShuffleQuestions, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListPaginated retrieves contests with pagination and an optional status filter.
func (r *ContestRepository) ListPaginated(ctx context.Context, status *model.ContestStatus, limit, offset int) ([]model.Contest, int, error) {
	countQuery := `SELECT COUNT(*) FROM contests`
	var countArgs []interface{}
	if status != nil {
		countQuery += ` WHERE status = $1`
		countArgs = append(countArgs, *status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, title, description, author_id, scheduled_start, scheduled_end,
	                 duration_seconds, entry_token, shuffle_questions, status, created_at, updated_at
	          FROM contests`
	var args []interface{}
	argIdx := 1

	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
		argIdx++
	}

	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var contests []model.Contest
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.AuthorID, &c.ScheduledStart, &c.ScheduledEnd,
			&c.DurationSeconds, &c.EntryToken, &c.ShuffleQuestions, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		contests = append(contests, c)
	}
	return contests, total, rows.Err()
}

// ListPublished retrieves all published contests for the student lobby.
func (r *ContestRepository) ListPublished(ctx context.Context) ([]model.Contest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, author_id, scheduled_start, scheduled_end,
		        duration_seconds, entry_token, shuffle_questions, status, created_at, updated_at
		 FROM contests
		 WHERE status = $1
		 ORDER BY scheduled_start ASC NULLS LAST, created_at DESC`,
		model.ContestStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contests []model.Contest
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.AuthorID, &c.ScheduledStart, &c.ScheduledEnd,
			&c.DurationSeconds, &c.EntryToken, &c.ShuffleQuestions, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

// Create inserts a new contest in DRAFT status.
func (r *ContestRepository) Create(ctx context.Context, c *model.Contest) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO contests (title, description, author_id, scheduled_start, scheduled_end,
		                       duration_seconds, entry_token, shuffle_questions, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		c.Title, c.Description, c.AuthorID, c.ScheduledStart, c.ScheduledEnd,
		c.DurationSeconds, c.EntryToken, c.ShuffleQuestions, model.ContestStatusDraft,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update modifies an existing contest.
func (r *ContestRepository) Update(ctx context.Context, c *model.Contest) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE contests
		 SET title = $1, description = $2, scheduled_start = $3, scheduled_end = $4,
		     duration_seconds = $5, entry_token = $6, shuffle_questions = $7, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $8`,
		c.Title, c.Description, c.ScheduledStart, c.ScheduledEnd,
		c.DurationSeconds, c.EntryToken, c.ShuffleQuestions, c.ID,
	)
	return err
}

// UpdateStatus moves a contest to a new lifecycle status.
func (r *ContestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ContestStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE contests SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id,
	)
	return err
}

// Delete removes a contest by ID.
func (r *ContestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM contests WHERE id = $1`, id)
	return err
}
