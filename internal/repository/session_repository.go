package repository

import (
	"context"
	"time"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContestResult combines student data with their session outcome.
type ContestResult struct {
	StudentID  int                     `json:"student_id"`
	Name       string                  `json:"name"`
	Email      string                  `json:"email"`
	FinalScore *float64                `json:"score"`
	Status     model.SessionStatus     `json:"status"`
	Reason     *model.CompletionReason `json:"reason"`
	StartedAt  *time.Time              `json:"started_at"`
	FinishedAt *time.Time              `json:"finished_at"`
}

// SessionRepository handles assessment session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByContestAndStudent retrieves a session for a specific contest-student combination.
func (r *SessionRepository) GetByContestAndStudent(ctx context.Context, contestID uuid.UUID, studentID int) (*model.AssessmentSession, error) {
	s := &model.AssessmentSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, contest_id, student_id, started_at, finished_at, status, completion_reason, final_score
		 FROM assessment_sessions
		 WHERE contest_id = $1 AND student_id = $2`, contestID, studentID,
	).Scan(&s.ID, &s.ContestID, &s.StudentID, &s.StartedAt, &s.FinishedAt, &s.Status, &s.Reason, &s.Score)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new assessment session (student joins the contest).
// ON CONFLICT DO NOTHING makes a duplicate join return pgx.ErrNoRows; the
// caller then loads the existing session instead.
func (r *SessionRepository) Create(ctx context.Context, s *model.AssessmentSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessment_sessions (contest_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (contest_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		s.ContestID, s.StudentID, model.SessionStatusInProgress,
	).Scan(&s.ID, &s.StartedAt)
}

// Complete marks a session as completed with a final score and reason.
func (r *SessionRepository) Complete(ctx context.Context, contestID uuid.UUID, studentID int, score float64, reason model.CompletionReason) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx,
		`UPDATE assessment_sessions
		 SET status = $1, final_score = $2, completion_reason = $3, finished_at = $4
		 WHERE contest_id = $5 AND student_id = $6`,
		model.SessionStatusCompleted, score, reason, now, contestID, studentID)
	return err
}

// ListByStudent retrieves all sessions for a given student.
func (r *SessionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.AssessmentSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, contest_id, student_id, started_at, finished_at, status, completion_reason, final_score
		 FROM assessment_sessions
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.AssessmentSession
	for rows.Next() {
		var s model.AssessmentSession
		if err := rows.Scan(&s.ID, &s.ContestID, &s.StudentID, &s.StartedAt, &s.FinishedAt, &s.Status, &s.Reason, &s.Score); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListByContest retrieves all student results for a contest with pagination.
func (r *SessionRepository) ListByContest(ctx context.Context, contestID uuid.UUID, page, perPage int) ([]ContestResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessment_sessions WHERE contest_id = $1`, contestID,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT st.id, st.name, st.email,
		        s.final_score, s.status, s.completion_reason, s.started_at, s.finished_at
		 FROM assessment_sessions s
		 JOIN students st ON s.student_id = st.id
		 WHERE s.contest_id = $1
		 ORDER BY s.final_score DESC NULLS LAST, st.name ASC
		 LIMIT $2 OFFSET $3`,
		contestID, perPage, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []ContestResult
	for rows.Next() {
		var cr ContestResult
		if err := rows.Scan(
			&cr.StudentID, &cr.Name, &cr.Email,
			&cr.FinalScore, &cr.Status, &cr.Reason, &cr.StartedAt, &cr.FinishedAt,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, cr)
	}

	return results, total, rows.Err()
}

// GetQuestionOrder returns the persisted shuffled order for a session, if any.
func (r *SessionRepository) GetQuestionOrder(ctx context.Context, contestID uuid.UUID, studentID int) ([]byte, error) {
	var order []byte
	err := r.pool.QueryRow(ctx,
		`SELECT question_order FROM assessment_sessions
		 WHERE contest_id = $1 AND student_id = $2`, contestID, studentID,
	).Scan(&order)
	if err != nil {
		return nil, err
	}
	return order, nil
}
