package repository

import (
	"context"
	"errors"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateEmail = errors.New("account with this email already exists")

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByEmail retrieves a student by their unique email.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM students WHERE email = $1`, email,
	).Scan(&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new student account.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		s.Email, s.Name, s.PasswordHash,
	).Scan(&s.ID, &s.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}
