package service

import (
	"context"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/repository"
	"github.com/google/uuid"
)

// QuestionService handles question business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	contestRepo  *repository.ContestRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, contestRepo *repository.ContestRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, contestRepo: contestRepo}
}

// ListByContest retrieves all questions for a contest.
func (s *QuestionService) ListByContest(ctx context.Context, contestID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByContest(ctx, contestID)
}

// Create adds a question to a draft contest.
func (s *QuestionService) Create(ctx context.Context, question *model.Question) error {
	contest, err := s.contestRepo.GetByID(ctx, question.ContestID)
	if err != nil {
		return err
	}
	if contest.Status != model.ContestStatusDraft {
		return ErrContestNotDraft
	}
	return s.questionRepo.Create(ctx, question)
}

// ReplaceAll replaces all questions of a draft contest.
func (s *QuestionService) ReplaceAll(ctx context.Context, contestID uuid.UUID, questions []model.Question) error {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.Status != model.ContestStatusDraft {
		return ErrContestNotDraft
	}
	for i := range questions {
		questions[i].ContestID = contestID
	}
	return s.questionRepo.ReplaceAll(ctx, contestID, questions)
}

// Delete removes a question from a draft contest.
func (s *QuestionService) Delete(ctx context.Context, contestID, questionID uuid.UUID) error {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.Status != model.ContestStatusDraft {
		return ErrContestNotDraft
	}
	return s.questionRepo.Delete(ctx, questionID)
}
