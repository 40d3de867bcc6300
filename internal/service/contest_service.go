package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/edulane/contest-backend/internal/config"
	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/repository"
	"github.com/edulane/contest-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNoQuestions         = errors.New("contest has no questions, cannot publish")
	ErrContestNotDraft     = errors.New("contest status is not DRAFT")
	ErrContestNotPublished = errors.New("contest status is not PUBLISHED")
)

// ContestService handles contest business logic and Redis caching.
type ContestService struct {
	contestRepo  *repository.ContestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewContestService creates a new ContestService.
func NewContestService(
	contestRepo *repository.ContestRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ContestService {
	return &ContestService{
		contestRepo:  contestRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "contest_service").Logger(),
	}
}

// GetByID retrieves a contest by its UUID.
func (s *ContestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Contest, error) {
	return s.contestRepo.GetByID(ctx, id)
}

// List retrieves contests with pagination and an optional status filter.
func (s *ContestService) List(ctx context.Context, status *model.ContestStatus, page, perPage int) ([]model.Contest, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	contests, total, err := s.contestRepo.ListPaginated(ctx, status, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if contests == nil {
		contests = []model.Contest{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return contests, pagination, nil
}

// ListPublished retrieves all published contests for the student lobby.
func (s *ContestService) ListPublished(ctx context.Context) ([]model.Contest, error) {
	contests, err := s.contestRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if contests == nil {
		contests = []model.Contest{}
	}
	return contests, nil
}

// Create inserts a new contest as DRAFT.
func (s *ContestService) Create(ctx context.Context, contest *model.Contest) error {
	contest.Status = model.ContestStatusDraft
	return s.contestRepo.Create(ctx, contest)
}

// Update modifies an existing draft contest.
func (s *ContestService) Update(ctx context.Context, contest *model.Contest) error {
	existing, err := s.contestRepo.GetByID(ctx, contest.ID)
	if err != nil {
		return err
	}
	if existing.Status != model.ContestStatusDraft {
		return ErrContestNotDraft
	}
	return s.contestRepo.Update(ctx, contest)
}

// Delete removes a draft contest.
func (s *ContestService) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.contestRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status != model.ContestStatusDraft {
		return ErrContestNotDraft
	}
	return s.contestRepo.Delete(ctx, id)
}

// Publish changes contest status to PUBLISHED and caches the payload +
// answer key in Redis. This is the critical path that populates the fast lane.
func (s *ContestService) Publish(ctx context.Context, contestID uuid.UUID) error {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return fmt.Errorf("get contest: %w", err)
	}

	if contest.Status != model.ContestStatusDraft {
		return ErrContestNotDraft
	}

	// Prewarm cache for this contest.
	if err := s.WarmContestCache(ctx, contest); err != nil {
		return err
	}

	if err := s.contestRepo.UpdateStatus(ctx, contestID, model.ContestStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("contest_id", contestID.String()).Msg("Contest published")
	return nil
}

// Archive moves a published contest out of the student lobby.
func (s *ContestService) Archive(ctx context.Context, contestID uuid.UUID) error {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return fmt.Errorf("get contest: %w", err)
	}
	if contest.Status != model.ContestStatusPublished {
		return ErrContestNotPublished
	}
	return s.contestRepo.UpdateStatus(ctx, contestID, model.ContestStatusArchived)
}

// RefreshCache re-caches the payload + answer key for a published contest.
// Called when questions are updated after publish.
func (s *ContestService) RefreshCache(ctx context.Context, contestID uuid.UUID) error {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return fmt.Errorf("get contest: %w", err)
	}

	if contest.Status != model.ContestStatusPublished {
		return ErrContestNotPublished
	}

	if err := s.WarmContestCache(ctx, contest); err != nil {
		return err
	}

	s.log.Info().Str("contest_id", contestID.String()).Msg("Cache refreshed")
	return nil
}

// WarmContestCache loads a contest's payload, duration, and answer key from
// PostgreSQL into Redis. Used by Publish, RefreshCache, and PrewarmAllCaches.
func (s *ContestService) WarmContestCache(ctx context.Context, contest *model.Contest) error {
	questions, err := s.questionRepo.ListByContest(ctx, contest.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Build student-facing payload (without correct answers).
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		studentQuestions[i] = model.QuestionForStudent{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Kind:         q.Kind,
			ImageURL:     q.ImageURL,
			Choices:      q.Choices,
			SubQuestions: q.SubQuestions,
			OrderNum:     q.OrderNum,
		}
	}

	payload := model.ContestPayload{
		ContestID:       contest.ID,
		Title:           contest.Title,
		DurationSeconds: contest.DurationSeconds,
		Questions:       studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Build the answer key map for RAM grading of multiple-choice questions.
	answerKey := make(map[string]interface{})
	for _, q := range questions {
		if q.Kind == model.QuestionKindMultipleChoice {
			answerKey[q.ID.String()] = q.CorrectChoice
		}
	}

	contestID := contest.ID.String()

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ContestPayloadKey(contestID), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.ContestDurationKey(contestID), strconv.Itoa(contest.DurationSeconds), 0)
	pipe.Del(ctx, config.CacheKey.ContestAnswerKey(contestID))
	if len(answerKey) > 0 {
		pipe.HSet(ctx, config.CacheKey.ContestAnswerKey(contestID), answerKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("contest_id", contestID).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published contests into Redis on application
// startup. This prevents lazy-loading races under thundering herd traffic.
func (s *ContestService) PrewarmAllCaches(ctx context.Context) error {
	contests, err := s.contestRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published contests: %w", err)
	}

	if len(contests) == 0 {
		s.log.Info().Msg("No published contests to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(contests)).Msg("Prewarming published contests...")

	warmed := 0
	for i := range contests {
		if err := s.WarmContestCache(ctx, &contests[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("contest_id", contests[i].ID.String()).
				Msg("Failed to warm contest, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(contests)).
		Msg("Prewarming complete")
	return nil
}

// GetContestPayload retrieves the cached student payload from Redis.
func (s *ContestService) GetContestPayload(ctx context.Context, contestID uuid.UUID) (*model.ContestPayload, error) {
	key := config.CacheKey.ContestPayloadKey(contestID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.New("contest not published or payload not cached")
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ContestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the multiple-choice answer key from Redis.
func (s *ContestService) GetAnswerKey(ctx context.Context, contestID uuid.UUID) (map[string]string, error) {
	key := config.CacheKey.ContestAnswerKey(contestID.String())
	result, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	return result, nil
}
