package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/edulane/contest-backend/internal/config"
	"github.com/edulane/contest-backend/internal/gateway"
	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Portal errors surfaced to handlers.
var (
	ErrContestNotAvailable = errors.New("contest is not available for joining")
	ErrInvalidEntryToken   = errors.New("invalid entry token")
	ErrNoActiveSession     = errors.New("no active session for this contest")
	ErrSessionCompleted    = errors.New("session is already completed")
)

// PortalService handles the student-facing contest flow: lobby, joining,
// paper delivery with per-student shuffling, and state recovery.
type PortalService struct {
	sessionRepo    *repository.SessionRepository
	answerRepo     *repository.AnswerRepository
	contestRepo    *repository.ContestRepository
	contestService *ContestService
	queue          *gateway.QueueGateway
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewPortalService creates a new PortalService.
func NewPortalService(
	sessionRepo *repository.SessionRepository,
	answerRepo *repository.AnswerRepository,
	contestRepo *repository.ContestRepository,
	contestService *ContestService,
	queue *gateway.QueueGateway,
	rdb *redis.Client,
	log zerolog.Logger,
) *PortalService {
	return &PortalService{
		sessionRepo:    sessionRepo,
		answerRepo:     answerRepo,
		contestRepo:    contestRepo,
		contestService: contestService,
		queue:          queue,
		rdb:            rdb,
		log:            log.With().Str("component", "portal_service").Logger(),
	}
}

// LobbyStatus represents the concrete state of a contest in the lobby.
type LobbyStatus string

const (
	LobbyStatusUpcoming   LobbyStatus = "UPCOMING"
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
	LobbyStatusClosed     LobbyStatus = "CLOSED"
)

// LobbyContest represents a contest as displayed in the student lobby.
// The entry token is never serialized here.
type LobbyContest struct {
	ID              uuid.UUID               `json:"id"`
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	ScheduledStart  *time.Time              `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time              `json:"scheduled_end,omitempty"`
	DurationSeconds int                     `json:"duration_seconds"`
	LobbyStatus     LobbyStatus             `json:"lobby_status"`
	SessionStatus   *model.SessionStatus    `json:"session_status,omitempty"`
	FinalScore      *float64                `json:"final_score,omitempty"`
	Reason          *model.CompletionReason `json:"reason,omitempty"`
}

// GetLobby returns the published contests with the student's session status overlaid.
func (s *PortalService) GetLobby(ctx context.Context, studentID int) ([]LobbyContest, error) {
	contests, err := s.contestService.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published contests: %w", err)
	}

	sessions, err := s.sessionRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessionMap := make(map[uuid.UUID]*model.AssessmentSession, len(sessions))
	for i := range sessions {
		sessionMap[sessions[i].ContestID] = &sessions[i]
	}

	lobby := make([]LobbyContest, 0, len(contests))
	now := time.Now()

	for i := range contests {
		contest := &contests[i]
		entry := LobbyContest{
			ID:              contest.ID,
			Title:           contest.Title,
			Description:     contest.Description,
			ScheduledStart:  contest.ScheduledStart,
			ScheduledEnd:    contest.ScheduledEnd,
			DurationSeconds: contest.DurationSeconds,
		}

		if sess, ok := sessionMap[contest.ID]; ok {
			entry.SessionStatus = &sess.Status
			if sess.Status == model.SessionStatusCompleted {
				entry.LobbyStatus = LobbyStatusCompleted
				entry.FinalScore = sess.Score
				entry.Reason = sess.Reason
			} else {
				entry.LobbyStatus = LobbyStatusInProgress
			}
		} else {
			switch {
			case contest.ScheduledStart != nil && contest.ScheduledStart.After(now):
				entry.LobbyStatus = LobbyStatusUpcoming
			case contest.ScheduledEnd != nil && contest.ScheduledEnd.Before(now):
				entry.LobbyStatus = LobbyStatusClosed
			default:
				entry.LobbyStatus = LobbyStatusAvailable
			}
		}

		lobby = append(lobby, entry)
	}

	return lobby, nil
}

// JoinContest validates the entry token and creates a session for the student.
// Joining is idempotent: a second join returns the existing session.
func (s *PortalService) JoinContest(ctx context.Context, contestID uuid.UUID, studentID int, entryToken string) (*model.AssessmentSession, error) {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("get contest: %w", err)
	}

	if contest.Status != model.ContestStatusPublished {
		return nil, ErrContestNotAvailable
	}

	now := time.Now()
	if contest.ScheduledStart != nil && contest.ScheduledStart.After(now) {
		return nil, ErrContestNotAvailable
	}
	if contest.ScheduledEnd != nil && contest.ScheduledEnd.Before(now) {
		return nil, ErrContestNotAvailable
	}

	if contest.EntryToken != "" && contest.EntryToken != entryToken {
		return nil, ErrInvalidEntryToken
	}

	// Check if the student already has a session.
	existing, err := s.sessionRepo.GetByContestAndStudent(ctx, contestID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}

	// Idempotency: if they already joined, ensure Redis has the start time.
	// Covers joins from a different device or an immediate refresh.
	startKey := config.CacheKey.SessionStartKey(contestID.String(), studentID)
	if existing != nil {
		_ = s.rdb.Set(ctx, startKey, existing.StartedAt.Unix(), 0)
		return existing, nil
	}

	session := &model.AssessmentSession{
		ContestID: contestID,
		StudentID: studentID,
		StartedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent join. Fetch the row the other request created.
			existing, fetchErr := s.sessionRepo.GetByContestAndStudent(ctx, contestID, studentID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent join detected, but fetch failed: %w", fetchErr)
			}
			_ = s.rdb.Set(ctx, startKey, existing.StartedAt.Unix(), 0)
			return existing, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	// Cache the DB-assigned start time so state reads skip PostgreSQL.
	if err := s.rdb.Set(ctx, startKey, session.StartedAt.Unix(), 0).Err(); err != nil {
		// Not fatal: GetSessionState falls back to PostgreSQL.
		s.log.Warn().Err(err).
			Str("contest_id", contestID.String()).
			Int("student_id", studentID).
			Msg("Failed to cache session start time")
	}

	return session, nil
}

// VerifyActiveSession checks that a student has an IN_PROGRESS session for
// the given contest.
func (s *PortalService) VerifyActiveSession(ctx context.Context, contestID uuid.UUID, studentID int) error {
	sess, err := s.sessionRepo.GetByContestAndStudent(ctx, contestID, studentID)
	if err != nil {
		return ErrNoActiveSession
	}
	if sess.Status == model.SessionStatusCompleted {
		return ErrSessionCompleted
	}
	return nil
}

// RemainingSeconds computes the authoritative remaining time from the cached
// session start, falling back to PostgreSQL on a cache miss and self-healing
// the cache.
func (s *PortalService) RemainingSeconds(ctx context.Context, contestID uuid.UUID, studentID int) (float64, error) {
	durationStr, err := s.rdb.Get(ctx, config.CacheKey.ContestDurationKey(contestID.String())).Result()
	if err != nil {
		return 0, fmt.Errorf("get contest duration: %w", err)
	}
	durationSeconds, err := strconv.Atoi(durationStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format in redis: %w", err)
	}

	var startTimeUnix int64
	startKey := config.CacheKey.SessionStartKey(contestID.String(), studentID)

	val, err := s.rdb.Get(ctx, startKey).Result()
	if err == redis.Nil {
		// Cache miss. Fall back to PostgreSQL as the source of truth.
		sess, dbErr := s.sessionRepo.GetByContestAndStudent(ctx, contestID, studentID)
		if dbErr != nil {
			return 0, fmt.Errorf("session not found in cache or db: %w", dbErr)
		}
		startTimeUnix = sess.StartedAt.Unix()

		// Self-heal so the next read is fast.
		_ = s.rdb.Set(ctx, startKey, startTimeUnix, 0)
	} else if err != nil {
		return 0, fmt.Errorf("redis error getting start time: %w", err)
	} else {
		startTimeUnix, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid start time format in cache: %w", err)
		}
	}

	endTime := time.Unix(startTimeUnix, 0).Add(time.Duration(durationSeconds) * time.Second)
	remaining := time.Until(endTime)
	if remaining < 0 {
		remaining = 0
	}
	return remaining.Seconds(), nil
}

// GetSessionState returns everything the client needs to restore an
// in-progress assessment after a reload: saved answers, question statuses,
// and the remaining time.
func (s *PortalService) GetSessionState(ctx context.Context, contestID uuid.UUID, studentID int) (*model.SessionStateView, error) {
	answersKey := config.CacheKey.StudentAnswersKey(contestID.String(), studentID)
	answers, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get saved answers: %w", err)
	}

	statusesKey := config.CacheKey.StudentStatusesKey(contestID.String(), studentID)
	rawStatuses, err := s.rdb.HGetAll(ctx, statusesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get question statuses: %w", err)
	}

	// Empty autosave buffer can mean a fresh session or an evicted cache.
	// Rebuild from PostgreSQL when the worker already persisted something.
	if len(answers) == 0 {
		dbAnswers, dbStatuses, dbErr := s.answerRepo.MapByContestAndStudent(ctx, contestID, studentID)
		if dbErr == nil && len(dbAnswers) > 0 {
			answers = dbAnswers
			rawStatuses = dbStatuses

			pipe := s.rdb.Pipeline()
			for qid, ans := range dbAnswers {
				pipe.HSet(ctx, answersKey, qid, ans)
			}
			for qid, st := range dbStatuses {
				pipe.HSet(ctx, statusesKey, qid, st)
			}
			_, _ = pipe.Exec(ctx)
		}
	}

	statuses := make(map[string]model.QuestionStatus, len(rawStatuses))
	for qid, st := range rawStatuses {
		statuses[qid] = model.QuestionStatus(st)
	}

	remaining, err := s.RemainingSeconds(ctx, contestID, studentID)
	if err != nil {
		return nil, err
	}

	return &model.SessionStateView{
		ContestID:        contestID,
		StudentID:        studentID,
		SavedAnswers:     answers,
		QuestionStatuses: statuses,
		RemainingSeconds: remaining,
	}, nil
}

// GetPaper returns the contest payload with questions in the student's
// personal order. The order is shuffled once per session, cached in Redis,
// and queued for persistence so reconnects always see the same sequence.
func (s *PortalService) GetPaper(ctx context.Context, contestID uuid.UUID, studentID int) (*model.ContestPayload, error) {
	payload, err := s.contestService.GetContestPayload(ctx, contestID)
	if err != nil {
		return nil, err
	}

	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("get contest: %w", err)
	}
	if !contest.ShuffleQuestions {
		return payload, nil
	}

	order, err := s.questionOrder(ctx, contestID, studentID, payload)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.QuestionForStudent, len(payload.Questions))
	for _, q := range payload.Questions {
		byID[q.ID.String()] = q
	}

	ordered := make([]model.QuestionForStudent, 0, len(order))
	for _, qid := range order {
		if q, ok := byID[qid]; ok {
			ordered = append(ordered, q)
		}
	}
	// Questions added after the order was fixed go to the end.
	if len(ordered) < len(payload.Questions) {
		seen := make(map[string]bool, len(order))
		for _, qid := range order {
			seen[qid] = true
		}
		for _, q := range payload.Questions {
			if !seen[q.ID.String()] {
				ordered = append(ordered, q)
			}
		}
	}

	shuffled := *payload
	shuffled.Questions = ordered
	return &shuffled, nil
}

// OrderedQuestions returns the full question list (shapes only, no answer
// key) in the student's personal order. Used to build the live session
// controller on WebSocket attach.
func (s *PortalService) OrderedQuestions(ctx context.Context, contestID uuid.UUID, studentID int) ([]model.Question, error) {
	payload, err := s.GetPaper(ctx, contestID, studentID)
	if err != nil {
		return nil, err
	}

	questions := make([]model.Question, len(payload.Questions))
	for i, q := range payload.Questions {
		questions[i] = model.Question{
			ID:           q.ID,
			ContestID:    contestID,
			QuestionText: q.QuestionText,
			Kind:         q.Kind,
			ImageURL:     q.ImageURL,
			Choices:      q.Choices,
			SubQuestions: q.SubQuestions,
			OrderNum:     q.OrderNum,
		}
	}
	return questions, nil
}

// questionOrder loads the student's fixed shuffle order, generating and
// persisting it on first access.
func (s *PortalService) questionOrder(ctx context.Context, contestID uuid.UUID, studentID int, payload *model.ContestPayload) ([]string, error) {
	orderKey := config.CacheKey.QuestionOrderKey(contestID.String(), studentID)

	val, err := s.rdb.Get(ctx, orderKey).Result()
	if err == nil {
		var order []string
		if jsonErr := json.Unmarshal([]byte(val), &order); jsonErr == nil {
			return order, nil
		}
		// Corrupt cache entry falls through to regeneration.
	} else if err != redis.Nil {
		return nil, fmt.Errorf("get question order: %w", err)
	}

	// Cache miss. Try the persisted copy before reshuffling.
	if raw, dbErr := s.sessionRepo.GetQuestionOrder(ctx, contestID, studentID); dbErr == nil && len(raw) > 0 {
		var order []string
		if jsonErr := json.Unmarshal(raw, &order); jsonErr == nil && len(order) > 0 {
			encoded, _ := json.Marshal(order)
			_ = s.rdb.Set(ctx, orderKey, encoded, 0)
			return order, nil
		}
	}

	// First access: fix the order with a Fisher-Yates shuffle.
	order := make([]string, len(payload.Questions))
	for i, q := range payload.Questions {
		order[i] = q.ID.String()
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	encoded, _ := json.Marshal(order)
	if err := s.rdb.Set(ctx, orderKey, encoded, 0).Err(); err != nil {
		return nil, fmt.Errorf("cache question order: %w", err)
	}
	s.queue.QueueQuestionOrder(ctx, contestID.String(), studentID, order)

	return order, nil
}

// GetContestResults retrieves paginated contest results for admins.
func (s *PortalService) GetContestResults(ctx context.Context, contestID uuid.UUID, page, perPage int) ([]repository.ContestResult, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return s.sessionRepo.ListByContest(ctx, contestID, page, perPage)
}

// GetMyResult returns a student's own completed session for a contest.
func (s *PortalService) GetMyResult(ctx context.Context, contestID uuid.UUID, studentID int) (*model.AssessmentSession, error) {
	sess, err := s.sessionRepo.GetByContestAndStudent(ctx, contestID, studentID)
	if err != nil {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}
