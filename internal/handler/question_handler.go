package handler

import (
	"errors"
	"net/http"

	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/response"
	"github.com/edulane/contest-backend/internal/service"
	"github.com/edulane/contest-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuestionHandler handles admin question management endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// List godoc
// GET /api/v1/admin/contests/:contest_id/questions
func (h *QuestionHandler) List(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.questionService.ListByContest(c.Request.Context(), contestID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if questions == nil {
		questions = []model.Question{}
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Create godoc
// POST /api/v1/admin/contests/:contest_id/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question := questionFromRequest(contestID, &req)
	if err := h.questionService.Create(c.Request.Context(), question); err != nil {
		if errors.Is(err, service.ErrContestNotDraft) {
			response.Fail(c, http.StatusConflict, response.ErrContestNotDraft)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceAll godoc
// PUT /api/v1/admin/contests/:contest_id/questions
// Atomically replaces the whole question set of a draft contest.
func (h *QuestionHandler) ReplaceAll(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, len(req.Questions))
	for i := range req.Questions {
		questions[i] = *questionFromRequest(contestID, &req.Questions[i])
	}

	if err := h.questionService.ReplaceAll(c.Request.Context(), contestID, questions); err != nil {
		if errors.Is(err, service.ErrContestNotDraft) {
			response.Fail(c, http.StatusConflict, response.ErrContestNotDraft)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Delete godoc
// DELETE /api/v1/admin/contests/:contest_id/questions/:question_id
func (h *QuestionHandler) Delete(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), contestID, questionID); err != nil {
		if errors.Is(err, service.ErrContestNotDraft) {
			response.Fail(c, http.StatusConflict, response.ErrContestNotDraft)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

func questionFromRequest(contestID uuid.UUID, req *model.AddQuestionRequest) *model.Question {
	return &model.Question{
		ContestID:     contestID,
		QuestionText:  req.QuestionText,
		Kind:          model.QuestionKind(req.Kind),
		ImageURL:      req.ImageURL,
		Choices:       req.Choices,
		SubQuestions:  req.SubQuestions,
		CorrectChoice: req.CorrectChoice,
		OrderNum:      req.OrderNum,
	}
}
