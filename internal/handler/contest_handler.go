package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edulane/contest-backend/internal/middleware"
	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/response"
	"github.com/edulane/contest-backend/internal/service"
	"github.com/edulane/contest-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContestHandler handles admin contest management endpoints.
type ContestHandler struct {
	contestService *service.ContestService
	portalService  *service.PortalService
}

// NewContestHandler creates a new ContestHandler.
func NewContestHandler(contestService *service.ContestService, portalService *service.PortalService) *ContestHandler {
	return &ContestHandler{contestService: contestService, portalService: portalService}
}

// List godoc
// GET /api/v1/admin/contests?status=&page=&per_page=
func (h *ContestHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	var status *model.ContestStatus
	if raw := c.Query("status"); raw != "" {
		st := model.ContestStatus(raw)
		status = &st
	}

	contests, pagination, err := h.contestService.List(c.Request.Context(), status, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"contests": contests}, pagination)
}

// Get godoc
// GET /api/v1/admin/contests/:contest_id
func (h *ContestHandler) Get(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	contest, err := h.contestService.GetByID(c.Request.Context(), contestID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"contest": contest})
}

// Create godoc
// POST /api/v1/admin/contests
func (h *ContestHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateContestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	contest := &model.Contest{
		Title:           req.Title,
		Description:     req.Description,
		AuthorID:        claims.UserID,
		ScheduledStart:  req.ScheduledStart,
		ScheduledEnd:    req.ScheduledEnd,
		DurationSeconds: req.DurationSeconds,
		EntryToken:      req.EntryToken,
	}

	if err := h.contestService.Create(c.Request.Context(), contest); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"contest": contest})
}

// Update godoc
// PUT /api/v1/admin/contests/:contest_id
func (h *ContestHandler) Update(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateContestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	contest, err := h.contestService.GetByID(c.Request.Context(), contestID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if req.Title != "" {
		contest.Title = req.Title
	}
	if req.Description != "" {
		contest.Description = req.Description
	}
	if req.ScheduledStart != nil {
		contest.ScheduledStart = req.ScheduledStart
	}
	if req.ScheduledEnd != nil {
		contest.ScheduledEnd = req.ScheduledEnd
	}
	if req.DurationSeconds > 0 {
		contest.DurationSeconds = req.DurationSeconds
	}
	if req.EntryToken != "" {
		contest.EntryToken = req.EntryToken
	}
	if req.ShuffleQuestions != nil {
		contest.ShuffleQuestions = *req.ShuffleQuestions
	}

	if err := h.contestService.Update(c.Request.Context(), contest); err != nil {
		if errors.Is(err, service.ErrContestNotDraft) {
			response.Fail(c, http.StatusConflict, response.ErrContestNotDraft)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"contest": contest})
}

// Delete godoc
// DELETE /api/v1/admin/contests/:contest_id
func (h *ContestHandler) Delete(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.contestService.Delete(c.Request.Context(), contestID); err != nil {
		if errors.Is(err, service.ErrContestNotDraft) {
			response.Fail(c, http.StatusConflict, response.ErrContestNotDraft)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Publish godoc
// POST /api/v1/admin/contests/:contest_id/publish
// Moves the contest to PUBLISHED and warms the Redis fast lane.
func (h *ContestHandler) Publish(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.contestService.Publish(c.Request.Context(), contestID); err != nil {
		switch {
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		case errors.Is(err, service.ErrContestNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrContestNotDraft)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Archive godoc
// POST /api/v1/admin/contests/:contest_id/archive
func (h *ContestHandler) Archive(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.contestService.Archive(c.Request.Context(), contestID); err != nil {
		if errors.Is(err, service.ErrContestNotPublished) {
			response.Fail(c, http.StatusConflict, response.ErrContestNotPublished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// RefreshCache godoc
// POST /api/v1/admin/contests/:contest_id/refresh-cache
func (h *ContestHandler) RefreshCache(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.contestService.RefreshCache(c.Request.Context(), contestID); err != nil {
		if errors.Is(err, service.ErrContestNotPublished) {
			response.Fail(c, http.StatusConflict, response.ErrContestNotPublished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Results godoc
// GET /api/v1/admin/contests/:contest_id/results?page=&per_page=
func (h *ContestHandler) Results(c *gin.Context) {
	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	results, total, err := h.portalService.GetContestResults(c.Request.Context(), contestID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (int(total) + perPage - 1) / perPage
	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}
