package handler

import (
	"errors"
	"net/http"

	"github.com/edulane/contest-backend/internal/middleware"
	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/response"
	"github.com/edulane/contest-backend/internal/service"
	"github.com/edulane/contest-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PortalHandler handles student-facing contest endpoints (lobby, joining,
// paper delivery, state recovery, results).
type PortalHandler struct {
	portalService *service.PortalService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(portalService *service.PortalService) *PortalHandler {
	return &PortalHandler{portalService: portalService}
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Returns published contests with the student's session status overlaid.
func (h *PortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.portalService.GetLobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"contests": lobby})
}

// JoinContest godoc
// POST /api/v1/student/contests/:contest_id/join
// Validates entry token and creates a session (idempotent).
func (h *PortalHandler) JoinContest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.JoinContestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.portalService.JoinContest(c.Request.Context(), contestID, claims.UserID, req.EntryToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEntryToken):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidEntryToken)
		case errors.Is(err, service.ErrContestNotAvailable):
			response.Fail(c, http.StatusBadRequest, response.ErrContestNotAvailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// GetPaper godoc
// GET /api/v1/student/contests/:contest_id/paper
// Returns the contest payload from Redis in the student's personal question
// order. Requires an active session so unjoined papers cannot be downloaded.
func (h *PortalHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.portalService.VerifyActiveSession(c.Request.Context(), contestID, claims.UserID); err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	payload, err := h.portalService.GetPaper(c.Request.Context(), contestID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrContestNotPublished)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// GetSessionState godoc
// GET /api/v1/student/contests/:contest_id/state
// Returns saved answers, question statuses, and the remaining time so a page
// reload can restore the assessment view.
func (h *PortalHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.portalService.VerifyActiveSession(c.Request.Context(), contestID, claims.UserID); err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	state, err := h.portalService.GetSessionState(c.Request.Context(), contestID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetMyResult godoc
// GET /api/v1/student/contests/:contest_id/result
// Returns the student's own session outcome for a contest.
func (h *PortalHandler) GetMyResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contestID, err := uuid.Parse(c.Param("contest_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.portalService.GetMyResult(c.Request.Context(), contestID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}
