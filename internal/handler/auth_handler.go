package handler

import (
	"errors"
	"net/http"

	"github.com/edulane/contest-backend/internal/middleware"
	"github.com/edulane/contest-backend/internal/model"
	"github.com/edulane/contest-backend/internal/repository"
	"github.com/edulane/contest-backend/internal/response"
	"github.com/edulane/contest-backend/internal/service"
	"github.com/edulane/contest-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	studentRepo *repository.StudentRepository
	adminRepo   *repository.AdminRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	studentRepo *repository.StudentRepository,
	adminRepo *repository.AdminRepository,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		studentRepo: studentRepo,
		adminRepo:   adminRepo,
	}
}

// StudentRegister godoc
// POST /api/v1/auth/student/register
// Creates a student account and returns a JWT.
func (h *AuthHandler) StudentRegister(c *gin.Context) {
	var req model.RegisterStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	student := &model.Student{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	}
	if err := h.studentRepo.Create(c.Request.Context(), student); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	token, err := h.authService.GenerateStudentToken(c.Request.Context(), student.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":   token,
		"student": studentView(student),
	})
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Validates email + password, replaces any previous login session, returns JWT.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(student.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateStudentToken(c.Request.Context(), student.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"student": studentView(student),
	})
}

// StudentLogout godoc
// POST /api/v1/auth/student/logout
// Invalidates the current login session.
func (h *AuthHandler) StudentLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ClearStudentSession(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetStudentProfile godoc
// GET /api/v1/auth/student/me
// Returns the profile of the currently authenticated student.
func (h *AuthHandler) GetStudentProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	student, err := h.studentRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": studentView(student)})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates email + password, returns an admin JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.adminRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateAdminToken(admin.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
// Returns the profile of the currently authenticated admin.
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	admin, err := h.adminRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}

func studentView(s *model.Student) gin.H {
	return gin.H{
		"id":    s.ID,
		"email": s.Email,
		"name":  s.Name,
	}
}
