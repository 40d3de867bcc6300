package router

import (
	"net/http"
	"time"

	"github.com/edulane/contest-backend/internal/config"
	"github.com/edulane/contest-backend/internal/handler"
	"github.com/edulane/contest-backend/internal/middleware"
	"github.com/edulane/contest-backend/internal/response"
	"github.com/edulane/contest-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Portal   *handler.PortalHandler
	Contest  *handler.ContestHandler
	Question *handler.QuestionHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/register", handlers.Auth.StudentRegister)
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/lobby", handlers.Portal.GetLobby)
		studentAPI.POST("/contests/:contest_id/join", handlers.Portal.JoinContest)
		studentAPI.GET("/contests/:contest_id/paper", handlers.Portal.GetPaper)
		studentAPI.GET("/contests/:contest_id/state", handlers.Portal.GetSessionState)
		studentAPI.GET("/contests/:contest_id/result", handlers.Portal.GetMyResult)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/contests/:contest_id/stream", handlers.WS.AssessmentStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/contests", handlers.Contest.List)
		adminAPI.POST("/contests", handlers.Contest.Create)
		adminAPI.GET("/contests/:contest_id", handlers.Contest.Get)
		adminAPI.PUT("/contests/:contest_id", handlers.Contest.Update)
		adminAPI.DELETE("/contests/:contest_id", handlers.Contest.Delete)
		adminAPI.POST("/contests/:contest_id/publish", handlers.Contest.Publish)
		adminAPI.POST("/contests/:contest_id/archive", handlers.Contest.Archive)
		adminAPI.POST("/contests/:contest_id/refresh-cache", handlers.Contest.RefreshCache)
		adminAPI.GET("/contests/:contest_id/results", handlers.Contest.Results)

		adminAPI.GET("/contests/:contest_id/questions", handlers.Question.List)
		adminAPI.POST("/contests/:contest_id/questions", handlers.Question.Create)
		adminAPI.PUT("/contests/:contest_id/questions", handlers.Question.ReplaceAll)
		adminAPI.DELETE("/contests/:contest_id/questions/:question_id", handlers.Question.Delete)
	}

	return router
}
