package middleware

import (
	"net/http"

	"github.com/edulane/contest-backend/internal/response"
	"github.com/edulane/contest-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// CheckSingleDeviceSession validates the JWT's JTI against the active session in Redis.
// If the JTI doesn't match, the student logged in elsewhere and this token is stale.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		// Only enforce for student tokens.
		if claims.TokenType != service.TokenTypeStudent {
			c.Next()
			return
		}

		if err := authService.ValidateStudentSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
