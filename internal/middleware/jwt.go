package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quickpoll/backend/internal/auth"
	"github.com/quickpoll/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = auth.ContextUserID
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = auth.ContextUserEmail
)

// JWT returns a middleware that validates JWT and sets user claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "invalid authorization header")
			return
		}
		claims, err := jwtService.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
