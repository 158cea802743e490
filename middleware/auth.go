package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenChecker is satisfied by the application session.
type TokenChecker interface {
	Authorized(token string) bool
}

// RequireSession rejects requests whose bearer token is not the current
// session token. The token is a placeholder, not a credential.
func RequireSession(session TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer"))
		if !session.Authorized(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}
