package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staffhub/api/internal/guard"
)

// AccessWindow rejects requests made outside the permitted access window.
// The denial closes the caller's active sessions as a side effect, and the
// response carries the wait until the next window so the client can present
// it. Privileged roles always pass.
func AccessWindow(g *guard.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		dec := g.Deny(c.Request.Context(), user.ID, user.Role)
		if !dec.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":             "outside_access_hours",
				"msUntilNextWindow": dec.UntilNextWindow.Milliseconds(),
			})
			return
		}

		c.Next()
	}
}
