package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"staffhub/api/internal/config"
	"staffhub/api/internal/models"
	"staffhub/api/internal/security"
	"staffhub/api/internal/service"
)

const (
	ContextUserKey    = "current_user"
	ContextClaimsKey  = "access_claims"
	ContextSessionKey = "current_session"
)

// UserLoader is the slice of the user repository the auth middleware needs.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// Auth resolves the bearer token to a user and a tracked session. A session
// that was force-closed (window expiry, admin action) rejects the token even
// if the JWT itself is still valid, which is how a forced logout reaches
// clients. Each accepted request also refreshes the presence activity proxy.
func Auth(cfg *config.AppConfig, users UserLoader, sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, cfg.Security.JWTSecret)
		if !ok {
			return
		}

		session, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_not_found"})
			return
		}

		if session.UserID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_mismatch"})
			return
		}

		if session.Status != models.SessionStatusActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_closed"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
			return
		}

		if user.Status != models.UserStatusActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
			return
		}

		sessions.TouchActivity(c.Request.Context(), session.ID)

		c.Set(ContextClaimsKey, *claims)
		c.Set(ContextUserKey, user)
		c.Set(ContextSessionKey, session)

		c.Next()
	}
}

// AuthIdentity authenticates the bearer token and user without requiring a
// live session. Read-only endpoints like access-state use it so a client
// whose session was just force-closed can still see why and when the next
// window opens.
func AuthIdentity(cfg *config.AppConfig, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, cfg.Security.JWTSecret)
		if !ok {
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
			return
		}

		if user.Status != models.UserStatusActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
			return
		}

		c.Set(ContextClaimsKey, *claims)
		c.Set(ContextUserKey, user)

		c.Next()
	}
}

func bearerClaims(c *gin.Context, secret string) (*security.AccessClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
		return nil, false
	}

	claims, err := security.ParseAccessToken(strings.TrimPrefix(authHeader, "Bearer "), secret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return nil, false
	}
	return claims, true
}

// CurrentUser fetches the authenticated user placed by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(ContextUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

// CurrentSession fetches the tracked session placed by Auth.
func CurrentSession(c *gin.Context) (models.Session, bool) {
	val, exists := c.Get(ContextSessionKey)
	if !exists {
		return models.Session{}, false
	}
	session, ok := val.(models.Session)
	return session, ok
}
