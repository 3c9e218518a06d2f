package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"staffhub/api/internal/middleware"
	"staffhub/api/internal/models"
	"staffhub/api/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type loginResponse struct {
	AccessToken string       `json:"accessToken"`
	SessionID   string       `json:"sessionId"`
	User        userResponse `json:"user"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, service.ErrUserSuspended) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	// A non-admin logging in outside the window is told immediately how
	// long the wait is; the fresh session is closed right away. Inside the
	// window this arms the auto-close watch for the new session.
	dec := h.watches.Start(c.Request.Context(), result.SessionID, result.User.ID, result.User.Role)
	if !dec.Allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"error":             "outside_access_hours",
			"msUntilNextWindow": dec.UntilNextWindow.Milliseconds(),
		})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		AccessToken: result.AccessToken,
		SessionID:   result.SessionID,
		User: userResponse{
			ID:          result.User.ID,
			Email:       result.User.Email,
			DisplayName: result.User.DisplayName,
			Role:        string(result.User.Role),
		},
	})
}

type logoutRequest struct {
	Reason string `json:"reason"`
}

// Logout closes the caller's current session. The reason distinguishes a
// manual sign-out from a page-close beacon; anything else defaults to
// manual. Always succeeds.
func (h HandlerSet) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	session, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Cancel the pending auto-close first so it cannot race the logout.
	h.watches.Stop(session.ID)
	h.auth.Logout(c.Request.Context(), session.ID, models.NormalizeCloseReason(req.Reason))
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
