package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"staffhub/api/internal/middleware"
	"staffhub/api/internal/models"
	"staffhub/api/internal/repository"
)

type closeSessionRequest struct {
	Reason string `json:"reason"`
}

// CloseSession closes all of the caller's active sessions. Idempotent:
// closing nothing is still success, and a malformed or missing reason
// defaults to manual.
func (h HandlerSet) CloseSession(c *gin.Context) {
	var req closeSessionRequest
	_ = c.ShouldBindJSON(&req)

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if session, ok := middleware.CurrentSession(c); ok {
		h.watches.Stop(session.ID)
	}
	closed := h.sessions.CloseAllActive(c.Request.Context(), user.ID, models.NormalizeCloseReason(req.Reason))
	c.JSON(http.StatusOK, gin.H{"closed": closed})
}

type sessionResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	LoginTime       time.Time  `json:"loginTime"`
	LogoutTime      *time.Time `json:"logoutTime,omitempty"`
	Status          string     `json:"status"`
	IPAddress       string     `json:"ipAddress"`
	UserAgent       string     `json:"userAgent"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	Presence        string     `json:"presence"`
}

func (h HandlerSet) sessionResponses(c *gin.Context, sessions []models.Session) []sessionResponse {
	now := h.sessions.Now()
	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, sessionResponse{
			ID:              session.ID,
			UserID:          session.UserID,
			LoginTime:       session.LoginTime,
			LogoutTime:      session.LogoutTime,
			Status:          string(session.Status),
			IPAddress:       session.IPAddress,
			UserAgent:       session.UserAgent,
			DurationMinutes: session.DurationMinutes,
			Presence:        string(h.sessions.Presence(c.Request.Context(), session, now)),
		})
	}
	return resp
}

// ActiveSessions lists live sessions with derived presence for the manager
// dashboard.
func (h HandlerSet) ActiveSessions(c *gin.Context) {
	sessions, err := h.sessions.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": h.sessionResponses(c, sessions),
	})
}

type summaryResponse struct {
	ActiveUsers        int     `json:"activeUsers"`
	LoginsToday        int     `json:"loginsToday"`
	AvgDurationMinutes float64 `json:"avgDurationMinutes"`
}

// ListSessions is the paginated session history with summary aggregates.
func (h HandlerSet) ListSessions(c *gin.Context) {
	filter := repository.SessionFilter{
		Status: models.SessionStatus(c.Query("status")),
		UserID: c.Query("userId"),
	}
	if limit := c.Query("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil {
			filter.Limit = v
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if v, err := strconv.Atoi(offset); err == nil && v > 0 {
			filter.Offset = v
		}
	}

	sessions, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.sessions.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": h.sessionResponses(c, sessions),
		"summary": summaryResponse{
			ActiveUsers:        summary.ActiveUsers,
			LoginsToday:        summary.LoginsToday,
			AvgDurationMinutes: summary.AvgDurationMinutes,
		},
	})
}

// ForceLogout lets an admin close every active session a user holds. Audited.
func (h HandlerSet) ForceLogout(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}

	closed := h.sessions.CloseAllActive(c.Request.Context(), userID, models.CloseReasonManual)
	c.JSON(http.StatusOK, gin.H{"closed": closed})
}
