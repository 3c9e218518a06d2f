package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"staffhub/api/internal/middleware"
)

type accessStateResponse struct {
	Allowed           bool  `json:"allowed"`
	MsUntilNextWindow int64 `json:"msUntilNextWindow"`
	MsUntilWindowEnd  int64 `json:"msUntilWindowEnd"`
}

// AccessState reports whether the caller may hold a session right now and
// the distance to the relevant window boundary. It deliberately does not
// close sessions; it is a read-only endpoint the client polls, and it stays
// reachable after a forced closure (it only needs identity, not a live
// session).
func (h HandlerSet) AccessState(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dec := h.guard.Evaluate(user.Role)
	c.JSON(http.StatusOK, accessStateResponse{
		Allowed:           dec.Allowed,
		MsUntilNextWindow: dec.UntilNextWindow.Milliseconds(),
		MsUntilWindowEnd:  dec.UntilWindowEnd.Milliseconds(),
	})
}
