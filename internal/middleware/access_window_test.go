package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffhub/api/internal/access"
	"staffhub/api/internal/guard"
	"staffhub/api/internal/models"
)

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

type stubCloser struct {
	mu     sync.Mutex
	closed []string
}

func (s *stubCloser) CloseAllActive(_ context.Context, userID string, _ models.CloseReason) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, userID)
	return 1
}

func windowRouter(t *testing.T, now time.Time, user models.User, closer *stubCloser) *gin.Engine {
	t.Helper()
	start, err := access.ParseTimeOfDay("05:30")
	require.NoError(t, err)
	end, err := access.ParseTimeOfDay("21:30")
	require.NoError(t, err)
	policy := access.Policy{WindowStart: start, WindowEnd: end, Location: time.UTC}

	g := guard.New(policy, stubClock{t: now}, closer, time.Hour, zerolog.Nop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected",
		func(c *gin.Context) { c.Set(ContextUserKey, user) },
		AccessWindow(g),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) },
	)
	return router
}

func TestAccessWindow_AllowsInsideWindow(t *testing.T) {
	closer := &stubCloser{}
	router := windowRouter(t,
		time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		models.User{ID: "u-1", Role: models.UserRoleStaff},
		closer,
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, closer.closed)
}

func TestAccessWindow_DeniesAndClosesOutsideWindow(t *testing.T) {
	closer := &stubCloser{}
	router := windowRouter(t,
		time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC),
		models.User{ID: "u-1", Role: models.UserRoleStaff},
		closer,
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"u-1"}, closer.closed)

	var body struct {
		Error             string `json:"error"`
		MsUntilNextWindow int64  `json:"msUntilNextWindow"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "outside_access_hours", body.Error)
	// 23:00 to 05:30 next day.
	assert.Equal(t, (6*time.Hour + 30*time.Minute).Milliseconds(), body.MsUntilNextWindow)
}

func TestAccessWindow_AdminBypasses(t *testing.T) {
	closer := &stubCloser{}
	router := windowRouter(t,
		time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC),
		models.User{ID: "a-1", Role: models.UserRoleAdmin},
		closer,
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, closer.closed)
}
