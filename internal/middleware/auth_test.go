package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffhub/api/internal/config"
	"staffhub/api/internal/models"
	"staffhub/api/internal/repository"
	"staffhub/api/internal/security"
	"staffhub/api/internal/service"
)

type fakeUserLoader struct {
	users map[string]models.User
}

func (f fakeUserLoader) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

// staticSessionStore serves a fixed set of sessions; writes are inert.
type staticSessionStore struct {
	sessions map[string]models.Session
}

func (s staticSessionStore) Create(_ context.Context, _ models.Session) error { return nil }

func (s staticSessionStore) GetByID(_ context.Context, id string) (models.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (s staticSessionStore) Close(_ context.Context, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (s staticSessionStore) CloseAllActive(_ context.Context, _ string, _ time.Time) (int, error) {
	return 0, nil
}

func (s staticSessionStore) CloseActiveUnprivileged(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s staticSessionStore) ListActive(_ context.Context) ([]models.Session, error) {
	return nil, nil
}

func (s staticSessionStore) List(_ context.Context, _ repository.SessionFilter) ([]models.Session, error) {
	return nil, nil
}

func (s staticSessionStore) Summary(_ context.Context, _ time.Time) (models.SessionSummary, error) {
	return models.SessionSummary{}, nil
}

const authTestSecret = "middleware-test-secret"

func authTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:    authTestSecret,
			JWTAccessTTL: time.Hour,
		},
	}
}

func closedSessionFixture(t *testing.T) (string, fakeUserLoader, *service.SessionService) {
	t.Helper()

	logout := time.Now().Add(-time.Minute)
	store := staticSessionStore{sessions: map[string]models.Session{
		"sess-1": {
			ID:         "sess-1",
			UserID:     "user-1",
			LoginTime:  logout.Add(-time.Hour),
			LogoutTime: &logout,
			Status:     models.SessionStatusInactive,
		},
	}}
	sessions := service.NewSessionService(store, nil, fixedNow{}, 15*time.Minute, zerolog.Nop())

	users := fakeUserLoader{users: map[string]models.User{
		"user-1": {ID: "user-1", Role: models.UserRoleStaff, Status: models.UserStatusActive},
	}}

	token, err := security.GenerateAccessToken(authTestSecret, "user-1", "sess-1", string(models.UserRoleStaff), time.Hour)
	require.NoError(t, err)

	return token, users, sessions
}

type fixedNow struct{}

func (fixedNow) Now() time.Time { return time.Now() }

func TestAuth_RejectsClosedSession(t *testing.T) {
	token, users, sessions := closedSessionFixture(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", Auth(authTestConfig(), users, sessions), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session_closed")
}

// A force-closed session must not lock the client out of the read-only
// identity endpoints: the denial state has to stay observable so the UI can
// show the countdown to the next window.
func TestAuthIdentity_ServesAfterForcedClosure(t *testing.T) {
	token, users, _ := closedSessionFixture(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/access-state", AuthIdentity(authTestConfig(), users), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"role": string(user.Role)})
	})

	req := httptest.NewRequest(http.MethodGet, "/access-state", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"staff"}`, w.Body.String())
}

func TestAuthIdentity_MissingToken(t *testing.T) {
	_, users, _ := closedSessionFixture(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/access-state", AuthIdentity(authTestConfig(), users), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/access-state", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing_token")
}

func TestAuthIdentity_SuspendedUser(t *testing.T) {
	token, _, _ := closedSessionFixture(t)
	users := fakeUserLoader{users: map[string]models.User{
		"user-1": {ID: "user-1", Role: models.UserRoleStaff, Status: models.UserStatusSuspended},
	}}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/access-state", AuthIdentity(authTestConfig(), users), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/access-state", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "user_inactive")
}
