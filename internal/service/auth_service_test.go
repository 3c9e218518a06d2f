package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffhub/api/internal/config"
	"staffhub/api/internal/models"
	"staffhub/api/internal/repository"
	"staffhub/api/internal/security"
)

type fakeUsers struct {
	byEmail map[string]models.User
}

func (f fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func authTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:    "auth-test-secret",
			JWTAccessTTL: time.Hour,
		},
	}
}

func newAuthFixture(t *testing.T, password string, status models.UserStatus) (*AuthService, *memStore, models.User) {
	t.Helper()

	hash, err := security.HashPassword(password)
	require.NoError(t, err)

	user := models.User{
		ID:           "user-1",
		Email:        "staff@example.com",
		PasswordHash: hash,
		Role:         models.UserRoleStaff,
		Status:       status,
	}

	store := newMemStore()
	clk := &fakeClock{t: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)}
	sessions := newTestService(store, newFakeActivity(), clk)
	users := fakeUsers{byEmail: map[string]models.User{user.Email: user}}

	return NewAuthService(users, sessions, authTestConfig(), zerolog.Nop()), store, user
}

func TestLogin_Succeeds(t *testing.T) {
	svc, store, user := newAuthFixture(t, "s3cret", models.UserStatusActive)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:     "staff@example.com",
		Password:  "s3cret",
		IPAddress: "10.0.0.1",
		UserAgent: "Mozilla/5.0",
	})
	require.NoError(t, err, "stored hash must verify against the original password")
	assert.Equal(t, user.ID, result.User.ID)

	claims, err := security.ParseAccessToken(result.AccessToken, "auth-test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, result.SessionID, claims.SessionID)
	assert.Equal(t, string(models.UserRoleStaff), claims.Role)

	session, err := store.GetByID(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, session.Status)
	assert.Equal(t, "10.0.0.1", session.IPAddress)
}

func TestLogin_NormalizesEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t, "s3cret", models.UserStatusActive)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "  Staff@Example.COM ",
		Password: "s3cret",
	})
	assert.NoError(t, err)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t, "s3cret", models.UserStatusActive)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "staff@example.com",
		Password: "nope",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t, "s3cret", models.UserStatusActive)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "s3cret",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_SuspendedUser(t *testing.T) {
	svc, _, _ := newAuthFixture(t, "s3cret", models.UserStatusSuspended)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "staff@example.com",
		Password: "s3cret",
	})
	assert.ErrorIs(t, err, ErrUserSuspended)
}

func TestLogout_ClosesSession(t *testing.T) {
	svc, store, _ := newAuthFixture(t, "s3cret", models.UserStatusActive)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "staff@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)

	svc.Logout(context.Background(), result.SessionID, models.CloseReasonManual)

	session, err := store.GetByID(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusInactive, session.Status)
}
