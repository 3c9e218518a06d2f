package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"staffhub/api/internal/config"
	"staffhub/api/internal/models"
	"staffhub/api/internal/repository"
	"staffhub/api/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserSuspended      = errors.New("user suspended")
)

// UserFinder is the slice of the user repository Login needs.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

type AuthService struct {
	users    UserFinder
	sessions *SessionService
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(users UserFinder, sessions *SessionService, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	AccessToken string
	SessionID   string
	User        models.User
}

// Login verifies credentials and opens a tracked session. The session write
// is best-effort inside SessionService; a tracking failure never fails the
// login itself.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	session := s.sessions.Open(ctx, user.ID, input.IPAddress, input.UserAgent)

	token, err := security.GenerateAccessToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		session.ID,
		string(user.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken: token,
		SessionID:   session.ID,
		User:        user,
	}, nil
}

// Logout closes the caller's session with the supplied reason. Always
// succeeds; closing a closed session is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string, reason models.CloseReason) {
	s.sessions.Close(ctx, sessionID, reason)
}
