package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"staffhub/api/internal/clock"
	"staffhub/api/internal/ids"
	"staffhub/api/internal/models"
	"staffhub/api/internal/repository"
)

// SessionStore is the persistence contract the lifecycle manager needs.
// repository.SessionRepository is the production implementation.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	Close(ctx context.Context, id string, at time.Time) (bool, error)
	CloseAllActive(ctx context.Context, userID string, at time.Time) (int, error)
	CloseActiveUnprivileged(ctx context.Context, at time.Time) (int, error)
	ListActive(ctx context.Context) ([]models.Session, error)
	List(ctx context.Context, filter repository.SessionFilter) ([]models.Session, error)
	Summary(ctx context.Context, now time.Time) (models.SessionSummary, error)
}

// ActivityCache supplies the last observed activity per session, used as
// the presence recency proxy. cache.PresenceTracker is the production
// implementation.
type ActivityCache interface {
	Touch(ctx context.Context, sessionID string, at time.Time) error
	LastSeen(ctx context.Context, sessionID string) (time.Time, bool, error)
}

// SessionService owns the login-to-logout lifecycle. Session tracking is
// observability: persistence failures are logged and swallowed so they never
// break the authentication flow they ride along with.
type SessionService struct {
	store    SessionStore
	activity ActivityCache
	clock    clock.Source
	log      zerolog.Logger
	recency  time.Duration
}

func NewSessionService(store SessionStore, activity ActivityCache, clk clock.Source, recency time.Duration, log zerolog.Logger) *SessionService {
	if recency <= 0 {
		recency = 15 * time.Minute
	}
	return &SessionService{
		store:    store,
		activity: activity,
		clock:    clk,
		log:      log,
		recency:  recency,
	}
}

// Open records a new active session. It always returns a usable session
// value; if the insert fails the session is still handed back so the login
// can proceed, and the gap is logged.
func (s *SessionService) Open(ctx context.Context, userID, ip, userAgent string) models.Session {
	session := models.Session{
		ID:        ids.New(),
		UserID:    userID,
		LoginTime: s.clock.Now(),
		Status:    models.SessionStatusActive,
		IPAddress: ip,
		UserAgent: userAgent,
	}

	if err := s.store.Create(ctx, session); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("session create failed; login continues untracked")
	}
	return session
}

// Close ends one session. Closing an already-closed or unknown session is a
// no-op, so racing closers (manual logout vs. window expiry) are safe.
func (s *SessionService) Close(ctx context.Context, sessionID string, reason models.CloseReason) {
	closed, err := s.store.Close(ctx, sessionID, s.clock.Now())
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("session close failed")
		return
	}
	if closed {
		s.log.Info().
			Str("session_id", sessionID).
			Str("reason", string(reason)).
			Msg("session closed")
	}
}

// CloseAllActive ends every active session the user holds (multiple tabs or
// devices) and returns how many were transitioned.
func (s *SessionService) CloseAllActive(ctx context.Context, userID string, reason models.CloseReason) int {
	n, err := s.store.CloseAllActive(ctx, userID, s.clock.Now())
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("close all active failed")
		return 0
	}
	if n > 0 {
		s.log.Info().
			Str("user_id", userID).
			Str("reason", string(reason)).
			Int("sessions", n).
			Msg("active sessions closed")
	}
	return n
}

// SweepUnprivileged force-closes every active non-admin session. The jobs
// scheduler calls this when the access window is over, as a backstop for
// clients that disappeared without a page_close beacon.
func (s *SessionService) SweepUnprivileged(ctx context.Context) int {
	n, err := s.store.CloseActiveUnprivileged(ctx, s.clock.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("window sweep failed")
		return 0
	}
	if n > 0 {
		s.log.Info().
			Int("sessions", n).
			Str("reason", string(models.CloseReasonOutsideHours)).
			Msg("sessions swept outside access window")
	}
	return n
}

// Presence classifies a session as of now. Inactive sessions are offline.
// Active sessions are online while the last observed activity is within the
// recency threshold and away beyond it; without a cached activity entry the
// login time stands in as the activity proxy.
func (s *SessionService) Presence(ctx context.Context, session models.Session, now time.Time) models.Presence {
	if session.Status == models.SessionStatusInactive {
		return models.PresenceOffline
	}

	activity := session.LoginTime
	if s.activity != nil {
		if seen, ok, err := s.activity.LastSeen(ctx, session.ID); err != nil {
			s.log.Debug().Err(err).Str("session_id", session.ID).Msg("presence cache read failed")
		} else if ok && seen.After(activity) {
			activity = seen
		}
	}

	if now.Sub(activity) <= s.recency {
		return models.PresenceOnline
	}
	return models.PresenceAway
}

// TouchActivity is invoked by the auth middleware on every authenticated
// request. Best effort; a cache miss only coarsens presence.
func (s *SessionService) TouchActivity(ctx context.Context, sessionID string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Touch(ctx, sessionID, s.clock.Now()); err != nil {
		s.log.Debug().Err(err).Str("session_id", sessionID).Msg("presence touch failed")
	}
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (models.Session, error) {
	return s.store.GetByID(ctx, sessionID)
}

func (s *SessionService) ListActive(ctx context.Context) ([]models.Session, error) {
	return s.store.ListActive(ctx)
}

func (s *SessionService) List(ctx context.Context, filter repository.SessionFilter) ([]models.Session, error) {
	return s.store.List(ctx, filter)
}

func (s *SessionService) Summary(ctx context.Context) (models.SessionSummary, error) {
	return s.store.Summary(ctx, s.clock.Now())
}

// Now exposes the service clock so handlers derive presence against the
// same time base the lifecycle writes with.
func (s *SessionService) Now() time.Time {
	return s.clock.Now()
}
