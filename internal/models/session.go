package models

import "time"

type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusInactive SessionStatus = "inactive"
)

// CloseReason explains why a session ended. It is recorded for audit and
// logging only; the resulting session state is identical for every reason.
type CloseReason string

const (
	CloseReasonManual          CloseReason = "manual"
	CloseReasonPageClose       CloseReason = "page_close"
	CloseReasonTimeRestriction CloseReason = "time_restriction"
	CloseReasonOutsideHours    CloseReason = "outside_access_hours"
)

// NormalizeCloseReason maps unknown or empty reasons to manual. Closing a
// session is always safe, so malformed input is defaulted rather than
// rejected.
func NormalizeCloseReason(raw string) CloseReason {
	switch CloseReason(raw) {
	case CloseReasonManual, CloseReasonPageClose, CloseReasonTimeRestriction, CloseReasonOutsideHours:
		return CloseReason(raw)
	default:
		return CloseReasonManual
	}
}

type Session struct {
	ID        string
	UserID    string
	LoginTime time.Time
	// LogoutTime is set exactly once, when the session transitions to
	// inactive. Nil while active.
	LogoutTime *time.Time
	Status     SessionStatus
	IPAddress  string
	UserAgent  string
	// DurationMinutes is persisted at closure; nil while active.
	DurationMinutes *int
}

// DurationMinutes computes the whole-minute span between login and logout,
// rounded half up. A session open 47m30s is recorded as 48 minutes.
func DurationMinutes(login, logout time.Time) int {
	d := logout.Sub(login)
	if d < 0 {
		d = 0
	}
	return int((d + 30*time.Second) / time.Minute)
}

// Presence is the derived online/away/offline classification. It is
// recomputed on every read and never persisted.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceAway    Presence = "away"
	PresenceOffline Presence = "offline"
)

// SessionSummary aggregates session activity for the dashboard view.
type SessionSummary struct {
	ActiveUsers        int
	LoginsToday        int
	AvgDurationMinutes float64
}
