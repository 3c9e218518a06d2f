package access

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"staffhub/api/internal/models"
)

// TimeOfDay is a wall-clock point within a civil day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) on(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Decision is the outcome of evaluating the access window at a point in time.
// Exactly one of UntilNextWindow / UntilWindowEnd is meaningful: the former
// when access is denied, the latter when it is allowed.
type Decision struct {
	Allowed         bool
	UntilNextWindow time.Duration
	UntilWindowEnd  time.Duration
}

// Policy defines the daily recurring interval during which non-privileged
// users may hold an interactive session. Evaluation is pure; callers supply
// "now" from whichever clock they trust.
type Policy struct {
	WindowStart TimeOfDay
	WindowEnd   TimeOfDay
	Location    *time.Location
}

// Evaluate decides whether access is permitted at now for the given role.
// Both window boundaries are inclusive. Privileged roles are always allowed
// and are never subject to forced closure.
func (p Policy) Evaluate(now time.Time, role models.UserRole) Decision {
	if role.Privileged() {
		return Decision{Allowed: true}
	}

	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	start := p.WindowStart.on(local, loc)
	end := p.WindowEnd.on(local, loc)

	if !local.Before(start) && !local.After(end) {
		return Decision{
			Allowed:        true,
			UntilWindowEnd: end.Sub(local),
		}
	}

	next := start
	if local.After(end) {
		next = start.AddDate(0, 0, 1)
	}
	return Decision{
		Allowed:         false,
		UntilNextWindow: next.Sub(local),
	}
}
