package clock

import "time"

// Source supplies the current time. Components take a Source instead of
// calling time.Now so tests can substitute a fixed clock and so the synced
// clock can be threaded through the guard and policy.
type Source interface {
	Now() time.Time
}

// SystemSource reads the local system clock.
type SystemSource struct{}

func (SystemSource) Now() time.Time {
	return time.Now()
}
