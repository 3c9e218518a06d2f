// Package guard enforces the access window over the lifetime of a client
// session context. It evaluates the policy when the context is entered,
// schedules a forced closure for the moment the window ends, and re-checks
// periodically in case the synchronized clock drifts.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"staffhub/api/internal/access"
	"staffhub/api/internal/clock"
	"staffhub/api/internal/models"
)

// SessionCloser is the slice of the session lifecycle the guard needs.
// service.SessionService is the production implementation.
type SessionCloser interface {
	CloseAllActive(ctx context.Context, userID string, reason models.CloseReason) int
}

type Guard struct {
	policy   access.Policy
	clock    clock.Source
	sessions SessionCloser
	log      zerolog.Logger
	poll     time.Duration
}

func New(policy access.Policy, clk clock.Source, sessions SessionCloser, poll time.Duration, log zerolog.Logger) *Guard {
	if poll <= 0 {
		poll = time.Minute
	}
	return &Guard{
		policy:   policy,
		clock:    clk,
		sessions: sessions,
		log:      log,
		poll:     poll,
	}
}

// Evaluate is the stateless check used by the access-state endpoint and the
// request middleware.
func (g *Guard) Evaluate(role models.UserRole) access.Decision {
	return g.policy.Evaluate(g.clock.Now(), role)
}

// Deny closes the user's sessions because access was requested outside the
// window. Returns the decision so callers can surface the remaining wait.
func (g *Guard) Deny(ctx context.Context, userID string, role models.UserRole) access.Decision {
	dec := g.Evaluate(role)
	if !dec.Allowed {
		g.sessions.CloseAllActive(ctx, userID, models.CloseReasonOutsideHours)
	}
	return dec
}

// Watch starts enforcement for one client session context. If access is
// currently denied for an unprivileged role, the user's sessions are closed
// immediately and no watch is returned. Otherwise a one-shot timer is armed
// for the end of the window and a poll loop re-evaluates, cancelling and
// re-arming the timer each pass so it fires at most once.
//
// The caller must Stop the watch when the context is torn down.
func (g *Guard) Watch(ctx context.Context, userID string, role models.UserRole) (*Watch, access.Decision) {
	dec := g.Evaluate(role)
	if !dec.Allowed {
		g.sessions.CloseAllActive(ctx, userID, models.CloseReasonOutsideHours)
		return nil, dec
	}

	w := &Watch{
		guard:  g,
		userID: userID,
		role:   role,
		stop:   make(chan struct{}),
	}

	if !role.Privileged() {
		w.arm(dec.UntilWindowEnd)
	}

	w.wg.Add(1)
	go w.loop()

	return w, dec
}

// Watch is the armed state for one session context. All timer transitions
// happen under mu so a firing timer, the poll loop, and Stop cannot race.
type Watch struct {
	guard  *Guard
	userID string
	role   models.UserRole

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	onStop  func()

	stop chan struct{}
	wg   sync.WaitGroup
}

// OnStop registers a callback invoked once when the watch stops, however it
// stops (explicit Stop, window expiry, or poll-detected closure).
func (w *Watch) OnStop(fn func()) {
	w.mu.Lock()
	stopped := w.stopped
	if !stopped {
		w.onStop = fn
	}
	w.mu.Unlock()

	if stopped {
		fn()
	}
}

func (w *Watch) arm(untilEnd time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(untilEnd, w.expire)
}

// expire fires when the window ends: force-close the user's sessions and
// shut the watch down.
func (w *Watch) expire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	w.guard.sessions.CloseAllActive(ctx, w.userID, models.CloseReasonTimeRestriction)
	w.guard.log.Info().
		Str("user_id", w.userID).
		Msg("session force-closed at window end")

	w.Stop()
}

// loop re-evaluates on the poll interval. A still-open window re-arms the
// timer with the fresh remaining duration; a closed one (clock drift, config
// change) closes out immediately.
func (w *Watch) loop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.guard.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			dec := w.guard.Evaluate(w.role)
			if dec.Allowed {
				if !w.role.Privileged() {
					w.arm(dec.UntilWindowEnd)
				}
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			w.guard.sessions.CloseAllActive(ctx, w.userID, models.CloseReasonOutsideHours)
			cancel()
			w.Stop()
			return
		case <-w.stop:
			return
		}
	}
}

// Stop cancels the pending auto-close and the poll loop. Safe to call more
// than once and from the loop itself; required on context teardown and when
// the session closes for another reason first.
func (w *Watch) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	onStop := w.onStop
	w.onStop = nil
	close(w.stop)
	w.mu.Unlock()

	if onStop != nil {
		onStop()
	}
}
