package guard

import (
	"context"
	"sync"

	"staffhub/api/internal/access"
	"staffhub/api/internal/models"
)

// Registry tracks one Watch per live session so a close from any path —
// manual logout, page-close beacon, admin force-logout — can cancel the
// pending auto-close timer. Entries remove themselves when their watch
// stops, whatever stopped it.
type Registry struct {
	guard *Guard

	mu      sync.Mutex
	watches map[string]*Watch
}

func NewRegistry(g *Guard) *Registry {
	return &Registry{
		guard:   g,
		watches: make(map[string]*Watch),
	}
}

// Start begins enforcement for a session. Returns the initial decision; when
// it is a denial no watch exists and the user's sessions are already closed.
func (r *Registry) Start(ctx context.Context, sessionID, userID string, role models.UserRole) access.Decision {
	watch, dec := r.guard.Watch(ctx, userID, role)
	if watch == nil {
		return dec
	}

	r.mu.Lock()
	old := r.watches[sessionID]
	r.watches[sessionID] = watch
	r.mu.Unlock()

	// Stop outside the lock; a stopping watch re-enters the registry to
	// remove itself.
	old.Stop()

	watch.OnStop(func() {
		r.mu.Lock()
		if r.watches[sessionID] == watch {
			delete(r.watches, sessionID)
		}
		r.mu.Unlock()
	})

	return dec
}

// Stop cancels enforcement for a session that closed for another reason.
func (r *Registry) Stop(sessionID string) {
	r.mu.Lock()
	watch := r.watches[sessionID]
	r.mu.Unlock()

	watch.Stop()
}

// StopAll tears down every watch; used at shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	watches := make([]*Watch, 0, len(r.watches))
	for _, w := range r.watches {
		watches = append(watches, w)
	}
	r.mu.Unlock()

	for _, w := range watches {
		w.Stop()
	}
}
