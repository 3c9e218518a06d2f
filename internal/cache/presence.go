package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PresenceTracker records the last observed activity per session in Redis.
// Entries expire on their own; an absent key simply means no recent
// activity, so presence derivation falls back to the session's login time.
type PresenceTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresenceTracker(client *redis.Client, recencyThreshold time.Duration) *PresenceTracker {
	// Keep entries long enough to distinguish away from offline.
	return &PresenceTracker{
		client: client,
		ttl:    2 * recencyThreshold,
	}
}

func presenceKey(sessionID string) string {
	return fmt.Sprintf("presence:session:%s", sessionID)
}

// Touch marks the session as active right now.
func (p *PresenceTracker) Touch(ctx context.Context, sessionID string, at time.Time) error {
	return p.client.Set(ctx, presenceKey(sessionID), at.UTC().Format(time.RFC3339Nano), p.ttl).Err()
}

// LastSeen returns the last recorded activity for the session. The boolean
// is false when no entry exists or it has expired.
func (p *PresenceTracker) LastSeen(ctx context.Context, sessionID string) (time.Time, bool, error) {
	val, err := p.client.Get(ctx, presenceKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}

	ts, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse presence timestamp: %w", err)
	}
	return ts, true, nil
}
