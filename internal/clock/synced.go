package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// SyncedClock approximates an authoritative server clock from the local one.
// Sync measures the round trip to a time endpoint and stores a
// latency-compensated offset; Now applies the offset without touching the
// network. If no sync has succeeded yet the offset is zero and Now degrades
// to uncorrected local time.
type SyncedClock struct {
	local  Source
	client *http.Client
	url    string

	mu         sync.RWMutex
	offset     time.Duration
	measuredAt time.Time
}

func NewSyncedClock(url string, timeout time.Duration) *SyncedClock {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &SyncedClock{
		local:  SystemSource{},
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

// Now returns the local time corrected by the last measured offset. It never
// blocks and never fails; between syncs, or if every sync has failed, it is
// still usable.
func (c *SyncedClock) Now() time.Time {
	c.mu.RLock()
	offset := c.offset
	c.mu.RUnlock()
	return c.local.Now().Add(offset)
}

// Offset returns the last measured serverTime - localTime correction.
func (c *SyncedClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// MeasuredAt returns when the offset was last measured, in local time. The
// boolean is false if no sync has succeeded yet.
func (c *SyncedClock) MeasuredAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.measuredAt, !c.measuredAt.IsZero()
}

// Sync performs one round trip to the time source and updates the offset,
// subtracting half the round-trip time to estimate one-way latency:
//
//	offset = serverTime - t0 - rtt/2
//
// A failed sync leaves the previous measurement in place; callers should log
// the returned error and carry on.
func (c *SyncedClock) Sync(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build time request: %w", err)
	}

	t0 := c.local.Now()
	resp, err := c.client.Do(req)
	t1 := c.local.Now()
	if err != nil {
		return fmt.Errorf("time source unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return fmt.Errorf("time source returned %d", resp.StatusCode)
	}

	serverTime, err := extractServerTime(resp)
	if err != nil {
		return err
	}

	rtt := t1.Sub(t0)
	offset := serverTime.Sub(t0) - rtt/2

	c.mu.Lock()
	c.offset = offset
	c.measuredAt = t0
	c.mu.Unlock()

	return nil
}

type serverTimeBody struct {
	ServerTime time.Time `json:"serverTime"`
}

// extractServerTime prefers the standard Date header and falls back to a
// JSON body field for sources that return one.
func extractServerTime(resp *http.Response) (time.Time, error) {
	if date := resp.Header.Get("Date"); date != "" {
		ts, err := http.ParseTime(date)
		if err == nil {
			return ts, nil
		}
	}

	var body serverTimeBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && !body.ServerTime.IsZero() {
		return body.ServerTime, nil
	}
	return time.Time{}, fmt.Errorf("time source response carries no timestamp")
}
