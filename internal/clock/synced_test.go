package clock

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeSource serves a skewed serverTime in the body only, so the offset
// computation is exercised with sub-second precision (the Date header the
// stdlib would add has whole-second granularity).
func timeSource(t *testing.T, skew time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Date"] = nil
		_ = json.NewEncoder(w).Encode(map[string]time.Time{
			"serverTime": time.Now().Add(skew),
		})
	}))
}

func TestSync_ComputesSkewedOffset(t *testing.T) {
	skew := 5 * time.Second
	src := timeSource(t, skew)
	defer src.Close()

	c := NewSyncedClock(src.URL, time.Second)
	require.NoError(t, c.Sync(context.Background()))

	// The corrected clock should land within the round trip of the true
	// skewed time; against a local test server that is well under 500ms.
	assert.WithinDuration(t, time.Now().Add(skew), c.Now(), 500*time.Millisecond)

	offset := c.Offset()
	assert.InDelta(t, skew.Milliseconds(), offset.Milliseconds(), 500)

	_, synced := c.MeasuredAt()
	assert.True(t, synced)
}

func TestSync_UsesDateHeader(t *testing.T) {
	serverTime := time.Now().Add(2 * time.Minute).UTC().Truncate(time.Second)
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Date", serverTime.Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	}))
	defer src.Close()

	c := NewSyncedClock(src.URL, time.Second)
	require.NoError(t, c.Sync(context.Background()))

	assert.WithinDuration(t, serverTime, c.Now(), 2*time.Second)
}

func TestNow_DegradesToLocalWhenNeverSynced(t *testing.T) {
	c := NewSyncedClock("http://127.0.0.1:0/time", time.Second)

	assert.WithinDuration(t, time.Now(), c.Now(), 100*time.Millisecond)
	_, synced := c.MeasuredAt()
	assert.False(t, synced)
}

func TestSync_FailureKeepsPreviousOffset(t *testing.T) {
	skew := 3 * time.Second
	src := timeSource(t, skew)

	c := NewSyncedClock(src.URL, time.Second)
	require.NoError(t, c.Sync(context.Background()))
	before := c.Offset()

	src.Close()
	err := c.Sync(context.Background())
	require.Error(t, err)

	// Degraded mode: the last good measurement still corrects Now.
	assert.Equal(t, before, c.Offset())
	assert.WithinDuration(t, time.Now().Add(skew), c.Now(), 500*time.Millisecond)
}

func TestSync_RejectsErrorStatus(t *testing.T) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer src.Close()

	c := NewSyncedClock(src.URL, time.Second)
	assert.Error(t, c.Sync(context.Background()))
}

func TestSystemSource(t *testing.T) {
	assert.WithinDuration(t, time.Now(), SystemSource{}.Now(), 100*time.Millisecond)
}
