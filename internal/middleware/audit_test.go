package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffhub/api/internal/clock"
	"staffhub/api/internal/models"
	"staffhub/api/internal/service"
)

type captureAuditStore struct {
	mu      sync.Mutex
	err     error
	records []models.AuditRecord
}

func (s *captureAuditStore) Insert(_ context.Context, record models.AuditRecord) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func auditRouter(recorder *service.AuditRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/admin/action", Audit(recorder, clock.SystemSource{}), func(c *gin.Context) {
		c.Set(ContextUserKey, models.User{ID: "admin-1", Role: models.UserRoleAdmin})
		c.JSON(http.StatusOK, gin.H{"result": "done"})
	})
	return router
}

func TestAudit_CapturesRequestAndResponse(t *testing.T) {
	store := &captureAuditStore{}
	recorder := service.NewAuditRecorder(store, 8, zerolog.Nop())
	router := auditRouter(recorder)

	req := httptest.NewRequest(http.MethodPost, "/admin/action", strings.NewReader(`{"target":"u-2"}`))
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":"done"}`, w.Body.String())

	recorder.Close()
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, "POST /admin/action", rec.Action)
	assert.Equal(t, http.StatusOK, rec.StatusCode)
	assert.Equal(t, `{"target":"u-2"}`, rec.RequestBody)
	assert.JSONEq(t, `{"result":"done"}`, rec.ResponseBody)
	assert.Equal(t, "test-agent", rec.UserAgent)
	assert.Equal(t, "admin-1", rec.UserID)
	assert.WithinDuration(t, time.Now(), rec.Timestamp, 5*time.Second)
}

// Handlers that render through WriteString (gin's string render,
// io.WriteString) must be captured the same as Write.
func TestAudit_CapturesStringWrites(t *testing.T) {
	store := &captureAuditStore{}
	recorder := service.NewAuditRecorder(store, 8, zerolog.Nop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin/export", Audit(recorder, clock.SystemSource{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
		_, err := io.WriteString(c.Writer, "export-complete")
		require.NoError(t, err)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/export", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "export-complete", w.Body.String())

	recorder.Close()
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.records, 1)
	assert.Equal(t, "export-complete", store.records[0].ResponseBody)
}

func TestAudit_PersistenceFailureDoesNotAffectResponse(t *testing.T) {
	store := &captureAuditStore{err: errors.New("audit table gone")}
	recorder := service.NewAuditRecorder(store, 8, zerolog.Nop())
	defer recorder.Close()
	router := auditRouter(recorder)

	req := httptest.NewRequest(http.MethodPost, "/admin/action", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The business operation's outcome is independent of audit success.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":"done"}`, w.Body.String())
}
