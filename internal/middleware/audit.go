package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"staffhub/api/internal/clock"
	"staffhub/api/internal/models"
	"staffhub/api/internal/service"
)

const auditBodyLimit = 8 << 10

// auditWriter tees the response body so the recorder can capture it without
// disturbing what is sent to the client.
type auditWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *auditWriter) Write(b []byte) (int, error) {
	w.capture(b)
	return w.ResponseWriter.Write(b)
}

// WriteString must tee as well; gin's string renderer and io.WriteString
// reach the embedded writer through it, not through Write.
func (w *auditWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *auditWriter) capture(b []byte) {
	if remaining := auditBodyLimit - w.body.Len(); remaining > 0 {
		if len(b) > remaining {
			b = b[:remaining]
		}
		w.body.Write(b)
	}
}

// Audit appends an audit record for each request passing through it,
// capturing method+path, status, bodies, and caller identity. Recording is
// fire-and-forget via the async recorder; a lost record never changes the
// response already being sent.
func Audit(recorder *service.AuditRecorder, clk clock.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, auditBodyLimit))
			c.Request.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		writer := &auditWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		userID := ""
		if user, ok := CurrentUser(c); ok {
			userID = user.ID
		}

		recorder.Record(models.AuditRecord{
			UserID:       userID,
			Action:       c.Request.Method + " " + c.Request.URL.Path,
			StatusCode:   writer.Status(),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.GetHeader("User-Agent"),
			RequestBody:  string(requestBody),
			ResponseBody: writer.body.String(),
			Timestamp:    clk.Now(),
		})
	}
}
