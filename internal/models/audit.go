package models

import "time"

// AuditRecord is an append-only trace of a privileged operation. Records are
// written best-effort; a missing record is an observability gap, never a
// failure of the audited operation.
type AuditRecord struct {
	ID           string
	UserID       string
	Action       string
	StatusCode   int
	IPAddress    string
	UserAgent    string
	RequestBody  string
	ResponseBody string
	Timestamp    time.Time
}
