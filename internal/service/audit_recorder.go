package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"staffhub/api/internal/ids"
	"staffhub/api/internal/models"
)

// AuditStore persists audit records. repository.AuditRepository is the
// production implementation.
type AuditStore interface {
	Insert(ctx context.Context, record models.AuditRecord) error
}

// AuditRecorder appends audit records asynchronously. Record never blocks
// the request path: entries go onto a buffered channel drained by one
// goroutine, and when the buffer is full the entry is dropped and counted.
// Persistence errors are logged and swallowed.
type AuditRecorder struct {
	store   AuditStore
	log     zerolog.Logger
	ch      chan models.AuditRecord
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	once    sync.Once
}

func NewAuditRecorder(store AuditStore, bufferSize int, log zerolog.Logger) *AuditRecorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &AuditRecorder{
		store: store,
		log:   log,
		ch:    make(chan models.AuditRecord, bufferSize),
		done:  make(chan struct{}),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

func (r *AuditRecorder) drain() {
	defer r.wg.Done()
	for {
		select {
		case record := <-r.ch:
			r.persist(record)
		case <-r.done:
			for {
				select {
				case record := <-r.ch:
					r.persist(record)
				default:
					return
				}
			}
		}
	}
}

func (r *AuditRecorder) persist(record models.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Insert(ctx, record); err != nil {
		r.log.Warn().Err(err).Str("action", record.Action).Msg("audit write dropped")
	}
}

// Record enqueues one audit entry. Fire and forget: the outcome of the
// operation being audited is already decided and must not change.
func (r *AuditRecorder) Record(record models.AuditRecord) {
	if r == nil {
		return
	}
	if record.ID == "" {
		record.ID = ids.New()
	}
	select {
	case r.ch <- record:
	case <-r.done:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many records were discarded due to a full buffer.
func (r *AuditRecorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close drains outstanding records and stops the worker.
func (r *AuditRecorder) Close() {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}
