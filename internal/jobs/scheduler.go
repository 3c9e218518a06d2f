package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"staffhub/api/internal/access"
	"staffhub/api/internal/clock"
	"staffhub/api/internal/models"
	"staffhub/api/internal/repository"
	"staffhub/api/internal/service"
	"staffhub/api/internal/storage"
)

// Scheduler owns the process-wide recurring work: clock resynchronization,
// the access-window sweep that force-closes sessions whose clients vanished,
// and the daily audit archive export.
type Scheduler struct {
	cron     *cron.Cron
	clock    *clock.SyncedClock
	policy   access.Policy
	sessions *service.SessionService
	audit    *repository.AuditRepository
	store    *storage.ObjectStore
	log      zerolog.Logger

	resyncSpec string
}

func NewScheduler(
	clk *clock.SyncedClock,
	policy access.Policy,
	sessions *service.SessionService,
	audit *repository.AuditRepository,
	store *storage.ObjectStore,
	resyncInterval time.Duration,
	log zerolog.Logger,
) *Scheduler {
	if resyncInterval <= 0 {
		resyncInterval = 5 * time.Minute
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		clock:      clk,
		policy:     policy,
		sessions:   sessions,
		audit:      audit,
		store:      store,
		log:        log,
		resyncSpec: "@every " + resyncInterval.String(),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.resyncSpec, s.resyncClock); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 * * * * *", s.sweepWindow); err != nil {
		return err
	}
	if s.store != nil {
		if _, err := s.cron.AddFunc("0 0 1 * * *", s.archiveAudit); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) resyncClock() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.clock.Sync(ctx); err != nil {
		// Degraded mode: Now() keeps serving the last offset.
		s.log.Warn().Err(err).Msg("clock resync failed")
		return
	}
	s.log.Debug().Dur("offset", s.clock.Offset()).Msg("clock resynced")
}

// sweepWindow backstops the per-client guard: any active non-admin session
// still open outside the window is force-closed server-side.
func (s *Scheduler) sweepWindow() {
	dec := s.policy.Evaluate(s.clock.Now(), models.UserRoleStaff)
	if dec.Allowed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.sessions.SweepUnprivileged(ctx)
}

// archiveAudit exports yesterday's audit records as JSONL to object storage.
func (s *Scheduler) archiveAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := s.clock.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := to.AddDate(0, 0, -1)

	records, err := s.audit.ListBetween(ctx, from, to)
	if err != nil {
		s.log.Error().Err(err).Msg("audit archive query failed")
		return
	}
	if len(records) == 0 {
		return
	}

	var buf []byte
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			s.log.Error().Err(err).Str("record_id", rec.ID).Msg("audit archive marshal failed")
			continue
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	date := from.Format("2006-01-02")
	if err := s.store.PutAuditArchive(ctx, date, buf); err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("audit archive upload failed")
		return
	}
	s.log.Info().Str("date", date).Int("records", len(records)).Msg("audit archive uploaded")
}
