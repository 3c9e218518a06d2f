package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"staffhub/api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `id, user_id, login_time, logout_time, status, ip_address, user_agent, duration_minutes`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, login_time, status, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.LoginTime,
		session.Status,
		session.IPAddress,
		session.UserAgent,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

// Close transitions one session from active to inactive. The update is
// conditional on status so a racing second close is a harmless no-op; the
// returned boolean reports whether this call performed the transition.
// The duration is rounded half up to whole minutes.
func (r *SessionRepository) Close(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
		UPDATE sessions
		SET logout_time = $2,
		    status = 'inactive',
		    duration_minutes = ROUND(EXTRACT(EPOCH FROM ($2::timestamptz - login_time)) / 60)::int
		WHERE id = $1 AND status = 'active'
	`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// CloseAllActive closes every active session the user holds, covering
// multiple tabs and devices in one statement.
func (r *SessionRepository) CloseAllActive(ctx context.Context, userID string, at time.Time) (int, error) {
	const query = `
		UPDATE sessions
		SET logout_time = $2,
		    status = 'inactive',
		    duration_minutes = ROUND(EXTRACT(EPOCH FROM ($2::timestamptz - login_time)) / 60)::int
		WHERE user_id = $1 AND status = 'active'
	`
	cmd, err := r.pool.Exec(ctx, query, userID, at)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

// CloseActiveUnprivileged closes all active sessions held by users whose
// role does not bypass the access window. Used by the background sweep when
// the window has ended.
func (r *SessionRepository) CloseActiveUnprivileged(ctx context.Context, at time.Time) (int, error) {
	const query = `
		UPDATE sessions s
		SET logout_time = $1,
		    status = 'inactive',
		    duration_minutes = ROUND(EXTRACT(EPOCH FROM ($1::timestamptz - s.login_time)) / 60)::int
		FROM users u
		WHERE u.id = s.user_id
		  AND s.status = 'active'
		  AND u.role <> 'admin'
	`
	cmd, err := r.pool.Exec(ctx, query, at)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *SessionRepository) ListActive(ctx context.Context) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status = 'active'
		ORDER BY login_time DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// SessionFilter narrows List. Zero values mean "no filter"; Limit defaults
// to 50 and is capped at 200.
type SessionFilter struct {
	Status models.SessionStatus
	UserID string
	Limit  int
	Offset int
}

func (f SessionFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return 50
	case f.Limit > 200:
		return 200
	default:
		return f.Limit
	}
}

func (r *SessionRepository) List(ctx context.Context, filter SessionFilter) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR user_id = $2)
		ORDER BY login_time DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, string(filter.Status), filter.UserID, filter.limit(), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// Summary aggregates activity around now: distinct users with an active
// session, logins since local midnight, and the average closed-session
// duration over the trailing seven days.
func (r *SessionRepository) Summary(ctx context.Context, now time.Time) (models.SessionSummary, error) {
	const query = `
		SELECT
			(SELECT COUNT(DISTINCT user_id) FROM sessions WHERE status = 'active'),
			(SELECT COUNT(*) FROM sessions WHERE login_time >= date_trunc('day', $1::timestamptz)),
			(SELECT COALESCE(AVG(duration_minutes), 0)
			 FROM sessions
			 WHERE status = 'inactive' AND logout_time >= $1::timestamptz - INTERVAL '7 days')
	`
	var summary models.SessionSummary
	row := r.pool.QueryRow(ctx, query, now)
	if err := row.Scan(&summary.ActiveUsers, &summary.LoginsToday, &summary.AvgDurationMinutes); err != nil {
		return models.SessionSummary{}, err
	}
	return summary, nil
}

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.LoginTime,
		&session.LogoutTime,
		&session.Status,
		&session.IPAddress,
		&session.UserAgent,
		&session.DurationMinutes,
	)
	return session, err
}

func scanSessions(rows pgx.Rows) ([]models.Session, error) {
	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
