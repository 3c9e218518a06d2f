package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"staffhub/api/internal/models"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Insert(ctx context.Context, record models.AuditRecord) error {
	const query = `
		INSERT INTO audit_records (id, user_id, action, status_code, ip_address, user_agent, request_body, response_body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Action,
		record.StatusCode,
		record.IPAddress,
		record.UserAgent,
		record.RequestBody,
		record.ResponseBody,
		record.Timestamp,
	)
	return err
}

// ListBetween returns records in [from, to) ordered by time, for archival.
func (r *AuditRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.AuditRecord, error) {
	const query = `
		SELECT id, user_id, action, status_code, ip_address, user_agent, request_body, response_body, created_at
		FROM audit_records
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Action,
			&rec.StatusCode,
			&rec.IPAddress,
			&rec.UserAgent,
			&rec.RequestBody,
			&rec.ResponseBody,
			&rec.Timestamp,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
