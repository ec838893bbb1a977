package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semcare/triage-api/internal/model"
	"github.com/semcare/triage-api/internal/repository"
)

type accessLogRepository struct {
	db *sqlx.DB
}

func NewAccessLogRepository(db *sqlx.DB) repository.AccessLogRepository {
	return &accessLogRepository{db: db}
}

func (r *accessLogRepository) Create(ctx context.Context, entry *model.AccessLog) error {
	query := `
        INSERT INTO access_logs (
            id, actor_id, actor_role, license_id, action, patient_id,
            allowed, error_kind, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.ActorRole,
		entry.LicenseID,
		entry.Action,
		entry.PatientID,
		entry.Allowed,
		entry.ErrorKind,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access log: %w", err)
	}
	return nil
}

func (r *accessLogRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*model.AccessLog, error) {
	query := `
        SELECT id, actor_id, actor_role, license_id, action, patient_id,
               allowed, error_kind, created_at
        FROM access_logs
        WHERE patient_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	var logs []*model.AccessLog
	if err := r.db.SelectContext(ctx, &logs, query, patientID, limit); err != nil {
		return nil, fmt.Errorf("failed to list access logs: %w", err)
	}
	return logs, nil
}
