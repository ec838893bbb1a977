package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/semcare/triage-api/internal/model"
)

// AccessLogRepository persists the ledger access trail.
type AccessLogRepository interface {
	Create(ctx context.Context, entry *model.AccessLog) error
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*model.AccessLog, error)
}

// OutboxRepository persists domain events until the relay publishes them.
type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
