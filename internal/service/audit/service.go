// Package audit writes the ledger access trail. Entries are persisted off
// the request path so a slow database never holds a chain lock hostage.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/semcare/triage-api/internal/model"
	"github.com/semcare/triage-api/internal/repository"
	"github.com/semcare/triage-api/pkg/logger"
)

const writeTimeout = 5 * time.Second

type Service struct {
	repo   repository.AccessLogRepository
	logger *logger.Logger
}

func NewService(repo repository.AccessLogRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record persists one access decision. Fire-and-forget: the entry is written
// on its own goroutine with a fresh timeout, detached from the request's
// cancellation, and failures are logged rather than surfaced to the caller.
func (s *Service) Record(_ context.Context, entry *model.AccessLog) {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := s.repo.Create(ctx, entry); err != nil {
			s.logger.Error(err, "failed to write access log",
				"action", entry.Action, "patient_id", entry.PatientID)
		}
	}()
}

// History returns the most recent access entries for a patient's chain.
func (s *Service) History(ctx context.Context, patientID string, limit int) ([]*model.AccessLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByPatient(ctx, patientID, limit)
}
