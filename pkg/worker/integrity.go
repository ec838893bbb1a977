package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/semcare/triage-api/internal/model"
	"github.com/semcare/triage-api/internal/repository"
	"github.com/semcare/triage-api/pkg/logger"
	"github.com/semcare/triage-api/pkg/metrics"
)

// ChainVerifier is the ledger surface the sweep needs.
type ChainVerifier interface {
	PatientIDs() []string
	VerifyChain(ctx context.Context, patientID string) (bool, error)
}

// TamperNotifier alerts a human auditor. Optional.
type TamperNotifier interface {
	TamperAlert(patientID string, detectedAt time.Time) error
}

type IntegritySweepConfig struct {
	Interval time.Duration
}

// IntegritySweep periodically verifies every patient chain. It alerts and
// emits an event on failure but does not freeze appends; escalation beyond
// that is an operator decision.
type IntegritySweep struct {
	ledger   ChainVerifier
	outbox   repository.OutboxRepository
	notifier TamperNotifier
	config   IntegritySweepConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics

	// chains already alerted on, so a standing failure is not re-mailed
	// every interval
	alerted map[string]bool
}

func NewIntegritySweep(
	ledger ChainVerifier,
	outbox repository.OutboxRepository,
	notifier TamperNotifier,
	config IntegritySweepConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *IntegritySweep {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	return &IntegritySweep{
		ledger:   ledger,
		outbox:   outbox,
		notifier: notifier,
		config:   config,
		logger:   logger,
		metrics:  metrics,
		alerted:  make(map[string]bool),
	}
}

// Start sweeps until ctx is cancelled.
func (s *IntegritySweep) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("starting integrity sweep", "interval", s.config.Interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping integrity sweep")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep verifies every chain once.
func (s *IntegritySweep) Sweep(ctx context.Context) {
	for _, patientID := range s.ledger.PatientIDs() {
		valid, err := s.ledger.VerifyChain(ctx, patientID)
		if err != nil {
			s.logger.Error(err, "verification errored", "patient_id", patientID)
			continue
		}
		if valid {
			delete(s.alerted, patientID)
			continue
		}
		s.escalate(ctx, patientID)
	}

	if s.metrics != nil {
		s.metrics.IntegritySweeps.Inc()
	}
}

func (s *IntegritySweep) escalate(ctx context.Context, patientID string) {
	if s.alerted[patientID] {
		return
	}
	s.alerted[patientID] = true

	detectedAt := time.Now()
	s.logger.Error(nil, "chain verification failed", "patient_id", patientID)
	if s.metrics != nil {
		s.metrics.TamperDetected.Inc()
	}

	if s.outbox != nil {
		payload, _ := json.Marshal(map[string]string{
			"patient_id":  patientID,
			"detected_at": detectedAt.Format(time.RFC3339),
		})
		if err := s.outbox.Create(ctx, &model.OutboxEvent{
			EventType: model.EventChainTamperDetected,
			Payload:   payload,
		}); err != nil {
			s.logger.Error(err, "failed to enqueue tamper event", "patient_id", patientID)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.TamperAlert(patientID, detectedAt); err != nil {
			s.logger.Error(err, "failed to send tamper alert", "patient_id", patientID)
		}
	}
}
