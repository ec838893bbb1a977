// Package emergency tracks emergency requests from filing to completion and
// orders them for dispatch by triage severity.
package emergency

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semcare/triage-api/internal/model"
	apperrors "github.com/semcare/triage-api/pkg/errors"
	"github.com/semcare/triage-api/pkg/metrics"
)

// SummaryProvider is the ledger surface the coordinator needs: the
// authorized clinical overview of a dispatched patient.
type SummaryProvider interface {
	Summary(ctx context.Context, actor model.Actor, patientID string) (*model.PatientSummary, error)
}

// Coordinator owns the live set of emergency requests. Transitions lock the
// individual request, so independent cases never contend.
type Coordinator struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*trackedRequest

	ledger  SummaryProvider
	metrics *metrics.Metrics
	now     func() time.Time
}

type trackedRequest struct {
	mu  sync.Mutex
	req model.EmergencyRequest
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(ledger SummaryProvider, opts ...Option) *Coordinator {
	c := &Coordinator{
		requests: make(map[uuid.UUID]*trackedRequest),
		ledger:   ledger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FileRequest creates a pending request with a classifier-assigned triage
// level.
func (c *Coordinator) FileRequest(ctx context.Context, patientID, location string, symptoms []string) (*model.EmergencyRequest, error) {
	if patientID == "" {
		return nil, apperrors.BadRequest("patient id is required", nil)
	}

	req := model.EmergencyRequest{
		ID:          uuid.New(),
		PatientID:   patientID,
		Location:    location,
		Symptoms:    append([]string(nil), symptoms...),
		TriageLevel: Classify(symptoms),
		Status:      model.EmergencyPending,
		CreatedAt:   c.now(),
	}

	c.mu.Lock()
	c.requests[req.ID] = &trackedRequest{req: req}
	c.mu.Unlock()

	c.metrics.RecordEmergencyFiled(string(req.TriageLevel))
	return req.Clone(), nil
}

// Assign moves a pending request to assigned and records the crew's ETA.
func (c *Coordinator) Assign(ctx context.Context, requestID uuid.UUID, etaMinutes int) (*model.EmergencyRequest, error) {
	if etaMinutes < 0 {
		return nil, apperrors.BadRequest("eta must not be negative", nil)
	}

	tr := c.lookup(requestID)
	if tr == nil {
		return nil, apperrors.NotFound("emergency request")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.req.Status != model.EmergencyPending {
		return nil, apperrors.InvalidTransition(string(tr.req.Status), string(model.EmergencyAssigned))
	}

	ts := c.now()
	tr.req.Status = model.EmergencyAssigned
	tr.req.EstimatedArrivalMinutes = etaMinutes
	tr.req.AssignedAt = &ts

	c.metrics.RecordEmergencyTransition(string(model.EmergencyAssigned))
	return tr.req.Clone(), nil
}

// Advance moves an active request one lifecycle step forward:
// assigned -> inProgress -> completed. Skipping assigned is impossible, so
// dispatch metadata is never missing from an active case.
func (c *Coordinator) Advance(ctx context.Context, requestID uuid.UUID) (*model.EmergencyRequest, error) {
	tr := c.lookup(requestID)
	if tr == nil {
		return nil, apperrors.NotFound("emergency request")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	ts := c.now()
	switch tr.req.Status {
	case model.EmergencyAssigned:
		tr.req.Status = model.EmergencyInProgress
		tr.req.StartedAt = &ts
	case model.EmergencyInProgress:
		tr.req.Status = model.EmergencyCompleted
		tr.req.CompletedAt = &ts
	default:
		return nil, apperrors.InvalidTransition(string(tr.req.Status), string(tr.req.Status.Next()))
	}

	c.metrics.RecordEmergencyTransition(string(tr.req.Status))
	return tr.req.Clone(), nil
}

// Get returns a single request.
func (c *Coordinator) Get(ctx context.Context, requestID uuid.UUID) (*model.EmergencyRequest, error) {
	tr := c.lookup(requestID)
	if tr == nil {
		return nil, apperrors.NotFound("emergency request")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.req.Clone(), nil
}

// List returns every request ordered for dispatch: severity descending, then
// filing time ascending. The queue position shown to patients is this
// ordering, derived on demand rather than stored.
func (c *Coordinator) List(ctx context.Context) []*model.EmergencyRequest {
	c.mu.RLock()
	out := make([]*model.EmergencyRequest, 0, len(c.requests))
	for _, tr := range c.requests {
		tr.mu.Lock()
		out = append(out, tr.req.Clone())
		tr.mu.Unlock()
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TriageLevel.Severity() != out[j].TriageLevel.Severity() {
			return out[i].TriageLevel.Severity() > out[j].TriageLevel.Severity()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// PatientSummary resolves the request and fetches the clinical overview of
// its patient through the ledger's access policy. The crew's own credentials
// gate the read, exactly as a direct history read would.
func (c *Coordinator) PatientSummary(ctx context.Context, actor model.Actor, requestID uuid.UUID) (*model.PatientSummary, error) {
	tr := c.lookup(requestID)
	if tr == nil {
		return nil, apperrors.NotFound("emergency request")
	}

	tr.mu.Lock()
	patientID := tr.req.PatientID
	tr.mu.Unlock()

	return c.ledger.Summary(ctx, actor, patientID)
}

func (c *Coordinator) lookup(id uuid.UUID) *trackedRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requests[id]
}
