// Package ledger owns the append-only, hash-chained medical record store.
// Records are partitioned per patient; each patient's chain is a pure log
// that never branches and never rewinds.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semcare/triage-api/internal/model"
	apperrors "github.com/semcare/triage-api/pkg/errors"
	"github.com/semcare/triage-api/pkg/metrics"
)

// Hasher produces the content digest that links consecutive records.
type Hasher interface {
	Digest(*model.MedicalRecord) string
}

// Policy gates every read and append.
type Policy interface {
	CanRead(actor model.Actor, patientID string) bool
	CanAppend(actor model.Actor, patientID string) bool
}

// Auditor records access decisions, allowed or denied. Implementations must
// not block the caller on storage.
type Auditor interface {
	Record(ctx context.Context, entry *model.AccessLog)
}

// chain is one patient's record log. Appends serialize on mu; reads take the
// read side so they never observe a half-linked record.
type chain struct {
	mu        sync.RWMutex
	records   []*model.MedicalRecord
	tailHash  string
	bloodType string
}

// Ledger is the authoritative record store. Appends to the same patient are
// serialized by the chain lock; different patients proceed in parallel.
type Ledger struct {
	mu     sync.RWMutex
	chains map[string]*chain

	hasher  Hasher
	policy  Policy
	auditor Auditor
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAuditor wires the access trail.
func WithAuditor(a Auditor) Option {
	return func(l *Ledger) { l.auditor = a }
}

// WithMetrics wires prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(h Hasher, p Policy, opts ...Option) *Ledger {
	l := &Ledger{
		chains: make(map[string]*chain),
		hasher: h,
		policy: p,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append validates, links and stores one record at the tail of the patient's
// chain. The chain lock covers only record construction and insertion, never
// I/O.
func (l *Ledger) Append(ctx context.Context, actor model.Actor, patientID string, draft *model.RecordDraft) (*model.MedicalRecord, error) {
	if !l.policy.CanAppend(actor, patientID) {
		err := apperrors.Unauthorized("actor may not append medical records")
		l.finishAppend(ctx, actor, patientID, err)
		return nil, err
	}

	if draft.AssertsClinicalFindings() {
		if draft.MedicalSignature == "" || draft.MedicalSignature != actor.LicenseID {
			err := apperrors.MissingSignature("clinical findings require the appending professional's license as signature")
			l.finishAppend(ctx, actor, patientID, err)
			return nil, err
		}
	}

	c := l.chainFor(patientID)
	rec, err := c.append(l.hasher, l.now, patientID, draft)
	if err != nil {
		l.finishAppend(ctx, actor, patientID, err)
		return nil, err
	}

	l.finishAppend(ctx, actor, patientID, nil)
	return rec, nil
}

// History returns the patient's full chain in append order, oldest first.
func (l *Ledger) History(ctx context.Context, actor model.Actor, patientID string) ([]*model.MedicalRecord, error) {
	if !l.policy.CanRead(actor, patientID) {
		err := apperrors.Unauthorized("actor may not read this patient's history")
		l.finishRead(ctx, actor, patientID, err)
		return nil, err
	}

	c := l.lookup(patientID)
	if c == nil {
		err := apperrors.NotFound("patient chain")
		l.finishRead(ctx, actor, patientID, err)
		return nil, err
	}

	c.mu.RLock()
	out := make([]*model.MedicalRecord, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	c.mu.RUnlock()

	l.finishRead(ctx, actor, patientID, nil)
	return out, nil
}

// Summary aggregates the patient's chain into the clinical overview served
// to dispatched crews. Gated by the same read policy as History.
func (l *Ledger) Summary(ctx context.Context, actor model.Actor, patientID string) (*model.PatientSummary, error) {
	records, err := l.History(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}

	s := &model.PatientSummary{PatientID: patientID, Records: len(records)}
	for _, r := range records {
		s.Medications = append(s.Medications, r.Medications...)
		s.Conditions = append(s.Conditions, r.Conditions...)
		s.Allergies = append(s.Allergies, r.Allergies...)
		s.ChronicConditions = append(s.ChronicConditions, r.ChronicConditions...)
		if r.BloodType != "" {
			s.BloodType = r.BloodType
		}
	}
	return s, nil
}

// VerifyChain recomputes every digest in the patient's chain and checks the
// linkage. It needs no authorization: the result reveals nothing beyond
// consistent or inconsistent. A false return is a tamper signal, not a crash;
// escalation is the caller's policy.
func (l *Ledger) VerifyChain(ctx context.Context, patientID string) (bool, error) {
	c := l.lookup(patientID)
	if c == nil {
		return false, apperrors.NotFound("patient chain")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	valid := l.verifyLocked(c)
	l.metrics.RecordVerification(valid)
	if l.auditor != nil {
		l.auditor.Record(ctx, &model.AccessLog{
			Action:    model.AccessActionVerify,
			PatientID: patientID,
			Allowed:   true,
		})
	}
	return valid, nil
}

// PatientIDs lists every patient with a chain. Used by the integrity sweep.
func (l *Ledger) PatientIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.chains))
	for id := range l.chains {
		ids = append(ids, id)
	}
	return ids
}

func (l *Ledger) verifyLocked(c *chain) bool {
	prev := model.GenesisHash
	for _, r := range c.records {
		if r.PreviousRecordHash != prev {
			return false
		}
		if l.hasher.Digest(r) != r.RecordHash {
			return false
		}
		prev = r.RecordHash
	}
	return true
}

func (l *Ledger) chainFor(patientID string) *chain {
	l.mu.RLock()
	c := l.chains[patientID]
	l.mu.RUnlock()
	if c != nil {
		return c
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c = l.chains[patientID]; c == nil {
		c = &chain{}
		l.chains[patientID] = c
		l.metrics.SetPatientChains(len(l.chains))
	}
	return c
}

func (l *Ledger) lookup(patientID string) *chain {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chains[patientID]
}

func (c *chain) append(h Hasher, now func() time.Time, patientID string, draft *model.RecordDraft) (*model.MedicalRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if draft.BloodType != "" && c.bloodType != "" && draft.BloodType != c.bloodType {
		return nil, apperrors.BloodTypeConflict(c.bloodType, draft.BloodType)
	}

	ts := now()
	if n := len(c.records); n > 0 && ts.Before(c.records[n-1].Timestamp) {
		// Clock stepped backwards; chain timestamps never decrease.
		ts = c.records[n-1].Timestamp
	}

	rec := &model.MedicalRecord{
		ID:                 uuid.New(),
		PatientID:          patientID,
		Sequence:           int64(len(c.records) + 1),
		Timestamp:          ts,
		Medications:        append([]string(nil), draft.Medications...),
		Conditions:         append([]string(nil), draft.Conditions...),
		Allergies:          append([]string(nil), draft.Allergies...),
		ChronicConditions:  append([]string(nil), draft.ChronicConditions...),
		BloodType:          draft.BloodType,
		PreviousRecordHash: c.tailHash,
		MedicalSignature:   draft.MedicalSignature,
	}
	rec.RecordHash = h.Digest(rec)

	c.records = append(c.records, rec)
	c.tailHash = rec.RecordHash
	if rec.BloodType != "" {
		c.bloodType = rec.BloodType
	}
	return rec.Clone(), nil
}

func (l *Ledger) finishAppend(ctx context.Context, actor model.Actor, patientID string, err error) {
	l.metrics.RecordAppend(outcome(err))
	l.audit(ctx, actor, model.AccessActionAppend, patientID, err)
}

func (l *Ledger) finishRead(ctx context.Context, actor model.Actor, patientID string, err error) {
	l.metrics.RecordRead(outcome(err))
	l.audit(ctx, actor, model.AccessActionRead, patientID, err)
}

func (l *Ledger) audit(ctx context.Context, actor model.Actor, action, patientID string, err error) {
	if l.auditor == nil {
		return
	}
	entry := &model.AccessLog{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		LicenseID: actor.LicenseID,
		Action:    action,
		PatientID: patientID,
		Allowed:   err == nil,
	}
	if err != nil {
		entry.ErrorKind = outcome(err)
	}
	l.auditor.Record(ctx, entry)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.Kind()
	}
	return "Internal"
}
