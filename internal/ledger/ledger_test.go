package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semcare/triage-api/internal/hasher"
	"github.com/semcare/triage-api/internal/model"
	"github.com/semcare/triage-api/internal/policy"
	apperrors "github.com/semcare/triage-api/pkg/errors"
)

var (
	hospitalActor  = model.Actor{ID: "u1", Role: model.RoleHospital, LicenseID: "DR12345"}
	ambulanceActor = model.Actor{ID: "u2", Role: model.RoleAmbulance, LicenseID: "AMB-77"}
	patientActor   = model.Actor{ID: "p1", Role: model.RolePatient, SubjectPatientID: "p1"}
	adminActor     = model.Actor{ID: "root", Role: model.RoleAdmin}
)

func newTestLedger() *Ledger {
	return New(hasher.New(), policy.New())
}

func signedDraft(license string) *model.RecordDraft {
	return &model.RecordDraft{
		Medications:      []string{"Enalapril 10mg"},
		Conditions:       []string{"Hipertensión"},
		MedicalSignature: license,
	}
}

func TestAppendAndVerify(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Append(ctx, hospitalActor, "p1", signedDraft("DR12345"))
		require.NoError(t, err)

		valid, err := l.VerifyChain(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, valid, "chain must verify after append %d", i+1)
	}
}

func TestHistoryOrderAndLinkage(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := l.Append(ctx, hospitalActor, "p1", signedDraft("DR12345"))
		require.NoError(t, err)
	}

	records, err := l.History(ctx, hospitalActor, "p1")
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, model.GenesisHash, records[0].PreviousRecordHash)
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.Sequence)
		if i > 0 {
			assert.Equal(t, records[i-1].RecordHash, r.PreviousRecordHash)
			assert.False(t, r.Timestamp.Before(records[i-1].Timestamp))
		}
	}
}

func TestConcurrentAppendsSamePatient(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			draft := &model.RecordDraft{
				Conditions:       []string{fmt.Sprintf("finding-%d", i)},
				MedicalSignature: "DR12345",
			}
			_, err := l.Append(ctx, hospitalActor, "p1", draft)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	records, err := l.History(ctx, hospitalActor, "p1")
	require.NoError(t, err)
	require.Len(t, records, n)

	seen := make(map[string]bool, n)
	for _, r := range records {
		assert.False(t, seen[r.PreviousRecordHash], "two records share previous hash %q", r.PreviousRecordHash)
		seen[r.PreviousRecordHash] = true
	}

	valid, err := l.VerifyChain(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestConcurrentAppendsDifferentPatients(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	const patients = 10
	const perPatient = 10

	var wg sync.WaitGroup
	for p := 0; p < patients; p++ {
		for i := 0; i < perPatient; i++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				_, err := l.Append(ctx, hospitalActor, fmt.Sprintf("p%d", p), signedDraft("DR12345"))
				assert.NoError(t, err)
			}(p)
		}
	}
	wg.Wait()

	for p := 0; p < patients; p++ {
		id := fmt.Sprintf("p%d", p)
		records, err := l.History(ctx, hospitalActor, id)
		require.NoError(t, err)
		assert.Len(t, records, perPatient)

		valid, err := l.VerifyChain(ctx, id)
		require.NoError(t, err)
		assert.True(t, valid)
	}
}

func TestTamperDetection(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Append(ctx, hospitalActor, "p1", signedDraft("DR12345"))
		require.NoError(t, err)
	}

	// Reach into stored state the way an attacker with process memory would.
	l.chains["p1"].records[1].Medications[0] = "Morfina 10mg"

	valid, err := l.VerifyChain(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestBrokenLinkageDetection(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Append(ctx, hospitalActor, "p1", signedDraft("DR12345"))
		require.NoError(t, err)
	}

	l.chains["p1"].records[2].PreviousRecordHash = "0000"

	valid, err := l.VerifyChain(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestPatientCannotAppend(t *testing.T) {
	l := newTestLedger()

	_, err := l.Append(context.Background(), patientActor, "p1", signedDraft(""))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestClinicalAppendRequiresSignature(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	draft := signedDraft("")
	_, err := l.Append(ctx, hospitalActor, "p1", draft)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMissingSignature))

	// Signature of a different professional is no signature at all.
	_, err = l.Append(ctx, hospitalActor, "p1", signedDraft("DR99999"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrMissingSignature))

	rec, err := l.Append(ctx, hospitalActor, "p1", signedDraft("DR12345"))
	require.NoError(t, err)
	assert.Equal(t, "DR12345", rec.MedicalSignature)
}

func TestSystemRecordNeedsNoSignature(t *testing.T) {
	l := newTestLedger()

	rec, err := l.Append(context.Background(), adminActor, "p1", &model.RecordDraft{})
	require.NoError(t, err)
	assert.Empty(t, rec.MedicalSignature)
}

func TestBloodTypeConflict(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	first := signedDraft("DR12345")
	first.BloodType = "A+"
	_, err := l.Append(ctx, hospitalActor, "p1", first)
	require.NoError(t, err)

	conflicting := signedDraft("DR12345")
	conflicting.BloodType = "B-"
	_, err = l.Append(ctx, hospitalActor, "p1", conflicting)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrBloodTypeConflict))

	same := signedDraft("DR12345")
	same.BloodType = "A+"
	_, err = l.Append(ctx, hospitalActor, "p1", same)
	require.NoError(t, err)
}

func TestReadAuthorization(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, ambulanceActor, "p1", signedDraft("AMB-77"))
	require.NoError(t, err)

	// Patient reads own chain.
	_, err = l.History(ctx, patientActor, "p1")
	assert.NoError(t, err)

	// Patient may not read another chain.
	other := model.Actor{ID: "p2", Role: model.RolePatient, SubjectPatientID: "p2"}
	_, err = l.History(ctx, other, "p1")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	// Unlicensed crew is rejected.
	unlicensed := model.Actor{ID: "u9", Role: model.RoleAmbulance}
	_, err = l.History(ctx, unlicensed, "p1")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestUnknownPatient(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.History(ctx, adminActor, "ghost")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = l.VerifyChain(ctx, "ghost")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestHistoryReturnsCopies(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, hospitalActor, "p1", signedDraft("DR12345"))
	require.NoError(t, err)

	records, err := l.History(ctx, hospitalActor, "p1")
	require.NoError(t, err)
	records[0].Medications[0] = "tampered"

	valid, err := l.VerifyChain(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, valid, "mutating a returned record must not reach stored state")
}

func TestTimestampClampOnClockStep(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC), // clock stepped back
	}
	i := 0
	l := New(hasher.New(), policy.New(), WithClock(func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}))
	ctx := context.Background()

	_, err := l.Append(ctx, hospitalActor, "p1", signedDraft("DR12345"))
	require.NoError(t, err)
	_, err = l.Append(ctx, hospitalActor, "p1", signedDraft("DR12345"))
	require.NoError(t, err)

	records, err := l.History(ctx, hospitalActor, "p1")
	require.NoError(t, err)
	assert.False(t, records[1].Timestamp.Before(records[0].Timestamp))
}

func TestSummaryAggregation(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	first := &model.RecordDraft{
		Medications:       []string{"Enalapril 10mg"},
		ChronicConditions: []string{"Hipertensión arterial"},
		BloodType:         "A+",
		MedicalSignature:  "DR12345",
	}
	second := &model.RecordDraft{
		Medications:       []string{"Aspirina 100mg"},
		Allergies:         []string{"Penicilina"},
		ChronicConditions: []string{"Diabetes tipo 2"},
		MedicalSignature:  "DR12345",
	}
	_, err := l.Append(ctx, hospitalActor, "p1", first)
	require.NoError(t, err)
	_, err = l.Append(ctx, hospitalActor, "p1", second)
	require.NoError(t, err)

	summary, err := l.Summary(ctx, ambulanceActor, "p1")
	require.NoError(t, err)
	assert.Equal(t, "A+", summary.BloodType)
	assert.Equal(t, []string{"Enalapril 10mg", "Aspirina 100mg"}, summary.Medications)
	assert.Equal(t, []string{"Hipertensión arterial", "Diabetes tipo 2"}, summary.ChronicConditions)
	assert.Equal(t, []string{"Penicilina"}, summary.Allergies)
	assert.Equal(t, 2, summary.Records)

	_, err = l.Summary(ctx, model.Actor{Role: model.RoleAmbulance}, "p1")
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}
