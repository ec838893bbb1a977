package model

import (
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the previous-hash sentinel carried by the first record of
// every patient chain.
const GenesisHash = ""

// MedicalRecord is one link in a patient's hash chain. Immutable once
// appended; the ledger never hands out pointers into its own state.
type MedicalRecord struct {
	ID                 uuid.UUID `json:"id"`
	PatientID          string    `json:"patient_id"`
	Sequence           int64     `json:"sequence"`
	Timestamp          time.Time `json:"timestamp"`
	Medications        []string  `json:"medications"`
	Conditions         []string  `json:"conditions"`
	Allergies          []string  `json:"allergies"`
	ChronicConditions  []string  `json:"chronic_conditions"`
	BloodType          string    `json:"blood_type,omitempty"`
	PreviousRecordHash string    `json:"previous_record_hash"`
	RecordHash         string    `json:"record_hash"`
	MedicalSignature   string    `json:"medical_signature,omitempty"`
}

// Clone returns a deep copy so callers can never reach the ledger's stored
// slices.
func (r *MedicalRecord) Clone() *MedicalRecord {
	cp := *r
	cp.Medications = append([]string(nil), r.Medications...)
	cp.Conditions = append([]string(nil), r.Conditions...)
	cp.Allergies = append([]string(nil), r.Allergies...)
	cp.ChronicConditions = append([]string(nil), r.ChronicConditions...)
	return &cp
}

// RecordDraft is the caller-supplied portion of a record. Identity, ordering
// and linkage fields are assigned by the ledger.
type RecordDraft struct {
	Medications       []string `json:"medications"`
	Conditions        []string `json:"conditions"`
	Allergies         []string `json:"allergies"`
	ChronicConditions []string `json:"chronic_conditions"`
	BloodType         string   `json:"blood_type" binding:"omitempty,bloodtype"`
	MedicalSignature  string   `json:"medical_signature"`
}

// AssertsClinicalFindings reports whether the draft carries any clinical
// content, which in turn requires a signing license.
func (d *RecordDraft) AssertsClinicalFindings() bool {
	return len(d.Medications) > 0 ||
		len(d.Conditions) > 0 ||
		len(d.Allergies) > 0 ||
		len(d.ChronicConditions) > 0 ||
		d.BloodType != ""
}

// PatientSummary is the aggregated clinical view served to dispatched crews:
// the union of a patient's chain, most recent entries last.
type PatientSummary struct {
	PatientID         string   `json:"patient_id"`
	Medications       []string `json:"medications"`
	Conditions        []string `json:"conditions"`
	Allergies         []string `json:"allergies"`
	ChronicConditions []string `json:"chronic_conditions"`
	BloodType         string   `json:"blood_type,omitempty"`
	Records           int      `json:"records"`
}
