package model

import (
	"time"

	"github.com/google/uuid"
)

// TriageLevel classifies emergency severity. Red outranks yellow outranks
// green in every listing.
type TriageLevel string

const (
	TriageRed    TriageLevel = "red"
	TriageYellow TriageLevel = "yellow"
	TriageGreen  TriageLevel = "green"
)

// Severity maps the level onto a sortable scale, highest first.
func (t TriageLevel) Severity() int {
	switch t {
	case TriageRed:
		return 3
	case TriageYellow:
		return 2
	case TriageGreen:
		return 1
	}
	return 0
}

// EmergencyStatus is the dispatch lifecycle state. Transitions are monotonic:
// pending -> assigned -> inProgress -> completed, one step at a time.
type EmergencyStatus string

const (
	EmergencyPending    EmergencyStatus = "pending"
	EmergencyAssigned   EmergencyStatus = "assigned"
	EmergencyInProgress EmergencyStatus = "inProgress"
	EmergencyCompleted  EmergencyStatus = "completed"
)

// Next returns the only status reachable from s, or "" at end of life.
func (s EmergencyStatus) Next() EmergencyStatus {
	switch s {
	case EmergencyPending:
		return EmergencyAssigned
	case EmergencyAssigned:
		return EmergencyInProgress
	case EmergencyInProgress:
		return EmergencyCompleted
	}
	return ""
}

// EmergencyRequest is a short-lived dispatch case filed by or for a patient.
type EmergencyRequest struct {
	ID                      uuid.UUID       `json:"id"`
	PatientID               string          `json:"patient_id"`
	Location                string          `json:"location"`
	Symptoms                []string        `json:"symptoms"`
	TriageLevel             TriageLevel     `json:"triage_level"`
	Status                  EmergencyStatus `json:"status"`
	EstimatedArrivalMinutes int             `json:"estimated_arrival_minutes,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	AssignedAt              *time.Time      `json:"assigned_at,omitempty"`
	StartedAt               *time.Time      `json:"started_at,omitempty"`
	CompletedAt             *time.Time      `json:"completed_at,omitempty"`
}

// Clone returns a copy safe to hand outside the coordinator.
func (e *EmergencyRequest) Clone() *EmergencyRequest {
	cp := *e
	cp.Symptoms = append([]string(nil), e.Symptoms...)
	return &cp
}
