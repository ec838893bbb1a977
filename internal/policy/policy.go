// Package policy decides who may read or append a patient's chain. Decisions
// are plain booleans; callers translate denial into typed errors.
package policy

import (
	"github.com/semcare/triage-api/internal/model"
)

// AccessPolicy evaluates role and license based access to patient chains.
// A non-empty license id is the access credential for clinical roles;
// validating the license against a registry is the credential issuer's
// problem, not ours.
type AccessPolicy struct{}

func New() AccessPolicy {
	return AccessPolicy{}
}

// CanRead reports whether the actor may read the given patient's history.
func (AccessPolicy) CanRead(actor model.Actor, patientID string) bool {
	switch actor.Role {
	case model.RolePatient:
		return actor.SubjectPatientID != "" && actor.SubjectPatientID == patientID
	case model.RoleAmbulance, model.RoleHospital:
		return actor.LicenseID != ""
	case model.RoleAdmin:
		return true
	}
	return false
}

// CanAppend reports whether the actor may append to the given patient's
// chain. Patients never append clinical records; they file emergencies
// through a separate operation.
func (AccessPolicy) CanAppend(actor model.Actor, patientID string) bool {
	switch actor.Role {
	case model.RoleAmbulance, model.RoleHospital:
		return actor.LicenseID != ""
	case model.RoleAdmin:
		return true
	}
	return false
}
