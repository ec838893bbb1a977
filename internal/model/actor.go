package model

// Role identifies the kind of authenticated caller.
type Role string

const (
	RolePatient   Role = "patient"
	RoleAmbulance Role = "ambulance"
	RoleHospital  Role = "hospital"
	RoleAdmin     Role = "admin"
)

// IsLicensed reports whether the role is expected to carry a medical license.
func (r Role) IsLicensed() bool {
	return r == RoleAmbulance || r == RoleHospital
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleAmbulance, RoleHospital, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller context attached to every request.
// Identity issuance happens upstream; the service only consumes the
// verified claims.
type Actor struct {
	ID               string `json:"id"`
	Role             Role   `json:"role"`
	LicenseID        string `json:"license_id,omitempty"`
	SubjectPatientID string `json:"subject_patient_id,omitempty"`
}
