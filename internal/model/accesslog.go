package model

import (
	"time"

	"github.com/google/uuid"
)

// Ledger actions recorded in the access trail.
const (
	AccessActionAppend = "append"
	AccessActionRead   = "read"
	AccessActionVerify = "verify"
)

// AccessLog is one row of the ledger access trail: who asked to do what to
// whose chain, and how it went. Denied calls are recorded too.
type AccessLog struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	ActorRole Role      `db:"actor_role" json:"actor_role"`
	LicenseID string    `db:"license_id" json:"license_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	Allowed   bool      `db:"allowed" json:"allowed"`
	ErrorKind string    `db:"error_kind" json:"error_kind,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
