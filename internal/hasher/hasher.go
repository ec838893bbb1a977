// Package hasher produces the content digest that links a patient's record
// chain. The digest covers every record field except the id, in a fixed
// order, so two records with identical clinical content but different chain
// positions hash differently.
package hasher

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/semcare/triage-api/internal/model"
)

// SHA256 is a stateless chain hasher. The zero value is ready to use.
type SHA256 struct{}

func New() SHA256 {
	return SHA256{}
}

// Digest returns the hex-encoded SHA-256 of the record's canonical
// serialization. Pure; never mutates the record.
func (SHA256) Digest(r *model.MedicalRecord) string {
	h := sha256.New()

	writeString(h, r.PatientID)
	writeInt64(h, r.Sequence)
	writeInt64(h, r.Timestamp.UnixNano())
	writeStrings(h, r.Medications)
	writeStrings(h, r.Conditions)
	writeStrings(h, r.Allergies)
	writeStrings(h, r.ChronicConditions)
	writeString(h, r.BloodType)
	writeString(h, r.PreviousRecordHash)
	writeString(h, r.MedicalSignature)

	return hex.EncodeToString(h.Sum(nil))
}

// Fields are length-prefixed so no concatenation of values can collide with
// a different split of the same bytes.
func writeString(h hash.Hash, s string) {
	writeInt64(h, int64(len(s)))
	h.Write([]byte(s))
}

func writeStrings(h hash.Hash, ss []string) {
	writeInt64(h, int64(len(ss)))
	for _, s := range ss {
		writeString(h, s)
	}
}

func writeInt64(h hash.Hash, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}
