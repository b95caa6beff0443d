package snapshots

import "github.com/google/uuid"

// Verification is the outcome of an integrity check. A mismatch is data, not an error.
type Verification struct {
	SnapshotID   uuid.UUID `json:"snapshot_id"`
	Valid        bool      `json:"valid"`
	ExpectedHash string    `json:"expected_hash"`
	ActualHash   string    `json:"actual_hash"`
	Error        string    `json:"error,omitempty"`
}

// Verify checks s with the default canonicalizer.
func Verify(s *Snapshot) Verification {
	return verifyWith(Canonicalizer{}, s)
}

func verifyWith(c Canonicalizer, s *Snapshot) Verification {
	if s == nil {
		return Verification{Error: "snapshot is nil"}
	}
	v := Verification{SnapshotID: s.ID, ExpectedHash: s.Hash}
	positions, kpi, err := DecodePayload(s.Positions, s.HeaderKPI)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	actual, err := c.Hash(positions, kpi)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.ActualHash = actual
	v.Valid = actual == s.Hash
	return v
}
