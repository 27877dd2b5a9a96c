package types

import "time"

// Snapshot is the last known good record of an account.
type Snapshot struct {
	Key       string         `json:"key"`
	FetchedAt time.Time      `json:"fetchedAt"`
	Record    MeteringRecord `json:"record"`
}

// IsZero reports whether the snapshot was never filled in.
func (s Snapshot) IsZero() bool {
	return s.FetchedAt.IsZero()
}
