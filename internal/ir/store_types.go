package ir

// NOTE: These are journal types written by the driver, not kernel state.
// The kernel never reads them.

// Session is one driver run against a fresh kernel.
type Session struct {
	ID            string `json:"id"` // UUIDv7, sorts by creation time
	Seed          string `json:"seed"`
	KernelVersion string `json:"kernel_version"`
	HashVersion   string `json:"hash_version"`
}

// JournalRecord is one kernel call made by the driver and its outcome.
type JournalRecord struct {
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"` // Logical clock within the session, from 1
	Kind      AuditKind `json:"kind"`

	// Unit is set for AuditExecute records.
	Unit TransitionUnit `json:"unit,omitempty"`

	// PatternID and Data are set for AuditDock records.
	PatternID string `json:"pattern_id,omitempty"`
	Data      []byte `json:"data,omitempty"`

	Accepted bool   `json:"accepted"`
	Anchor   string `json:"anchor"` // Live anchor after the call
}
