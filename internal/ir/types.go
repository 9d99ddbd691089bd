package ir

// TransitionUnit is one externally authored state delta ("token pixel").
// It links to the kernel's history through PreviousHash.
type TransitionUnit struct {
	Timestamp    uint64 `json:"timestamp"`
	SequenceID   uint64 `json:"sequence_id"`
	PreviousHash string `json:"previous_hash"`
	CurrentHash  string `json:"current_hash"`
	Payload      []byte `json:"payload"`
}

// AuditKind names the kernel operation that produced an audit entry.
type AuditKind string

const (
	AuditExecute AuditKind = "execute"
	AuditDock    AuditKind = "dock"
)

// AuditEntry records one anchor produced by the kernel, in arrival order.
type AuditEntry struct {
	Index  uint64    `json:"index"`
	Kind   AuditKind `json:"kind"`
	Anchor string    `json:"anchor"`
}

// StructureTypePlatform is the only structure type the kernel synthesizes.
const StructureTypePlatform = "SyntheticPlatform"

// SyntheticStructure is a static region derived from an anchor.
// Consumers materialize it as a platform at (X, Y) sized W×H.
type SyntheticStructure struct {
	X    float32 `json:"x"`
	Y    float32 `json:"y"`
	W    float32 `json:"w"`
	H    float32 `json:"h"`
	Type string  `json:"type"`
}
