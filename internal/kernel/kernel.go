package kernel

import (
	"log/slog"

	"github.com/roach88/qube/internal/ir"
)

// State is the lifecycle state of a Kernel.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateShutDown
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateShutDown:
		return "shut down"
	default:
		return "unknown"
	}
}

// Kernel is the hash-chained execution kernel.
//
// INVARIANTS:
//   - anchor changes only in Initialize, Execute and DockPattern
//   - every anchor produced after Initialize is appended to audit, in order
//   - a refused call leaves anchor, audit and counters untouched
type Kernel struct {
	state  State
	anchor string
	audit  []ir.AuditEntry

	operations uint64 // accepted transition units
	docks      uint64 // docked patterns
}

// New creates an uninitialized kernel whose anchor is ir.GenesisAnchor.
func New() *Kernel {
	return &Kernel{
		state:  StateUninitialized,
		anchor: ir.GenesisAnchor,
	}
}

// Initialize seals seed as the initial anchor.
//
// Idempotent: a second call on an initialized kernel is a no-op and keeps the
// first seed. The seed is opaque; its provenance is not checked, but it must
// be valid NFC UTF-8. Initializing a kernel that has been shut down is a
// usage error.
func (k *Kernel) Initialize(seed string) error {
	if k.state == StateShutDown {
		return NewUsageError("Initialize", k.state)
	}
	if err := ir.CheckString(seed); err != nil {
		return NewArgumentError("Initialize", "seed", err)
	}
	if k.state == StateInitialized {
		return nil
	}

	slog.Info("kernel initialized", "seed", seed)
	k.anchor = seed
	k.state = StateInitialized
	return nil
}

// Execute feeds one transition unit into the kernel.
//
// The unit is accepted only if unit.PreviousHash equals the live anchor. On
// acceptance the anchor advances to ir.ExecuteAnchor, the new anchor is
// audited and the operation counter increments. On rejection nothing changes
// and a chain-integrity KernelError is returned. A current hash that fails
// ir.CheckString is a usage error and also changes nothing.
func (k *Kernel) Execute(unit ir.TransitionUnit) error {
	if k.state != StateInitialized {
		return NewUsageError("Execute", k.state)
	}
	if err := ir.CheckString(unit.CurrentHash); err != nil {
		return NewArgumentError("Execute", "current_hash", err)
	}

	if unit.PreviousHash != k.anchor {
		slog.Warn("hash mismatch, unit rejected",
			"sequence_id", unit.SequenceID,
			"expected", k.anchor,
			"got", unit.PreviousHash)
		return NewIntegrityError(unit.SequenceID, k.anchor, unit.PreviousHash)
	}

	slog.Debug("executing unit", "sequence_id", unit.SequenceID, "payload_bytes", len(unit.Payload))

	// All effects below are infallible, so acceptance is atomic.
	k.advance(ir.AuditExecute, ir.ExecuteAnchor(k.anchor, unit.SequenceID, unit.CurrentHash))
	k.operations++
	return nil
}

// DockPattern binds an externally sourced blob into the chain.
//
// There is no integrity check: once the kernel is initialized a dock is always
// accepted. Only patternID and len(data) enter the new anchor; patternID must
// pass ir.CheckString.
func (k *Kernel) DockPattern(patternID string, data []byte) error {
	if k.state != StateInitialized {
		return NewUsageError("DockPattern", k.state)
	}
	if err := ir.CheckString(patternID); err != nil {
		return NewArgumentError("DockPattern", "pattern_id", err)
	}

	slog.Debug("docking pattern", "pattern_id", patternID, "bytes", len(data))
	k.advance(ir.AuditDock, ir.DockAnchor(k.anchor, patternID, len(data)))
	k.docks++
	return nil
}

func (k *Kernel) advance(kind ir.AuditKind, next string) {
	k.anchor = next
	k.audit = append(k.audit, ir.AuditEntry{
		Index:  uint64(len(k.audit)),
		Kind:   kind,
		Anchor: next,
	})
}

// GetStateHash returns the live anchor.
func (k *Kernel) GetStateHash() string {
	return k.anchor
}

// Audit returns a copy of the audit list.
func (k *Kernel) Audit() []ir.AuditEntry {
	out := make([]ir.AuditEntry, len(k.audit))
	copy(out, k.audit)
	return out
}

// Operations returns the number of accepted transition units.
func (k *Kernel) Operations() uint64 {
	return k.operations
}

// Docks returns the number of docked patterns.
func (k *Kernel) Docks() uint64 {
	return k.docks
}

// State returns the lifecycle state.
func (k *Kernel) State() State {
	return k.state
}

// Shutdown moves the kernel to its terminal state and returns the final
// operation count. Calling it again is a no-op that returns the same count.
func (k *Kernel) Shutdown() uint64 {
	if k.state != StateShutDown {
		slog.Info("kernel shutting down", "operations", k.operations, "docks", k.docks)
		k.state = StateShutDown
	}
	return k.operations
}
