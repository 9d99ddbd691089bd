package harness

import (
	"github.com/roach88/qube/internal/envelope"
	"github.com/roach88/qube/internal/ir"
)

// Trace ops. Kernel steps use the step name; envelope checks use OpClip.
const (
	OpInitialize = "initialize"
	OpExecute    = "execute"
	OpDock       = "dock"
	OpSynthesize = "synthesize"
	OpShutdown   = "shutdown"
	OpClip       = "clip"
)

// TraceEvent records one step or clip check in execution order.
type TraceEvent struct {
	Step       int                     `json:"step"`
	Op         string                  `json:"op"`
	Name       string                  `json:"name,omitempty"`
	Outcome    string                  `json:"outcome"`
	Anchor     string                  `json:"anchor,omitempty"`
	SequenceID *uint64                 `json:"sequence_id,omitempty"`
	Operations *uint64                 `json:"operations,omitempty"`
	Structures []ir.SyntheticStructure `json:"structures,omitempty"`
	Clip       *envelope.Result        `json:"clip,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every step and clip check in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalAnchor is the kernel anchor after the last step.
	FinalAnchor string `json:"final_anchor"`

	// Audit is the kernel audit list after the last step.
	Audit []ir.AuditEntry `json:"audit"`

	// SessionID names the journal session the kernel calls were recorded
	// under, or is empty if the kernel was never initialized.
	SessionID string `json:"session_id,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Audit:  []ir.AuditEntry{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends ev to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
