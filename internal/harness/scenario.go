package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnchorPlaceholder in a previous_hash field is replaced by the live anchor
// when the step runs.
const AnchorPlaceholder = "$anchor"

// Scenario is a conformance scenario for the kernel and the safety envelope.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed initializes the kernel before the first step. When empty the
	// kernel starts uninitialized and a step must initialize it.
	Seed string `yaml:"seed,omitempty"`

	// Steps run in order against one kernel.
	Steps []Step `yaml:"steps,omitempty"`

	// Clips are independent envelope checks.
	Clips []ClipCheck `yaml:"clips,omitempty"`

	// Assertions validate the final trace and kernel state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one kernel call. Exactly one field must be set.
type Step struct {
	Initialize *InitializeStep `yaml:"initialize,omitempty"`
	Execute    *ExecuteStep    `yaml:"execute,omitempty"`
	Dock       *DockStep       `yaml:"dock,omitempty"`
	Synthesize *SynthesizeStep `yaml:"synthesize,omitempty"`
	Shutdown   *ShutdownStep   `yaml:"shutdown,omitempty"`
}

// Outcome names the expected result of a step.
const (
	OutcomeOK         = "ok"
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeUsageError = "usage_error"
)

// InitializeStep calls Initialize.
type InitializeStep struct {
	Seed   string `yaml:"seed"`
	Expect string `yaml:"expect,omitempty"` // ok (default) or usage_error
}

// ExecuteStep calls Execute with a transition unit.
type ExecuteStep struct {
	Timestamp    uint64 `yaml:"timestamp,omitempty"`
	SequenceID   uint64 `yaml:"sequence_id"`
	PreviousHash string `yaml:"previous_hash"`
	CurrentHash  string `yaml:"current_hash"`
	Payload      []int  `yaml:"payload,omitempty"`

	// Expect is accepted (default), rejected or usage_error.
	Expect string `yaml:"expect,omitempty"`

	// Anchor, when set, is the expected anchor after the call.
	Anchor string `yaml:"anchor,omitempty"`
}

// DockStep calls DockPattern.
type DockStep struct {
	PatternID string `yaml:"pattern_id"`
	Data      []int  `yaml:"data,omitempty"`
	Expect    string `yaml:"expect,omitempty"` // accepted (default) or usage_error
	Anchor    string `yaml:"anchor,omitempty"`
}

// SynthesizeStep calls ReorganizeAndSynthesize.
type SynthesizeStep struct {
	// Count, when set, is the expected number of structures.
	Count *int `yaml:"count,omitempty"`
}

// ShutdownStep calls Shutdown.
type ShutdownStep struct {
	// Operations, when set, is the expected final operation count.
	Operations *uint64 `yaml:"operations,omitempty"`
}

// ClipCheck runs one envelope Clip and compares the result.
type ClipCheck struct {
	Name string `yaml:"name"`

	// Bounds lists [lower_hard, upper_hard, lower_soft, upper_soft] per dimension.
	Bounds [][]float64 `yaml:"bounds"`

	// Action is the proposed action. YAML .nan and .inf are accepted.
	Action []float64 `yaml:"action"`

	Expect ClipExpect `yaml:"expect"`
}

// ClipExpect is the expected outcome of a ClipCheck. Unset fields are not checked.
type ClipExpect struct {
	Clamped    []float64 `yaml:"clamped,omitempty"`
	Violations []string  `yaml:"violations,omitempty"`
	Safe       *bool     `yaml:"safe,omitempty"`
}

// Assertion validates the trace or the final kernel state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op and Outcome select trace events (trace_count).
	Op      string `yaml:"op,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number of matching events or audit entries.
	Count int `yaml:"count,omitempty"`

	// Ops is the expected op order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Anchor is the expected final anchor (final_anchor).
	Anchor string `yaml:"anchor,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceCount  = "trace_count"
	AssertTraceOrder  = "trace_order"
	AssertFinalAnchor = "final_anchor"
	AssertAuditLength = "audit_length"
	AssertDeterminism = "deterministic"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject typos like "step:" for "steps:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 && len(s.Clips) == 0 {
		return fmt.Errorf("at least one step or clip is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, c := range s.Clips {
		if c.Name == "" {
			return fmt.Errorf("clips[%d]: name is required", i)
		}
		for j, b := range c.Bounds {
			if len(b) != 4 {
				return fmt.Errorf("clips[%d].bounds[%d]: want 4 limits, got %d", i, j, len(b))
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step) error {
	set := 0
	var expect string
	allowed := []string{OutcomeOK}
	if step.Initialize != nil {
		set++
		expect = step.Initialize.Expect
		allowed = []string{OutcomeOK, OutcomeUsageError}
	}
	if step.Execute != nil {
		set++
		expect = step.Execute.Expect
		allowed = []string{OutcomeAccepted, OutcomeRejected, OutcomeUsageError}
	}
	if step.Dock != nil {
		set++
		expect = step.Dock.Expect
		allowed = []string{OutcomeAccepted, OutcomeUsageError}
	}
	if step.Synthesize != nil {
		set++
	}
	if step.Shutdown != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of initialize, execute, dock, synthesize, shutdown is required", index)
	}

	if expect == "" {
		return nil
	}
	for _, a := range allowed {
		if expect == a {
			return nil
		}
	}
	return fmt.Errorf("steps[%d]: expect %q is not one of %v", index, expect, allowed)
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertFinalAnchor:
		if a.Anchor == "" {
			return fmt.Errorf("assertions[%d]: anchor is required for final_anchor", index)
		}
	case AssertAuditLength:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for audit_length", index)
		}
	case AssertDeterminism:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
