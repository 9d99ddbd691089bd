package envelope

import (
	"fmt"
	"math"
)

// ViolationKind classifies what happened to one dimension during Clip.
// The declaration order is the severity order used for reporting.
type ViolationKind int

const (
	None ViolationKind = iota
	SoftLimit
	HardLimit
	InvariantBreach
)

var violationNames = map[ViolationKind]string{
	None:            "none",
	SoftLimit:       "soft_limit",
	HardLimit:       "hard_limit",
	InvariantBreach: "invariant_breach",
}

// String returns the snake_case name of the violation.
func (v ViolationKind) String() string {
	if name, ok := violationNames[v]; ok {
		return name
	}
	return fmt.Sprintf("violation(%d)", int(v))
}

// MarshalText implements encoding.TextMarshaler.
func (v ViolationKind) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *ViolationKind) UnmarshalText(text []byte) error {
	kind, err := ParseViolationKind(string(text))
	if err != nil {
		return err
	}
	*v = kind
	return nil
}

// ParseViolationKind parses a name produced by ViolationKind.String.
func ParseViolationKind(name string) (ViolationKind, error) {
	for kind, n := range violationNames {
		if n == name {
			return kind, nil
		}
	}
	return None, fmt.Errorf("unknown violation kind %q", name)
}

// Bounds are the operating limits of one action dimension.
//
// Precondition: LowerHard <= LowerSoft <= UpperSoft <= UpperHard. Clip does
// not check it; Validate does, and profiles are validated on load.
type Bounds struct {
	LowerHard float64 `json:"lower_hard"`
	UpperHard float64 `json:"upper_hard"`
	LowerSoft float64 `json:"lower_soft"`
	UpperSoft float64 `json:"upper_soft"`
}

// NewBounds creates Bounds in the (lower hard, upper hard, lower soft, upper soft) order.
func NewBounds(lowerHard, upperHard, lowerSoft, upperSoft float64) Bounds {
	return Bounds{LowerHard: lowerHard, UpperHard: upperHard, LowerSoft: lowerSoft, UpperSoft: upperSoft}
}

// Unbounded returns bounds that never clamp or warn.
func Unbounded() Bounds {
	return Bounds{
		LowerHard: math.Inf(-1),
		UpperHard: math.Inf(1),
		LowerSoft: math.Inf(-1),
		UpperSoft: math.Inf(1),
	}
}

// Validate checks the ordering precondition. NaN limits are rejected.
func (b Bounds) Validate() error {
	limits := []float64{b.LowerHard, b.LowerSoft, b.UpperSoft, b.UpperHard}
	for _, l := range limits {
		if math.IsNaN(l) {
			return fmt.Errorf("bounds contain NaN: %+v", b)
		}
	}
	if !(b.LowerHard <= b.LowerSoft && b.LowerSoft <= b.UpperSoft && b.UpperSoft <= b.UpperHard) {
		return fmt.Errorf("bounds out of order: want lower_hard <= lower_soft <= upper_soft <= upper_hard, got %g <= %g <= %g <= %g",
			b.LowerHard, b.LowerSoft, b.UpperSoft, b.UpperHard)
	}
	return nil
}

// Action is a proposed or clamped control action, one value per dimension.
type Action []float64

// State is the system state the envelope is evaluated in. It is reserved for
// dynamic limits and does not influence the result yet.
type State []float64

// ClipStat reports what Clip did to one dimension.
type ClipStat struct {
	Violation     ViolationKind `json:"violation"`
	OriginalValue float64       `json:"original_value"`
	ClippedValue  float64       `json:"clipped_value"`
	WasModified   bool          `json:"was_modified"`
	Message       string        `json:"message,omitempty"`
}

// Result is the outcome of Clip.
type Result struct {
	// Clamped is the only action that may be applied.
	Clamped Action `json:"clamped"`

	// Stats holds one entry per dimension, or a single entry for a
	// dimension mismatch.
	Stats []ClipStat `json:"stats"`

	// Safe is false if any InvariantBreach occurred.
	Safe bool `json:"safe"`
}

// Worst returns the most severe violation in the result.
func (r Result) Worst() ViolationKind {
	worst := None
	for _, s := range r.Stats {
		if s.Violation > worst {
			worst = s.Violation
		}
	}
	return worst
}

// Modified returns the indices of dimensions whose value was changed.
func (r Result) Modified() []int {
	var idx []int
	for i, s := range r.Stats {
		if s.WasModified {
			idx = append(idx, i)
		}
	}
	return idx
}
