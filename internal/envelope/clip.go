package envelope

import "math"

// Messages attached to ClipStat.
const (
	MsgDimensionMismatch = "Dimension mismatch between action and bounds"
	MsgNonFinite         = "Non-finite value"
	MsgUpperHard         = "Exceeded Upper Hard Limit"
	MsgLowerHard         = "Exceeded Lower Hard Limit"
	MsgUpperSoft         = "Exceeded Upper Soft Limit"
	MsgLowerSoft         = "Exceeded Lower Soft Limit"
)

// Clip clamps proposed into the envelope described by bounds.
//
// INVARIANTS (for bounds satisfying the ordering precondition):
//   - every finite input yields a clamped value in [LowerHard, UpperHard]
//   - a non-finite input yields 0 and an unsafe result
//   - an input within the soft limits passes through with violation None
//   - soft limits never change a value
func Clip(proposed Action, bounds []Bounds) Result {
	if len(proposed) != len(bounds) {
		return dimensionMismatch(len(bounds))
	}

	result := Result{
		Clamped: make(Action, len(proposed)),
		Stats:   make([]ClipStat, len(proposed)),
		Safe:    true,
	}

	for i, v := range proposed {
		stat := clipValue(v, bounds[i])
		if stat.Violation == InvariantBreach {
			result.Safe = false
		}
		result.Clamped[i] = stat.ClippedValue
		result.Stats[i] = stat
	}

	return result
}

// ClipWithState is Clip evaluated in a system state. The state is reserved
// for dynamic limits and currently does not change the result.
func ClipWithState(proposed Action, _ State, bounds []Bounds) Result {
	return Clip(proposed, bounds)
}

func dimensionMismatch(n int) Result {
	return Result{
		Clamped: make(Action, n),
		Stats: []ClipStat{{
			Violation:   InvariantBreach,
			WasModified: true,
			Message:     MsgDimensionMismatch,
		}},
		Safe: false,
	}
}

func clipValue(v float64, b Bounds) ClipStat {
	stat := ClipStat{
		Violation:     None,
		OriginalValue: v,
		ClippedValue:  v,
	}

	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		stat.Violation = InvariantBreach
		stat.ClippedValue = 0
		stat.WasModified = true
		stat.Message = MsgNonFinite
	case v > b.UpperHard:
		stat.Violation = HardLimit
		stat.ClippedValue = b.UpperHard
		stat.WasModified = true
		stat.Message = MsgUpperHard
	case v < b.LowerHard:
		stat.Violation = HardLimit
		stat.ClippedValue = b.LowerHard
		stat.WasModified = true
		stat.Message = MsgLowerHard
	case v > b.UpperSoft:
		stat.Violation = SoftLimit
		stat.Message = MsgUpperSoft
	case v < b.LowerSoft:
		stat.Violation = SoftLimit
		stat.Message = MsgLowerSoft
	}

	return stat
}
