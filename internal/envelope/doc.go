// Package envelope implements the bounds-enforcement safety envelope.
//
// Clip classifies every dimension of a proposed action against its Bounds and
// returns the action an actuator may apply:
//
//   - Non-finite value: InvariantBreach, zeroed, whole result unsafe
//   - Outside the hard limits: HardLimit, clamped to the violated limit
//   - Outside the soft limits only: SoftLimit, passed through unchanged
//   - Otherwise: None, passed through unchanged
//
// An action whose length differs from the bounds is rejected as a whole.
//
// Clip is pure and stateless. It is safe for concurrent use without
// coordination. Callers must apply Result.Clamped, never the proposed action.
//
// Bounds normally come from a CUE profile; see LoadProfile.
package envelope
