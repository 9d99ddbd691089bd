package envelope

import (
	"errors"
	"fmt"
)

// BreachErrorCode categorizes invariant breaches.
type BreachErrorCode string

const (
	// ErrCodeDimensionMismatch indicates the action and bounds differ in length.
	// No part of the action may be applied.
	ErrCodeDimensionMismatch BreachErrorCode = "DIMENSION_MISMATCH"

	// ErrCodeNonFinite indicates a NaN or infinite dimension. That dimension
	// was zeroed; the others were still clipped individually.
	ErrCodeNonFinite BreachErrorCode = "NON_FINITE_VALUE"
)

// BreachError describes the first invariant breach in a Result.
type BreachError struct {
	Code BreachErrorCode

	// Dimension is the offending index, or -1 for a dimension mismatch.
	Dimension int

	Message string
}

// Error implements the error interface.
func (e *BreachError) Error() string {
	if e.Dimension < 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (dimension=%d)", e.Code, e.Message, e.Dimension)
}

// Err returns a *BreachError for the first invariant breach, or nil when the
// result is safe. Hard and soft limits are not errors.
func (r Result) Err() error {
	if r.Safe {
		return nil
	}
	for i, s := range r.Stats {
		if s.Violation != InvariantBreach {
			continue
		}
		if s.Message == MsgDimensionMismatch {
			return &BreachError{Code: ErrCodeDimensionMismatch, Dimension: -1, Message: s.Message}
		}
		return &BreachError{Code: ErrCodeNonFinite, Dimension: i, Message: s.Message}
	}
	return nil
}

// IsDimensionMismatch reports whether err is a dimension-mismatch breach.
func IsDimensionMismatch(err error) bool {
	var be *BreachError
	return errors.As(err, &be) && be.Code == ErrCodeDimensionMismatch
}

// IsNonFinite reports whether err is a non-finite-value breach.
func IsNonFinite(err error) bool {
	var be *BreachError
	return errors.As(err, &be) && be.Code == ErrCodeNonFinite
}
