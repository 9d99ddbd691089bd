package kernel

import (
	"errors"
	"fmt"
)

// KernelError is returned by Kernel operations that refuse a call.
//
// Two categories exist:
//   - Chain integrity: the unit's previous hash is stale or wrong. Recoverable;
//     the caller may retry with the live anchor or skip the unit.
//   - Usage: the call arrived before Initialize or after Shutdown, or a string
//     argument cannot be hashed (see ir.CheckString). A caller bug either way.
type KernelError struct {
	// Code identifies the error category.
	Code KernelErrorCode

	// Message is a human-readable description.
	Message string

	// Expected is the live anchor (chain integrity only).
	Expected string

	// Got is the previous hash the unit carried (chain integrity only).
	Got string

	// SequenceID identifies the rejected unit (chain integrity only).
	SequenceID uint64
}

// KernelErrorCode categorizes kernel errors.
type KernelErrorCode string

const (
	// ErrCodeChainIntegrity indicates a unit whose previous hash does not match the live anchor.
	ErrCodeChainIntegrity KernelErrorCode = "CHAIN_INTEGRITY_MISMATCH"

	// ErrCodeUsage indicates a call made while the kernel is not initialized,
	// or with a string argument that is not canonical UTF-8.
	ErrCodeUsage KernelErrorCode = "USAGE_ERROR"
)

// Error implements the error interface.
func (e *KernelError) Error() string {
	if e.Code == ErrCodeChainIntegrity {
		return fmt.Sprintf("%s: %s (sequence_id=%d, expected=%s, got=%s)",
			e.Code, e.Message, e.SequenceID, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsIntegrityError reports whether err is a chain-integrity mismatch.
// Uses errors.As to handle wrapped errors.
func IsIntegrityError(err error) bool {
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke.Code == ErrCodeChainIntegrity
	}
	return false
}

// IsUsageError reports whether err is a usage error.
// Uses errors.As to handle wrapped errors.
func IsUsageError(err error) bool {
	var ke *KernelError
	if errors.As(err, &ke) {
		return ke.Code == ErrCodeUsage
	}
	return false
}

// NewIntegrityError creates a KernelError for a rejected unit.
func NewIntegrityError(sequenceID uint64, expected, got string) *KernelError {
	return &KernelError{
		Code:       ErrCodeChainIntegrity,
		Message:    "previous hash does not match live anchor",
		Expected:   expected,
		Got:        got,
		SequenceID: sequenceID,
	}
}

// NewUsageError creates a KernelError for a call made in the wrong state.
func NewUsageError(op string, state State) *KernelError {
	return &KernelError{
		Code:    ErrCodeUsage,
		Message: fmt.Sprintf("%s called while kernel is %s", op, state),
	}
}

// NewArgumentError creates a usage KernelError for a string argument that
// fails ir.CheckString.
func NewArgumentError(op, field string, err error) *KernelError {
	return &KernelError{
		Code:    ErrCodeUsage,
		Message: fmt.Sprintf("%s: %s: %v", op, field, err),
	}
}
