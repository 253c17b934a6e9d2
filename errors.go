package stampede

import (
	"errors"
	"fmt"
)

// MachineError represents a kind-definition defect caught at construction.
//
// The dispatch path itself surfaces no errors: an unrecognized state routes
// to the default segment by policy, and chain termination is a caller
// obligation. What can fail is building the machine in the first place.
type MachineError struct {
	// Code identifies the error category.
	Code MachineErrorCode

	// State is the offending state identifier, when one applies.
	State StateID

	// Message is a human-readable description.
	Message string
}

// MachineErrorCode categorizes machine construction errors.
type MachineErrorCode string

const (
	// ErrCodeNoSegments indicates construction with an empty segment list.
	ErrCodeNoSegments MachineErrorCode = "NO_SEGMENTS"

	// ErrCodeNilStep indicates a segment with a nil step function.
	ErrCodeNilStep MachineErrorCode = "NIL_STEP"

	// ErrCodeDuplicateState indicates two segments keyed by the same state.
	ErrCodeDuplicateState MachineErrorCode = "DUPLICATE_STATE"

	// ErrCodeReservedState indicates a segment keyed by StateUninitialized.
	ErrCodeReservedState MachineErrorCode = "RESERVED_STATE"
)

// Error implements the error interface.
func (e *MachineError) Error() string {
	if e.Code == ErrCodeNoSegments {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (state=%d)", e.Code, e.Message, e.State)
}

// IsDuplicateState returns true if the error is a duplicate-state error.
// Uses errors.As to handle wrapped errors.
func IsDuplicateState(err error) bool {
	var me *MachineError
	if errors.As(err, &me) {
		return me.Code == ErrCodeDuplicateState
	}
	return false
}

// IsReservedState returns true if the error is a reserved-state error.
// Uses errors.As to handle wrapped errors.
func IsReservedState(err error) bool {
	var me *MachineError
	if errors.As(err, &me) {
		return me.Code == ErrCodeReservedState
	}
	return false
}
