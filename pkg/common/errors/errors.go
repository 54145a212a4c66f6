package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the boundchan module

var (
	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidCapacity indicates a channel capacity outside the accepted range
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrInconsistentState indicates that a component's internal invariants no longer hold
	ErrInconsistentState = errors.New("internal consistency violated")

	// ErrPoolShutdown indicates that work was submitted to a pool that has been shut down
	ErrPoolShutdown = errors.New("worker pool has been shut down")
)

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string

	// Kind is the sentinel reported by Unwrap. Defaults to ErrInvalidConfiguration.
	Kind error
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint sets a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

// WithKind sets a more specific sentinel and returns the same error for chaining.
func (e *ValidationError) WithKind(kind error) *ValidationError {
	e.Kind = kind
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns the sentinel for this validation failure.
func (e *ValidationError) Unwrap() error {
	if e.Kind != nil {
		return e.Kind
	}
	return ErrInvalidConfiguration
}

// Is reports ErrInvalidConfiguration for every validation error, so callers
// can match the general class even when a more specific Kind is set.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// ConsistencyError is raised when a component detects that its own state
// violates its invariants.
type ConsistencyError struct {
	Module    string
	Operation string
	Detail    string
}

// NewConsistencyError creates a ConsistencyError.
func NewConsistencyError(module, operation, detail string) *ConsistencyError {
	return &ConsistencyError{
		Module:    module,
		Operation: operation,
		Detail:    detail,
	}
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s.%s: %v (%s)", e.Module, e.Operation, ErrInconsistentState, e.Detail)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrInconsistentState
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsConsistencyError returns true if err is or wraps a ConsistencyError.
func IsConsistencyError(err error) bool {
	var cerr *ConsistencyError
	return errors.As(err, &cerr)
}
