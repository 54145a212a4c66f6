// Package validation provides common validation utilities for the boundchan module.
package validation

import (
	"fmt"
	"time"

	bcerrors "github.com/vnykmshr/boundchan/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return bcerrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateRange validates that min <= value <= max.
// The returned ValidationError unwraps to kind, or to ErrInvalidConfiguration when kind is nil.
func ValidateRange(module, field string, value, min, max int, kind error) error {
	var verr *bcerrors.ValidationError
	switch {
	case value < min:
		verr = bcerrors.NewValidationError(module, field, value, fmt.Sprintf("must be at least %d", min))
	case value > max:
		verr = bcerrors.NewValidationError(module, field, value, fmt.Sprintf("must not exceed %d", max))
	default:
		return nil
	}
	verr.WithHint(fmt.Sprintf("use a value between %d and %d", min, max))
	if kind != nil {
		verr.WithKind(kind)
	}
	return verr
}

// ValidatePositiveDuration validates that a duration is greater than zero.
func ValidatePositiveDuration(module, field string, value time.Duration) error {
	if value <= 0 {
		return bcerrors.NewValidationError(module, field, value, "must be positive").
			WithHint("use a duration such as 1s or 500ms")
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil.
// Returns a ValidationError if the value is nil.
func ValidateNotNil(module, field string, value interface{}) error {
	if value == nil {
		return bcerrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return bcerrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}
