// Package validation provides common validation utilities for configuration
// parameters across the boundchan module.
//
// Each helper returns a *errors.ValidationError so constructors report
// rejected values with the same wording and can be matched with errors.Is.
package validation
