package config

import (
	"errors"
	"fmt"
)

// Errors returned by settings loading.
var (
	// ErrFileNotFound indicates an explicitly named settings file doesn't exist.
	ErrFileNotFound = errors.New("settings file not found")

	// ErrValidationFailed indicates a setting has an unusable value.
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError describes a validation failure for a setting.
type ValidationError struct {
	// Path is the dotted setting path that failed validation.
	Path string
	// Message describes the validation error.
	Message string
	// Value is the invalid value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid setting %s = %v: %s", e.Path, e.Value, e.Message)
}

// Is reports ErrValidationFailed as matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
