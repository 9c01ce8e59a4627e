package tools

import (
	"errors"
	"fmt"
)

// Errors returned by tool configuration.
var (
	// ErrUnknownTool indicates no options type is registered for the tool.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidOptions indicates the option table could not be decoded.
	ErrInvalidOptions = errors.New("invalid options")
)

// ValidationError describes an option value that decoded but is not usable.
type ValidationError struct {
	// Tool is the tool being configured.
	Tool string
	// Field is the dotted option path.
	Field string
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Tool, e.Field, e.Message)
}

func invalid(tool, field, format string, args ...any) error {
	return &ValidationError{Tool: tool, Field: field, Message: fmt.Sprintf(format, args...)}
}
