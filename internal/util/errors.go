package util

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common error types for taskpool
var (
	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates an operation was cancelled
	ErrCancelled = errors.New("operation cancelled")

	// ErrShutdown indicates the system is shutting down
	ErrShutdown = errors.New("system shutting down")

	// ErrLostTasks indicates accepted tasks were not executed exactly once
	ErrLostTasks = errors.New("accepted tasks were lost or duplicated")
)

// ValidationError represents a validation failure of a single setting
// It unwraps to ErrInvalidConfig
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	if v.Value != nil {
		return fmt.Sprintf("validation failed for field %q (value: %v): %s", v.Field, v.Value, v.Message)
	}
	return fmt.Sprintf("validation failed for field %q: %s", v.Field, v.Message)
}

// Unwrap returns ErrInvalidConfig for errors.Is compatibility
func (v *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error; nil is ignored
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// NewMultiError creates a new MultiError, filtering out nil errors
func NewMultiError(errs []error) *MultiError {
	m := &MultiError{
		Errors: make([]error, 0, len(errs)),
	}
	for _, err := range errs {
		m.Add(err)
	}
	return m
}

// CombineErrors combines multiple errors into a single error
// Returns nil if all errors are nil
func CombineErrors(errs ...error) error {
	return NewMultiError(errs).ErrorOrNil()
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsCancelled checks if an error is a cancellation error
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// IsInvalidConfig checks if an error is a configuration error
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case IsInvalidConfig(err):
		return fmt.Sprintf("Invalid configuration. Please check your config file and command-line flags.\n%v", err)
	case IsTimeout(err):
		return "Operation timed out. Please try again or increase the timeout value with --timeout flag."
	case IsCancelled(err):
		return "Operation was cancelled."
	case errors.Is(err, ErrLostTasks):
		return fmt.Sprintf("Delivery check failed: %v", err)
	case errors.Is(err, ErrShutdown):
		return "The pool is shutting down and cannot accept work."
	default:
		return err.Error()
	}
}

// WrapErrorf wraps an error with a formatted message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
