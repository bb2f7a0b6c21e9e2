package errors

import (
	"errors"
	"fmt"
)

var (
	// Payment record errors
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAlreadyProcessed       = errors.New("payment already in a terminal state")

	// Result errors
	ErrInvalidResultStatus = errors.New("result status is invalid")

	// Configuration errors
	ErrMethodNotSupported = errors.New("payment method not supported")
	ErrAdapterNotFound    = errors.New("no gateway adapter for method and environment")
	ErrMalformedCallback  = errors.New("malformed callback identifiers")
	ErrIncompleteData     = errors.New("payment data is incomplete")

	// Gateway errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ConfigurationError indicates the supported-methods configuration cannot
// resolve a method into a working adapter, record and processor. It is
// operator-facing and fatal to the current operation.
type ConfigurationError struct {
	Method string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("method %q: %s: %v", e.Method, e.Reason, e.Err)
	}
	return fmt.Sprintf("method %q: %s", e.Method, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(method, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Method: method, Reason: reason, Err: err}
}
