package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of probe errors
type ErrorType string

const (
	ErrorTypeLaunch               ErrorType = "launch"
	ErrorTypeReadinessTimeout     ErrorType = "readiness_timeout"
	ErrorTypeUnexpectedHealthBody ErrorType = "unexpected_health_body"
	ErrorTypeHandshake            ErrorType = "handshake"
	ErrorTypeTeardown             ErrorType = "teardown"
	ErrorTypeProcessExited        ErrorType = "process_exited"
	ErrorTypeValidation           ErrorType = "validation"
	ErrorTypeIO                   ErrorType = "io"
	ErrorTypeCancelled            ErrorType = "cancelled"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Diagnostic renders the error followed by its context as sorted key=value pairs.
func (e *DomainError) Diagnostic() string {
	if len(e.Context) == 0 {
		return e.Error()
	}
	keys := make([]string, 0, len(e.Context))
	for key := range e.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(e.Error())
	for _, key := range keys {
		fmt.Fprintf(&b, "\n  %s=%v", key, e.Context[key])
	}
	return b.String()
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Probe failures
func NewLaunchError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeLaunch, message, cause)
}

func NewReadinessTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeReadinessTimeout, message, cause)
}

func NewUnexpectedHealthBodyError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeUnexpectedHealthBody, message, cause)
}

func NewHandshakeError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeHandshake, message, cause)
}

func NewProcessExitedError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProcessExited, message, cause)
}

// NewTeardownWarning is never fatal; callers log it and keep the run outcome.
func NewTeardownWarning(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeTeardown, message, cause)
}

// System errors
func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

// Error checking helpers
func IsLaunchError(err error) bool {
	return hasType(err, ErrorTypeLaunch)
}

func IsReadinessTimeout(err error) bool {
	return hasType(err, ErrorTypeReadinessTimeout)
}

func IsUnexpectedHealthBody(err error) bool {
	return hasType(err, ErrorTypeUnexpectedHealthBody)
}

func IsHandshakeError(err error) bool {
	return hasType(err, ErrorTypeHandshake)
}

func IsTeardownWarning(err error) bool {
	return hasType(err, ErrorTypeTeardown)
}

func IsProcessExitedError(err error) bool {
	return hasType(err, ErrorTypeProcessExited)
}

func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

func IsIOError(err error) bool {
	return hasType(err, ErrorTypeIO)
}

func IsCancelledError(err error) bool {
	return hasType(err, ErrorTypeCancelled)
}

// TypeOf returns the type of the outermost DomainError in the chain, or "".
func TypeOf(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

func hasType(err error, errorType ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == errorType
}
