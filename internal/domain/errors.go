package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDecode     ErrorType = "decode"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeStream     ErrorType = "stream"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type       ErrorType
	Message    string
	StatusCode int // HTTP status for network errors, 0 otherwise
	Err        error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func DecodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeDecode, message, err)
}

func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

func NetworkError(message string, err error) *DomainError {
	return NewError(ErrorTypeNetwork, message, err)
}

// HTTPError is a network error for a response with a non-success status.
func HTTPError(message string, statusCode int) *DomainError {
	e := NewError(ErrorTypeNetwork, message, nil)
	e.StatusCode = statusCode
	return e
}

func StreamError(message string, err error) *DomainError {
	return NewError(ErrorTypeStream, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

// IsType reports whether any error in err's chain is a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == errType
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var de *DomainError
	if errors.As(err, &de) {
		return de.StatusCode
	}
	return 0
}
