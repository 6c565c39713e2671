// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDataUnavailable = errors.New("data unavailable")
	ErrIncompleteQuote = errors.New("incomplete quote")
	ErrNoCandidates    = errors.New("no eligible spread candidates")
	ErrTimeout         = errors.New("operation timed out")
	ErrNotConnected    = errors.New("gateway not connected")
	ErrConfigInvalid   = errors.New("invalid configuration")
)

// GatewayError represents an error message reported by the brokerage gateway.
type GatewayError struct {
	RequestID     int
	Code          int
	Message       string
	informational bool
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error [%d] request %d: %s", e.Code, e.RequestID, e.Message)
}

// Informational reports whether the code was classified as benign.
func (e *GatewayError) Informational() bool {
	return e.informational
}

// NewGatewayError creates a new GatewayError.
func NewGatewayError(requestID, code int, message string, informational bool) *GatewayError {
	return &GatewayError{
		RequestID:     requestID,
		Code:          code,
		Message:       message,
		informational: informational,
	}
}

// DataError represents a data-related error.
type DataError struct {
	Stage   string
	Symbol  string
	Message string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.Stage, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.Stage, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(stage, symbol, message string, err error) *DataError {
	return &DataError{
		Stage:   stage,
		Symbol:  symbol,
		Message: message,
		Err:     err,
	}
}

// Unavailable builds a DataError wrapping ErrDataUnavailable. A non-nil cause
// is joined so both it and the sentinel match errors.Is.
func Unavailable(stage, symbol, message string, cause error) *DataError {
	err := ErrDataUnavailable
	if cause != nil {
		err = errors.Join(ErrDataUnavailable, cause)
	}
	return NewDataError(stage, symbol, message, err)
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
