// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters and configuration
//   - Input errors (200-299): Malformed bars and ticks, missing data, query failures
//   - Pipeline errors (300-399): Converter, indicator and cache failures
//   - Condition errors (400-499): Condition materialisation and position machine construction
//   - Backtest errors (600-699): Backtesting engine and result writers
//   - Live errors (700-799): Order rejects, unexpected statuses, unknown instruments
//   - Persistence errors (800-899): Artifact encoding and version checks
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeInvertedBar, "bar %d has high below low", row)
//
//	if errors.HasCode(err, errors.ErrCodeInvertedBar) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var rowErr *RowError
	if errors.As(err, &rowErr) {
		return rowErr.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if any error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		switch e := err.(type) {
		case *Error:
			if e.Code == code {
				return true
			}
		case *RowError:
			if e.Code == code {
				return true
			}
		}
	}

	return false
}

// RowError reports malformed input at a specific row of a loaded series.
type RowError struct {
	Code ErrorCode
	Row  int
	Err  error
}

// NewRowError creates a RowError for the given row.
func NewRowError(code ErrorCode, row int, format string, args ...any) *RowError {
	return &RowError{
		Code: code,
		Row:  row,
		Err:  fmt.Errorf(format, args...),
	}
}

// Error implements the error interface.
func (e *RowError) Error() string {
	return fmt.Sprintf("[%d] row %d: %v", e.Code, e.Row, e.Err)
}

// Unwrap returns the underlying error.
func (e *RowError) Unwrap() error {
	return e.Err
}

// RowOf returns the offending row of a RowError in err's chain, or -1.
func RowOf(err error) int {
	var rowErr *RowError
	if errors.As(err, &rowErr) {
		return rowErr.Row
	}

	return -1
}
