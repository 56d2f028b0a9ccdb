// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-meta.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library. Coded *Error values unwrap to
// these, so callers match with errors.Is.
var (
	ErrTypeMismatch    = errors.New("metadata type mismatch")
	ErrNotFound        = errors.New("metadata not found")
	ErrInvalidSupplier = errors.New("invalid supplier result")
	ErrNullArgument    = errors.New("null argument")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrClosed          = errors.New("component is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeTypeMismatch
	ErrCodeNotFound
	ErrCodeInvalidSupplier
	ErrCodeNullArgument
	ErrCodeInvalidArgument
	ErrCodeClosed
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeTypeMismatch:
		return "type_mismatch"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeInvalidSupplier:
		return "invalid_supplier"
	case ErrCodeNullArgument:
		return "null_argument"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeClosed:
		return "closed"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the sentinel matching the error code.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeTypeMismatch:
		return ErrTypeMismatch
	case ErrCodeNotFound:
		return ErrNotFound
	case ErrCodeInvalidSupplier:
		return ErrInvalidSupplier
	case ErrCodeNullArgument:
		return ErrNullArgument
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeClosed:
		return ErrClosed
	}
	return nil
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Errorf creates a structured error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the code of a structured error anywhere in err's chain.
// Plain errors report ErrCodeInternal, nil reports ErrCodeOK.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
