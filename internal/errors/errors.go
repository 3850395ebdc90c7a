// Package errors carries the failure taxonomy used across the server.
// Requests fail in exactly three client-visible ways: the caller violated a
// precondition, the thing asked for does not exist, or the storage backend
// is unavailable. Everything else (content corruption, per-value failures)
// is absorbed into degraded output and never reaches this package.
package errors

import (
	"errors"
	"fmt"
)

// Class partitions request failures for boundary mapping.
type Class string

const (
	// ClassPrecondition marks caller mistakes: invalid names, unknown
	// columns, out-of-range paging values. Rejected, never retried.
	ClassPrecondition Class = "precondition"
	// ClassNotFound marks well-formed requests for absent datasets.
	ClassNotFound Class = "not_found"
	// ClassBackend marks environment faults such as a missing data root.
	// Fatal for the request.
	ClassBackend Class = "backend"
	// ClassInternal is the fallback for everything unclassified.
	ClassInternal Class = "internal"
)

// StructuredError couples a failure class with the operation that raised it.
type StructuredError struct {
	Class     Class
	Operation string
	Message   string
	Cause     error
}

func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Class, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Operation, e.Message)
}

func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a classed error.
func New(class Class, operation, message string) *StructuredError {
	return &StructuredError{Class: class, Operation: operation, Message: message}
}

// Wrap attaches class and operation to an underlying cause.
func Wrap(err error, class Class, operation, message string) *StructuredError {
	if err == nil {
		return nil
	}
	return &StructuredError{Class: class, Operation: operation, Message: message, Cause: err}
}

// NewPrecondition creates a precondition violation.
func NewPrecondition(operation, message string) *StructuredError {
	return New(ClassPrecondition, operation, message)
}

// NewNotFound creates a not-found error.
func NewNotFound(operation, message string) *StructuredError {
	return New(ClassNotFound, operation, message)
}

// NewBackend creates a backend-unavailable error.
func NewBackend(operation, message string) *StructuredError {
	return New(ClassBackend, operation, message)
}

// WrapBackend wraps an error as backend-unavailable.
func WrapBackend(err error, operation, message string) *StructuredError {
	return Wrap(err, ClassBackend, operation, message)
}

// ClassOf extracts the failure class, defaulting to ClassInternal for
// errors that did not come from this package.
func ClassOf(err error) Class {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Class
	}
	return ClassInternal
}

// MessageOf extracts the client-safe message. Unclassified errors map to a
// generic message so internal detail does not leak to clients.
func MessageOf(err error) string {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Message
	}
	return "internal error"
}
