// Package apperr defines the closed set of error kinds that cross
// component boundaries in Neo Alexandria (spec §7). Components never
// return raw driver/network errors to callers above their boundary;
// they translate into one of these kinds so callers can branch on
// semantics instead of string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a closed set of error categories. New kinds must not be added
// without updating the HTTP-surface mapping table in spec §7.
type Kind string

const (
	NotFound          Kind = "NotFound"
	ValidationError   Kind = "ValidationError"
	ConflictError     Kind = "ConflictError"
	PermissionDenied  Kind = "PermissionDenied"
	FetchError        Kind = "FetchError"
	ExtractionError   Kind = "ExtractionError"
	ModelUnavailable  Kind = "ModelUnavailable"
	Timeout           Kind = "Timeout"
	DependencyDegraded Kind = "DependencyDegraded"
	Internal          Kind = "Internal"
)

// Error wraps a Kind, a human message, an optional cause, and optional
// structured details for the error envelope described in spec §6.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap translates a lower-level error into the given kind, preserving
// it as the cause for errors.Is/As chains.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetails attaches structured details and returns the receiver for
// chaining at the call site.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// KindOf extracts the Kind from err, defaulting to Internal when err is
// not (or does not wrap) an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
