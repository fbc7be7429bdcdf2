// Package apperrors defines the error kinds services return and the HTTP
// status each kind maps to.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindNotFound
)

// Error is the error type returned across service boundaries.
// Fields carries per-field messages for validation failures.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status for the error kind.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FieldNames returns the names of the invalid fields in sorted order.
func (e *Error) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewValidation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "Invalid input", Fields: fields}
}

// NewFieldError is a validation error for a single field.
func NewFieldError(field, message string) *Error {
	return NewValidation(map[string][]string{field: {message}})
}

// NewBadRequest is a validation error that is not tied to a field.
func NewBadRequest(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewAuthentication(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewInternal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

func IsValidation(err error) bool { return IsKind(err, KindValidation) }

func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }
