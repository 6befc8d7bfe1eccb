// Package apperr defines the error taxonomy shared by every handler and
// service. Handlers map a Kind to an HTTP status at the boundary; services
// only return *Error values and never write responses themselves.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for boundary mapping.
type Kind string

const (
	// KindValidation is missing or malformed client input.
	KindValidation Kind = "VALIDATION"
	// KindUpstream is a failure from the LLM or transcription provider.
	KindUpstream Kind = "UPSTREAM"
	// KindAuthRequired means a calendar connector needs the OAuth flow.
	// It is an expected, actionable state, not an HTTP error.
	KindAuthRequired Kind = "AUTH_REQUIRED"
	// KindStorage is an unreachable store or constraint violation.
	KindStorage Kind = "STORAGE"
	// KindMalformedResponse means the LLM returned unparseable JSON when
	// structured output was required.
	KindMalformedResponse Kind = "MALFORMED_RESPONSE"
	// KindTimeout is an upstream call that exceeded its deadline.
	KindTimeout Kind = "TIMEOUT"
)

// Error carries a kind, a client-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps the kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	case KindAuthRequired:
		// Deliberately 200: the needsAuth payload is actionable, and
		// clients should not have to parse error bodies to act on it.
		return http.StatusOK
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation is shorthand for the most common handler-side error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
