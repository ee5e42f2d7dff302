// Package apperr defines the typed error kinds shared across the bot
// backend. Every failure that crosses a component boundary is one of these
// kinds so that the top-level dispatcher and the HTTP surface can map it to
// a client-equivalent status without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	// KindClientInput marks bad or missing caller data (unknown prompt
	// reference, malformed inbound body). Never retried.
	KindClientInput Kind = "client_input"
	// KindRemoteService marks a run-service or delivery-channel failure,
	// transport-level or non-success status.
	KindRemoteService Kind = "remote_service"
	// KindTimeout marks an exhausted poll budget.
	KindTimeout Kind = "orchestration_timeout"
	// KindUnknownCapability marks a tool call referencing an unregistered
	// function. Fatal for the current run.
	KindUnknownCapability Kind = "unknown_capability"
	// KindMalformedResponse marks a remote reply missing its expected shape.
	KindMalformedResponse Kind = "malformed_response"
)

type Error struct {
	Kind Kind
	// RemoteStatus is the status code returned by the remote endpoint,
	// when the failure originated there. Zero for transport-level failures.
	RemoteStatus int

	msg string
	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// WithRemoteStatus attaches the remote endpoint's status code for
// diagnostics and unreachable-recipient classification.
func (e *Error) WithRemoteStatus(status int) *Error {
	e.RemoteStatus = status
	return e
}

// WithCause records the underlying error without changing the kind.
func (e *Error) WithCause(err error) *Error {
	e.err = err
	return e
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

func ClientInput(format string, args ...any) *Error {
	return newError(KindClientInput, format, args...)
}

func RemoteService(format string, args ...any) *Error {
	return newError(KindRemoteService, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return newError(KindTimeout, format, args...)
}

func UnknownCapability(format string, args ...any) *Error {
	return newError(KindUnknownCapability, format, args...)
}

func MalformedResponse(format string, args ...any) *Error {
	return newError(KindMalformedResponse, format, args...)
}

// IsKind reports whether err (or anything it wraps) is an *Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// StatusCode maps err to an HTTP-equivalent status for the transport
// surface. Unclassified errors are treated as internal.
func StatusCode(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindClientInput:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindRemoteService, KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
