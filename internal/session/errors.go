package session

import (
	"errors"
	"fmt"
)

// FailureKind classifies a bridge operation failure.
type FailureKind string

const (
	// FailureProcessUnavailable: engine process not running or streams closed.
	FailureProcessUnavailable FailureKind = "process_unavailable"
	// FailureNoResponse: a write succeeded but the response stream closed
	// before a line was produced.
	FailureNoResponse FailureKind = "no_response"
	// FailureMalformedResponse: a response line failed to parse.
	FailureMalformedResponse FailureKind = "malformed_response"
	// FailureDomain: the engine returned success=false with an error message.
	// Expected and recoverable; session state is left untouched.
	FailureDomain FailureKind = "domain"
	// FailureNoActiveSession: an operation requiring prior setup was invoked
	// before any successful setup.
	FailureNoActiveSession FailureKind = "no_active_session"
)

// Error is the structured failure every public bridge operation returns in
// place of a successful payload. For domain failures Message carries the raw
// engine error text, unmasked.
type Error struct {
	Kind    FailureKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind FailureKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the failure kind from an error returned by a bridge
// operation. ok is false for nil and foreign errors.
func KindOf(err error) (FailureKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsDomainFailure reports whether err is a well-formed rejection from the
// engine, as opposed to a transport or process fault.
func IsDomainFailure(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == FailureDomain
}
