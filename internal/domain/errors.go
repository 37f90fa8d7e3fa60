package domain

import "errors"

// ErrorKind classifies command failures.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindAlreadyInProgress ErrorKind = "already_in_progress"
	KindInvalidState      ErrorKind = "invalid_state"
	KindAuthRejected      ErrorKind = "auth_rejected"
	KindRemoteUnavailable ErrorKind = "remote_unavailable"
)

// Error is the typed failure every command returns. Message is the text
// shown to the user.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can test against the
// sentinels below regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the caller may repeat the same request unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindRemoteUnavailable
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Message: "Not signed in"}
	ErrAlreadyInProgress = &Error{Kind: KindAlreadyInProgress, Message: "Login already in progress"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Message: "invalid session state"}
	ErrAuthRejected      = &Error{Kind: KindAuthRejected, Message: "authentication rejected"}
	ErrRemoteUnavailable = &Error{Kind: KindRemoteUnavailable, Message: "remote unavailable"}
)

// InvalidInput builds a validation failure with a user-facing message.
func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// InvalidState builds a session state-machine violation.
func InvalidState(message string) *Error {
	return &Error{Kind: KindInvalidState, Message: message}
}

// AuthRejected reports that the backend refused the credentials.
func AuthRejected(reason string, cause error) *Error {
	if reason == "" {
		reason = "Invalid credentials"
	}
	return &Error{Kind: KindAuthRejected, Message: reason, Err: cause}
}

// RemoteUnavailable reports a transport or backend failure.
func RemoteUnavailable(reason string, cause error) *Error {
	if reason == "" {
		reason = "Messaging service unavailable"
	}
	return &Error{Kind: KindRemoteUnavailable, Message: reason, Err: cause}
}

// Unauthenticated reports a missing or revoked session.
func Unauthenticated(cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: ErrUnauthenticated.Message, Err: cause}
}

// KindOf returns the kind of a typed error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
