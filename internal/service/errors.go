package service

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidToken      ErrorKind = "INVALID_TOKEN"
	KindInvalidSession    ErrorKind = "INVALID_SESSION"
	KindSessionExpired    ErrorKind = "SESSION_EXPIRED"
	KindConcurrentSession ErrorKind = "CONCURRENT_SESSION_DETECTED"
	KindStoreUnavailable  ErrorKind = "STORE_UNAVAILABLE"
	// KindInternal marks caller or signing faults that no retry can fix.
	KindInternal          ErrorKind = "INTERNAL"
)

// SessionError is the only error type returned by SessionManager. Compare
// with errors.Is against the Err* sentinels.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

var (
	ErrInvalidToken      = &SessionError{Kind: KindInvalidToken}
	ErrInvalidSession    = &SessionError{Kind: KindInvalidSession}
	ErrSessionExpired    = &SessionError{Kind: KindSessionExpired}
	ErrConcurrentSession = &SessionError{Kind: KindConcurrentSession}
	ErrStoreUnavailable  = &SessionError{Kind: KindStoreUnavailable}
	ErrInternal          = &SessionError{Kind: KindInternal}
)

func newSessionError(kind ErrorKind, err error) *SessionError {
	return &SessionError{Kind: kind, Err: err}
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	return ok && t.Kind == e.Kind
}

func (e *SessionError) Code() string { return string(e.Kind) }

// Transient reports whether the caller may retry the whole flow.
func (e *SessionError) Transient() bool { return e.Kind == KindStoreUnavailable }

// CodeOf returns the taxonomy code of err, or "" for foreign errors.
func CodeOf(err error) string {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Code()
	}
	return ""
}
