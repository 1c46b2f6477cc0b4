package live

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes session failures.
type ErrorKind string

const (
	// KindPermissionDenied covers microphone or audio device acquisition
	// failures during start. The session resolves to Idle with no
	// partial resources retained.
	KindPermissionDenied ErrorKind = "permission_denied"
	// KindTransportOpen covers failures to open or confirm the duplex
	// channel during start. Handled like KindPermissionDenied.
	KindTransportOpen ErrorKind = "transport_open_failure"
	// KindTransportRuntime covers errors signaled after the session is
	// active. Terminal: the controller tears the session down.
	KindTransportRuntime ErrorKind = "transport_runtime_error"
	// KindRemoteClosed covers the remote endpoint closing the channel.
	// Handled like KindTransportRuntime.
	KindRemoteClosed ErrorKind = "transport_closed_by_remote"
)

// Error is a categorized session error.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is a session Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
