package errors

import (
	stderr "errors"
	"fmt"
	"time"
)

// ServerStoppedError indicates that the analysis daemon is not running, or exited while a call was pending.
type ServerStoppedError struct {
	Reason error
}

// Error is an implementation of the error interface.
func (e *ServerStoppedError) Error() string {
	if e.Reason == nil {
		return "lint daemon is not running"
	}
	return fmt.Sprintf("lint daemon stopped: %v", e.Reason)
}

// Unwrap returns the underlying reason.
func (e *ServerStoppedError) Unwrap() error {
	return e.Reason
}

// IsServerStopped reports whether a ServerStoppedError is part of the error chain.
func IsServerStopped(e error) bool {
	var ss *ServerStoppedError
	return stderr.As(e, &ss)
}

// RequestTimeoutError indicates that the daemon did not answer a request in time.
type RequestTimeoutError struct {
	Method  string
	ID      int64
	Timeout time.Duration
}

// Error is an implementation of the error interface.
func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("lint daemon request %q (id %d) timed out after %v", e.Method, e.ID, e.Timeout)
}

// StartupTimeoutError indicates that the daemon did not report readiness in time.
type StartupTimeoutError struct {
	Timeout time.Duration
}

// Error is an implementation of the error interface.
func (e *StartupTimeoutError) Error() string {
	return fmt.Sprintf("lint daemon not ready after %v", e.Timeout)
}

// RPCError is an error response returned by the daemon.
type RPCError struct {
	Method  string
	Message string
}

// Error is an implementation of the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("lint daemon %q failed: %s", e.Method, e.Message)
}

// MalformedMessageError describes a line on the daemon wire that could not be decoded.
type MalformedMessageError struct {
	Line string
	Err  error
}

// Error is an implementation of the error interface.
func (e *MalformedMessageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed daemon message %q", e.Line)
	}
	return fmt.Sprintf("malformed daemon message %q: %v", e.Line, e.Err)
}

// Unwrap returns the decoding error.
func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}
