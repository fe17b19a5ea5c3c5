package errors

import (
	stderr "errors"
	"fmt"
	"strings"
)

// ProcessFailureKind distinguishes how an external process was stopped.
type ProcessFailureKind int

const (
	// ProcessTimedOut indicates the process was killed after exceeding its timeout.
	ProcessTimedOut ProcessFailureKind = iota + 1
	// ProcessCancelled indicates the process was killed because its caller cancelled.
	ProcessCancelled
)

// String implements fmt.Stringer.
func (k ProcessFailureKind) String() string {
	switch k {
	case ProcessTimedOut:
		return "timed out"
	case ProcessCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ProcessError is returned when an external process was killed before completing.
// Output captured up to that point is preserved.
type ProcessError struct {
	Kind    ProcessFailureKind
	Command string
	Stdout  string
	Stderr  string
}

// Error is an implementation of the error interface.
func (e *ProcessError) Error() string {
	return fmt.Sprintf("process %q %s", e.Command, e.Kind)
}

// IsTimedOut reports whether a ProcessError with kind ProcessTimedOut is part of the error chain.
func IsTimedOut(e error) bool {
	var pe *ProcessError
	return stderr.As(e, &pe) && pe.Kind == ProcessTimedOut
}

// IsCancelled reports whether a ProcessError with kind ProcessCancelled is part of the error chain.
func IsCancelled(e error) bool {
	var pe *ProcessError
	return stderr.As(e, &pe) && pe.Kind == ProcessCancelled
}

// ToolNotFoundError indicates that no analysis tool executable could be found for a workspace.
type ToolNotFoundError struct {
	WorkspaceRoot string
	Candidates    []string
}

// Error is an implementation of the error interface.
func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("lint tool not found for workspace %q, looked for %q", e.WorkspaceRoot, e.Candidates)
}

// ToolConfigurationError indicates that the tool failed because of a problem with the project setup, recognized from its output.
type ToolConfigurationError struct {
	Problem string
	Hint    string
}

// Error is an implementation of the error interface.
func (e *ToolConfigurationError) Error() string {
	if e.Hint == "" {
		return e.Problem
	}
	return fmt.Sprintf("%s: %s", e.Problem, e.Hint)
}

// ToolFailedError indicates that the tool exited non-zero without producing any results.
type ToolFailedError struct {
	ExitCode int
	// Output holds the tail of the captured output.
	Output string
}

// Error is an implementation of the error interface.
func (e *ToolFailedError) Error() string {
	msg := fmt.Sprintf("lint tool exited with code %d and produced no report", e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}
