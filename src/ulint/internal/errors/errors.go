package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

// Is is a passthrough to the standard library errors.Is.
func Is(err, target error) bool {
	return stderr.Is(err, target)
}

// As is a passthrough to the standard library errors.As.
func As(err error, target any) bool {
	return stderr.As(err, target)
}

var (
	// NoSessionError reports that no session UUID is present in the context.
	NoSessionError = New("no session found in context")
	// NotInitializedError reports that a session has not completed initialization.
	NotInitializedError = New("session is not initialized")
)

// IsUserFacing reports whether the error describes a condition the user can act on, and should be shown in the IDE.
func IsUserFacing(e error) bool {
	var notFound *ToolNotFoundError
	var cfg *ToolConfigurationError
	var failed *ToolFailedError
	return stderr.As(e, &notFound) || stderr.As(e, &cfg) || stderr.As(e, &failed)
}
