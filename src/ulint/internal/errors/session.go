package errors

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// UUIDNotFoundError indicates that no session is stored for the UUID.
type UUIDNotFoundError struct {
	UUID uuid.UUID
}

// Error is an implementation of the error interface.
func (e *UUIDNotFoundError) Error() string {
	return fmt.Sprintf("session with uuid %q not found", e.UUID)
}
