package mapper

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/uber/lint-lsp/src/ulint/entity"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"go.lsp.dev/jsonrpc2"
)

// UUIDToSession initializes a new Session entity with the assigned uuid and connection.
func UUIDToSession(u uuid.UUID, c *jsonrpc2.Conn) *entity.Session {
	return &entity.Session{
		UUID: u,
		Conn: c,
	}
}

// ContextToSessionUUID returns the session UUID stored in the context.
func ContextToSessionUUID(c context.Context) (uuid.UUID, error) {
	s, ok := c.Value(entity.SessionContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, ulinterrors.NoSessionError
	}
	return s, nil
}

// SessionUUIDToContext returns a copy of ctx carrying the session UUID.
func SessionUUIDToContext(c context.Context, id uuid.UUID) context.Context {
	return context.WithValue(c, entity.SessionContextKey, id)
}
