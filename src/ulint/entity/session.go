package entity

import (
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
)

type keyType string

// SessionContextKey indicates the key to be used to identify the session UUID in the context.
const SessionContextKey keyType = "SessionUUID"

// Session entity representing a single IDE connection.
type Session struct {
	UUID          uuid.UUID      `json:"uuid" zap:"uuid"`
	Conn          *jsonrpc2.Conn `json:"-" zap:"-"`
	WorkspaceRoot string         `json:"workspaceRoot" zap:"workspaceRoot"`
	ClientName    string         `json:"clientName" zap:"clientName"`
	Initialized   bool           `json:"initialized" zap:"initialized"`
}
