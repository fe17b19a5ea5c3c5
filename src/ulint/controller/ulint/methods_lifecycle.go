package ulint

import (
	"context"
	"errors"
	"fmt"

	"github.com/uber/lint-lsp/src/ulint/entity"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"go.lsp.dev/protocol"
)

var errNoWorkspaceRoot = errors.New("initialize params do not name a local workspace folder")

// Initialize records the session's workspace and advertises full document sync.
func (c *controller) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting session from context: %w", err)
	}

	root, ok := mapper.InitializeParamsToWorkspaceRoot(params)
	if !ok {
		return nil, errNoWorkspaceRoot
	}
	s.WorkspaceRoot = root
	if params.ClientInfo != nil {
		s.ClientName = params.ClientInfo.Name
	}

	if err := c.sessions.Set(ctx, s); err != nil {
		return nil, fmt.Errorf("setting updated session state: %w", err)
	}
	c.logger.Infow("session initialized", "session", s.UUID, "workspace", root, "client", s.ClientName)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: false,
				},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name: _serverName,
		},
	}, nil
}

// Initialized starts watching the workspace and queues a first project analysis.
func (c *controller) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return fmt.Errorf("getting session from context: %w", err)
	}
	if s.WorkspaceRoot == "" {
		return ulinterrors.NotInitializedError
	}

	s.Initialized = true
	if err := c.sessions.Set(ctx, s); err != nil {
		return fmt.Errorf("setting updated session state: %w", err)
	}

	if err := c.buildWatcher.Watch(ctx, s.WorkspaceRoot); err != nil {
		c.logger.Warnw("watching build files", "workspace", s.WorkspaceRoot, "error", err)
	}

	// Another session may already have results for this workspace.
	if err := c.diagnostics.Resend(ctx); err != nil {
		c.logger.Warnw("resending known diagnostics", "session", s.UUID, "error", err)
	}

	c.coalescer.Submit(entity.ProjectSubject(s.WorkspaceRoot), nil)
	return nil
}

// Shutdown is sent just before Exit. Session cleanup happens on exit or when the connection closes.
func (c *controller) Shutdown(ctx context.Context) error {
	if _, err := c.sessions.GetFromContext(ctx); err != nil {
		return fmt.Errorf("getting session from context: %w", err)
	}
	return nil
}

// Exit will be used to either clean up from an individual connection, or shutdown the whole server.
func (c *controller) Exit(ctx context.Context) error {
	c.idleTimerMu.Lock()
	full := c.fullShutdown
	c.idleTimerMu.Unlock()

	if full {
		c.shutdown()
		return nil
	}

	id, err := mapper.ContextToSessionUUID(ctx)
	if err != nil {
		return fmt.Errorf("error during session exit: %w", err)
	}
	return c.EndSession(ctx, id)
}
