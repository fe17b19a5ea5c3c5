package ulint

import (
	"context"
	"fmt"

	"github.com/uber/lint-lsp/src/ulint/entity"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// DidOpen queues an analysis of the opened file.
func (c *controller) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	subject, ok, err := c.fileSubject(ctx, params.TextDocument.URI)
	if err != nil || !ok {
		return err
	}
	c.coalescer.Submit(subject, nil)
	return nil
}

// DidChange queues an analysis of the unsaved document content.
func (c *controller) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	subject, ok, err := c.fileSubject(ctx, params.TextDocument.URI)
	if err != nil || !ok {
		return err
	}

	content, ok := mapper.FullContent(params.ContentChanges)
	if !ok {
		return nil
	}
	c.coalescer.Submit(subject, &content)
	return nil
}

// DidSave queues an analysis of the file as saved on disk.
func (c *controller) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	subject, ok, err := c.fileSubject(ctx, params.TextDocument.URI)
	if err != nil || !ok {
		return err
	}
	c.coalescer.Submit(subject, nil)
	return nil
}

// DidClose needs no action. Diagnostics of closed files stay until the next analysis covering them.
func (c *controller) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	if _, err := c.sessions.GetFromContext(ctx); err != nil {
		return fmt.Errorf("getting session from context: %w", err)
	}
	return nil
}

// fileSubject maps a document of an initialized session to an analysis subject.
// Documents outside the workspace, or without a local path, are not analyzed.
func (c *controller) fileSubject(ctx context.Context, docURI uri.URI) (entity.Subject, bool, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return entity.Subject{}, false, fmt.Errorf("getting session from context: %w", err)
	}
	if !s.Initialized {
		return entity.Subject{}, false, ulinterrors.NotInitializedError
	}

	path, ok := mapper.URIToPath(docURI)
	if !ok || !entity.IsWithin(s.WorkspaceRoot, path) {
		c.logger.Debugw("ignoring document outside of workspace", "uri", docURI, "workspace", s.WorkspaceRoot)
		return entity.Subject{}, false, nil
	}
	return entity.FileSubject(s.WorkspaceRoot, path), true, nil
}
