package ulint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/factory"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/mock/gomock"
)

const _file = _root + "/app/src/main/java/Main.kt"

func TestDidOpen(t *testing.T) {
	c, deps := newTestController(t)
	ctx := addSession(t, deps, &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root, Initialized: true})

	deps.coalescer.EXPECT().Submit(entity.FileSubject(_root, _file), nil).Return(entity.AnalysisRequest{ID: 1})
	assert.NoError(t, c.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri.File(_file), Text: "fun main() {}"},
	}))

	t.Run("outside of workspace", func(t *testing.T) {
		assert.NoError(t, c.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{URI: uri.File("/home/user/other/Main.kt")},
		}))
	})

	t.Run("not a file", func(t *testing.T) {
		assert.NoError(t, c.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{URI: "untitled:Untitled-1"},
		}))
	})
}

func TestDidChange(t *testing.T) {
	c, deps := newTestController(t)
	ctx := addSession(t, deps, &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root, Initialized: true})

	deps.coalescer.EXPECT().Submit(entity.FileSubject(_root, _file), gomock.Any()).DoAndReturn(func(subject entity.Subject, dirty *string) entity.AnalysisRequest {
		if assert.NotNil(t, dirty) {
			assert.Equal(t, "second", *dirty)
		}
		return entity.AnalysisRequest{ID: 1, DirtyContent: dirty}
	})

	params := &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri.File(_file)},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: "first"},
			{Text: "second"},
		},
	}
	assert.NoError(t, c.DidChange(ctx, params))

	t.Run("no changes", func(t *testing.T) {
		params.ContentChanges = nil
		assert.NoError(t, c.DidChange(ctx, params))
	})
}

func TestDidSave(t *testing.T) {
	c, deps := newTestController(t)
	ctx := addSession(t, deps, &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root, Initialized: true})

	deps.coalescer.EXPECT().Submit(entity.FileSubject(_root, _file), nil).Return(entity.AnalysisRequest{ID: 1})
	assert.NoError(t, c.DidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(_file)},
	}))
}

func TestDidClose(t *testing.T) {
	c, deps := newTestController(t)
	ctx := addSession(t, deps, &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root, Initialized: true})

	assert.NoError(t, c.DidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(_file)},
	}))
	assert.Error(t, c.DidClose(context.Background(), &protocol.DidCloseTextDocumentParams{}))
}

func TestDocumentBeforeInitialized(t *testing.T) {
	c, deps := newTestController(t)
	ctx := addSession(t, deps, &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root})

	err := c.DidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri.File(_file)},
	})
	assert.ErrorIs(t, err, ulinterrors.NotInitializedError)

	err = c.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri.File(_file)},
	})
	assert.ErrorIs(t, err, ulinterrors.NoSessionError)
}
