package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/lint-lsp/idl/mock/jsonrpc2mock"
	"github.com/uber/lint-lsp/src/ulint/factory"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestRegisterClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	g := New(zap.NewNop()).(*gateway)

	for i := 0; i < 10; i++ {
		var conn jsonrpc2.Conn = jsonrpc2mock.NewMockConn(ctrl)
		err := g.RegisterClient(ctx, factory.UUID(), &conn)
		assert.NoError(t, err)
	}
	assert.Len(t, g.clients, 10)
}

func TestDeregisterClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	g := New(zap.NewNop()).(*gateway)

	for i := 0; i < 10; i++ {
		var conn jsonrpc2.Conn = jsonrpc2mock.NewMockConn(ctrl)
		require.NoError(t, g.RegisterClient(ctx, factory.UUID(), &conn))
	}

	for key := range g.clients {
		assert.NoError(t, g.DeregisterClient(ctx, key))
		assert.Nil(t, g.clients[key])
	}
	assert.Len(t, g.clients, 0)
}

func TestProgress(t *testing.T) {
	g, mockConn, ctx := getTestGateway(t)

	params := &protocol.ProgressParams{
		Token: *protocol.NewNumberProgressToken(5),
		Value: &protocol.WorkDoneProgressReport{Kind: protocol.WorkDoneProgressKindReport, Message: "Linting Main.kt"},
	}

	t.Run("notification success", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(protocol.MethodProgress), gomock.Eq(params)).Return(nil)
		assert.NoError(t, g.Progress(ctx, params))
	})
	t.Run("notification failure", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(protocol.MethodProgress), gomock.Eq(params)).Return(errors.New("error"))
		assert.Error(t, g.Progress(ctx, params))
	})
	t.Run("invalid context", func(t *testing.T) {
		assert.Error(t, g.Progress(context.Background(), params))
	})
}

func TestWorkDoneProgressCreate(t *testing.T) {
	g, mockConn, ctx := getTestGateway(t)

	params := &protocol.WorkDoneProgressCreateParams{
		Token: *protocol.NewNumberProgressToken(5),
	}

	t.Run("call success", func(t *testing.T) {
		mockConn.EXPECT().Call(gomock.Eq(ctx), gomock.Eq(protocol.MethodWorkDoneProgressCreate), gomock.Eq(params), gomock.Any()).Return(jsonrpc2.NewNumberID(5), nil)
		assert.NoError(t, g.WorkDoneProgressCreate(ctx, params))
	})
	t.Run("call failure", func(t *testing.T) {
		mockConn.EXPECT().Call(gomock.Eq(ctx), gomock.Eq(protocol.MethodWorkDoneProgressCreate), gomock.Eq(params), gomock.Any()).Return(jsonrpc2.NewNumberID(5), errors.New("error"))
		assert.Error(t, g.WorkDoneProgressCreate(ctx, params))
	})
	t.Run("client not found", func(t *testing.T) {
		ctx := mapper.SessionUUIDToContext(context.Background(), factory.UUID())
		assert.Error(t, g.WorkDoneProgressCreate(ctx, params))
	})
}

func TestPublishDiagnostics(t *testing.T) {
	g, mockConn, ctx := getTestGateway(t)

	params := &protocol.PublishDiagnosticsParams{
		URI:         "file:///home/user/app/Main.kt",
		Diagnostics: []protocol.Diagnostic{},
	}

	t.Run("notification success", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(protocol.MethodTextDocumentPublishDiagnostics), gomock.Eq(params)).Return(nil)
		assert.NoError(t, g.PublishDiagnostics(ctx, params))
	})
	t.Run("notification failure", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(protocol.MethodTextDocumentPublishDiagnostics), gomock.Eq(params)).Return(errors.New("error"))
		assert.Error(t, g.PublishDiagnostics(ctx, params))
	})
	t.Run("invalid context", func(t *testing.T) {
		assert.Error(t, g.PublishDiagnostics(context.Background(), params))
	})
	t.Run("client not found", func(t *testing.T) {
		ctx := mapper.SessionUUIDToContext(context.Background(), factory.UUID())
		assert.ErrorContains(t, g.PublishDiagnostics(ctx, params), "not found")
	})
}

func TestShowMessage(t *testing.T) {
	g, mockConn, ctx := getTestGateway(t)

	params := &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: "Android SDK location not found",
	}

	t.Run("notification success", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(protocol.MethodWindowShowMessage), gomock.Eq(params)).Return(nil)
		assert.NoError(t, g.ShowMessage(ctx, params))
	})
	t.Run("notification failure", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(protocol.MethodWindowShowMessage), gomock.Eq(params)).Return(errors.New("error"))
		assert.Error(t, g.ShowMessage(ctx, params))
	})
	t.Run("invalid context", func(t *testing.T) {
		assert.Error(t, g.ShowMessage(context.Background(), params))
	})
}

func TestLogMessage(t *testing.T) {
	g, mockConn, ctx := getTestGateway(t)

	params := &protocol.LogMessageParams{
		Type:    protocol.MessageTypeLog,
		Message: "lint tool output",
	}

	t.Run("notification success", func(t *testing.T) {
		mockConn.EXPECT().Notify(gomock.Eq(ctx), gomock.Eq(protocol.MethodWindowLogMessage), gomock.Eq(params)).Return(nil)
		assert.NoError(t, g.LogMessage(ctx, params))
	})
	t.Run("invalid context", func(t *testing.T) {
		assert.Error(t, g.LogMessage(context.Background(), params))
	})
}

func getTestGateway(t *testing.T) (Gateway, *jsonrpc2mock.MockConn, context.Context) {
	id := factory.UUID()
	ctx := mapper.SessionUUIDToContext(context.Background(), id)
	ctrl := gomock.NewController(t)

	mockConn := jsonrpc2mock.NewMockConn(ctrl)
	var conn jsonrpc2.Conn = mockConn
	g := New(zap.NewNop())
	require.NoError(t, g.RegisterClient(ctx, id, &conn))
	return g, mockConn, ctx
}
