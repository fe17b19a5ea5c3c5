package ulint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/controller/ulint/ulintmock"
	"github.com/uber/lint-lsp/src/ulint/factory"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/mock/gomock"
)

func TestHandleReq(t *testing.T) {
	ctx := context.Background()
	m := jsonRPCRouter{stats: tally.NoopScope}

	request, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), "sampleMethod", []string{"val1", "val2"})
	err := m.HandleReq(ctx, newMockReplier(), request)
	assert.Error(t, err)
}

func TestHandleReqSessionContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := ulintmock.NewMockController(ctrl)
	id := factory.UUID()
	testScope := tally.NewTestScope("", nil)

	c.EXPECT().Shutdown(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		resultID, err := mapper.ContextToSessionUUID(ctx)
		assert.NoError(t, err)
		assert.Equal(t, id, resultID)
		return nil
	})

	r := jsonRPCRouter{ulint: c, uuid: id, stats: testScope}
	req := factory.JSONRPCRequest(protocol.MethodShutdown, nil)
	assert.NoError(t, r.HandleReq(context.Background(), newMockReplier(), req))

	counters := testScope.Snapshot().Counters()
	assert.Equal(t, int64(1), counters["requests+method="+protocol.MethodShutdown].Value())
}

func TestUUID(t *testing.T) {
	sampleUUID := factory.UUID()
	m := jsonRPCRouter{uuid: sampleUUID}
	assert.Equal(t, sampleUUID, m.UUID())
}
