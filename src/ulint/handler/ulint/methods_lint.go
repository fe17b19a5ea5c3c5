package ulint

import (
	"context"

	"github.com/uber/lint-lsp/src/ulint/mapper"
	"go.lsp.dev/jsonrpc2"
)

// LintProject queues a project analysis. Results arrive as diagnostics notifications.
func (r *jsonRPCRouter) LintProject(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToLintProjectParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	err = r.ulint.LintProject(ctx, params)
	return reply(ctx, nil, err)
}

// Refresh drops cached project state before queueing a project analysis.
func (r *jsonRPCRouter) Refresh(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToLintProjectParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	err = r.ulint.Refresh(ctx, params)
	return reply(ctx, nil, err)
}
