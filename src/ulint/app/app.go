package app

import (
	"context"
	"time"

	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/gateway"
	"github.com/uber/lint-lsp/src/ulint/handler"
	"github.com/uber/lint-lsp/src/ulint/internal/clock"
	"github.com/uber/lint-lsp/src/ulint/internal/core"
	"github.com/uber/lint-lsp/src/ulint/internal/executor"
	"github.com/uber/lint-lsp/src/ulint/internal/fs"
	"github.com/uber/lint-lsp/src/ulint/internal/jsonrpcfx"
	"github.com/uber/lint-lsp/src/ulint/internal/progress"
	"github.com/uber/lint-lsp/src/ulint/internal/serverinfofile"
	"go.uber.org/fx"
)

const _serviceName = "ulint"

// Module defines the ulint application module.
var Module = fx.Options(
	gateway.Module, // outbounds
	handler.Module, // inbounds
	jsonrpcfx.Module,
	fs.Module,
	executor.Module,
	clock.Module,
	progress.Module,
	serverinfofile.Module,
	core.ConfigModule,
	core.LoggerModule,
	core.LintConfigModule,
	fx.Provide(newRootScope),
)

func newRootScope(lc fx.Lifecycle) tally.Scope {
	rs, closer := tally.NewRootScope(tally.ScopeOptions{
		Tags: map[string]string{
			"service": _serviceName,
		},
	}, 1*time.Second)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return closer.Close()
		},
	})

	return rs
}
