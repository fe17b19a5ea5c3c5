package gateway

import (
	notifier "github.com/uber/lint-lsp/src/ulint/gateway/ide-client"
	lintdaemon "github.com/uber/lint-lsp/src/ulint/gateway/lint-daemon"
	"go.uber.org/fx"
)

// Module provides the outbound gateways: the IDE notifier and the analysis daemon.
var Module = fx.Options(
	notifier.Module,
	lintdaemon.Module,
)
