package handler

import (
	controller "github.com/uber/lint-lsp/src/ulint/controller"
	ulintctrl "github.com/uber/lint-lsp/src/ulint/controller/ulint"
	handler "github.com/uber/lint-lsp/src/ulint/handler/ulint"
	"github.com/uber/lint-lsp/src/ulint/repository/session"
	"go.uber.org/fx"
)

// Module provides the ulint server into an Fx application.
var Module = fx.Options(
	controller.Module,
	session.Module,
	fx.Provide(handler.New),
	fx.Invoke(func(m handler.Handler) {}),
	fx.Invoke(func(m ulintctrl.Controller) {}),
)
