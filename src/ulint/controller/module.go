package controller

import (
	buildwatcher "github.com/uber/lint-lsp/src/ulint/controller/build-watcher"
	"github.com/uber/lint-lsp/src/ulint/controller/coalescer"
	"github.com/uber/lint-lsp/src/ulint/controller/diagnostics"
	"github.com/uber/lint-lsp/src/ulint/controller/orchestrator"
	processrunner "github.com/uber/lint-lsp/src/ulint/controller/process-runner"
	"github.com/uber/lint-lsp/src/ulint/controller/report"
	"github.com/uber/lint-lsp/src/ulint/controller/ulint"
	"go.uber.org/fx"
)

var Module = fx.Options(
	ulint.Module,
	diagnostics.Module,
	coalescer.Module,
	orchestrator.Module,
	report.Module,
	processrunner.Module,
	buildwatcher.Module,
)
