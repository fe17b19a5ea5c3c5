package orchestrator

//go:generate mockgen -source=orchestrator.go -destination=orchestratormock/orchestrator_mock.go -package=orchestratormock

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/uber-go/tally"
	processrunner "github.com/uber/lint-lsp/src/ulint/controller/process-runner"
	"github.com/uber/lint-lsp/src/ulint/controller/report"
	"github.com/uber/lint-lsp/src/ulint/entity"
	lintdaemon "github.com/uber/lint-lsp/src/ulint/gateway/lint-daemon"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/internal/executor"
	"github.com/uber/lint-lsp/src/ulint/internal/fs"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	_nameKey = "orchestrator"

	_argContinue         = "--continue"
	_argOffline          = "--offline"
	_argSkipVerification = "--dependency-verification=off"

	// Number of trailing output bytes kept in a ToolFailedError.
	_outputTailBytes = 2048
)

// Module provides the analysis orchestrator.
var Module = fx.Options(
	fx.Provide(New),
)

// Orchestrator decides which backend serves an analysis and returns normalized issues.
type Orchestrator interface {
	// LintFile analyzes a single file. dirtyContent holds unsaved editor content, if any.
	LintFile(ctx context.Context, workspaceRoot string, filePath string, dirtyContent *string) ([]entity.Issue, error)
	// LintProject analyzes the whole project.
	LintProject(ctx context.Context, workspaceRoot string) ([]entity.Issue, error)
	// Refresh drops cached state for the project so that the next analysis picks up build changes.
	Refresh(ctx context.Context, workspaceRoot string) error
}

// Params are the dependencies of the orchestrator.
type Params struct {
	fx.In

	Config entity.LintConfig
	Runner processrunner.Runner
	Daemon lintdaemon.Client
	Parser report.Parser
	FS     fs.UlintFS
	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type orchestrator struct {
	mode   entity.Mode
	tool   entity.ToolConfig
	runner processrunner.Runner
	daemon lintdaemon.Client
	parser report.Parser
	fs     fs.UlintFS
	logger *zap.SugaredLogger
	stats  tally.Scope

	initGroup singleflight.Group
}

// New creates an Orchestrator.
func New(p Params) Orchestrator {
	return &orchestrator{
		mode:   p.Config.Mode,
		tool:   p.Config.Tool,
		runner: p.Runner,
		daemon: p.Daemon,
		parser: p.Parser,
		fs:     p.FS,
		logger: p.Logger.With("plugin", _nameKey),
		stats:  p.Stats.SubScope(_nameKey),
	}
}

func (o *orchestrator) LintFile(ctx context.Context, workspaceRoot string, filePath string, dirtyContent *string) ([]entity.Issue, error) {
	return o.lint(ctx, entity.FileSubject(workspaceRoot, filePath), dirtyContent)
}

func (o *orchestrator) LintProject(ctx context.Context, workspaceRoot string) ([]entity.Issue, error) {
	return o.lint(ctx, entity.ProjectSubject(workspaceRoot), nil)
}

func (o *orchestrator) Refresh(ctx context.Context, workspaceRoot string) error {
	o.runner.Forget(workspaceRoot)
	if !o.useDaemon() || !o.daemon.IsReady() {
		return nil
	}

	if err := o.daemon.ClearCache(ctx); err != nil {
		return fmt.Errorf("clearing daemon cache: %w", err)
	}
	if _, err := o.daemon.Initialize(ctx, workspaceRoot); err != nil {
		return fmt.Errorf("re-initializing daemon for %q: %w", workspaceRoot, err)
	}
	return nil
}

func (o *orchestrator) useDaemon() bool {
	switch o.mode {
	case entity.ModeServer:
		return true
	case entity.ModeAuto:
		return o.daemon.Configured()
	default:
		return false
	}
}

func (o *orchestrator) lint(ctx context.Context, subject entity.Subject, dirtyContent *string) ([]entity.Issue, error) {
	if o.useDaemon() {
		issues, err := o.lintWithDaemon(ctx, subject, dirtyContent)
		if err == nil {
			o.stats.Counter("daemon").Inc(1)
			return issues, nil
		}
		if o.mode == entity.ModeServer || ctx.Err() != nil {
			return nil, err
		}

		o.stats.Counter("fallback").Inc(1)
		o.logger.Warnw("daemon analysis failed, falling back to the batch tool", "subject", subject.Key(), "error", err)
	}

	issues, err := o.lintWithTool(ctx, subject)
	if err != nil {
		return nil, err
	}
	o.stats.Counter("batch").Inc(1)
	return issues, nil
}

func (o *orchestrator) lintWithDaemon(ctx context.Context, subject entity.Subject, dirtyContent *string) ([]entity.Issue, error) {
	if err := o.ensureDaemon(ctx, subject.WorkspaceRoot); err != nil {
		return nil, err
	}

	var (
		raw []lintdaemon.Issue
		err error
	)
	if subject.IsProject() {
		raw, err = o.daemon.AnalyzeProject(ctx)
	} else {
		raw, err = o.daemon.AnalyzeFile(ctx, subject.FilePath, dirtyContent)
	}
	if err != nil {
		return nil, err
	}
	return mapper.DaemonIssuesToIssues(subject.WorkspaceRoot, raw), nil
}

// ensureDaemon starts the daemon and initializes it for workspaceRoot unless it already is.
// Concurrent initializations of the same project share one request.
func (o *orchestrator) ensureDaemon(ctx context.Context, workspaceRoot string) error {
	if err := o.daemon.Start(ctx); err != nil {
		return err
	}
	if o.daemon.Project() == workspaceRoot {
		return nil
	}

	// The shared flight must outlive any single caller giving up.
	flightCtx := context.WithoutCancel(ctx)
	ch := o.initGroup.DoChan(workspaceRoot, func() (interface{}, error) {
		if o.daemon.Project() == workspaceRoot {
			return nil, nil
		}
		_, err := o.daemon.Initialize(flightCtx, workspaceRoot)
		return nil, err
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (o *orchestrator) lintWithTool(ctx context.Context, subject entity.Subject) ([]entity.Issue, error) {
	root := subject.WorkspaceRoot
	reportPath := entity.ResolvePath(root, o.tool.ReportPath)
	if err := o.fs.Remove(reportPath); err != nil {
		return nil, fmt.Errorf("removing stale lint report: %w", err)
	}

	timeout := o.tool.ProjectTimeout
	if !subject.IsProject() {
		timeout = o.tool.FileTimeout
	}

	result, err := o.runner.Run(ctx, root, o.toolArgs(), processrunner.RunOptions{Timeout: timeout})
	if err != nil {
		return nil, err
	}

	issues, err := o.parser.ParseFile(ctx, reportPath, root)
	if err != nil && !errors.Is(err, report.ErrNoReport) {
		return nil, err
	}

	if len(issues) == 0 && result.ExitCode != 0 {
		return nil, classifyFailure(result)
	}
	if result.ExitCode != 0 {
		o.logger.Infow("lint tool exited non-zero but produced a report", "workspace", root, "exitCode", result.ExitCode, "issues", len(issues))
	}

	if subject.IsProject() {
		return issues, nil
	}
	return filterFile(issues, subject.FilePath), nil
}

func (o *orchestrator) toolArgs() []string {
	args := []string{o.tool.Task, _argContinue}
	if o.tool.Offline {
		args = append(args, _argOffline)
	}
	if o.tool.SkipDependencyCheck {
		args = append(args, _argSkipVerification)
	}
	return args
}

// classifyFailure recognizes common project setup problems in the tool's output.
func classifyFailure(result executor.Result) error {
	output := result.Stdout + "\n" + result.Stderr
	switch {
	case strings.Contains(output, "SDK location not found"), strings.Contains(output, "ANDROID_HOME"):
		return &ulinterrors.ToolConfigurationError{
			Problem: "Android SDK location not found",
			Hint:    "set sdk.dir in local.properties or the ANDROID_HOME environment variable",
		}
	case strings.Contains(output, "Could not resolve"):
		return &ulinterrors.ToolConfigurationError{
			Problem: "project dependencies could not be resolved",
			Hint:    "check network access and repository configuration, or enable offline mode",
		}
	default:
		return &ulinterrors.ToolFailedError{
			ExitCode: result.ExitCode,
			Output:   tail(strings.TrimSpace(output), _outputTailBytes),
		}
	}
}

func filterFile(issues []entity.Issue, filePath string) []entity.Issue {
	target := filepath.Clean(filePath)
	result := make([]entity.Issue, 0, len(issues))
	for _, issue := range issues {
		if filepath.Clean(issue.FilePath) == target {
			result = append(result, issue)
		}
	}
	return result
}

// tail returns at most the last n bytes of s without splitting a rune.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
