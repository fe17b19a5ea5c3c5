package processrunner

//go:generate mockgen -source=process_runner.go -destination=processrunnermock/process_runner_mock.go -package=processrunnermock

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/internal/clock"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/internal/executor"
	"github.com/uber/lint-lsp/src/ulint/internal/fs"
	"github.com/uber/lint-lsp/src/ulint/internal/logfilewriter"
	"github.com/uber/lint-lsp/src/ulint/internal/serverinfofile"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_nameKey        = "process-runner"
	_toolLogName    = "ulint-tool"
	_toolCacheSize  = 128
	_windowsWrapper = ".bat"
)

// Module provides the batch tool runner.
var Module = fx.Options(
	fx.Provide(New),
)

// Runner starts the external batch tool for a workspace and tracks the helper processes it leaves behind.
type Runner interface {
	// Run executes the workspace's tool with args. ctx cancels the run.
	// A non-zero exit is reported in the Result and is not an error.
	Run(ctx context.Context, workspaceRoot string, args []string, opts RunOptions) (executor.Result, error)
	// ResolveTool returns the tool executable for a workspace.
	ResolveTool(workspaceRoot string) (string, error)
	// Forget drops the cached tool resolution for a workspace.
	Forget(workspaceRoot string)
	// WorkspaceState returns a snapshot of the workspace's helper state.
	WorkspaceState(workspaceRoot string) WorkspaceState
	// Evict stops an idle workspace's helper processes immediately, cancelling any pending eviction.
	Evict(workspaceRoot string) error
	// Shutdown cancels pending evictions and stops helpers in every workspace.
	Shutdown(ctx context.Context) error
}

// RunOptions configure a single run.
type RunOptions struct {
	// Timeout kills the process once elapsed. Zero means no timeout beyond ctx.
	Timeout time.Duration
	// Observer receives output lines as they are produced.
	Observer executor.LineObserver
}

// State is the helper lifecycle state of a workspace.
type State int

const (
	// StateIdle means no command is running and no eviction is scheduled.
	StateIdle State = iota
	// StateBusy means at least one command is running.
	StateBusy
	// StatePendingEviction means the last command ended and helpers will be stopped at the deadline.
	StatePendingEviction
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StatePendingEviction:
		return "pending eviction"
	default:
		return "unknown"
	}
}

// WorkspaceState is a snapshot of a workspace's helper state.
type WorkspaceState struct {
	WorkspaceRoot string
	Running       int
	State         State
	// Deadline is set in StatePendingEviction.
	Deadline time.Time
}

// Params are the dependencies of the runner.
type Params struct {
	fx.In

	Config         entity.LintConfig
	Executor       executor.Executor
	FS             fs.UlintFS
	Clock          clock.Clock
	Logger         *zap.SugaredLogger
	Stats          tally.Scope
	Lifecycle      fx.Lifecycle
	ServerInfoFile serverinfofile.ServerInfoFile
}

type workspace struct {
	root     string
	running  int
	state    State
	deadline time.Time
	timer    clock.Timer
	// gen invalidates timers armed before the latest state change.
	gen uint64
	// helpersAlive is set once a command ran and cleared when helpers are stopped.
	helpersAlive bool
}

type runner struct {
	tool     entity.ToolConfig
	eviction entity.EvictionConfig
	executor executor.Executor
	fs       fs.UlintFS
	clock    clock.Clock
	logger   *zap.SugaredLogger
	stats    tally.Scope
	toolLog  logfilewriter.ToolLog
	tools    *lru.Cache[string, string]

	mu         sync.Mutex
	workspaces map[string]*workspace
}

// New creates a Runner whose tool output is also written to a log file advertised in the server info file.
func New(p Params) (Runner, error) {
	toolLog, err := logfilewriter.New(logfilewriter.Params{
		FS:             p.FS,
		Lifecycle:      p.Lifecycle,
		ServerInfoFile: p.ServerInfoFile,
	}, _toolLogName)
	if err != nil {
		return nil, fmt.Errorf("setting up tool log: %w", err)
	}

	r, err := newRunner(p.Config, p.Executor, p.FS, p.Clock, p.Logger, p.Stats, toolLog)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: r.Shutdown,
	})
	return r, nil
}

func newRunner(cfg entity.LintConfig, ex executor.Executor, ulintfs fs.UlintFS, clk clock.Clock, logger *zap.SugaredLogger, stats tally.Scope, toolLog logfilewriter.ToolLog) (*runner, error) {
	tools, err := lru.New[string, string](_toolCacheSize)
	if err != nil {
		return nil, err
	}

	return &runner{
		tool:       cfg.Tool,
		eviction:   cfg.Eviction,
		executor:   ex,
		fs:         ulintfs,
		clock:      clk,
		logger:     logger.With("plugin", _nameKey),
		stats:      stats.SubScope("process_runner"),
		toolLog:    toolLog,
		tools:      tools,
		workspaces: make(map[string]*workspace),
	}, nil
}

func (r *runner) ResolveTool(workspaceRoot string) (string, error) {
	if tool, ok := r.tools.Get(workspaceRoot); ok {
		return tool, nil
	}

	candidates := r.toolCandidates(workspaceRoot)
	for _, candidate := range candidates {
		exists, err := r.fs.FileExists(candidate)
		if err != nil {
			return "", fmt.Errorf("checking for lint tool %q: %w", candidate, err)
		}
		if exists {
			r.tools.Add(workspaceRoot, candidate)
			return candidate, nil
		}
	}

	// Not cached, so that a wrapper generated later is picked up.
	return "", &ulinterrors.ToolNotFoundError{WorkspaceRoot: workspaceRoot, Candidates: candidates}
}

func (r *runner) toolCandidates(workspaceRoot string) []string {
	if override := r.tool.ExecutableOverride; override != "" {
		return []string{entity.ResolvePath(workspaceRoot, override)}
	}

	wrapper := filepath.Join(workspaceRoot, r.tool.Wrapper)
	if runtime.GOOS == "windows" {
		return []string{wrapper + _windowsWrapper, wrapper}
	}
	return []string{wrapper}
}

func (r *runner) Forget(workspaceRoot string) {
	r.tools.Remove(workspaceRoot)
}

func (r *runner) Run(ctx context.Context, workspaceRoot string, args []string, opts RunOptions) (executor.Result, error) {
	tool, err := r.ResolveTool(workspaceRoot)
	if err != nil {
		return executor.Result{ExitCode: -1}, err
	}

	r.commandStarted(workspaceRoot)
	defer r.commandEnded(workspaceRoot)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = workspaceRoot
	cmd.Env = os.Environ()

	observer := func(stream executor.StreamName, line string) {
		r.toolLog.Line(workspaceRoot, string(stream), line)
		if opts.Observer != nil {
			opts.Observer(stream, line)
		}
	}

	r.stats.Counter("runs").Inc(1)
	result, err := r.executor.Stream(ctx, cmd, observer)
	if err != nil {
		r.stats.Counter("run_errors").Inc(1)
		return result, fmt.Errorf("running lint tool %q: %w", tool, err)
	}
	r.stats.Timer("run_duration").Record(result.Duration)

	command := strings.Join(append([]string{filepath.Base(tool)}, args...), " ")
	switch result.Outcome {
	case executor.TimedOut:
		r.stats.Counter("timed_out").Inc(1)
		r.logger.Warnw("lint tool timed out", "workspace", workspaceRoot, "command", command, "timeout", opts.Timeout)
		return result, &ulinterrors.ProcessError{Kind: ulinterrors.ProcessTimedOut, Command: command, Stdout: result.Stdout, Stderr: result.Stderr}
	case executor.Cancelled:
		r.stats.Counter("cancelled").Inc(1)
		return result, &ulinterrors.ProcessError{Kind: ulinterrors.ProcessCancelled, Command: command, Stdout: result.Stdout, Stderr: result.Stderr}
	}

	r.logger.Infow("lint tool finished", "workspace", workspaceRoot, "exitCode", result.ExitCode, "duration", result.Duration)
	return result, nil
}

// commandStarted moves the workspace to busy, cancelling any pending eviction.
func (r *runner) commandStarted(workspaceRoot string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[workspaceRoot]
	if !ok {
		ws = &workspace{root: workspaceRoot}
		r.workspaces[workspaceRoot] = ws
	}

	if ws.state == StatePendingEviction {
		ws.timer.Stop()
		ws.timer = nil
		ws.deadline = time.Time{}
		r.logger.Debugw("pending eviction cancelled", "workspace", workspaceRoot)
	}
	ws.gen++
	ws.running++
	ws.state = StateBusy
	ws.helpersAlive = true
}

// commandEnded arms the eviction timer once the last command of a workspace finishes.
func (r *runner) commandEnded(workspaceRoot string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws := r.workspaces[workspaceRoot]
	ws.running--
	if ws.running > 0 {
		return
	}

	ws.gen++
	if !r.eviction.Enabled {
		ws.state = StateIdle
		return
	}

	gen := ws.gen
	ws.state = StatePendingEviction
	ws.deadline = r.clock.Now().Add(r.eviction.Window)
	ws.timer = r.clock.AfterFunc(r.eviction.Window, func() { r.evictIdle(workspaceRoot, gen) })
}

func (r *runner) evictIdle(workspaceRoot string, gen uint64) {
	r.mu.Lock()
	ws := r.workspaces[workspaceRoot]
	if ws == nil || ws.state != StatePendingEviction || ws.gen != gen {
		r.mu.Unlock()
		return
	}
	ws.state = StateIdle
	ws.timer = nil
	ws.deadline = time.Time{}
	ws.helpersAlive = false
	r.mu.Unlock()

	r.logger.Infow("evicting idle workspace helpers", "workspace", workspaceRoot, "window", r.eviction.Window)
	if err := r.stopHelpers(workspaceRoot); err != nil {
		r.logger.Warnw("stopping idle workspace helpers", "workspace", workspaceRoot, "error", err)
	}
}

func (r *runner) Evict(workspaceRoot string) error {
	r.mu.Lock()
	ws := r.workspaces[workspaceRoot]
	if ws == nil || !ws.helpersAlive {
		r.mu.Unlock()
		return nil
	}
	if ws.running > 0 {
		r.mu.Unlock()
		return fmt.Errorf("workspace %q has %d running commands", workspaceRoot, ws.running)
	}
	if ws.timer != nil {
		ws.timer.Stop()
	}
	ws.gen++
	ws.state = StateIdle
	ws.timer = nil
	ws.deadline = time.Time{}
	ws.helpersAlive = false
	r.mu.Unlock()

	return r.stopHelpers(workspaceRoot)
}

func (r *runner) stopHelpers(workspaceRoot string) error {
	tool, err := r.ResolveTool(workspaceRoot)
	if err != nil {
		return err
	}

	cmd := exec.Command(tool, r.tool.StopArgs...)
	cmd.Dir = workspaceRoot
	if err := r.executor.RunCommand(cmd, os.Environ()); err != nil {
		return fmt.Errorf("stopping helpers in %q: %w", workspaceRoot, err)
	}
	r.stats.Counter("evictions").Inc(1)
	return nil
}

func (r *runner) WorkspaceState(workspaceRoot string) WorkspaceState {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[workspaceRoot]
	if !ok {
		return WorkspaceState{WorkspaceRoot: workspaceRoot, State: StateIdle}
	}
	return WorkspaceState{
		WorkspaceRoot: workspaceRoot,
		Running:       ws.running,
		State:         ws.state,
		Deadline:      ws.deadline,
	}
}

func (r *runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	var roots []string
	for root, ws := range r.workspaces {
		if ws.timer != nil {
			ws.timer.Stop()
			ws.timer = nil
		}
		ws.gen++
		if ws.running == 0 {
			ws.state = StateIdle
			ws.deadline = time.Time{}
		}
		if ws.helpersAlive {
			ws.helpersAlive = false
			roots = append(roots, root)
		}
	}
	r.mu.Unlock()

	var errs error
	for _, root := range roots {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		errs = multierr.Append(errs, r.stopHelpers(root))
	}
	return errs
}
