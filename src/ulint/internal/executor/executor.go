package executor

//go:generate mockgen -source=executor.go -destination=executormock/executor_mock.go -package=executormock

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// _defaultWaitDelay bounds how long Stream waits for output pipes held open by orphaned grandchildren after the process exits or is killed.
const _defaultWaitDelay = 5 * time.Second

// Module provides a module to inject using fx.
var Module = fx.Options(
	fx.Provide(func(logger *zap.SugaredLogger) Executor {
		return NewExecutor(WithLogger(logger.With("plugin", "executor")))
	}),
)

// Outcome describes how a streamed process ended.
type Outcome int

const (
	// Completed indicates the process exited on its own. Its exit code may still be non-zero.
	Completed Outcome = iota
	// TimedOut indicates the process was killed because its context deadline passed.
	TimedOut
	// Cancelled indicates the process was killed because its context was cancelled.
	Cancelled
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// StreamName identifies the output stream a line was read from.
type StreamName string

const (
	// Stdout is the process's standard output.
	Stdout StreamName = "stdout"
	// Stderr is the process's standard error.
	Stderr StreamName = "stderr"
)

// LineObserver receives each complete output line as it is produced.
// Lines from stdout and stderr may be delivered concurrently.
type LineObserver func(stream StreamName, line string)

// Result is the structured outcome of a streamed process.
// ExitCode is -1 when the process was killed or never started.
type Result struct {
	Outcome  Outcome
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor wraps the execution of "os/exec".Cmd's to allow adding logs/metrics to
// each exec and makes it easier to test.
type Executor interface {
	// RunCommand - logs and and executes the Cmd specified
	RunCommand(cmd *exec.Cmd, env []string) error
	// Stream - logs and executes the Cmd, delivering output lines to observer while also buffering them into the Result.
	// The Cmd must have been created with exec.CommandContext using ctx so that timeouts and cancellation kill it.
	// A non-zero exit is reported through Result.ExitCode, not as an error.
	Stream(ctx context.Context, cmd *exec.Cmd, observer LineObserver) (Result, error)
}

// executorImp implements Executor
type executorImp struct {
	Logger *zap.SugaredLogger
	// ExecFunc may be nil to use executorImp in tests.
	ExecFunc func(e *exec.Cmd) error
}

// Option defines options to customize executorImp's behavior
type Option func(*executorImp)

// WithLogger overrides the default noop logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(executor *executorImp) {
		executor.Logger = logger
	}
}

// WithExecFunc provides customized exec behavior for RunCommand
func WithExecFunc(execFunc func(e *exec.Cmd) error) Option {
	return func(executor *executorImp) {
		executor.ExecFunc = execFunc
	}
}

// NewExecutor - creates a new executorImp with a noop logger and a default executor function
func NewExecutor(opts ...Option) Executor {
	executor := &executorImp{
		Logger:   zap.NewNop().Sugar(),
		ExecFunc: func(cmd *exec.Cmd) error { return cmd.Run() },
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// RunCommand - logs the Path/Args and calls ExecFunc if it is set.
func (l *executorImp) RunCommand(cmd *exec.Cmd, env []string) error {
	if err := l.logCommand(cmd); err != nil {
		return err
	}

	if l.ExecFunc == nil {
		l.Logger.Warn("missing ExecFunc - skipped execution")
		return nil
	}

	cmd.Env = env
	return l.ExecFunc(cmd)
}

// Stream - logs the Path/Args, runs the command and classifies how it ended.
func (l *executorImp) Stream(ctx context.Context, cmd *exec.Cmd, observer LineObserver) (Result, error) {
	if err := l.logCommand(cmd); err != nil {
		return Result{ExitCode: -1}, err
	}

	stdout := &lineWriter{stream: Stdout, observer: observer}
	stderr := &lineWriter{stream: Stderr, observer: observer}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = _defaultWaitDelay
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		// A context that is already done stops the command before it spawns.
		if outcome, ok := contextOutcome(ctx); ok && errors.Is(err, ctx.Err()) {
			l.Logger.Infow("Exec not started",
				"Path", cmd.Path,
				"Outcome", outcome.String(),
			)
			return Result{Outcome: outcome, ExitCode: -1}, nil
		}
		return Result{ExitCode: -1}, err
	}
	waitErr := cmd.Wait()
	stdout.flush()
	stderr.flush()

	result := Result{
		Outcome:  Completed,
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if waitErr == nil || errors.Is(waitErr, exec.ErrWaitDelay) {
		return result, nil
	}

	if outcome, ok := contextOutcome(ctx); ok {
		result.Outcome = outcome
	} else {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return result, waitErr
		}
	}

	l.Logger.Infow("Exec finished",
		"Path", cmd.Path,
		"Outcome", result.Outcome.String(),
		"ExitCode", result.ExitCode,
		"Duration", result.Duration.String(),
	)
	return result, nil
}

// contextOutcome reports how a done context ended the command.
func contextOutcome(ctx context.Context) (Outcome, bool) {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return TimedOut, true
	case errors.Is(ctx.Err(), context.Canceled):
		return Cancelled, true
	default:
		return Completed, false
	}
}

// Logs the command specified: Path, Dir, Args, Stdin (if available)
func (l *executorImp) logCommand(cmd *exec.Cmd) error {
	logKeysAndValues := []interface{}{
		"Path", cmd.Path,
		"Dir", cmd.Dir,
		"Args", cmd.Args[1:], // First arg is always the command itself
	}

	if cmd.Stdin != nil {
		stdinBytes, err := io.ReadAll(cmd.Stdin)
		if err != nil {
			return err
		}
		logKeysAndValues = append(logKeysAndValues, "Stdin", string(stdinBytes))
		cmd.Stdin = bytes.NewReader(stdinBytes)
	}

	l.Logger.Infow("Exec", logKeysAndValues...)
	return nil
}

// lineWriter buffers everything written to it and hands complete lines to an observer.
type lineWriter struct {
	stream   StreamName
	observer LineObserver
	all      bytes.Buffer
	partial  []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.all.Write(p)
	if w.observer == nil {
		return len(p), nil
	}

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.observer(w.stream, strings.TrimSuffix(string(w.partial[:i]), "\r"))
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}

// flush delivers a trailing line that was not newline terminated.
func (w *lineWriter) flush() {
	if w.observer != nil && len(w.partial) > 0 {
		w.observer(w.stream, strings.TrimSuffix(string(w.partial), "\r"))
	}
	w.partial = nil
}

func (w *lineWriter) String() string {
	return w.all.String()
}
