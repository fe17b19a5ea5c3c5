package lintdaemon

//go:generate mockgen -source=client.go -destination=lintdaemonmock/client_mock.go -package=lintdaemonmock

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/internal/clock"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/internal/rpcwire"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	_nameKey      = "lint-daemon"
	_startFlight  = "start"
	_readBufBytes = 32 * 1024
)

// Daemon methods.
const (
	MethodInitialize     = "initialize"
	MethodAnalyzeFile    = "analyzeFile"
	MethodAnalyzeProject = "analyzeProject"
	MethodClearCache     = "clearCache"
	MethodPing           = "ping"
	MethodShutdown       = "shutdown"
)

// Module provides the process-wide daemon client.
var Module = fx.Options(
	fx.Provide(New),
)

// Client owns the long-lived analysis daemon and speaks its line-delimited RPC protocol.
type Client interface {
	// Configured reports whether a daemon command is configured at all.
	Configured() bool
	// Start spawns the daemon unless it is already running and waits for its ready notification.
	// Concurrent callers share a single startup.
	Start(ctx context.Context) error
	// IsReady reports whether the daemon is running and has announced readiness.
	IsReady() bool
	// Project returns the project the running daemon was last initialized for, or "" if none.
	Project() string

	Initialize(ctx context.Context, projectPath string) (InitializeResult, error)
	AnalyzeFile(ctx context.Context, filePath string, content *string) ([]Issue, error)
	AnalyzeProject(ctx context.Context) ([]Issue, error)
	ClearCache(ctx context.Context) error
	Ping(ctx context.Context) (bool, error)
	// Shutdown asks the daemon to exit and kills it if it has not done so within the grace period.
	Shutdown(ctx context.Context) error

	// SendRequest issues a raw request and waits for its response, the timeout, or ctx.
	SendRequest(ctx context.Context, method string, params map[string]string, timeout time.Duration) (json.RawMessage, error)
}

// InitializeResult is the daemon's answer to initialize.
type InitializeResult struct {
	Success     bool `json:"success"`
	ChecksCount int  `json:"checksCount"`
}

// Issue is a finding as reported by the daemon.
type Issue struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	ID       string `json:"id"`
	Category string `json:"category"`
	Message  string `json:"message"`
	QuickFix string `json:"quickFix,omitempty"`
}

type analyzeResult struct {
	Success bool    `json:"success"`
	Issues  []Issue `json:"issues"`
}

type pingResult struct {
	Success bool `json:"success"`
}

// Params are the dependencies of the daemon client.
type Params struct {
	fx.In

	Config    entity.LintConfig
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Clock     clock.Clock
	Lifecycle fx.Lifecycle
	Spawner   Spawner `optional:"true"`
}

type callResult struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	method string
	timer  clock.Timer
	done   chan callResult
}

// daemonProcess is one incarnation of the daemon.
type daemonProcess struct {
	proc      Process
	gen       uint64
	ready     chan struct{}
	readyOnce sync.Once
	exited    chan struct{}
	exitErr   error
}

type client struct {
	cfg    entity.DaemonConfig
	spawn  Spawner
	logger *zap.SugaredLogger
	stats  tally.Scope
	clock  clock.Clock

	startGroup singleflight.Group
	wg         conc.WaitGroup

	mu      sync.Mutex
	current *daemonProcess
	ready   bool
	project string
	gen     uint64
	nextID  int64
	pending map[int64]*pendingCall

	writeMu sync.Mutex
}

// New creates the daemon client. The daemon itself is started lazily.
func New(p Params) Client {
	spawn := p.Spawner
	if spawn == nil {
		spawn = SpawnExec
	}

	c := &client{
		cfg:     p.Config.Daemon,
		spawn:   spawn,
		logger:  p.Logger.With("plugin", _nameKey),
		stats:   p.Stats.SubScope("lint_daemon"),
		clock:   p.Clock,
		pending: make(map[int64]*pendingCall),
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: c.Shutdown,
	})
	return c
}

func (c *client) Configured() bool {
	return c.cfg.Configured()
}

func (c *client) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *client) Project() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

func (c *client) Start(ctx context.Context) error {
	if !c.Configured() {
		return &ulinterrors.ToolConfigurationError{
			Problem: "no lint daemon is configured",
			Hint:    fmt.Sprintf("set %s.daemon.command or use batch mode", entity.LintConfigKey),
		}
	}
	if c.IsReady() {
		return nil
	}

	// The startup is shared, so it must not be bound to any single caller's context.
	ch := c.startGroup.DoChan(_startFlight, func() (interface{}, error) {
		return nil, c.start()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *client) start() error {
	c.mu.Lock()
	if c.ready {
		c.mu.Unlock()
		return nil
	}
	if stale := c.current; stale != nil {
		// A previous incarnation never became ready. Make sure it is gone before spawning another.
		c.mu.Unlock()
		if err := stale.proc.Kill(); err != nil {
			c.logger.Warnw("killing stale daemon", "pid", stale.proc.Pid(), "error", err)
		}
		<-stale.exited
		c.mu.Lock()
	}

	cmdLine := c.cfg.CommandLine()
	proc, err := c.spawn(cmdLine)
	if err != nil {
		c.mu.Unlock()
		c.stats.Counter("spawn_failures").Inc(1)
		return &ulinterrors.ServerStoppedError{Reason: fmt.Errorf("spawning %q: %w", cmdLine[0], err)}
	}

	c.gen++
	dp := &daemonProcess{
		proc:   proc,
		gen:    c.gen,
		ready:  make(chan struct{}),
		exited: make(chan struct{}),
	}
	c.current = dp
	c.mu.Unlock()

	c.stats.Counter("starts").Inc(1)
	c.logger.Infow("started lint daemon", "pid", proc.Pid(), "command", cmdLine)
	c.wg.Go(func() { c.supervise(dp) })

	timedOut := make(chan struct{})
	timer := c.clock.AfterFunc(c.cfg.StartupTimeout, func() { close(timedOut) })
	defer timer.Stop()

	select {
	case <-dp.ready:
		return nil
	case <-dp.exited:
		return &ulinterrors.ServerStoppedError{Reason: exitReason(dp.exitErr)}
	case <-timedOut:
		c.stats.Counter("startup_timeouts").Inc(1)
		c.logger.Warnw("lint daemon did not become ready, killing it", "pid", proc.Pid(), "timeout", c.cfg.StartupTimeout)
		if err := proc.Kill(); err != nil {
			c.logger.Warnw("killing lint daemon", "error", err)
		}
		return &ulinterrors.StartupTimeoutError{Timeout: c.cfg.StartupTimeout}
	}
}

// supervise reaps the process and settles its pending calls once both output streams are done.
// Output still held open by forked children is closed after the shutdown grace period.
func (c *client) supervise(dp *daemonProcess) {
	var readers conc.WaitGroup
	readers.Go(func() { c.readLoop(dp) })
	readers.Go(func() { c.drainStderr(dp) })
	readersDone := make(chan struct{})
	go func() {
		defer close(readersDone)
		readers.Wait()
	}()

	waitErr := dp.proc.Wait()

	select {
	case <-readersDone:
	default:
		c.awaitOutput(dp, readersDone)
	}
	if err := dp.proc.CloseOutput(); err != nil {
		c.logger.Debugw("closing daemon output", "pid", dp.proc.Pid(), "error", err)
	}

	c.handleExit(dp, waitErr)
}

func (c *client) awaitOutput(dp *daemonProcess, readersDone <-chan struct{}) {
	expired := make(chan struct{})
	timer := c.clock.AfterFunc(c.cfg.ShutdownGrace, func() { close(expired) })
	defer timer.Stop()

	select {
	case <-readersDone:
	case <-expired:
		c.stats.Counter("orphaned_output").Inc(1)
		c.logger.Warnw("lint daemon output still open after exit, closing it", "pid", dp.proc.Pid())
		if err := dp.proc.CloseOutput(); err != nil {
			c.logger.Warnw("closing daemon output", "pid", dp.proc.Pid(), "error", err)
		}
		<-readersDone
	}
}

func (c *client) readLoop(dp *daemonProcess) {
	dec := rpcwire.NewDecoder()
	buf := make([]byte, _readBufBytes)
	for {
		n, err := dp.proc.Stdout().Read(buf)
		if n > 0 {
			msgs, errs := dec.Append(buf[:n])
			for _, e := range errs {
				c.stats.Counter("malformed_messages").Inc(1)
				c.logger.Warnw("skipping malformed daemon message", "error", e)
			}
			for _, msg := range msgs {
				c.dispatch(dp, msg)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				c.logger.Warnw("reading daemon output", "error", err)
			}
			if dec.Buffered() > 0 {
				c.logger.Warnw("daemon output ended with a partial message", "bytes", dec.Buffered())
			}
			return
		}
	}
}

func (c *client) drainStderr(dp *daemonProcess) {
	scanner := bufio.NewScanner(dp.proc.Stderr())
	for scanner.Scan() {
		c.logger.Debugw("daemon stderr", "line", scanner.Text())
	}
}

func (c *client) dispatch(dp *daemonProcess, msg rpcwire.Message) {
	if msg.IsNotification() {
		if msg.Method != rpcwire.MethodReady {
			c.logger.Debugw("ignoring daemon notification", "method", msg.Method)
			return
		}
		c.mu.Lock()
		if c.current == dp {
			c.ready = true
		}
		c.mu.Unlock()
		dp.readyOnce.Do(func() { close(dp.ready) })
		return
	}

	id := *msg.ID
	call := c.remove(id)
	if call == nil {
		c.logger.Warnw("ignoring daemon response with unknown id", "id", id)
		return
	}

	res := callResult{result: msg.Result}
	if msg.Error != nil {
		res = callResult{err: &ulinterrors.RPCError{Method: call.method, Message: msg.Error.Message}}
	}
	call.done <- res
}

func (c *client) handleExit(dp *daemonProcess, err error) {
	c.mu.Lock()
	if c.current == dp {
		c.current = nil
		c.ready = false
		c.project = ""
	}
	pending := c.pending
	c.pending = make(map[int64]*pendingCall)
	c.mu.Unlock()

	reason := exitReason(err)
	for _, call := range pending {
		call.timer.Stop()
		call.done <- callResult{err: &ulinterrors.ServerStoppedError{Reason: reason}}
	}

	c.stats.Counter("exits").Inc(1)
	c.logger.Infow("lint daemon exited", "pid", dp.proc.Pid(), "error", err, "failedCalls", len(pending))

	dp.exitErr = err
	close(dp.exited)
}

func (c *client) SendRequest(ctx context.Context, method string, params map[string]string, timeout time.Duration) (json.RawMessage, error) {
	res, _, err := c.call(ctx, method, params, timeout)
	return res, err
}

// call sends a request to the current daemon and returns the generation that answered it.
func (c *client) call(ctx context.Context, method string, params map[string]string, timeout time.Duration) (json.RawMessage, uint64, error) {
	c.mu.Lock()
	dp := c.current
	if dp == nil || !c.ready {
		c.mu.Unlock()
		return nil, 0, &ulinterrors.ServerStoppedError{}
	}
	c.nextID++
	id := c.nextID
	call := &pendingCall{
		method: method,
		done:   make(chan callResult, 1),
	}
	// expire needs c.mu, so it cannot observe the entry before the timer is recorded.
	call.timer = c.clock.AfterFunc(timeout, func() { c.expire(id, timeout) })
	c.pending[id] = call
	c.mu.Unlock()

	line, err := rpcwire.Encode(rpcwire.Request{ID: id, Method: method, Params: params})
	if err != nil {
		c.remove(id)
		return nil, 0, err
	}

	c.writeMu.Lock()
	_, err = dp.proc.Stdin().Write(line)
	c.writeMu.Unlock()
	if err != nil && c.remove(id) != nil {
		return nil, 0, &ulinterrors.ServerStoppedError{Reason: fmt.Errorf("writing %q request: %w", method, err)}
	}

	select {
	case res := <-call.done:
		return res.result, dp.gen, res.err
	case <-ctx.Done():
		if c.remove(id) != nil {
			return nil, 0, ctx.Err()
		}
		// Settled concurrently; the result is already buffered.
		res := <-call.done
		return res.result, dp.gen, res.err
	}
}

// remove deletes a pending call and stops its timer. It returns nil if the call was already settled.
func (c *client) remove(id int64) *pendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	call, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	call.timer.Stop()
	return call
}

func (c *client) expire(id int64, timeout time.Duration) {
	c.mu.Lock()
	call, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	c.stats.Counter("request_timeouts").Inc(1)
	call.done <- callResult{err: &ulinterrors.RequestTimeoutError{Method: call.method, ID: id, Timeout: timeout}}
}

func (c *client) Initialize(ctx context.Context, projectPath string) (InitializeResult, error) {
	raw, gen, err := c.call(ctx, MethodInitialize, map[string]string{"projectPath": projectPath}, c.cfg.RequestTimeout)
	if err != nil {
		return InitializeResult{}, err
	}

	var res InitializeResult
	if err := decodeResult(MethodInitialize, raw, &res); err != nil {
		return InitializeResult{}, err
	}
	if !res.Success {
		return res, &ulinterrors.RPCError{Method: MethodInitialize, Message: fmt.Sprintf("could not initialize project %q", projectPath)}
	}

	c.mu.Lock()
	if c.current != nil && c.current.gen == gen {
		c.project = projectPath
	}
	c.mu.Unlock()

	c.logger.Infow("lint daemon initialized", "project", projectPath, "checks", res.ChecksCount)
	return res, nil
}

func (c *client) AnalyzeFile(ctx context.Context, filePath string, content *string) ([]Issue, error) {
	params := map[string]string{"filePath": filePath}
	if content != nil {
		params["fileContent"] = *content
	}
	return c.analyze(ctx, MethodAnalyzeFile, params, c.cfg.AnalyzeFileTimeout)
}

func (c *client) AnalyzeProject(ctx context.Context) ([]Issue, error) {
	return c.analyze(ctx, MethodAnalyzeProject, nil, c.cfg.AnalyzeProjectTimeout)
}

func (c *client) analyze(ctx context.Context, method string, params map[string]string, timeout time.Duration) ([]Issue, error) {
	raw, err := c.SendRequest(ctx, method, params, timeout)
	if err != nil {
		return nil, err
	}

	var res analyzeResult
	if err := decodeResult(method, raw, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, &ulinterrors.RPCError{Method: method, Message: "analysis was not successful"}
	}
	return res.Issues, nil
}

func (c *client) ClearCache(ctx context.Context) error {
	_, err := c.SendRequest(ctx, MethodClearCache, nil, c.cfg.RequestTimeout)
	return err
}

func (c *client) Ping(ctx context.Context) (bool, error) {
	raw, err := c.SendRequest(ctx, MethodPing, nil, c.cfg.RequestTimeout)
	if err != nil {
		return false, err
	}

	var res pingResult
	if err := decodeResult(MethodPing, raw, &res); err != nil {
		return false, err
	}
	return res.Success, nil
}

func (c *client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	dp := c.current
	ready := c.ready
	c.mu.Unlock()
	if dp == nil {
		return nil
	}

	if ready {
		if _, err := c.SendRequest(ctx, MethodShutdown, nil, c.cfg.ShutdownGrace); err != nil {
			c.logger.Debugw("graceful daemon shutdown request failed", "error", err)
		}
	}
	if err := dp.proc.Stdin().Close(); err != nil {
		c.logger.Debugw("closing daemon stdin", "error", err)
	}

	graceOver := make(chan struct{})
	timer := c.clock.AfterFunc(c.cfg.ShutdownGrace, func() { close(graceOver) })
	defer timer.Stop()

	select {
	case <-dp.exited:
	case <-graceOver:
		c.logger.Infow("lint daemon did not exit in time, killing it", "pid", dp.proc.Pid())
		if err := dp.proc.Kill(); err != nil {
			return fmt.Errorf("killing lint daemon: %w", err)
		}
	case <-ctx.Done():
		var killErr error
		if err := dp.proc.Kill(); err != nil {
			killErr = fmt.Errorf("killing lint daemon: %w", err)
		}
		return multierr.Append(ctx.Err(), killErr)
	}

	select {
	case <-dp.exited:
		c.wg.Wait()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeResult(method string, raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return &ulinterrors.RPCError{Method: method, Message: "empty result"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ulinterrors.RPCError{Method: method, Message: fmt.Sprintf("decoding result: %v", err)}
	}
	return nil
}

func exitReason(err error) error {
	if err == nil {
		return errors.New("process exited")
	}
	return fmt.Errorf("process exited: %w", err)
}
