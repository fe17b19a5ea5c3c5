// Package ulint implements the lint server's session handling and analysis triggers.
package ulint

//go:generate mockgen -source=ulint.go -destination=ulintmock/ulint_mock.go -package=ulintmock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	buildwatcher "github.com/uber/lint-lsp/src/ulint/controller/build-watcher"
	"github.com/uber/lint-lsp/src/ulint/controller/coalescer"
	"github.com/uber/lint-lsp/src/ulint/controller/diagnostics"
	"github.com/uber/lint-lsp/src/ulint/controller/orchestrator"
	ideclient "github.com/uber/lint-lsp/src/ulint/gateway/ide-client"
	"github.com/uber/lint-lsp/src/ulint/internal/clock"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"github.com/uber/lint-lsp/src/ulint/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey = "ulint"

	// Configuration keys
	_idleTimeoutMinutesKey = "idleTimeoutMinutes"

	_serverName = "ulint"
)

// Module provides the top-level controller.
var Module = fx.Options(
	fx.Provide(New),
)

// Controller handles the requests of every IDE session.
type Controller interface {
	// LSP Methods defined per protocol.
	Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error)
	Initialized(ctx context.Context, params *protocol.InitializedParams) error
	Shutdown(ctx context.Context) error
	Exit(ctx context.Context) error

	// Document related methods.
	DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error
	DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error
	DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error
	DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error

	// Custom methods.
	LintProject(ctx context.Context, params *mapper.LintProjectParams) error
	Refresh(ctx context.Context, params *mapper.LintProjectParams) error
	RequestFullShutdown(ctx context.Context) error
	InitSession(ctx context.Context, conn *jsonrpc2.Conn) (uuid.UUID, error)
	EndSession(ctx context.Context, id uuid.UUID) error
}

// Params are the dependencies of the controller.
type Params struct {
	fx.In

	Shutdowner   fx.Shutdowner
	Sessions     session.Repository
	IdeGateway   ideclient.Gateway
	Coalescer    coalescer.Coalescer
	Orchestrator orchestrator.Orchestrator
	Diagnostics  diagnostics.Controller
	BuildWatcher buildwatcher.Watcher
	Clock        clock.Clock
	Logger       *zap.SugaredLogger
	Stats        tally.Scope
	Config       config.Provider
}

type controller struct {
	sessions     session.Repository
	shutdowner   fx.Shutdowner
	ideGateway   ideclient.Gateway
	coalescer    coalescer.Coalescer
	orchestrator orchestrator.Orchestrator
	diagnostics  diagnostics.Controller
	buildWatcher buildwatcher.Watcher
	clock        clock.Clock
	logger       *zap.SugaredLogger
	stats        tally.Scope

	fullShutdown bool
	idleTimer    clock.Timer
	idleTimerMu  sync.Mutex
	idleTimeout  time.Duration
}

// New constructs the top-level controller and starts the idle timer.
func New(p Params) (Controller, error) {
	var timeoutMinutesRaw int64
	if err := p.Config.Get(_idleTimeoutMinutesKey).Populate(&timeoutMinutesRaw); err != nil || timeoutMinutesRaw == 0 {
		return nil, fmt.Errorf("unable to get idle timeout from config: %w", err)
	}

	c := &controller{
		sessions:     p.Sessions,
		shutdowner:   p.Shutdowner,
		ideGateway:   p.IdeGateway,
		coalescer:    p.Coalescer,
		orchestrator: p.Orchestrator,
		diagnostics:  p.Diagnostics,
		buildWatcher: p.BuildWatcher,
		clock:        p.Clock,
		logger:       p.Logger.With("plugin", _nameKey),
		stats:        p.Stats.SubScope(_nameKey),
		idleTimeout:  time.Duration(timeoutMinutesRaw) * time.Minute,
	}
	c.refreshIdleTimer(context.Background())
	return c, nil
}

// InitSession creates a new empty session and returns its UUID.
func (c *controller) InitSession(ctx context.Context, conn *jsonrpc2.Conn) (uuid.UUID, error) {
	defer c.refreshIdleTimer(ctx)

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	if err := c.ideGateway.RegisterClient(ctx, id, conn); err != nil {
		return uuid.Nil, err
	}

	if err := c.sessions.Set(ctx, mapper.UUIDToSession(id, conn)); err != nil {
		return uuid.Nil, err
	}
	c.stats.Counter("sessions_started").Inc(1)
	return id, nil
}

// EndSession removes the session, and releases the workspace's watches and diagnostics once no session uses it.
func (c *controller) EndSession(ctx context.Context, id uuid.UUID) error {
	defer c.refreshIdleTimer(ctx)

	s, err := c.sessions.Get(ctx, id)
	if err != nil {
		// Already ended, e.g. by exit before the connection closed.
		return nil
	}

	if err := c.ideGateway.DeregisterClient(ctx, id); err != nil {
		c.logger.Error(err)
	}
	if err := c.sessions.Delete(ctx, id); err != nil {
		return err
	}
	c.stats.Counter("sessions_ended").Inc(1)

	if s.WorkspaceRoot == "" {
		return nil
	}
	remaining, err := c.sessions.GetAllFromWorkspaceRoot(ctx, s.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("looking up remaining sessions: %w", err)
	}
	if len(remaining) > 0 {
		return nil
	}

	c.logger.Infow("last session of workspace ended", "workspace", s.WorkspaceRoot)
	c.diagnostics.Forget(s.WorkspaceRoot)
	if err := c.buildWatcher.Unwatch(s.WorkspaceRoot); err != nil {
		c.logger.Warnw("unwatching build files", "workspace", s.WorkspaceRoot, "error", err)
	}
	return nil
}

// refreshIdleTimer ensures that the service shuts down after a defined inactivity period with no connections.
func (c *controller) refreshIdleTimer(ctx context.Context) error {
	c.idleTimerMu.Lock()
	defer c.idleTimerMu.Unlock()

	currentSessions, err := c.sessions.SessionCount(ctx)
	if err != nil {
		return fmt.Errorf("error resetting timeout: %w", err)
	}

	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	if currentSessions == 0 {
		c.idleTimer = c.clock.AfterFunc(c.idleTimeout, c.shutdown)
	}
	return nil
}

func (c *controller) shutdown() {
	c.logger.Info("Shutdown signal received.")
	if err := c.shutdowner.Shutdown(); err != nil {
		os.Exit(1)
	}
}
