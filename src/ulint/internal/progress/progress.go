// Package progress shows work done progress in the IDE sessions of a workspace.
package progress

//go:generate mockgen -source=progress.go -destination=progressmock/progress_mock.go -package=progressmock

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/factory"
	ideclient "github.com/uber/lint-lsp/src/ulint/gateway/ide-client"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"github.com/uber/lint-lsp/src/ulint/repository/session"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _nameKey = "progress"

// Module provides the progress Manager.
var Module = fx.Options(
	fx.Provide(New),
)

// Manager starts progress indicators. Callers starting the same title for the same workspace share one indicator.
type Manager interface {
	// Start shows a new indicator, or joins the active one for this workspaceRoot and title.
	Start(ctx context.Context, workspaceRoot string, title string) Handle
}

// Handle is one caller's share of an indicator.
type Handle interface {
	// Report replaces the message shown with the indicator.
	Report(ctx context.Context, message string)
	// Done releases this caller. The indicator ends once every caller is done. Extra calls are ignored.
	Done(ctx context.Context)
}

// Params are the dependencies of the Manager.
type Params struct {
	fx.In

	Sessions   session.Repository
	IdeGateway ideclient.Gateway
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

type manager struct {
	sessions   session.Repository
	ideGateway ideclient.Gateway
	logger     *zap.SugaredLogger
	stats      tally.Scope

	mu     sync.Mutex
	active map[string]*indicator
}

// indicator is a single progress token shown in every session that accepted it.
type indicator struct {
	id    string
	token protocol.ProgressToken
	// sessions that accepted the token; only they receive reports and the end notification.
	sessions []uuid.UUID
	// refs is guarded by the manager's mutex.
	refs int
}

type handle struct {
	m    *manager
	ind  *indicator
	once sync.Once
}

// New creates a progress Manager.
func New(p Params) Manager {
	return &manager{
		sessions:   p.Sessions,
		ideGateway: p.IdeGateway,
		logger:     p.Logger.With("plugin", _nameKey),
		stats:      p.Stats.SubScope(_nameKey),
		active:     make(map[string]*indicator),
	}
}

func (m *manager) Start(ctx context.Context, workspaceRoot string, title string) Handle {
	id := fmt.Sprintf("%s-%s", workspaceRoot, title)

	m.mu.Lock()
	defer m.mu.Unlock()

	if ind, ok := m.active[id]; ok {
		ind.refs++
		return &handle{m: m, ind: ind}
	}

	ind := &indicator{
		id:    id,
		token: *protocol.NewProgressToken(factory.UUID().String()),
		refs:  1,
	}
	ind.sessions = m.begin(ctx, workspaceRoot, ind.token, title)
	m.active[id] = ind
	m.stats.Counter("started").Inc(1)
	return &handle{m: m, ind: ind}
}

// begin creates the token in every session of the workspace and returns the sessions that accepted it.
func (m *manager) begin(ctx context.Context, workspaceRoot string, token protocol.ProgressToken, title string) []uuid.UUID {
	sessions, err := m.sessions.GetAllFromWorkspaceRoot(ctx, workspaceRoot)
	if err != nil {
		m.logger.Errorw("listing sessions for progress", "workspace", workspaceRoot, "error", err)
		return nil
	}

	var accepted []uuid.UUID
	for _, s := range sessions {
		sCtx := mapper.SessionUUIDToContext(ctx, s.UUID)
		if err := m.ideGateway.WorkDoneProgressCreate(sCtx, &protocol.WorkDoneProgressCreateParams{Token: token}); err != nil {
			// Clients without window.workDoneProgress support reject the token.
			m.logger.Debugw("progress token rejected", "session", s.UUID, "error", err)
			continue
		}
		err := m.ideGateway.Progress(sCtx, &protocol.ProgressParams{
			Token: token,
			Value: &protocol.WorkDoneProgressBegin{
				Kind:  protocol.WorkDoneProgressKindBegin,
				Title: title,
			},
		})
		if err != nil {
			m.logger.Warnw("beginning progress", "session", s.UUID, "error", err)
			continue
		}
		accepted = append(accepted, s.UUID)
	}
	return accepted
}

func (m *manager) broadcast(ctx context.Context, ind *indicator, value interface{}) {
	for _, id := range ind.sessions {
		sCtx := mapper.SessionUUIDToContext(ctx, id)
		if err := m.ideGateway.Progress(sCtx, &protocol.ProgressParams{Token: ind.token, Value: value}); err != nil {
			m.logger.Debugw("updating progress", "session", id, "error", err)
		}
	}
}

func (h *handle) Report(ctx context.Context, message string) {
	h.m.broadcast(ctx, h.ind, &protocol.WorkDoneProgressReport{
		Kind:    protocol.WorkDoneProgressKindReport,
		Message: message,
	})
}

func (h *handle) Done(ctx context.Context) {
	h.once.Do(func() {
		h.m.mu.Lock()
		h.ind.refs--
		last := h.ind.refs == 0
		if last {
			delete(h.m.active, h.ind.id)
		}
		h.m.mu.Unlock()

		if last {
			h.m.broadcast(ctx, h.ind, &protocol.WorkDoneProgressEnd{
				Kind: protocol.WorkDoneProgressKindEnd,
			})
		}
	})
}
