package diagnostics

//go:generate mockgen -source=diagnostics.go -destination=diagnosticsmock/diagnostics_mock.go -package=diagnosticsmock

import (
	"context"
	"fmt"
	"sync"

	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/controller/coalescer"
	"github.com/uber/lint-lsp/src/ulint/entity"
	ideclient "github.com/uber/lint-lsp/src/ulint/gateway/ide-client"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"github.com/uber/lint-lsp/src/ulint/repository/session"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey = "diagnostics"

	_messagePrefix = "Lint: "
)

// Module provides the diagnostics controller, which also serves as the coalescer's sink.
var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(c Controller) coalescer.Sink { return c }),
)

// Controller publishes committed analysis results to the IDE sessions of a workspace.
type Controller interface {
	coalescer.Sink

	// Resend publishes the diagnostics currently known for the session's workspace to that session only.
	Resend(ctx context.Context) error
	// Forget drops the diagnostics kept for a workspace.
	Forget(workspaceRoot string)
}

// Params are the dependencies of the diagnostics controller.
type Params struct {
	fx.In

	Sessions   session.Repository
	IdeGateway ideclient.Gateway
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

// documentStore holds the last published diagnostics of each document, per workspace root.
type documentStore map[string]map[uri.URI][]protocol.Diagnostic

type controller struct {
	sessions   session.Repository
	ideGateway ideclient.Gateway
	logger     *zap.SugaredLogger
	stats      tally.Scope

	documents   documentStore
	documentsMu sync.Mutex
}

// New creates a diagnostics Controller.
func New(p Params) Controller {
	return &controller{
		sessions:   p.Sessions,
		ideGateway: p.IdeGateway,
		logger:     p.Logger.With("plugin", _nameKey),
		stats:      p.Stats.SubScope(_nameKey),
		documents:  make(documentStore),
	}
}

// Commit replaces the diagnostics covered by the request and publishes every document whose diagnostics changed.
// A project result covers the whole workspace, so documents missing from it are cleared.
func (c *controller) Commit(ctx context.Context, req entity.AnalysisRequest, issues []entity.Issue) error {
	root := req.Subject.WorkspaceRoot
	updates := mapper.IssuesToDocumentDiagnostics(issues)

	c.documentsMu.Lock()
	current, ok := c.documents[root]
	if !ok {
		current = make(map[uri.URI][]protocol.Diagnostic)
		c.documents[root] = current
	}

	if req.Subject.IsProject() {
		for docURI := range current {
			if _, ok := updates[docURI]; !ok {
				updates[docURI] = []protocol.Diagnostic{}
			}
		}
	} else {
		target := uri.File(req.Subject.FilePath)
		if _, ok := updates[target]; !ok {
			updates[target] = []protocol.Diagnostic{}
		}
	}

	for docURI, diagnostics := range updates {
		if len(diagnostics) == 0 {
			delete(current, docURI)
			continue
		}
		current[docURI] = diagnostics
	}
	c.documentsMu.Unlock()

	return c.publish(ctx, root, updates)
}

// ReportFailure tells the user about failures they can act on, and logs the rest to the IDE's output.
func (c *controller) ReportFailure(ctx context.Context, req entity.AnalysisRequest, err error) {
	sessions, sErr := c.sessions.GetAllFromWorkspaceRoot(ctx, req.Subject.WorkspaceRoot)
	if sErr != nil {
		c.logger.Errorw("looking up sessions", "workspace", req.Subject.WorkspaceRoot, "error", sErr)
		return
	}

	userFacing := ulinterrors.IsUserFacing(err)
	for _, s := range sessions {
		sCtx := mapper.SessionUUIDToContext(ctx, s.UUID)

		var notifyErr error
		if userFacing {
			notifyErr = c.ideGateway.ShowMessage(sCtx, &protocol.ShowMessageParams{
				Type:    protocol.MessageTypeError,
				Message: _messagePrefix + err.Error(),
			})
		} else {
			notifyErr = c.ideGateway.LogMessage(sCtx, &protocol.LogMessageParams{
				Type:    protocol.MessageTypeWarning,
				Message: fmt.Sprintf("%sanalysis of %s failed: %s", _messagePrefix, req.Subject.Key(), err),
			})
		}
		if notifyErr != nil {
			c.logger.Warnw("notifying IDE of analysis failure", "session", s.UUID, "error", notifyErr)
		}
	}
	c.stats.Counter("failures_reported").Inc(1)
}

func (c *controller) Resend(ctx context.Context) error {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return err
	}

	c.documentsMu.Lock()
	docs := make(map[uri.URI][]protocol.Diagnostic, len(c.documents[s.WorkspaceRoot]))
	for docURI, diagnostics := range c.documents[s.WorkspaceRoot] {
		docs[docURI] = diagnostics
	}
	c.documentsMu.Unlock()

	for _, docURI := range mapper.SortedDocuments(docs) {
		if err := c.ideGateway.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
			URI:         docURI,
			Diagnostics: docs[docURI],
		}); err != nil {
			return fmt.Errorf("resending diagnostics for %s: %w", docURI, err)
		}
	}
	return nil
}

func (c *controller) Forget(workspaceRoot string) {
	c.documentsMu.Lock()
	defer c.documentsMu.Unlock()
	delete(c.documents, workspaceRoot)
}

func (c *controller) publish(ctx context.Context, workspaceRoot string, docs map[uri.URI][]protocol.Diagnostic) error {
	sessions, err := c.sessions.GetAllFromWorkspaceRoot(ctx, workspaceRoot)
	if err != nil {
		return err
	}

	ordered := mapper.SortedDocuments(docs)
	for _, s := range sessions {
		sCtx := mapper.SessionUUIDToContext(ctx, s.UUID)
		for _, docURI := range ordered {
			c.logger.Debugf("Publishing %d diagnostics for %s", len(docs[docURI]), docURI)
			if pubErr := c.ideGateway.PublishDiagnostics(sCtx, &protocol.PublishDiagnosticsParams{
				URI:         docURI,
				Diagnostics: docs[docURI],
			}); pubErr != nil {
				c.logger.Errorf("Error publishing diagnostics: %s", docURI)
				continue
			}
			c.stats.Counter("published").Inc(1)
		}
	}
	return nil
}
