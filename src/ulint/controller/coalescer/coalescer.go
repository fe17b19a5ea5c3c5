package coalescer

//go:generate mockgen -source=coalescer.go -destination=coalescermock/coalescer_mock.go -package=coalescermock

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/controller/orchestrator"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/internal/clock"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/internal/progress"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey = "coalescer"

	_progressTitle = "Lint"
)

// Module provides the request coalescer.
var Module = fx.Options(
	fx.Provide(New),
)

// Coalescer collapses bursts of analysis requests and commits only the freshest result.
type Coalescer interface {
	// Submit records a request for subject, replacing any pending request for the same subject.
	Submit(subject entity.Subject, dirtyContent *string) entity.AnalysisRequest
	// Wait blocks until the drain loop in flight, if any, has finished.
	Wait(ctx context.Context) error
	// Stop drops pending requests and cancels the drain loop.
	Stop(ctx context.Context) error
}

// Sink receives the outcome of requests that are still the newest when they complete.
type Sink interface {
	Commit(ctx context.Context, req entity.AnalysisRequest, issues []entity.Issue) error
	ReportFailure(ctx context.Context, req entity.AnalysisRequest, err error)
}

// Params are the dependencies of the coalescer.
type Params struct {
	fx.In

	Config       entity.LintConfig
	Orchestrator orchestrator.Orchestrator
	Sink         Sink
	Progress     progress.Manager `optional:"true"`
	Clock        clock.Clock
	Logger       *zap.SugaredLogger
	Stats        tally.Scope
	Lifecycle    fx.Lifecycle
}

type coalescer struct {
	orchestrator orchestrator.Orchestrator
	sink         Sink
	progress     progress.Manager
	clock        clock.Clock
	logger       *zap.SugaredLogger
	stats        tally.Scope
	debounce     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu      sync.Mutex
	maxID   uint64
	pending map[string]entity.AnalysisRequest
	// order holds the keys of pending in submission order.
	order    []string
	draining bool
	// drained is closed when the current drain loop exits.
	drained chan struct{}
	stopped bool
}

// New creates a Coalescer that is stopped with the application.
func New(p Params) Coalescer {
	c := newCoalescer(p.Config.Coalescer, p.Orchestrator, p.Sink, p.Clock, p.Logger, p.Stats)
	c.progress = p.Progress
	p.Lifecycle.Append(fx.Hook{
		OnStop: c.Stop,
	})
	return c
}

func newCoalescer(cfg entity.CoalescerConfig, o orchestrator.Orchestrator, sink Sink, clk clock.Clock, logger *zap.SugaredLogger, stats tally.Scope) *coalescer {
	ctx, cancel := context.WithCancel(context.Background())
	return &coalescer{
		orchestrator: o,
		sink:         sink,
		clock:        clk,
		logger:       logger.With("plugin", _nameKey),
		stats:        stats.SubScope(_nameKey),
		debounce:     cfg.Debounce,
		ctx:          ctx,
		cancel:       cancel,
		pending:      make(map[string]entity.AnalysisRequest),
	}
}

func (c *coalescer) Submit(subject entity.Subject, dirtyContent *string) entity.AnalysisRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxID++
	req := entity.AnalysisRequest{
		ID:           c.maxID,
		Subject:      subject,
		CreatedAt:    c.clock.Now(),
		DirtyContent: dirtyContent,
	}
	c.stats.Counter("submitted").Inc(1)

	if c.stopped {
		c.logger.Debugw("dropping request submitted after stop", "id", req.ID, "subject", subject.Key())
		return req
	}

	key := subject.Key()
	if _, ok := c.pending[key]; !ok {
		c.order = append(c.order, key)
	}
	c.pending[key] = req

	if !c.draining {
		c.draining = true
		c.drained = make(chan struct{})
		drained := c.drained
		c.wg.Go(func() {
			defer close(drained)
			c.drain()
		})
	}
	return req
}

func (c *coalescer) Wait(ctx context.Context) error {
	c.mu.Lock()
	drained := c.drained
	c.mu.Unlock()

	if drained == nil {
		return nil
	}
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *coalescer) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = true
	c.pending = make(map[string]entity.AnalysisRequest)
	c.order = nil
	c.mu.Unlock()

	c.cancel()

	waited := make(chan error, 1)
	go func() {
		if r := c.wg.WaitAndRecover(); r != nil {
			waited <- r.AsError()
			return
		}
		waited <- nil
	}()

	select {
	case err := <-waited:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain processes pending requests one at a time until none are left.
func (c *coalescer) drain() {
	for {
		if !c.debounceElapsed() {
			c.finishDrain()
			return
		}
		if req, ok := c.pop(); ok {
			c.process(req)
		}
		if c.finishIfIdle() {
			return
		}
	}
}

func (c *coalescer) debounceElapsed() bool {
	fired := make(chan struct{})
	t := c.clock.AfterFunc(c.debounce, func() {
		close(fired)
	})

	select {
	case <-fired:
		return true
	case <-c.ctx.Done():
		t.Stop()
		return false
	}
}

// pop removes the oldest pending request.
func (c *coalescer) pop() (entity.AnalysisRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) == 0 {
		return entity.AnalysisRequest{}, false
	}

	key := c.order[0]
	c.order = c.order[1:]
	req := c.pending[key]
	delete(c.pending, key)
	return req, true
}

func (c *coalescer) finishDrain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draining = false
}

// finishIfIdle marks the drain loop finished when nothing is left to process.
func (c *coalescer) finishIfIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) > 0 && !c.stopped {
		return false
	}
	c.draining = false
	return true
}

func (c *coalescer) isLatest(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return id == c.maxID
}

func (c *coalescer) process(req entity.AnalysisRequest) {
	start := c.clock.Now()
	subject := req.Subject
	if c.progress != nil {
		h := c.progress.Start(c.ctx, subject.WorkspaceRoot, _progressTitle)
		h.Report(c.ctx, progressMessage(subject))
		defer h.Done(context.WithoutCancel(c.ctx))
	}

	var (
		issues []entity.Issue
		err    error
	)
	if subject.IsProject() {
		issues, err = c.orchestrator.LintProject(c.ctx, subject.WorkspaceRoot)
	} else {
		issues, err = c.orchestrator.LintFile(c.ctx, subject.WorkspaceRoot, subject.FilePath, req.DirtyContent)
	}
	c.stats.Timer("analysis_duration").Record(c.clock.Now().Sub(start))

	if c.ctx.Err() != nil || isCancellation(err) {
		c.logger.Debugw("analysis cancelled", "id", req.ID, "subject", subject.Key())
		return
	}

	if !c.isLatest(req.ID) {
		c.stats.Counter("discarded").Inc(1)
		c.logger.Debugw("discarding stale analysis result", "id", req.ID, "subject", subject.Key())
		return
	}

	if err != nil {
		c.stats.Counter("failed").Inc(1)
		c.logger.Warnw("analysis failed", "id", req.ID, "subject", subject.Key(), "error", err)
		c.sink.ReportFailure(c.ctx, req, err)
		return
	}

	if err := c.sink.Commit(c.ctx, req, issues); err != nil {
		c.logger.Errorw("committing analysis result", "id", req.ID, "subject", subject.Key(), "error", err)
		return
	}
	c.stats.Counter("committed").Inc(1)
}

func progressMessage(subject entity.Subject) string {
	if subject.IsProject() {
		return "Analyzing project"
	}
	return "Analyzing " + filepath.Base(subject.FilePath)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || ulinterrors.IsCancelled(err)
}
