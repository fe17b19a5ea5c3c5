package ulint

import (
	"context"
	"fmt"

	"github.com/uber/lint-lsp/src/ulint/entity"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/mapper"
)

// LintProject queues an analysis of the whole project.
func (c *controller) LintProject(ctx context.Context, params *mapper.LintProjectParams) error {
	root, err := c.projectRoot(ctx, params)
	if err != nil {
		return err
	}
	c.coalescer.Submit(entity.ProjectSubject(root), nil)
	return nil
}

// Refresh drops cached project state, then queues an analysis of the whole project.
func (c *controller) Refresh(ctx context.Context, params *mapper.LintProjectParams) error {
	root, err := c.projectRoot(ctx, params)
	if err != nil {
		return err
	}

	c.stats.Counter("refreshes").Inc(1)
	if err := c.orchestrator.Refresh(ctx, root); err != nil {
		return fmt.Errorf("refreshing %q: %w", root, err)
	}
	c.coalescer.Submit(entity.ProjectSubject(root), nil)
	return nil
}

// RequestFullShutdown will set the controller to treat the subsequent Exit request as a request to exit the entire process.
func (c *controller) RequestFullShutdown(ctx context.Context) error {
	c.idleTimerMu.Lock()
	defer c.idleTimerMu.Unlock()
	c.fullShutdown = true
	return nil
}

// projectRoot returns the requested workspace root, defaulting to the session's.
func (c *controller) projectRoot(ctx context.Context, params *mapper.LintProjectParams) (string, error) {
	s, err := c.sessions.GetFromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("getting session from context: %w", err)
	}
	if !s.Initialized {
		return "", ulinterrors.NotInitializedError
	}

	if params != nil && params.WorkspaceRoot != "" {
		return params.WorkspaceRoot, nil
	}
	return s.WorkspaceRoot, nil
}
