package buildwatcher

//go:generate mockgen -source=build_watcher.go -destination=buildwatchermock/build_watcher_mock.go -package=buildwatchermock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/controller/coalescer"
	"github.com/uber/lint-lsp/src/ulint/controller/orchestrator"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	_nameKey = "build-watcher"

	_debounceTimeout = 500 * time.Millisecond
)

// Files whose changes invalidate cached project state.
var _buildFiles = map[string]struct{}{
	"build.gradle":        {},
	"build.gradle.kts":    {},
	"settings.gradle":     {},
	"settings.gradle.kts": {},
	"gradle.properties":   {},
	"lint.xml":            {},
}

// Module provides the build file watcher.
var Module = fx.Options(
	fx.Provide(New),
)

// Watcher refreshes a workspace and re-lints it when its build configuration changes.
type Watcher interface {
	// Watch starts watching the build files of a workspace. Watching an already watched workspace is a no-op.
	Watch(ctx context.Context, workspaceRoot string) error
	// Unwatch stops watching a workspace.
	Unwatch(workspaceRoot string) error
	// Close stops all watches.
	Close() error
}

// Params are the dependencies of the build watcher.
type Params struct {
	fx.In

	Orchestrator orchestrator.Orchestrator
	Coalescer    coalescer.Coalescer
	Clock        clock.Clock
	Logger       *zap.SugaredLogger
	Stats        tally.Scope
	Lifecycle    fx.Lifecycle
}

type watcher struct {
	orchestrator orchestrator.Orchestrator
	coalescer    coalescer.Coalescer
	clock        clock.Clock
	logger       *zap.SugaredLogger
	stats        tally.Scope

	fsWatcher *fsnotify.Watcher
	wg        conc.WaitGroup
	closer    chan struct{}
	closeOnce sync.Once

	mu sync.Mutex
	// roots maps each watched workspace root to its watched directories.
	roots          map[string][]string
	debounceTimers map[string]clock.Timer
}

// New creates a Watcher that is closed with the application.
func New(p Params) (Watcher, error) {
	w, err := newWatcher(p.Orchestrator, p.Coalescer, p.Clock, p.Logger, p.Stats)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return w.Close()
		},
	})
	return w, nil
}

func newWatcher(o orchestrator.Orchestrator, c coalescer.Coalescer, clk clock.Clock, logger *zap.SugaredLogger, stats tally.Scope) (*watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher for build files: %w", err)
	}

	w := &watcher{
		orchestrator:   o,
		coalescer:      c,
		clock:          clk,
		logger:         logger.With("plugin", _nameKey),
		stats:          stats.SubScope(_nameKey),
		fsWatcher:      fsWatcher,
		closer:         make(chan struct{}),
		roots:          make(map[string][]string),
		debounceTimers: make(map[string]clock.Timer),
	}
	w.wg.Go(w.handleChanges)
	return w, nil
}

func (w *watcher) Watch(ctx context.Context, workspaceRoot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.roots[workspaceRoot]; ok {
		return nil
	}

	dirs, err := buildDirs(workspaceRoot)
	if err != nil {
		return fmt.Errorf("finding build directories of %q: %w", workspaceRoot, err)
	}

	var added []string
	for _, dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			for _, a := range added {
				w.fsWatcher.Remove(a)
			}
			return fmt.Errorf("watching %q: %w", dir, err)
		}
		added = append(added, dir)
	}
	w.roots[workspaceRoot] = added
	w.logger.Infow("watching build files", "workspace", workspaceRoot, "directories", len(added))
	return nil
}

func (w *watcher) Unwatch(workspaceRoot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs, ok := w.roots[workspaceRoot]
	if !ok {
		return nil
	}
	delete(w.roots, workspaceRoot)
	if t, ok := w.debounceTimers[workspaceRoot]; ok {
		t.Stop()
		delete(w.debounceTimers, workspaceRoot)
	}

	var err error
	for _, dir := range dirs {
		if w.isWatchedLocked(dir) {
			continue
		}
		if rErr := w.fsWatcher.Remove(dir); rErr != nil && !errors.Is(rErr, fsnotify.ErrNonExistentWatch) {
			err = multierr.Append(err, rErr)
		}
	}
	return err
}

func (w *watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closer)
		if r := w.wg.WaitAndRecover(); r != nil {
			err = multierr.Append(err, r.AsError())
		}

		w.mu.Lock()
		for root, t := range w.debounceTimers {
			t.Stop()
			delete(w.debounceTimers, root)
		}
		w.roots = make(map[string][]string)
		w.mu.Unlock()

		err = multierr.Append(err, w.fsWatcher.Close())
	})
	return err
}

// isWatchedLocked reports whether another workspace still watches dir.
func (w *watcher) isWatchedLocked(dir string) bool {
	for _, dirs := range w.roots {
		for _, d := range dirs {
			if d == dir {
				return true
			}
		}
	}
	return false
}

func (w *watcher) handleChanges() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("Failure in build file watcher: %v", err)

		case <-w.closer:
			return
		}
	}
}

// handleEvent debounces changes per workspace, so that a burst of edits triggers a single refresh.
func (w *watcher) handleEvent(event fsnotify.Event) {
	if _, ok := _buildFiles[filepath.Base(event.Name)]; !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	root := w.rootOfLocked(event.Name)
	if root == "" {
		return
	}
	w.logger.Debugw("build file changed", "workspace", root, "file", event.Name, "op", event.Op.String())

	if t, ok := w.debounceTimers[root]; ok {
		t.Stop()
	}
	w.debounceTimers[root] = w.clock.AfterFunc(_debounceTimeout, func() {
		w.mu.Lock()
		delete(w.debounceTimers, root)
		w.mu.Unlock()

		w.refresh(root)
	})
}

// rootOfLocked returns the most specific watched workspace containing path.
func (w *watcher) rootOfLocked(path string) string {
	best := ""
	for root := range w.roots {
		if entity.IsWithin(root, path) && len(root) > len(best) {
			best = root
		}
	}
	return best
}

func (w *watcher) refresh(workspaceRoot string) {
	w.stats.Counter("refreshes").Inc(1)
	w.logger.Infow("build configuration changed, refreshing", "workspace", workspaceRoot)

	if err := w.orchestrator.Refresh(context.Background(), workspaceRoot); err != nil {
		w.logger.Warnw("refreshing workspace", "workspace", workspaceRoot, "error", err)
	}
	w.coalescer.Submit(entity.ProjectSubject(workspaceRoot), nil)
}

// buildDirs returns the workspace root and each of its direct subdirectories that hold a build file.
func buildDirs(workspaceRoot string) ([]string, error) {
	entries, err := os.ReadDir(workspaceRoot)
	if err != nil {
		return nil, err
	}

	dirs := []string{workspaceRoot}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(workspaceRoot, entry.Name())
		if hasBuildFile(dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs, nil
}

func hasBuildFile(dir string) bool {
	for name := range _buildFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
