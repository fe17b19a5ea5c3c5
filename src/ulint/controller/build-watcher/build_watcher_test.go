package buildwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/controller/coalescer/coalescermock"
	"github.com/uber/lint-lsp/src/ulint/controller/orchestrator/orchestratormock"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/internal/clock"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testDeps struct {
	orchestrator *orchestratormock.MockOrchestrator
	coalescer    *coalescermock.MockCoalescer
	clock        *clock.Manual
	stats        tally.TestScope
}

func newTestWatcher(t *testing.T) (*watcher, testDeps) {
	ctrl := gomock.NewController(t)
	deps := testDeps{
		orchestrator: orchestratormock.NewMockOrchestrator(ctrl),
		coalescer:    coalescermock.NewMockCoalescer(ctrl),
		clock:        clock.NewManual(time.Unix(1700000000, 0)),
		stats:        tally.NewTestScope("", nil),
	}
	w, err := newWatcher(deps.orchestrator, deps.coalescer, deps.clock, zap.NewNop().Sugar(), deps.stats)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, w.Close())
	})
	return w, deps
}

// newProject creates a workspace with a root build file and one module.
func newProject(t *testing.T) string {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "settings.gradle"), []byte("include ':app'\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "build.gradle.kts"), []byte("plugins {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".gradle"), 0o755))
	return root
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	lc := fxtest.NewLifecycle(t)
	w, err := New(Params{
		Orchestrator: orchestratormock.NewMockOrchestrator(ctrl),
		Coalescer:    coalescermock.NewMockCoalescer(ctrl),
		Clock:        clock.New(),
		Logger:       zap.NewNop().Sugar(),
		Stats:        tally.NoopScope,
		Lifecycle:    lc,
	})
	require.NoError(t, err)
	assert.NotNil(t, w)
	lc.RequireStart()
	lc.RequireStop()
}

func TestBuildDirs(t *testing.T) {
	root := newProject(t)

	dirs, err := buildDirs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{root, filepath.Join(root, "app")}, dirs)

	_, err = buildDirs(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	w, _ := newTestWatcher(t)
	root := newProject(t)

	require.NoError(t, w.Watch(context.Background(), root))
	require.NoError(t, w.Watch(context.Background(), root))
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "app")}, w.roots[root])
	assert.ElementsMatch(t, []string{root, filepath.Join(root, "app")}, w.fsWatcher.WatchList())

	require.NoError(t, w.Unwatch(root))
	assert.Empty(t, w.roots)
	assert.Empty(t, w.fsWatcher.WatchList())

	// Unwatching an unknown workspace is a no-op.
	assert.NoError(t, w.Unwatch(root))
}

func TestWatchMissingRoot(t *testing.T) {
	w, _ := newTestWatcher(t)
	assert.Error(t, w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing")))
	assert.Empty(t, w.roots)
}

func TestHandleEvent(t *testing.T) {
	t.Run("build file change refreshes and re-lints once", func(t *testing.T) {
		w, deps := newTestWatcher(t)
		root := newProject(t)
		w.roots[root] = []string{root}

		deps.orchestrator.EXPECT().Refresh(gomock.Any(), root).Return(nil)
		deps.coalescer.EXPECT().Submit(entity.ProjectSubject(root), nil).Return(entity.AnalysisRequest{ID: 1})

		w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "settings.gradle"), Op: fsnotify.Write})
		w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "app", "build.gradle.kts"), Op: fsnotify.Write})
		assert.Equal(t, 1, deps.clock.Pending())

		deps.clock.Advance(_debounceTimeout)
		assert.Equal(t, 0, deps.clock.Pending())
		assert.Equal(t, int64(1), deps.stats.Snapshot().Counters()["build-watcher.refreshes+"].Value())
	})

	t.Run("refresh failure still re-lints", func(t *testing.T) {
		w, deps := newTestWatcher(t)
		root := newProject(t)
		w.roots[root] = []string{root}

		deps.orchestrator.EXPECT().Refresh(gomock.Any(), root).Return(errors.New("daemon gone"))
		deps.coalescer.EXPECT().Submit(entity.ProjectSubject(root), nil).Return(entity.AnalysisRequest{ID: 1})

		w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "lint.xml"), Op: fsnotify.Create})
		deps.clock.Advance(_debounceTimeout)
	})

	t.Run("other files are ignored", func(t *testing.T) {
		w, deps := newTestWatcher(t)
		root := newProject(t)
		w.roots[root] = []string{root}

		w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "README.md"), Op: fsnotify.Write})
		w.handleEvent(fsnotify.Event{Name: "/elsewhere/build.gradle", Op: fsnotify.Write})
		assert.Equal(t, 0, deps.clock.Pending())
	})

	t.Run("unwatch cancels a pending refresh", func(t *testing.T) {
		w, deps := newTestWatcher(t)
		root := newProject(t)
		w.roots[root] = []string{root}

		w.handleEvent(fsnotify.Event{Name: filepath.Join(root, "gradle.properties"), Op: fsnotify.Write})
		require.Equal(t, 1, deps.clock.Pending())
		require.NoError(t, w.Unwatch(root))
		assert.Equal(t, 0, deps.clock.Pending())
	})
}

func TestRootOf(t *testing.T) {
	w, _ := newTestWatcher(t)
	w.roots["/work/app"] = nil
	w.roots["/work/app/nested"] = nil
	w.roots["/work/application"] = nil

	assert.Equal(t, "/work/app", w.rootOfLocked("/work/app/build.gradle"))
	assert.Equal(t, "/work/app/nested", w.rootOfLocked("/work/app/nested/lib/build.gradle"))
	assert.Equal(t, "/work/application", w.rootOfLocked("/work/application/build.gradle"))
	assert.Equal(t, "", w.rootOfLocked("/other/build.gradle"))
}

func TestWatchEndToEnd(t *testing.T) {
	w, deps := newTestWatcher(t)
	root := newProject(t)
	require.NoError(t, w.Watch(context.Background(), root))

	refreshed := make(chan struct{})
	deps.orchestrator.EXPECT().Refresh(gomock.Any(), root).Return(nil)
	deps.coalescer.EXPECT().Submit(entity.ProjectSubject(root), nil).DoAndReturn(func(entity.Subject, *string) entity.AnalysisRequest {
		close(refreshed)
		return entity.AnalysisRequest{ID: 1}
	})

	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "build.gradle.kts"), []byte("plugins { id(\"x\") }\n"), 0o644))
	require.Eventually(t, func() bool {
		return deps.clock.Pending() > 0
	}, 5*time.Second, 10*time.Millisecond)
	deps.clock.Advance(_debounceTimeout)

	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("build file change did not trigger a refresh")
	}
}

func TestClose(t *testing.T) {
	w, _ := newTestWatcher(t)
	root := newProject(t)
	require.NoError(t, w.Watch(context.Background(), root))

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
	assert.Empty(t, w.roots)
}
