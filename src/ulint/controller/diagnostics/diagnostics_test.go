package diagnostics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/factory"
	"github.com/uber/lint-lsp/src/ulint/gateway/ide-client/ideclientmock"
	ulinterrors "github.com/uber/lint-lsp/src/ulint/internal/errors"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"github.com/uber/lint-lsp/src/ulint/repository/session/sessionmock"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const _root = "/home/user/app"

// publishRecorder collects the diagnostics published to each document.
type publishRecorder struct {
	mu        sync.Mutex
	published []*protocol.PublishDiagnosticsParams
}

func (r *publishRecorder) record(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, params)
	return nil
}

func (r *publishRecorder) byURI() map[uri.URI][]protocol.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[uri.URI][]protocol.Diagnostic)
	for _, p := range r.published {
		result[p.URI] = p.Diagnostics
	}
	return result
}

func (r *publishRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = nil
}

func newTestController(t *testing.T) (*controller, *sessionmock.MockRepository, *ideclientmock.MockGateway, tally.TestScope) {
	ctrl := gomock.NewController(t)
	sessions := sessionmock.NewMockRepository(ctrl)
	gateway := ideclientmock.NewMockGateway(ctrl)
	stats := tally.NewTestScope("", nil)
	c := New(Params{
		Sessions:   sessions,
		IdeGateway: gateway,
		Logger:     zap.NewNop().Sugar(),
		Stats:      stats,
	}).(*controller)
	return c, sessions, gateway, stats
}

func TestNew(t *testing.T) {
	assert.NotPanics(t, func() {
		New(Params{
			Stats:  tally.NewTestScope("testing", make(map[string]string, 0)),
			Logger: zap.NewNop().Sugar(),
		})
	})
}

func TestCommitProject(t *testing.T) {
	ctx := context.Background()
	c, sessions, gateway, stats := newTestController(t)
	s := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{s}, nil).AnyTimes()

	rec := &publishRecorder{}
	gateway.EXPECT().PublishDiagnostics(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
		id, err := mapper.ContextToSessionUUID(ctx)
		require.NoError(t, err)
		assert.Equal(t, s.UUID, id)
		return rec.record(ctx, params)
	}).AnyTimes()

	a := factory.Issue(_root, "A.kt")
	b := factory.Issue(_root, "B.kt")
	b2 := factory.Issue(_root, "B.kt")
	b2.RuleID = "OtherRule"

	req := entity.AnalysisRequest{ID: 1, Subject: entity.ProjectSubject(_root)}
	require.NoError(t, c.Commit(ctx, req, []entity.Issue{a, b, b2}))

	published := rec.byURI()
	require.Len(t, published, 2)
	assert.Len(t, published[uri.File(_root+"/A.kt")], 1)
	assert.Len(t, published[uri.File(_root+"/B.kt")], 2)
	assert.Equal(t, int64(2), stats.Snapshot().Counters()["diagnostics.published+"].Value())

	t.Run("documents without issues are cleared", func(t *testing.T) {
		rec.reset()
		req := entity.AnalysisRequest{ID: 2, Subject: entity.ProjectSubject(_root)}
		require.NoError(t, c.Commit(ctx, req, []entity.Issue{b}))

		published := rec.byURI()
		require.Len(t, published, 2)
		assert.Empty(t, published[uri.File(_root+"/A.kt")])
		assert.NotNil(t, published[uri.File(_root+"/A.kt")])
		assert.Len(t, published[uri.File(_root+"/B.kt")], 1)
		assert.NotContains(t, c.documents[_root], uri.File(_root+"/A.kt"))
	})

	t.Run("empty result clears everything", func(t *testing.T) {
		rec.reset()
		req := entity.AnalysisRequest{ID: 3, Subject: entity.ProjectSubject(_root)}
		require.NoError(t, c.Commit(ctx, req, nil))

		published := rec.byURI()
		require.Len(t, published, 1)
		assert.Empty(t, published[uri.File(_root+"/B.kt")])
		assert.Empty(t, c.documents[_root])
	})
}

func TestCommitFile(t *testing.T) {
	ctx := context.Background()
	c, sessions, gateway, _ := newTestController(t)
	s := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{s}, nil).AnyTimes()

	rec := &publishRecorder{}
	gateway.EXPECT().PublishDiagnostics(gomock.Any(), gomock.Any()).DoAndReturn(rec.record).AnyTimes()

	project := entity.AnalysisRequest{ID: 1, Subject: entity.ProjectSubject(_root)}
	require.NoError(t, c.Commit(ctx, project, []entity.Issue{
		factory.Issue(_root, "A.kt"),
		factory.Issue(_root, "B.kt"),
	}))
	rec.reset()

	// A file result only touches that file, even when it is now clean.
	file := entity.AnalysisRequest{ID: 2, Subject: entity.FileSubject(_root, _root+"/A.kt")}
	require.NoError(t, c.Commit(ctx, file, nil))

	published := rec.byURI()
	require.Len(t, published, 1)
	assert.Empty(t, published[uri.File(_root+"/A.kt")])
	assert.Len(t, c.documents[_root], 1)
	assert.Contains(t, c.documents[_root], uri.File(_root+"/B.kt"))
}

func TestCommitMultipleSessions(t *testing.T) {
	ctx := context.Background()
	c, sessions, gateway, _ := newTestController(t)
	s1 := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	s2 := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{s1, s2}, nil)

	var mu sync.Mutex
	seen := make(map[string]int)
	gateway.EXPECT().PublishDiagnostics(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
		id, err := mapper.ContextToSessionUUID(ctx)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		seen[id.String()]++
		return nil
	}).Times(2)

	req := entity.AnalysisRequest{ID: 1, Subject: entity.FileSubject(_root, _root+"/A.kt")}
	require.NoError(t, c.Commit(ctx, req, []entity.Issue{factory.Issue(_root, "A.kt")}))
	assert.Equal(t, map[string]int{s1.UUID.String(): 1, s2.UUID.String(): 1}, seen)
}

func TestCommitErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("session lookup failure", func(t *testing.T) {
		c, sessions, _, _ := newTestController(t)
		sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return(nil, errors.New("lookup failed"))

		req := entity.AnalysisRequest{ID: 1, Subject: entity.ProjectSubject(_root)}
		assert.Error(t, c.Commit(ctx, req, []entity.Issue{factory.Issue(_root, "A.kt")}))
	})

	t.Run("publish failure does not fail the commit", func(t *testing.T) {
		c, sessions, gateway, stats := newTestController(t)
		s := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
		sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{s}, nil)
		gateway.EXPECT().PublishDiagnostics(gomock.Any(), gomock.Any()).Return(errors.New("connection closed"))

		req := entity.AnalysisRequest{ID: 1, Subject: entity.ProjectSubject(_root)}
		assert.NoError(t, c.Commit(ctx, req, []entity.Issue{factory.Issue(_root, "A.kt")}))
		assert.Nil(t, stats.Snapshot().Counters()["diagnostics.published+"])
	})
}

func TestReportFailure(t *testing.T) {
	ctx := context.Background()
	req := entity.AnalysisRequest{ID: 1, Subject: entity.ProjectSubject(_root)}
	s := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}

	t.Run("actionable failures are shown", func(t *testing.T) {
		c, sessions, gateway, _ := newTestController(t)
		sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{s}, nil)
		gateway.EXPECT().ShowMessage(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params *protocol.ShowMessageParams) error {
			assert.Equal(t, protocol.MessageTypeError, params.Type)
			assert.Contains(t, params.Message, "Android SDK location not found")
			return nil
		})

		c.ReportFailure(ctx, req, &ulinterrors.ToolConfigurationError{Problem: "Android SDK location not found"})
	})

	t.Run("other failures are logged", func(t *testing.T) {
		c, sessions, gateway, stats := newTestController(t)
		sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{s}, nil)
		gateway.EXPECT().LogMessage(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params *protocol.LogMessageParams) error {
			assert.Equal(t, protocol.MessageTypeWarning, params.Type)
			assert.Contains(t, params.Message, "daemon crashed")
			return nil
		})

		c.ReportFailure(ctx, req, errors.New("daemon crashed"))
		assert.Equal(t, int64(1), stats.Snapshot().Counters()["diagnostics.failures_reported+"].Value())
	})

	t.Run("session lookup failure", func(t *testing.T) {
		c, sessions, _, _ := newTestController(t)
		sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return(nil, errors.New("lookup failed"))
		assert.NotPanics(t, func() {
			c.ReportFailure(ctx, req, errors.New("daemon crashed"))
		})
	})
}

func TestResend(t *testing.T) {
	c, sessions, gateway, _ := newTestController(t)
	s := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	ctx := mapper.SessionUUIDToContext(context.Background(), s.UUID)

	c.documents[_root] = map[uri.URI][]protocol.Diagnostic{
		uri.File(_root + "/B.kt"): {mapper.IssueToDiagnostic(factory.Issue(_root, "B.kt"))},
		uri.File(_root + "/A.kt"): {mapper.IssueToDiagnostic(factory.Issue(_root, "A.kt"))},
	}

	sessions.EXPECT().GetFromContext(gomock.Any()).Return(s, nil)
	gomock.InOrder(
		gateway.EXPECT().PublishDiagnostics(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
			assert.Equal(t, uri.File(_root+"/A.kt"), params.URI)
			return nil
		}),
		gateway.EXPECT().PublishDiagnostics(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
			assert.Equal(t, uri.File(_root+"/B.kt"), params.URI)
			return nil
		}),
	)
	assert.NoError(t, c.Resend(ctx))

	t.Run("no session", func(t *testing.T) {
		sessions.EXPECT().GetFromContext(gomock.Any()).Return(nil, ulinterrors.NoSessionError)
		assert.ErrorIs(t, c.Resend(context.Background()), ulinterrors.NoSessionError)
	})
}

func TestForget(t *testing.T) {
	c, _, _, _ := newTestController(t)
	c.documents[_root] = map[uri.URI][]protocol.Diagnostic{}
	c.Forget(_root)
	assert.NotContains(t, c.documents, _root)
}
