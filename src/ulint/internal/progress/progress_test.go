package progress

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/entity"
	"github.com/uber/lint-lsp/src/ulint/factory"
	"github.com/uber/lint-lsp/src/ulint/gateway/ide-client/ideclientmock"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"github.com/uber/lint-lsp/src/ulint/repository/session/sessionmock"
	"go.lsp.dev/protocol"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const _root = "/home/user/app"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// progressRecorder collects the progress values sent to each session.
type progressRecorder struct {
	mu     sync.Mutex
	values map[uuid.UUID][]interface{}
}

func (r *progressRecorder) record(ctx context.Context, params *protocol.ProgressParams) error {
	id, err := mapper.ContextToSessionUUID(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[id] = append(r.values[id], params.Value)
	return nil
}

func (r *progressRecorder) kinds(id uuid.UUID) []protocol.WorkDoneProgressKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []protocol.WorkDoneProgressKind
	for _, v := range r.values[id] {
		switch val := v.(type) {
		case *protocol.WorkDoneProgressBegin:
			kinds = append(kinds, val.Kind)
		case *protocol.WorkDoneProgressReport:
			kinds = append(kinds, val.Kind)
		case *protocol.WorkDoneProgressEnd:
			kinds = append(kinds, val.Kind)
		}
	}
	return kinds
}

type testDeps struct {
	sessions *sessionmock.MockRepository
	gateway  *ideclientmock.MockGateway
	recorder *progressRecorder
	stats    tally.TestScope
}

func newTestManager(t *testing.T) (*manager, testDeps) {
	ctrl := gomock.NewController(t)
	deps := testDeps{
		sessions: sessionmock.NewMockRepository(ctrl),
		gateway:  ideclientmock.NewMockGateway(ctrl),
		recorder: &progressRecorder{values: make(map[uuid.UUID][]interface{})},
		stats:    tally.NewTestScope("", nil),
	}
	m := New(Params{
		Sessions:   deps.sessions,
		IdeGateway: deps.gateway,
		Logger:     zap.NewNop().Sugar(),
		Stats:      deps.stats,
	}).(*manager)
	return m, deps
}

func TestNew(t *testing.T) {
	m, _ := newTestManager(t)
	assert.NotNil(t, m)
	assert.Empty(t, m.active)
}

func TestStartReportDone(t *testing.T) {
	ctx := context.Background()
	m, deps := newTestManager(t)

	s1 := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	s2 := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	deps.sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{s1, s2}, nil)
	deps.gateway.EXPECT().WorkDoneProgressCreate(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	deps.gateway.EXPECT().Progress(gomock.Any(), gomock.Any()).DoAndReturn(deps.recorder.record).AnyTimes()

	h := m.Start(ctx, _root, "Lint")
	h.Report(ctx, "Analyzing Main.kt")
	h.Done(ctx)

	want := []protocol.WorkDoneProgressKind{
		protocol.WorkDoneProgressKindBegin,
		protocol.WorkDoneProgressKindReport,
		protocol.WorkDoneProgressKindEnd,
	}
	assert.Equal(t, want, deps.recorder.kinds(s1.UUID))
	assert.Equal(t, want, deps.recorder.kinds(s2.UUID))
	assert.Empty(t, m.active)
	assert.Equal(t, int64(1), deps.stats.Snapshot().Counters()["progress.started+"].Value())
}

func TestSharedIndicator(t *testing.T) {
	ctx := context.Background()
	m, deps := newTestManager(t)

	s := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	deps.sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{s}, nil).Times(1)
	deps.gateway.EXPECT().WorkDoneProgressCreate(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	deps.gateway.EXPECT().Progress(gomock.Any(), gomock.Any()).DoAndReturn(deps.recorder.record).AnyTimes()

	first := m.Start(ctx, _root, "Lint")
	second := m.Start(ctx, _root, "Lint")
	assert.Len(t, m.active, 1)

	first.Done(ctx)
	// Repeated Done calls release only once.
	first.Done(ctx)
	assert.Len(t, m.active, 1)
	assert.NotContains(t, deps.recorder.kinds(s.UUID), protocol.WorkDoneProgressKindEnd)

	second.Done(ctx)
	assert.Empty(t, m.active)
	assert.Equal(t, []protocol.WorkDoneProgressKind{
		protocol.WorkDoneProgressKindBegin,
		protocol.WorkDoneProgressKindEnd,
	}, deps.recorder.kinds(s.UUID))
}

func TestSeparateIndicators(t *testing.T) {
	ctx := context.Background()
	m, deps := newTestManager(t)

	deps.sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), gomock.Any()).Return(nil, nil).Times(3)

	a := m.Start(ctx, _root, "Lint")
	b := m.Start(ctx, "/home/user/other", "Lint")
	c := m.Start(ctx, _root, "Refresh")
	assert.Len(t, m.active, 3)

	a.Done(ctx)
	b.Done(ctx)
	c.Done(ctx)
	assert.Empty(t, m.active)
}

func TestRejectedToken(t *testing.T) {
	ctx := context.Background()
	m, deps := newTestManager(t)

	accepting := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	rejecting := &entity.Session{UUID: factory.UUID(), WorkspaceRoot: _root}
	deps.sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return([]*entity.Session{rejecting, accepting}, nil)
	deps.gateway.EXPECT().WorkDoneProgressCreate(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params *protocol.WorkDoneProgressCreateParams) error {
		id, err := mapper.ContextToSessionUUID(ctx)
		require.NoError(t, err)
		if id == rejecting.UUID {
			return errors.New("method not found")
		}
		return nil
	}).Times(2)
	deps.gateway.EXPECT().Progress(gomock.Any(), gomock.Any()).DoAndReturn(deps.recorder.record).AnyTimes()

	h := m.Start(ctx, _root, "Lint")
	h.Report(ctx, "Analyzing project")
	h.Done(ctx)

	assert.Len(t, deps.recorder.kinds(accepting.UUID), 3)
	assert.Empty(t, deps.recorder.kinds(rejecting.UUID))
}

func TestSessionLookupFailure(t *testing.T) {
	ctx := context.Background()
	m, deps := newTestManager(t)

	deps.sessions.EXPECT().GetAllFromWorkspaceRoot(gomock.Any(), _root).Return(nil, errors.New("lookup failed"))

	h := m.Start(ctx, _root, "Lint")
	h.Report(ctx, "Analyzing project")
	h.Done(ctx)
	assert.Empty(t, m.active)
}
