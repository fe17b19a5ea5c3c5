package ulint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uber-go/tally"
	"github.com/uber/lint-lsp/src/ulint/controller/ulint/ulintmock"
	"github.com/uber/lint-lsp/src/ulint/factory"
	"github.com/uber/lint-lsp/src/ulint/mapper"
	"go.uber.org/mock/gomock"
)

func TestLintProject(t *testing.T) {
	tests := []struct {
		name     string
		params   interface{}
		wantRoot string
		ctrlErr  error
		skipCtrl bool
		wantErr  bool
	}{
		{
			name:   "no params",
			params: nil,
		},
		{
			name:     "explicit workspace root",
			params:   mapper.LintProjectParams{WorkspaceRoot: "/home/user/other"},
			wantRoot: "/home/user/other",
		},
		{
			name:    "controller error",
			params:  mapper.LintProjectParams{},
			ctrlErr: errors.New("not initialized"),
			wantErr: true,
		},
		{
			name:     "invalid params",
			params:   []int{1, 2},
			skipCtrl: true,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := ulintmock.NewMockController(ctrl)
			if !tt.skipCtrl {
				c.EXPECT().LintProject(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, params *mapper.LintProjectParams) error {
					assert.Equal(t, tt.wantRoot, params.WorkspaceRoot)
					return tt.ctrlErr
				})
			}

			r := jsonRPCRouter{ulint: c, stats: tally.NoopScope}
			err := r.HandleReq(context.Background(), newMockReplier(), factory.JSONRPCRequest(MethodLintProject, tt.params))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := ulintmock.NewMockController(ctrl)
		c.EXPECT().Refresh(gomock.Any(), &mapper.LintProjectParams{}).Return(nil)

		r := jsonRPCRouter{ulint: c, stats: tally.NoopScope}
		assert.NoError(t, r.HandleReq(context.Background(), newMockReplier(), factory.JSONRPCRequest(MethodRefresh, nil)))
	})

	t.Run("controller error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := ulintmock.NewMockController(ctrl)
		c.EXPECT().Refresh(gomock.Any(), gomock.Any()).Return(errors.New("refresh failed"))

		r := jsonRPCRouter{ulint: c, stats: tally.NoopScope}
		assert.Error(t, r.HandleReq(context.Background(), newMockReplier(), factory.JSONRPCRequest(MethodRefresh, mapper.LintProjectParams{WorkspaceRoot: "/w"})))
	})
}
