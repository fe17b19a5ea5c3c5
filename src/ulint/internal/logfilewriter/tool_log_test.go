package logfilewriter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/lint-lsp/src/ulint/internal/fs/fsmock"
	"github.com/uber/lint-lsp/src/ulint/internal/serverinfofile/serverinfofilemock"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	serverInfoFileMock := serverinfofilemock.NewMockServerInfoFile(ctrl)
	fsMock := fsmock.NewMockUlintFS(ctrl)

	t.Run("success", func(t *testing.T) {
		lc := fxtest.NewLifecycle(t)
		p := Params{Lifecycle: lc, ServerInfoFile: serverInfoFileMock, FS: fsMock}

		file, err := os.CreateTemp(t.TempDir(), "*.log")
		require.NoError(t, err)
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(nil)
		fsMock.EXPECT().TempFile(gomock.Any(), "*.log").Return(file, nil)
		serverInfoFileMock.EXPECT().UpdateField(fmt.Sprintf(_fmtOutputKey, "ulint-tool"), file.Name()).Return(nil)

		toolLog, err := New(p, "ulint-tool")
		require.NoError(t, err)
		assert.Equal(t, file.Name(), toolLog.Path())

		_, err = toolLog.Write([]byte("BUILD SUCCESSFUL"))
		assert.NoError(t, err)
		toolLog.Line("/home/user/app", "stderr", "warning: deprecated")

		lc.RequireStart()
		fsMock.EXPECT().Remove(file.Name()).Return(nil)
		lc.RequireStop()
	})

	t.Run("mkdir fail", func(t *testing.T) {
		p := Params{Lifecycle: fxtest.NewLifecycle(t), ServerInfoFile: serverInfoFileMock, FS: fsMock}
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(errors.New("sample"))
		_, err := New(p, "ulint-tool")
		assert.Error(t, err)
	})

	t.Run("tempfile fail", func(t *testing.T) {
		p := Params{Lifecycle: fxtest.NewLifecycle(t), ServerInfoFile: serverInfoFileMock, FS: fsMock}
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(nil)
		fsMock.EXPECT().TempFile(gomock.Any(), gomock.Any()).Return(nil, errors.New("sample"))
		_, err := New(p, "ulint-tool")
		assert.Error(t, err)
	})

	t.Run("server info fail", func(t *testing.T) {
		p := Params{Lifecycle: fxtest.NewLifecycle(t), ServerInfoFile: serverInfoFileMock, FS: fsMock}
		file, err := os.CreateTemp(t.TempDir(), "*.log")
		require.NoError(t, err)
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(nil)
		fsMock.EXPECT().TempFile(gomock.Any(), gomock.Any()).Return(file, nil)
		serverInfoFileMock.EXPECT().UpdateField(gomock.Any(), gomock.Any()).Return(errors.New("read-only"))
		_, err = New(p, "ulint-tool")
		assert.Error(t, err)
	})
}

func newBufferedLog() (ToolLog, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(&buf),
		zap.InfoLevel,
	)
	return NewFromLogger(zap.New(core).Sugar()), &buf
}

func TestWrite(t *testing.T) {
	toolLog, buf := newBufferedLog()

	sampleMessage := "sample log message"
	_, err := toolLog.Write([]byte(sampleMessage + "\n" + sampleMessage + "\n\n"))
	assert.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), sampleMessage))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 2)
	assert.Empty(t, toolLog.Path())
}

func TestLine(t *testing.T) {
	toolLog, buf := newBufferedLog()

	toolLog.Line("/home/user/app", "stdout", "> Task :app:lint")
	toolLog.Line("/home/user/app", "stdout", "")

	out := strings.TrimSpace(buf.String())
	assert.Len(t, strings.Split(out, "\n"), 1)
	assert.Contains(t, out, "> Task :app:lint")
	assert.Contains(t, out, `"workspace": "app"`)
	assert.Contains(t, out, `"stream": "stdout"`)
}
