package logfilewriter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uber/lint-lsp/src/ulint/internal/fs"
	"github.com/uber/lint-lsp/src/ulint/internal/serverinfofile"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const _fmtOutputKey = "output:%s"

// Params define the dependencies for New.
type Params struct {
	FS             fs.UlintFS
	Lifecycle      fx.Lifecycle
	ServerInfoFile serverinfofile.ServerInfoFile
}

// ToolLog collects human readable output of external tools in a temporary file the user can tail.
// It is independent of the server's own structured logging.
type ToolLog interface {
	// Write logs every non-empty line of p.
	Write(p []byte) (n int, err error)
	// Line records a single output line of a command run in the given workspace.
	Line(workspaceRoot string, stream string, line string)
	// Path returns the location of the log file.
	Path() string
}

// New creates the log file under a directory named after name in the user's temp directory.
// The path is advertised in the server info file so that the IDE can open it.
func New(p Params, name string) (ToolLog, error) {
	logsDirPath := filepath.Join(os.TempDir(), name)
	if err := p.FS.MkdirAll(logsDirPath); err != nil {
		return nil, fmt.Errorf("creating tool log directory: %w", err)
	}

	logFile, err := p.FS.TempFile(logsDirPath, "*.log")
	if err != nil {
		return nil, fmt.Errorf("creating tool log file: %w", err)
	}

	if err := p.ServerInfoFile.UpdateField(fmt.Sprintf(_fmtOutputKey, name), logFile.Name()); err != nil {
		logFile.Close()
		return nil, err
	}

	// Write via a logger for formatting, timestamp, and buffering.
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(logFile),
		zap.InfoLevel,
	)
	logger := zap.New(core).Sugar()

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			logFile.Close()
			return p.FS.Remove(logFile.Name())
		},
	})

	return &toolLog{logger: logger, path: logFile.Name()}, nil
}

// NewFromLogger wraps an existing logger, for callers that have no file to write to.
func NewFromLogger(logger *zap.SugaredLogger) ToolLog {
	return &toolLog{logger: logger}
}

type toolLog struct {
	logger *zap.SugaredLogger
	path   string
}

func (o *toolLog) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		if len(line) > 0 {
			o.logger.Info(line)
		}
	}
	return len(p), nil
}

func (o *toolLog) Line(workspaceRoot string, stream string, line string) {
	if len(line) == 0 {
		return
	}
	o.logger.Infow(line, "workspace", filepath.Base(workspaceRoot), "stream", stream)
}

func (o *toolLog) Path() string {
	return o.path
}
