package serverinfofile

//go:generate mockgen -source=server_info_file.go -destination=serverinfofilemock/server_info_file_mock.go -package=serverinfofilemock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/uber/lint-lsp/src/ulint/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _configKeyInfoFile = "serverInfoFilePath"

// Well known keys written by ulint.
const (
	// KeyAddress holds the address of the JSON-RPC listener.
	KeyAddress = "address"
	// KeyPID holds the process id of the running server.
	KeyPID = "pid"
)

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// ServerInfoFile manages the contents of the file the IDE reads to find a running server.
type ServerInfoFile interface {
	// UpdateField sets a key and rewrites the file.
	UpdateField(key string, value string) error
	// Fields returns a copy of the current contents.
	Fields() map[string]string
}

type module struct {
	infofile     string
	logger       *zap.SugaredLogger
	fs           fs.UlintFS
	fileContents map[string]string
	mu           sync.Mutex
}

// Params define values to be used by ServerInfoFile.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	FS        fs.UlintFS
}

// New creates a new ServerInfoFile and records the server's pid in it.
func New(p Params) (ServerInfoFile, error) {
	m := &module{
		logger:       p.Logger.With("plugin", "server-info"),
		fs:           p.FS,
		fileContents: make(map[string]string),
	}

	if err := m.processConfig(p.Config); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.UpdateField(KeyPID, fmt.Sprint(os.Getpid()))
		},
		OnStop: m.OnStop,
	})

	return m, nil
}

// OnStop removes the file so that stale connection info is never picked up.
func (m *module) OnStop(ctx context.Context) error {
	if m.infofile == "" {
		return nil
	}
	return m.fs.Remove(m.infofile)
}

func (m *module) UpdateField(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fileContents[key] = value
	jsonOutput, err := json.MarshalIndent(m.fileContents, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling json: %w", err)
	}

	if err := os.WriteFile(m.infofile, jsonOutput, 0o644); err != nil {
		return fmt.Errorf("writing info file: %w", err)
	}
	m.logger.Infow("server info saved", "file", m.infofile, key, value)
	return nil
}

func (m *module) Fields() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields := make(map[string]string, len(m.fileContents))
	for k, v := range m.fileContents {
		fields[k] = v
	}
	return fields
}

func (m *module) processConfig(cfg config.Provider) error {
	if err := cfg.Get(_configKeyInfoFile).Populate(&m.infofile); err != nil {
		return fmt.Errorf("getting config field %q: %w", _configKeyInfoFile, err)
	}
	if m.infofile == "" {
		return fmt.Errorf("missing field %q in config", _configKeyInfoFile)
	}
	return nil
}
