package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/uber/lint-lsp/src/ulint/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig represents the logging configuration from the config files
type LoggingConfig struct {
	Level       string   `yaml:"level"`
	Development bool     `yaml:"development"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"outputPaths"`
}

// LoggerModule provides the logger dependencies
var LoggerModule = fx.Options(
	fx.Provide(NewSugaredLogger),
	fx.Provide(NewLogger),
)

func NewLogger(sugar *zap.SugaredLogger) *zap.Logger {
	return sugar.Desugar()
}

// LoggerParams are the dependencies of the logger.
type LoggerParams struct {
	fx.In

	Config    config.Provider
	FS        fs.UlintFS
	Lifecycle fx.Lifecycle
}

// NewSugaredLogger creates a new zap.SugaredLogger based on the configuration
func NewSugaredLogger(p LoggerParams) (*zap.SugaredLogger, error) {
	var loggingConfig LoggingConfig

	if err := p.Config.Get("logging").Populate(&loggingConfig); err != nil {
		return nil, fmt.Errorf("loading logging config: %w", err)
	}

	level, err := zapcore.ParseLevel(loggingConfig.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if loggingConfig.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	var encoder zapcore.Encoder
	switch loggingConfig.Encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	outputPaths := loggingConfig.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}
	if err := createLogDirs(p.FS, outputPaths); err != nil {
		return nil, err
	}
	sink, closeSink, err := zap.Open(outputPaths...)
	if err != nil {
		return nil, fmt.Errorf("opening log outputs: %w", err)
	}

	core := zapcore.NewCore(encoder, sink, level)

	var logger *zap.Logger
	if loggingConfig.Development {
		logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		logger = zap.New(core)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			closeSink()
			return nil
		},
	})

	return logger.Sugar(), nil
}

// createLogDirs makes sure the directory of every file output exists.
func createLogDirs(fsys fs.UlintFS, outputPaths []string) error {
	for _, outputPath := range outputPaths {
		if outputPath == "stdout" || outputPath == "stderr" {
			continue
		}
		if err := fsys.MkdirAll(filepath.Dir(outputPath)); err != nil {
			return fmt.Errorf("creating log directory for %q: %w", outputPath, err)
		}
	}
	return nil
}
