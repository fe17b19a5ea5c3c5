package entity

import (
	"fmt"
	"time"
)

// LintConfigKey is the key that contains lint orchestration configuration.
const LintConfigKey = "lint"

// Mode selects which analysis backend serves requests.
type Mode string

const (
	// ModeAuto prefers the daemon and falls back to the batch tool on failure.
	ModeAuto Mode = "auto"
	// ModeServer uses the daemon exclusively.
	ModeServer Mode = "server"
	// ModeBatch always uses the batch tool.
	ModeBatch Mode = "batch"
)

const (
	_defaultWrapper        = "gradlew"
	_defaultTask           = "lint"
	_defaultReportPath     = "app/build/reports/lint-results-debug.xml"
	_defaultFileTimeout    = 2 * time.Minute
	_defaultProjectTimeout = 10 * time.Minute
	_defaultEvictionWindow = 5 * time.Minute
	_defaultStartupTimeout = 30 * time.Second
	_defaultRequestTimeout = 30 * time.Second
	_defaultAnalyzeTimeout = 2 * time.Minute
	_defaultShutdownGrace  = 2 * time.Second
	_defaultDebounce       = 300 * time.Millisecond
)

// LintConfig is populated from the "lint" configuration key.
type LintConfig struct {
	Mode      Mode            `yaml:"mode"`
	Tool      ToolConfig      `yaml:"tool"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Eviction  EvictionConfig  `yaml:"idleEviction"`
	Coalescer CoalescerConfig `yaml:"coalescer"`
}

// ToolConfig configures the batch analysis tool.
type ToolConfig struct {
	// ExecutableOverride replaces the conventional wrapper. Relative paths are resolved against the workspace root.
	ExecutableOverride  string        `yaml:"executableOverride"`
	Wrapper             string        `yaml:"wrapper"`
	Task                string        `yaml:"task"`
	Offline             bool          `yaml:"offline"`
	SkipDependencyCheck bool          `yaml:"skipDependencyCheck"`
	ReportPath          string        `yaml:"reportPath"`
	StopArgs            []string      `yaml:"stopArgs"`
	FileTimeout         time.Duration `yaml:"fileTimeout"`
	ProjectTimeout      time.Duration `yaml:"projectTimeout"`
}

// DaemonConfig configures the persistent analysis daemon.
type DaemonConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// ResourceFlags are passed through to the daemon process ahead of Args, e.g. JVM heap settings.
	ResourceFlags         []string      `yaml:"resourceFlags"`
	StartupTimeout        time.Duration `yaml:"startupTimeout"`
	RequestTimeout        time.Duration `yaml:"requestTimeout"`
	AnalyzeFileTimeout    time.Duration `yaml:"analyzeFileTimeout"`
	AnalyzeProjectTimeout time.Duration `yaml:"analyzeProjectTimeout"`
	ShutdownGrace         time.Duration `yaml:"shutdownGrace"`
}

// EvictionConfig configures idle eviction of long-lived helper processes.
type EvictionConfig struct {
	Enabled bool          `yaml:"enabled"`
	Window  time.Duration `yaml:"window"`
}

// CoalescerConfig configures request coalescing.
type CoalescerConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Configured reports whether a daemon command is available.
func (d DaemonConfig) Configured() bool {
	return d.Command != ""
}

// CommandLine returns the full daemon command line.
func (d DaemonConfig) CommandLine() []string {
	cmd := make([]string, 0, 1+len(d.ResourceFlags)+len(d.Args))
	cmd = append(cmd, d.Command)
	cmd = append(cmd, d.ResourceFlags...)
	return append(cmd, d.Args...)
}

// WithDefaults fills in unset values.
func (c LintConfig) WithDefaults() LintConfig {
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.Tool.Wrapper == "" {
		c.Tool.Wrapper = _defaultWrapper
	}
	if c.Tool.Task == "" {
		c.Tool.Task = _defaultTask
	}
	if c.Tool.ReportPath == "" {
		c.Tool.ReportPath = _defaultReportPath
	}
	if len(c.Tool.StopArgs) == 0 {
		c.Tool.StopArgs = []string{"--stop"}
	}
	c.Tool.FileTimeout = orDefault(c.Tool.FileTimeout, _defaultFileTimeout)
	c.Tool.ProjectTimeout = orDefault(c.Tool.ProjectTimeout, _defaultProjectTimeout)
	c.Eviction.Window = orDefault(c.Eviction.Window, _defaultEvictionWindow)
	c.Daemon.StartupTimeout = orDefault(c.Daemon.StartupTimeout, _defaultStartupTimeout)
	c.Daemon.RequestTimeout = orDefault(c.Daemon.RequestTimeout, _defaultRequestTimeout)
	c.Daemon.AnalyzeFileTimeout = orDefault(c.Daemon.AnalyzeFileTimeout, _defaultAnalyzeTimeout)
	c.Daemon.AnalyzeProjectTimeout = orDefault(c.Daemon.AnalyzeProjectTimeout, _defaultAnalyzeTimeout)
	c.Daemon.ShutdownGrace = orDefault(c.Daemon.ShutdownGrace, _defaultShutdownGrace)
	c.Coalescer.Debounce = orDefault(c.Coalescer.Debounce, _defaultDebounce)
	return c
}

// Validate checks the configuration for values that cannot be defaulted.
func (c LintConfig) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeBatch:
	case ModeServer:
		if !c.Daemon.Configured() {
			return fmt.Errorf("mode %q requires %s.daemon.command", c.Mode, LintConfigKey)
		}
	default:
		return fmt.Errorf("unknown mode %q, expected one of %q", c.Mode, []Mode{ModeAuto, ModeServer, ModeBatch})
	}

	if c.Eviction.Window < 0 {
		return fmt.Errorf("negative idle eviction window %v", c.Eviction.Window)
	}
	return nil
}

func orDefault(d time.Duration, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
