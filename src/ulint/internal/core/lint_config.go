package core

import (
	"fmt"

	"github.com/uber/lint-lsp/src/ulint/entity"
	"go.uber.org/config"
	"go.uber.org/fx"
)

// LintConfigModule provides the defaulted and validated lint orchestration settings.
var LintConfigModule = fx.Options(
	fx.Provide(NewLintConfig),
)

// NewLintConfig reads the lint section of the configuration. Unset values take their defaults.
func NewLintConfig(provider config.Provider) (entity.LintConfig, error) {
	var cfg entity.LintConfig
	if err := provider.Get(entity.LintConfigKey).Populate(&cfg); err != nil {
		return entity.LintConfig{}, fmt.Errorf("loading %s config: %w", entity.LintConfigKey, err)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return entity.LintConfig{}, fmt.Errorf("invalid %s config: %w", entity.LintConfigKey, err)
	}
	return cfg, nil
}
