// Package app assembles the guessbot application: configuration,
// infrastructure bootstrap, and Telegram runtime wiring.
package app

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "guessbot/core/config"
	coredatabase "guessbot/core/database"
)

// GameConfig bounds what the settings flow accepts from users.
type GameConfig struct {
	MaxAttempts         int   `yaml:"max_attempts" envconfig:"GAME_MAX_ATTEMPTS"`
	MaxTimeLimitSeconds int   `yaml:"max_time_limit_seconds" envconfig:"GAME_MAX_TIME_LIMIT_SECONDS"`
	MaxRangeSpan        int64 `yaml:"max_range_span" envconfig:"GAME_MAX_RANGE_SPAN"`
}

// Config aggregates the core runtime settings with the bot's own sections.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Game     GameConfig          `yaml:"game"`
}

// CoreConfig exposes the embedded core configuration for the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// Load reads configuration from a YAML file, applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	applyGameDefaults(&cfg.Game)
	return &cfg, nil
}

func applyGameDefaults(g *GameConfig) {
	if g.MaxAttempts <= 0 {
		g.MaxAttempts = 100
	}
	if g.MaxTimeLimitSeconds <= 0 {
		g.MaxTimeLimitSeconds = 3600
	}
	if g.MaxRangeSpan <= 0 {
		g.MaxRangeSpan = 1_000_000
	}
}
