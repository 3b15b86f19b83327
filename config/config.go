// Package config layers game settings: defaults, then an optional YAML
// file, then QUANTUMROOM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/quantumroom/engine/score"
	"github.com/nathoo/quantumroom/engine/timer"
)

// Scoring mirrors score.Table for file and env input.
type Scoring struct {
	Success        int `yaml:"success"         env:"QUANTUMROOM_SCORE_SUCCESS"`
	Partial        int `yaml:"partial"         env:"QUANTUMROOM_SCORE_PARTIAL"`
	Failure        int `yaml:"failure"         env:"QUANTUMROOM_SCORE_FAILURE"`
	EarlyBonus     int `yaml:"early_bonus"     env:"QUANTUMROOM_SCORE_EARLY_BONUS"`
	EarlyThreshold int `yaml:"early_threshold" env:"QUANTUMROOM_SCORE_EARLY_THRESHOLD"`
	Achievement    int `yaml:"achievement"     env:"QUANTUMROOM_SCORE_ACHIEVEMENT"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Scoring   Scoring `yaml:"scoring"`
	LowTime   int     `yaml:"low_time"   env:"QUANTUMROOM_LOW_TIME"`
	Seed      int64   `yaml:"seed"       env:"QUANTUMROOM_SEED"` // 0 picks a random seed
	LevelsDir string  `yaml:"levels_dir" env:"QUANTUMROOM_LEVELS_DIR"`
	Journal   string  `yaml:"journal"    env:"QUANTUMROOM_JOURNAL"`
	LogLevel  string  `yaml:"log_level"  env:"QUANTUMROOM_LOG_LEVEL"`
}

// Default returns the built-in settings.
func Default() Config {
	t := score.Default()
	return Config{
		Scoring: Scoring{
			Success:        t.Success,
			Partial:        t.Partial,
			Failure:        t.Failure,
			EarlyBonus:     t.EarlyBonus,
			EarlyThreshold: t.EarlyThreshold,
			Achievement:    t.Achievement,
		},
		LowTime:  timer.DefaultLowTime,
		LogLevel: "warn",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	check := func(name string, v int) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	check("scoring.success", c.Scoring.Success)
	check("scoring.partial", c.Scoring.Partial)
	check("scoring.failure", c.Scoring.Failure)
	check("scoring.early_bonus", c.Scoring.EarlyBonus)
	check("scoring.early_threshold", c.Scoring.EarlyThreshold)
	check("scoring.achievement", c.Scoring.Achievement)
	if c.LowTime <= 0 {
		errs = append(errs, fmt.Errorf("low_time must be positive, got %d", c.LowTime))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Table converts the scoring section for the engine.
func (c Config) Table() score.Table {
	return score.Table{
		Success:        c.Scoring.Success,
		Partial:        c.Scoring.Partial,
		Failure:        c.Scoring.Failure,
		EarlyBonus:     c.Scoring.EarlyBonus,
		EarlyThreshold: c.Scoring.EarlyThreshold,
		Achievement:    c.Scoring.Achievement,
	}
}

// Level parses LogLevel. Empty means warn.
func (c Config) Level() (slog.Level, error) {
	if c.LogLevel == "" {
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
