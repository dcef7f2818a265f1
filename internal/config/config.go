// Package config loads the hub configuration: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Addr        string `yaml:"addr" env:"ADDR"`
	Port        string `yaml:"port" env:"PORT"` // overrides the port in Addr
	DBPath      string `yaml:"db_path" env:"DB_PATH"`
	DefaultGame string `yaml:"default_game" env:"DEFAULT_GAME"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`

	Games   GamesCfg   `yaml:"games" envPrefix:"GAMES_"`
	History HistoryCfg `yaml:"history" envPrefix:"HISTORY_"`
}

// GamesCfg tunes the built-in games.
type GamesCfg struct {
	FrameInterval time.Duration `yaml:"frame_interval" env:"FRAME_INTERVAL"` // plinko step cadence
	RevealDelay   time.Duration `yaml:"reveal_delay" env:"REVEAL_DELAY"`     // coin flip / up-down pause
}

// HistoryCfg controls lifecycle history retention.
type HistoryCfg struct {
	Retention       time.Duration `yaml:"retention" env:"RETENTION"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:        ":8080",
		DBPath:      "games.db",
		DefaultGame: "plinko",
		LogLevel:    "info",
		Games: GamesCfg{
			FrameInterval: 16 * time.Millisecond,
			RevealDelay:   1500 * time.Millisecond,
		},
		History: HistoryCfg{
			Retention:       7 * 24 * time.Hour,
			CleanupInterval: time.Hour,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
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

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr() == "" {
		return fmt.Errorf("config: listen address required")
	}
	if c.Games.FrameInterval <= 0 {
		return fmt.Errorf("config: frame interval must be positive, got %v", c.Games.FrameInterval)
	}
	if c.Games.RevealDelay <= 0 {
		return fmt.Errorf("config: reveal delay must be positive, got %v", c.Games.RevealDelay)
	}
	if c.History.Retention <= 0 {
		return fmt.Errorf("config: history retention must be positive, got %v", c.History.Retention)
	}
	if c.History.CleanupInterval <= 0 {
		return fmt.Errorf("config: cleanup interval must be positive, got %v", c.History.CleanupInterval)
	}
	return nil
}

// ListenAddr returns the address to listen on.
func (c Config) ListenAddr() string {
	if c.Port != "" {
		host := c.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		return host + ":" + c.Port
	}
	return c.Addr
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
