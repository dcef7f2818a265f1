package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks variables a CI host might set. Empty values are ignored
// by the env parser.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ADDR", "PORT", "DB_PATH", "DEFAULT_GAME", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.ListenAddr())
	}
	if cfg.DefaultGame != "plinko" {
		t.Fatalf("expected plinko, got %s", cfg.DefaultGame)
	}
	if cfg.Games.RevealDelay != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s reveal delay, got %v", cfg.Games.RevealDelay)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	data := []byte(`
db_path: /tmp/hub.db
default_game: updown
games:
  frame_interval: 20ms
history:
  retention: 24h
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	clearEnv(t)
	t.Setenv("DEFAULT_GAME", "coinflip")
	t.Setenv("PORT", "9090")
	t.Setenv("GAMES_REVEAL_DELAY", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/hub.db" {
		t.Fatalf("expected yaml db path, got %s", cfg.DBPath)
	}
	if cfg.DefaultGame != "coinflip" {
		t.Fatalf("expected env to override yaml, got %s", cfg.DefaultGame)
	}
	if cfg.Games.FrameInterval != 20*time.Millisecond {
		t.Fatalf("expected 20ms frame interval, got %v", cfg.Games.FrameInterval)
	}
	if cfg.Games.RevealDelay != 250*time.Millisecond {
		t.Fatalf("expected 250ms reveal delay, got %v", cfg.Games.RevealDelay)
	}
	if cfg.History.Retention != 24*time.Hour {
		t.Fatalf("expected 24h retention, got %v", cfg.History.Retention)
	}
	if cfg.History.CleanupInterval != time.Hour {
		t.Fatalf("expected default cleanup interval, got %v", cfg.History.CleanupInterval)
	}
	if cfg.ListenAddr() != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.ListenAddr())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	t.Setenv("GAMES_FRAME_INTERVAL", "soon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero frame interval", func(c *Config) { c.Games.FrameInterval = 0 }},
		{"zero reveal delay", func(c *Config) { c.Games.RevealDelay = 0 }},
		{"negative reveal delay", func(c *Config) { c.Games.RevealDelay = -time.Second }},
		{"zero retention", func(c *Config) { c.History.Retention = 0 }},
		{"negative retention", func(c *Config) { c.History.Retention = -time.Hour }},
		{"zero cleanup interval", func(c *Config) { c.History.CleanupInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestListenAddrWithHost(t *testing.T) {
	cfg := Config{Addr: "127.0.0.1:8080", Port: "3000"}
	if got := cfg.ListenAddr(); got != "127.0.0.1:3000" {
		t.Fatalf("expected 127.0.0.1:3000, got %s", got)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}
