package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Type != "memory" {
		t.Fatalf("default store type: got %q", cfg.Store.Type)
	}
	if cfg.Messages.MaxSize != 2<<20 {
		t.Fatalf("default max size: got %d", cfg.Messages.MaxSize)
	}
	if cfg.Messages.Retention != 30*24*time.Hour {
		t.Fatalf("default retention: got %s", cfg.Messages.Retention)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("addr: got %q", cfg.Addr())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
  base_url: https://notes.example.com
store:
  type: sqlite
  sqlite:
    path: /tmp/notes.db
messages:
  retention: 168h
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port: got %d", cfg.Server.Port)
	}
	if cfg.Store.Type != "sqlite" || cfg.Store.SQLite.Path != "/tmp/notes.db" {
		t.Fatalf("store: %+v", cfg.Store)
	}
	if cfg.Messages.Retention != 7*24*time.Hour {
		t.Fatalf("retention: got %s", cfg.Messages.Retention)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("host: got %q", cfg.Server.Host)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("STORE_TYPE", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("MESSAGE_RETENTION", "24h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("port: got %d", cfg.Server.Port)
	}
	if cfg.Store.Type != "redis" || cfg.Store.Redis.Addr != "redis.internal:6379" {
		t.Fatalf("store: %+v", cfg.Store)
	}
	if cfg.Messages.Retention != 24*time.Hour {
		t.Fatalf("retention: got %s", cfg.Messages.Retention)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"bad store type", func(c *Config) { c.Store.Type = "postgres" }},
		{"redis without addr", func(c *Config) { c.Store.Type = "redis"; c.Store.Redis.Addr = "" }},
		{"sqlite without path", func(c *Config) { c.Store.Type = "sqlite"; c.Store.SQLite.Path = "" }},
		{"zero max size", func(c *Config) { c.Messages.MaxSize = 0 }},
		{"zero retention", func(c *Config) { c.Messages.Retention = 0 }},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: validation passed, want error", tc.name)
		}
	}
}
