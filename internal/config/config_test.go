package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Auth.LockoutAttempts != 5 || cfg.Auth.LockoutDuration != time.Minute {
		t.Errorf("unexpected lockout %d %v", cfg.Auth.LockoutAttempts, cfg.Auth.LockoutDuration)
	}
	if cfg.Points.Submission != 50 || cfg.Points.Review != 10 {
		t.Errorf("unexpected points %+v", cfg.Points)
	}
	if cfg.Auth.TokenExpiry != 7*24*time.Hour {
		t.Errorf("unexpected token expiry %v", cfg.Auth.TokenExpiry)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9000"
  cors_origins:
    - https://map.example.com
database:
  path: /var/lib/dukandaar/db.sqlite3
auth:
  admin_emails:
    - Boss@Example.com
  lockout_duration: 2m
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("DUKANDAAR_DB", "/tmp/env.sqlite3")
	t.Setenv("DUKANDAAR_POINTS__REVIEW", "15")
	t.Setenv("UNRELATED_SETTING", "x")

	cfg, err := Load(Options{
		Path:      path,
		Overrides: map[string]any{"server.addr": ":7000"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":7000" {
		t.Errorf("expected override to win, got %q", cfg.Server.Addr)
	}
	if cfg.Database.Path != "/tmp/env.sqlite3" {
		t.Errorf("expected env to beat file, got %q", cfg.Database.Path)
	}
	if cfg.Points.Review != 15 {
		t.Errorf("expected nested env key, got %d", cfg.Points.Review)
	}
	if !reflect.DeepEqual(cfg.Auth.AdminEmails, []string{"boss@example.com"}) {
		t.Errorf("expected lowercased admin email, got %v", cfg.Auth.AdminEmails)
	}
	if cfg.Auth.LockoutDuration != 2*time.Minute {
		t.Errorf("expected 2m lockout, got %v", cfg.Auth.LockoutDuration)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug logging, got %q", cfg.Logging.Level)
	}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, []string{"https://map.example.com"}) {
		t.Errorf("unexpected cors origins %v", cfg.Server.CORSOrigins)
	}
}

func TestCommaSeparatedEnvList(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("DUKANDAAR_ADMIN_EMAILS", "a@example.com, b@example.com")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"a@example.com", "b@example.com"}
	if !reflect.DeepEqual(cfg.Auth.AdminEmails, want) {
		t.Errorf("got %v, want %v", cfg.Auth.AdminEmails, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "Addr"},
		{"zero lockout", func(c *Config) { c.Auth.LockoutAttempts = 0 }, "LockoutAttempts"},
		{"bad admin email", func(c *Config) { c.Auth.AdminEmails = []string{"not-an-email"} }, "AdminEmails"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "Level"},
		{"zero review award", func(c *Config) { c.Points.Review = 0 }, "Review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %s, got %v", tt.field, err)
			}
		})
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	if _, err := Load(Options{Path: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := map[string]string{
		"DUKANDAAR_ADDR":               "server.addr",
		"DUKANDAAR_AUTH__TOKEN_EXPIRY": "auth.token_expiry",
		"DUKANDAAR_CONFIG":             "",
		"PATH":                         "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
