// Package config loads server configuration from built-in defaults, an
// optional YAML file, DUKANDAAR_* environment variables and command-line
// overrides, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/erazemk/dukandaar/internal/logging"
	"github.com/erazemk/dukandaar/internal/validation"
)

// ConfigPathEnvVar names the environment variable holding the config file path.
const ConfigPathEnvVar = "DUKANDAAR_CONFIG"

// DefaultConfigPaths are searched when no path is given.
var DefaultConfigPaths = []string{
	"dukandaar.yaml",
	"dukandaar.yml",
	"/etc/dukandaar/config.yaml",
}

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Media    MediaConfig    `koanf:"media"`
	Auth     AuthConfig     `koanf:"auth"`
	Points   PointsConfig   `koanf:"points"`
	Events   EventsConfig   `koanf:"events"`
	Logging  logging.Config `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gt=0"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	// RateLimit is the number of login and submission requests allowed per
	// client IP per minute.
	RateLimit int `koanf:"rate_limit" validate:"gte=1"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// MediaConfig locates the BadgerDB directory holding photos and preferences.
type MediaConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// AuthConfig controls sessions and sign-in.
type AuthConfig struct {
	// AdminEmails are always treated as admins, whatever their stored role.
	AdminEmails     []string      `koanf:"admin_emails" validate:"dive,email"`
	TokenExpiry     time.Duration `koanf:"token_expiry" validate:"gt=0"`
	LockoutAttempts int           `koanf:"lockout_attempts" validate:"gte=1"`
	LockoutDuration time.Duration `koanf:"lockout_duration" validate:"gt=0"`
	ResetExpiry     time.Duration `koanf:"reset_expiry" validate:"gt=0"`
}

// PointsConfig sets the points granted per action.
type PointsConfig struct {
	Submission int `koanf:"submission" validate:"gte=1"`
	Review     int `koanf:"review" validate:"gte=1"`
}

// EventsConfig tunes the in-process event bus.
type EventsConfig struct {
	Buffer          int64         `koanf:"buffer" validate:"gte=1"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			CORSOrigins:       []string{},
			RateLimit:         20,
		},
		Database: DatabaseConfig{Path: "dukandaar.sqlite3"},
		Media:    MediaConfig{Path: "dukandaar-media"},
		Auth: AuthConfig{
			AdminEmails:     []string{},
			TokenExpiry:     7 * 24 * time.Hour,
			LockoutAttempts: 5,
			LockoutDuration: time.Minute,
			ResetExpiry:     time.Hour,
		},
		Points: PointsConfig{Submission: 50, Review: 10},
		Events: EventsConfig{
			Buffer:          256,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Logging: logging.Config{Level: "info", Format: "json"},
	}
}

// Options adjust loading.
type Options struct {
	// Path is an explicit config file. It must exist when set.
	Path string
	// Overrides are applied last, keyed by koanf path (e.g. "server.addr").
	Overrides map[string]any
}

// Load builds the configuration.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path, err := findConfigFile(opts.Path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("applying override %s: %w", key, err)
		}
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	for i, e := range cfg.Auth.AdminEmails {
		cfg.Auth.AdminEmails[i] = strings.ToLower(strings.TrimSpace(e))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := validation.Struct(c).OrNil(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}

	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file from %s: %w", ConfigPathEnvVar, err)
		}
		return p, nil
	}

	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// sliceConfigPaths are accepted as comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"auth.admin_emails",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return nil
}

// envAliases maps short variable names to config paths.
var envAliases = map[string]string{
	"dukandaar_addr":         "server.addr",
	"dukandaar_db":           "database.path",
	"dukandaar_media":        "media.path",
	"dukandaar_admin_emails": "auth.admin_emails",
	"dukandaar_cors_origins": "server.cors_origins",
	"dukandaar_log_level":    "logging.level",
	"dukandaar_log_format":   "logging.format",
	"dukandaar_log_file":     "logging.file",
}

// envTransformFunc maps DUKANDAAR_SECTION__KEY to section.key. Other
// variables are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := envAliases[key]; ok {
		return mapped
	}

	rest, ok := strings.CutPrefix(key, "dukandaar_")
	if !ok || !strings.Contains(rest, "__") {
		return ""
	}
	return strings.ReplaceAll(rest, "__", ".")
}
