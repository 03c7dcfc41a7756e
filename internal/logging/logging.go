// Package logging configures the process-wide slog logger on top of zerolog.
// INFO and WARN go to stdout, ERROR goes to stderr, and every level is also
// written to an optional log file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log output.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	// Format is json or console.
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	// File is an optional path that receives a copy of every record.
	File string `koanf:"file"`
}

// Init builds the logger described by cfg and installs it as the slog
// default. The returned function closes the log file, if one was opened.
func Init(cfg Config) (func(), error) {
	cleanup := func() {}

	stdout := io.Writer(os.Stdout)
	stderr := io.Writer(os.Stderr)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdout = io.MultiWriter(os.Stdout, f)
		stderr = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(New(cfg, stdout, stderr))
	return cleanup, nil
}

// New returns a logger writing INFO/WARN to out and ERROR to errOut.
func New(cfg Config, out, errOut io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.TimeFieldFormat = time.RFC3339

	return slog.New(&levelRouter{
		stdout: NewSlogHandler(newZerolog(out, cfg.Format, level)),
		stderr: NewSlogHandler(newZerolog(errOut, cfg.Format, level)),
	})
}

func newZerolog(w io.Writer, format string, level zerolog.Level) zerolog.Logger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// levelRouter sends ERROR and above to stderr and everything else to stdout.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelError {
		return lr.stderr.Enabled(ctx, level)
	}
	return lr.stdout.Enabled(ctx, level)
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}
