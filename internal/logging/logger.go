// Package logging builds the slog loggers used by the dashboard and CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"strategy-lab/internal/config"
)

// Option adjusts a logger built by New.
type Option func(*settings)

type settings struct {
	console io.Writer
	level   *slog.LevelVar
}

// WithConsole sends console output to w instead of stdout. The CLI uses
// stderr so its reports on stdout stay pipeable.
func WithConsole(w io.Writer) Option {
	return func(s *settings) { s.console = w }
}

// WithLevelVar lets the caller change the level after construction, as the
// CLI's --quiet flag does. New stores the configured level in v.
func WithLevelVar(v *slog.LevelVar) Option {
	return func(s *settings) { s.level = v }
}

// New returns a logger tagged with the service name and a func that closes
// any log file it opened.
func New(serviceName string, cfg config.LogConfig, opts ...Option) (*slog.Logger, func() error, error) {
	s := settings{console: os.Stdout, level: new(slog.LevelVar)}
	for _, opt := range opts {
		opt(&s)
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	s.level.Set(level)

	writer, closeWriter, err := openWriter(serviceName, cfg, s.console)
	if err != nil {
		return nil, nil, err
	}

	handlerOptions := &slog.HandlerOptions{Level: s.level}
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "text"
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(writer, handlerOptions)
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOptions)
	default:
		_ = closeWriter()
		return nil, nil, fmt.Errorf("invalid log format %q (expected text|json)", cfg.Format)
	}

	logger := slog.New(handler).With("service", serviceName)
	return logger, closeWriter, nil
}

func openWriter(serviceName string, cfg config.LogConfig, console io.Writer) (io.Writer, func() error, error) {
	output := strings.ToLower(strings.TrimSpace(cfg.Output))
	if output == "" {
		output = "console"
	}

	switch output {
	case "console":
		return console, func() error { return nil }, nil
	case "file":
		file, err := openLogFile(serviceName, cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return file, file.Close, nil
	case "both":
		file, err := openLogFile(serviceName, cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		return io.MultiWriter(console, file), file.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid log output %q (expected console|file|both)", cfg.Output)
	}
}

func openLogFile(serviceName string, configuredPath string) (*os.File, error) {
	logPath := strings.TrimSpace(configuredPath)
	if logPath == "" {
		logPath = filepath.Join(".docker", serviceName, serviceName+".log")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %q: %w", logPath, err)
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", logPath, err)
	}
	return file, nil
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", raw)
	}
}
