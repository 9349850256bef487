package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

var (
	sourceTypes   = []string{"local", "git", "mock"}
	importDrivers = []string{"sqlite", "postgres"}
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json"}
	outputModes   = []string{"auto", "text", "markdown", "md", "json", "yaml", "yml"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	check := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, strings.ToLower(value)) {
			errs = append(errs, fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, "|"), value))
		}
	}

	check("source.type", c.Source.Type, sourceTypes)
	check("import.driver", c.Import.Driver, importDrivers)
	check("log.level", c.Log.Level, logLevels)
	check("log.format", c.Log.Format, logFormats)
	check("output", c.OutputFormat, outputModes)

	switch strings.ToLower(c.Source.Type) {
	case "local":
		if c.Source.Path == "" {
			errs = append(errs, errors.New("source.path is required for a local source"))
		}
	case "git":
		if c.Source.Path == "" && c.Source.URL == "" {
			errs = append(errs, errors.New("source.path or source.url is required for a git source"))
		}
	}

	if c.Source.FailureRate < 0 || c.Source.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("source.failure_rate must be within [0,1], got %v", c.Source.FailureRate))
	}
	if c.Preview.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("preview.max_bytes must be positive, got %d", c.Preview.MaxBytes))
	}
	if c.Import.DSN == "" {
		errs = append(errs, errors.New("import.dsn is required"))
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		errs = append(errs, fmt.Errorf("ui.port out of range: %d", c.UI.Port))
	}
	if c.UI.SessionIdle <= 0 {
		errs = append(errs, fmt.Errorf("ui.session_idle must be positive, got %s", c.UI.SessionIdle))
	}

	return errors.Join(errs...)
}

// NewLogger builds the slog logger described by the log section.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(l.Level)}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
