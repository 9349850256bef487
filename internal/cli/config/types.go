// Package config loads the repolens CLI configuration.
//
// Values are layered with koanf: built-in defaults, then repolens.yaml from the
// project root, then REPOLENS_ environment variables, then explicitly set flags.
package config

import "time"

// Default configuration values.
const (
	DefaultSourceType    = "local"
	DefaultSourcePath    = "."
	DefaultDepth         = 1
	DefaultMaxBytes      = 1 << 20
	DefaultFetchTimeout  = 10 * time.Second
	DefaultImportDriver  = "sqlite"
	DefaultImportDSN     = ".repolens/imports.db"
	DefaultImportTimeout = 30 * time.Second
	DefaultPort          = 8765
	DefaultSessionIdle   = 30 * time.Minute
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultMockLatency   = 300 * time.Millisecond
)

// Config holds all CLI configuration options.
type Config struct {
	Source  SourceConfig  `koanf:"source"`
	Preview PreviewConfig `koanf:"preview"`
	Import  ImportConfig  `koanf:"import"`
	UI      UIConfig      `koanf:"ui"`
	Log     LogConfig     `koanf:"log"`

	OutputFormat string `koanf:"output"`
	Verbose      bool   `koanf:"verbose"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// SourceConfig selects the repository to browse.
type SourceConfig struct {
	Type   string `koanf:"type"`
	Path   string `koanf:"path"`
	URL    string `koanf:"url"`
	Branch string `koanf:"branch"`
	Depth  int    `koanf:"depth"`
	Token  string `koanf:"token"`

	// mock source only
	Latency     time.Duration `koanf:"latency"`
	FailureRate float64       `koanf:"failure_rate"`
}

// PreviewConfig bounds content fetches.
type PreviewConfig struct {
	MaxBytes     int64         `koanf:"max_bytes"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
}

// ImportConfig configures the import store.
type ImportConfig struct {
	Driver  string        `koanf:"driver"`
	DSN     string        `koanf:"dsn"`
	Timeout time.Duration `koanf:"timeout"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
	// SecureCookie marks the session cookie Secure; only useful behind TLS.
	SecureCookie bool          `koanf:"secure_cookie"`
	SessionIdle  time.Duration `koanf:"session_idle"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Type:    DefaultSourceType,
			Path:    DefaultSourcePath,
			Depth:   DefaultDepth,
			Latency: DefaultMockLatency,
		},
		Preview: PreviewConfig{
			MaxBytes:     DefaultMaxBytes,
			FetchTimeout: DefaultFetchTimeout,
		},
		Import: ImportConfig{
			Driver:  DefaultImportDriver,
			DSN:     DefaultImportDSN,
			Timeout: DefaultImportTimeout,
		},
		UI: UIConfig{
			Port:        DefaultPort,
			AutoOpen:    true,
			Watch:       true,
			SessionIdle: DefaultSessionIdle,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		OutputFormat: DefaultOutput,
	}
}

// defaultsMap mirrors Default for the koanf confmap provider.
func defaultsMap() map[string]any {
	d := Default()
	return map[string]any{
		"source.type":           d.Source.Type,
		"source.path":           d.Source.Path,
		"source.depth":          d.Source.Depth,
		"source.latency":        d.Source.Latency.String(),
		"source.failure_rate":   d.Source.FailureRate,
		"preview.max_bytes":     d.Preview.MaxBytes,
		"preview.fetch_timeout": d.Preview.FetchTimeout.String(),
		"import.driver":         d.Import.Driver,
		"import.dsn":            d.Import.DSN,
		"import.timeout":        d.Import.Timeout.String(),
		"ui.port":               d.UI.Port,
		"ui.auto_open":          d.UI.AutoOpen,
		"ui.watch":              d.UI.Watch,
		"ui.secure_cookie":      d.UI.SecureCookie,
		"ui.session_idle":       d.UI.SessionIdle.String(),
		"log.level":             d.Log.Level,
		"log.format":            d.Log.Format,
		"output":                d.OutputFormat,
		"verbose":               d.Verbose,
	}
}
