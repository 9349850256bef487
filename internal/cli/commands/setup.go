package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/internal/cli/config"
	"github.com/leapstack-labs/repolens/internal/cli/output"
	"github.com/leapstack-labs/repolens/internal/imports"
	"github.com/leapstack-labs/repolens/internal/source"
	"github.com/leapstack-labs/repolens/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// OpenSource builds the configured repository source.
func (c *CommandContext) OpenSource(ctx context.Context) (core.Source, error) {
	src, err := source.New(ctx, sourceConfig(c.Cfg, c.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", c.Cfg.Source.Type, err)
	}
	return src, nil
}

// OpenStore opens and migrates the import store.
// Returns the store and a cleanup function that must be called (typically via defer).
func (c *CommandContext) OpenStore() (*imports.Store, func(), error) {
	store, err := imports.Open(strings.ToLower(c.Cfg.Import.Driver), c.Cfg.Import.DSN, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func sourceConfig(cfg *config.Config, logger *slog.Logger) source.Config {
	return source.Config{
		Type:        cfg.Source.Type,
		Path:        cfg.Source.Path,
		URL:         cfg.Source.URL,
		Branch:      cfg.Source.Branch,
		Depth:       cfg.Source.Depth,
		Token:       cfg.Source.Token,
		MaxBytes:    cfg.Preview.MaxBytes,
		Latency:     cfg.Source.Latency,
		FailureRate: cfg.Source.FailureRate,
		Logger:      logger,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration, or the defaults when none
// has been loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}
