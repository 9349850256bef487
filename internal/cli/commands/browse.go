package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/internal/session"
	"github.com/leapstack-labs/repolens/internal/tui"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Explore the repository in the terminal",
		Long: `Open an interactive terminal explorer.

Move with the arrow keys, open directories and files with enter, press i to
import the previewed file, r to reload and ? for all key bindings.`,
		Example: `  # Browse the working directory
  repolens browse

  # Browse the demo repository
  repolens browse --source mock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd, logFile)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the explorer runs")
	return cmd
}

func runBrowse(cmd *cobra.Command, logFile string) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	ctx := cmd.Context()

	// stderr belongs to the terminal UI
	logger := slog.New(slog.DiscardHandler)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logger = cfg.Log.NewLogger(f)
	}
	cmdCtx.Logger = logger

	src, err := cmdCtx.OpenSource(ctx)
	if err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open import store: %w", err)
	}
	defer cleanup()

	sig := tui.NewSignal()
	sess := session.New(session.Config{
		ID:            session.NewID(),
		Source:        src,
		Importer:      store,
		FetchTimeout:  cfg.Preview.FetchTimeout,
		ImportTimeout: cfg.Import.Timeout,
		Context:       ctx,
		Notify:        sig.Notify,
		Engine:        tui.NewEngine(),
		Logger:        cmdCtx.Logger,
	})
	// the store must outlive in-flight imports
	defer sess.Wait()

	return tui.Run(ctx, sess, sig)
}
