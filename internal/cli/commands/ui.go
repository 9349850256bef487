package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/internal/source"
	"github.com/leapstack-labs/repolens/internal/ui"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Host      string
	Port      int
	NoBrowser bool
	Watch     bool
	Dev       bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the repolens web UI",
		Long: `Start a local web server with an interactive repository explorer.

The UI provides:
- A file tree with lazily expanded directories
- Content preview of the selected file
- An import action that records the previewed file
- Live reload of the tree when files change on disk`,
		Example: `  # Start UI on default port
  repolens ui

  # Start on custom port
  repolens ui --port 3000

  # Browse the built-in demo repository
  repolens ui --source mock

  # Start without auto-opening browser
  repolens ui --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "localhost", "Interface to listen on")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Watch for file changes")
	cmd.Flags().BoolVar(&opts.Dev, "dev", false, "Serve assets from disk and enable live reload")
	_ = cmd.Flags().MarkHidden("dev")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger
	r := cmdCtx.Renderer

	// CLI flags override config file
	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := cfg.UI.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := cfg.UI.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	src, err := cmdCtx.OpenSource(ctx)
	if err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open import store: %w", err)
	}
	defer cleanup()

	// only a directory on disk can be watched
	var watchDir string
	if local, ok := src.(*source.Local); ok && watch {
		watchDir = local.Root()
	}

	server := ui.NewServer(ui.Config{
		Source:        src,
		Importer:      store,
		Host:          opts.Host,
		Port:          port,
		SessionSecret: sessionSecret(cfg.UI.SessionSecret),
		WatchDir:      watchDir,
		FetchTimeout:  cfg.Preview.FetchTimeout,
		ImportTimeout: cfg.Import.Timeout,
		SessionIdle:   cfg.UI.SessionIdle,
		SecureCookie:  cfg.UI.SecureCookie,
		Dev:           opts.Dev,
		Logger:        logger,
	})

	go func() {
		select {
		case url := <-server.Ready():
			r.Printf("Browsing %s on %s\n", src.Name(), url)
			r.Println("Press Ctrl+C to stop")
			if autoOpen {
				openBrowser(url)
			}
		case <-ctx.Done():
		}
	}()

	return server.Serve(ctx)
}

// sessionSecret returns the configured cookie secret or a development default.
func sessionSecret(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	if secret := os.Getenv("REPOLENS_SESSION_SECRET"); secret != "" {
		return secret
	}
	// Default secret for development (nolint:gosec)
	return "repolens-dev-secret-change-in-production" //nolint:gosec
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
