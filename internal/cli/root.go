// Package cli provides the command-line interface for repolens.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/internal/cli/commands"
	"github.com/leapstack-labs/repolens/internal/cli/config"
	"github.com/leapstack-labs/repolens/internal/cli/output"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "repolens",
		Short: "repolens - repository explorer",
		Long: `repolens browses the file tree of a repository, previews file content and
imports selected files into a local or shared import store.

Sources can be a directory on disk, a git repository (local or cloned in
memory) or a built-in demo repository. Explore in the browser with 'ui', in
the terminal with 'browse', or script against 'tree', 'show' and 'import'.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Load configuration with CLI flag overrides
			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			// Build the logger and store it in context
			logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, config.LoggerKey(), logger))

			// Print config file used (if verbose)
			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", configFile)
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using %s source: %s\n", cfg.Source.Type, sourceLocation(cfg))
			}

			logger.Debug("configuration loaded",
				"config_file", config.GetConfigFileUsed(),
				"source", cfg.Source.Type,
				"import_driver", cfg.Import.Driver)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: repolens.yaml in the project root)")
	rootCmd.PersistentFlags().String("source", "", "Source type (local|git|mock)")
	rootCmd.PersistentFlags().String("path", "", "Directory or git checkout to browse")
	rootCmd.PersistentFlags().String("url", "", "Git repository to clone in memory")
	rootCmd.PersistentFlags().String("branch", "", "Git branch to browse")
	rootCmd.PersistentFlags().String("import-dsn", "", "Import database DSN")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json|yaml)")

	// Register completion for enum flags
	_ = rootCmd.RegisterFlagCompletionFunc("output", fixedCompletion(output.Modes...))
	_ = rootCmd.RegisterFlagCompletionFunc("source", fixedCompletion("local", "git", "mock"))
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", fixedCompletion("debug", "info", "warn", "error"))
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", fixedCompletion("text", "json"))

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewUICommand())
	rootCmd.AddCommand(commands.NewBrowseCommand())
	rootCmd.AddCommand(commands.NewTreeCommand())
	rootCmd.AddCommand(commands.NewShowCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewImportsCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func sourceLocation(cfg *config.Config) string {
	switch {
	case cfg.Source.Type == "mock":
		return "built-in demo repository"
	case cfg.Source.URL != "":
		return cfg.Source.URL
	default:
		return cfg.Source.Path
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for repolens.

To load completions:

Bash:
  $ source <(repolens completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ repolens completion bash > /etc/bash_completion.d/repolens
  # macOS:
  $ repolens completion bash > $(brew --prefix)/etc/bash_completion.d/repolens

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ repolens completion zsh > "${fpath[1]}/_repolens"

Fish:
  $ repolens completion fish | source

PowerShell:
  PS> repolens completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
