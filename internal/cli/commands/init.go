package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var demo bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a repolens configuration",
		Long: `Create a commented repolens.yaml and a .gitignore for the local import
database.

Use --demo for a configuration that browses the built-in sample repository
with simulated latency and failures.`,
		Example: `  # Initialize in current directory
  repolens init

  # Initialize a demo configuration
  repolens init --demo

  # Initialize in a new directory
  repolens init my-workspace

  # Force overwrite existing config
  repolens init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			template := "minimal"
			if demo {
				template = "demo"
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&demo, "demo", false, "Configure the built-in demo repository")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if !slices.Contains(templateNames(), template) {
		return fmt.Errorf("unknown template %q (available: %s)", template, strings.Join(templateNames(), ", "))
	}

	// Create directory if specified and doesn't exist
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if config already exists
	configPath := filepath.Join(dir, "repolens.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("repolens.yaml already exists. Use --force to overwrite")
	}

	files, err := copyTemplate(template, dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("repolens initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  repolens tree     List the repository")
	r.Println("  repolens browse   Explore it in the terminal")
	r.Println("  repolens ui       Explore it in the browser")

	return nil
}
