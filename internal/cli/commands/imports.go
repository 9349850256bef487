package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/internal/cli/output"
	"github.com/leapstack-labs/repolens/internal/imports"
	"github.com/leapstack-labs/repolens/pkg/core"
)

// ImportList is the structured form of the import history.
type ImportList struct {
	Imports []core.ImportRecord `json:"imports" yaml:"imports"`
	Count   int                 `json:"count" yaml:"count"`
}

const defaultImportsLimit = 50

// NewImportsCommand creates the imports command and its subcommands.
func NewImportsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "imports",
		Aliases: []string{"history"},
		Short:   "List and manage imported files",
		Long:    `List, inspect and delete the files recorded in the import store.`,
		Example: `  # Recent imports
  repolens imports

  # Show the content of one import
  repolens imports show 3f2a...

  # Delete an import
  repolens imports rm 3f2a...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImportsList(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultImportsLimit, "Maximum number of imports to list")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImportsList(cmd, limit)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", defaultImportsLimit, "Maximum number of imports to list")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print an imported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportsShow(cmd, args[0])
		},
	}

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an import",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportsRemove(cmd, args[0])
		},
	}

	cmd.AddCommand(list, show, rm)
	return cmd
}

func runImportsList(cmd *cobra.Command, limit int) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open import store: %w", err)
	}
	defer cleanup()

	records, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if ok, err := r.Structured(ImportList{Imports: records, Count: len(records)}); ok {
		return err
	}

	r.Header(1, fmt.Sprintf("Imports (%d)", len(records)))
	if len(records) == 0 {
		r.Muted("No files imported yet")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.ID,
			rec.Path,
			rec.Source,
			strconv.FormatInt(rec.Size, 10),
			rec.ImportedAt.Local().Format(time.DateTime),
		})
	}
	r.Table([]string{"ID", "Path", "Source", "Bytes", "Imported"}, rows)
	return nil
}

func runImportsShow(cmd *cobra.Command, id string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open import store: %w", err)
	}
	defer cleanup()

	rec, err := store.Get(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, imports.ErrNotFound) {
			return fmt.Errorf("no import with id %s", id)
		}
		return err
	}

	if ok, err := r.Structured(ShowOutput{
		Path:    rec.Path,
		Name:    rec.FileName,
		State:   "loaded",
		Size:    len(rec.Content),
		Content: rec.Content,
	}); ok {
		return err
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, rec.FileName))
		r.Println("")
		r.Println(output.FormatKeyValue("Path", rec.Path))
		r.Println(output.FormatKeyValue("Source", rec.Source))
		r.Println(output.FormatKeyValue("SHA-256", rec.ContentHash))
		r.Println("")
		r.Println(output.FormatCodeBlock(output.LanguageForFile(rec.FileName), rec.Content))
		return nil
	}
	r.Printf("%s", rec.Content)
	return nil
}

func runImportsRemove(cmd *cobra.Command, id string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open import store: %w", err)
	}
	defer cleanup()

	if err := store.Delete(cmd.Context(), id); err != nil {
		if errors.Is(err, imports.ErrNotFound) {
			return fmt.Errorf("no import with id %s", id)
		}
		return err
	}
	r.Success("Deleted import " + id)
	return nil
}
