package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/pkg/core"
	"github.com/leapstack-labs/repolens/pkg/dispatch"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import a file into the import store",
		Long: `Fetch a file from the configured source and record it in the import store.

Files without content cannot be imported, the same as in the explorer where the
import action is only offered once content has loaded.`,
		Example: `  # Import a file
  repolens import src/main.go

  # Import into postgres
  REPOLENS_IMPORT_DRIVER=postgres REPOLENS_IMPORT_DSN=postgres://localhost/repolens \
    repolens import README.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0])
		},
	}
	return cmd
}

func runImport(cmd *cobra.Command, p string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	src, err := cmdCtx.OpenSource(ctx)
	if err != nil {
		return err
	}
	props, err := fetchPreview(ctx, src, p, cmdCtx.Cfg.Preview.FetchTimeout)
	if err != nil {
		return err
	}

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open import store: %w", err)
	}
	defer cleanup()

	req := core.ImportRequest{
		Source:   src.Name(),
		Path:     cleanPath(p),
		FileName: props.FileName,
		Content:  props.Content,
	}

	var (
		rec       *core.ImportRecord
		importErr error
	)
	d := dispatch.New(func() {
		ictx, cancel := context.WithTimeout(ctx, cmdCtx.Cfg.Import.Timeout)
		defer cancel()
		rec, importErr = store.Import(ictx, req)
	})
	if !d.Trigger(props) {
		return fmt.Errorf("nothing to import: %s has no content", req.Path)
	}
	if importErr != nil {
		return fmt.Errorf("import of %s failed: %w", req.FileName, importErr)
	}

	if ok, err := r.Structured(rec); ok {
		return err
	}
	r.Success(fmt.Sprintf("Imported %s", rec.FileName))
	r.KeyValue("ID", rec.ID)
	r.KeyValue("Path", rec.Path)
	r.KeyValue("SHA-256", rec.ContentHash)
	r.KeyValue("Size", fmt.Sprintf("%d bytes", rec.Size))
	return nil
}
