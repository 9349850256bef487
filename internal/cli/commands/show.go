package commands

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/internal/cli/output"
	"github.com/leapstack-labs/repolens/pkg/core"
	"github.com/leapstack-labs/repolens/pkg/preview"
)

// ShowOutput is the structured form of a previewed file.
type ShowOutput struct {
	Path    string `json:"path" yaml:"path"`
	Name    string `json:"name" yaml:"name"`
	State   string `json:"state" yaml:"state"`
	Size    int    `json:"size" yaml:"size"`
	Content string `json:"content" yaml:"content"`
}

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Print the content of a file",
		Long: `Fetch a file from the configured source and print its content.

Output adapts to environment:
  - Terminal: Raw content
  - Piped/Scripted: Markdown with code block`,
		Example: `  # Print a file
  repolens show src/main.go

  # From the demo repository, as JSON
  repolens show src/components/emi.ts --source mock -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}
	return cmd
}

func runShow(cmd *cobra.Command, p string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	src, err := cmdCtx.OpenSource(cmd.Context())
	if err != nil {
		return err
	}
	props, err := fetchPreview(cmd.Context(), src, p, cmdCtx.Cfg.Preview.FetchTimeout)
	if err != nil {
		return err
	}
	view := props.View()

	if ok, err := r.Structured(ShowOutput{
		Path:    cleanPath(p),
		Name:    props.FileName,
		State:   view.State.String(),
		Size:    len(props.Content),
		Content: props.Content,
	}); ok {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, view.Title))
		r.Println("")
		if view.State == preview.StateLoaded {
			r.Println(output.FormatCodeBlock(output.LanguageForFile(view.Title), view.Body))
		} else {
			r.Println("_" + view.Placeholder + "_")
		}
	default:
		if view.State != preview.StateLoaded {
			r.Muted(view.Placeholder)
			return nil
		}
		r.Printf("%s", view.Body)
		if !strings.HasSuffix(view.Body, "\n") {
			r.Println("")
		}
	}
	return nil
}

// fetchPreview fetches a file and returns the preview state it settles in.
func fetchPreview(ctx context.Context, src core.Source, p string, timeout time.Duration) (preview.Props, error) {
	p = cleanPath(p)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	content, err := src.Fetch(ctx, p)
	if err != nil {
		return preview.Props{}, fmt.Errorf("failed to fetch %s: %w", p, err)
	}
	return preview.Props{FileName: path.Base(p), Content: content}, nil
}

// cleanPath normalises a user supplied path to the slash separated form
// sources use.
func cleanPath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}
