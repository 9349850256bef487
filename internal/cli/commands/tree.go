package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/repolens/internal/cli/output"
	"github.com/leapstack-labs/repolens/pkg/core"
	"github.com/leapstack-labs/repolens/pkg/tree"
)

// TreeEntry is one node in structured tree output.
type TreeEntry struct {
	Name     string      `json:"name" yaml:"name"`
	Path     string      `json:"path" yaml:"path"`
	Type     string      `json:"type" yaml:"type"`
	Children []TreeEntry `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand() *cobra.Command {
	var level int

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the repository tree",
		Long: `Print the file tree of the configured source.

Directories are listed lazily; --level limits how deep the listing goes.

Output adapts to environment:
  - Terminal: Indented tree
  - Piped/Scripted: Markdown nested list`,
		Example: `  # Print the whole tree
  repolens tree

  # Only the top two levels
  repolens tree -L 2

  # Tree of a git repository as JSON
  repolens tree --source git --path ~/src/project -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTree(cmd, level)
		},
	}

	cmd.Flags().IntVarP(&level, "level", "L", 0, "Descend only this many levels (0 for all)")

	return cmd
}

func runTree(cmd *cobra.Command, level int) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	src, err := cmdCtx.OpenSource(ctx)
	if err != nil {
		return err
	}
	forest, err := src.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list repository: %w", err)
	}

	eng := tree.New(tree.WithIndent(2, 0))
	expanded, err := expandLevels(ctx, src, eng, forest, 0, level)
	if err != nil {
		return err
	}
	forest = expanded

	if ok, err := r.Structured(treeEntries(eng, forest)); ok {
		return err
	}

	view := eng.Render(forest, "")
	if view.Empty {
		r.Muted(view.Placeholder)
		return nil
	}

	markdown := r.EffectiveMode() == output.ModeMarkdown
	if markdown {
		r.Println(output.FormatHeader(1, src.Name()))
		r.Println("")
	} else {
		r.Println(r.Styles.Header.Render(src.Name()))
	}

	var files, dirs int
	for _, row := range view.Rows {
		name := row.Node.Name
		if row.Node.IsDir() {
			dirs++
			name += "/"
		} else {
			files++
		}
		indent := strings.Repeat(" ", row.Indent)
		if markdown {
			r.Println(indent + "- " + name)
			continue
		}
		if row.Node.IsDir() {
			name = r.Styles.Dir.Render(name)
		}
		r.Println(indent + name)
	}

	r.Println("")
	r.Muted(fmt.Sprintf("%d directories, %d files", dirs, files))
	return nil
}

// expandLevels populates lazily listed directories down to level and marks
// them expanded in eng. A level of 0 expands everything.
func expandLevels(ctx context.Context, src core.Source, eng *tree.Engine, nodes []core.TreeNode, depth, level int) ([]core.TreeNode, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]core.TreeNode, len(nodes))
	for i, n := range nodes {
		out[i] = n
		if !n.IsDir() || (level > 0 && depth+1 >= level) {
			continue
		}

		children := n.Children
		if !n.Populated() {
			if cl, ok := src.(core.ChildLister); ok {
				kids, err := cl.ListChildren(ctx, n.Path)
				if err != nil {
					return nil, fmt.Errorf("failed to list %s: %w", n.Path, err)
				}
				children = kids
			}
		}

		kids, err := expandLevels(ctx, src, eng, children, depth+1, level)
		if err != nil {
			return nil, err
		}
		if kids == nil {
			kids = []core.TreeNode{}
		}
		out[i].Children = kids
		eng.SetExpanded(n.Path, true)
	}
	return out, nil
}

// treeEntries converts the visible part of a forest.
func treeEntries(eng *tree.Engine, nodes []core.TreeNode) []TreeEntry {
	entries := make([]TreeEntry, 0, len(nodes))
	for _, n := range nodes {
		e := TreeEntry{Name: n.Name, Path: n.Path, Type: string(n.Kind)}
		if n.IsDir() && eng.IsExpanded(n.Path) {
			e.Children = treeEntries(eng, n.Children)
		}
		entries = append(entries, e)
	}
	return entries
}
