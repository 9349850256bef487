// Package tree implements the explorer's rendering engine: per-directory
// expand/collapse state and a depth-indexed flattening of a forest.
//
// The engine never performs I/O. Selection is owned by the caller and passed in
// on every render; the engine only owns which directories are expanded.
package tree

import (
	"sync"

	"github.com/leapstack-labs/repolens/pkg/core"
)

// Default indentation, in the units of whoever draws the rows (pixels in the
// web UI, cells in the terminal UI).
const (
	DefaultIndentUnit = 12
	DefaultIndentBase = 8
)

// Placeholder is shown instead of an empty container for an empty forest.
const Placeholder = "No files available"

// Engine holds expansion state for one rendering session.
type Engine struct {
	mu       sync.RWMutex
	expanded map[string]bool
	unit     int
	base     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithIndent sets the indentation unit per depth level and the base offset.
func WithIndent(unit, base int) Option {
	return func(e *Engine) {
		e.unit = unit
		e.base = base
	}
}

// New creates an engine with every directory collapsed.
func New(opts ...Option) *Engine {
	e := &Engine{
		expanded: make(map[string]bool),
		unit:     DefaultIndentUnit,
		base:     DefaultIndentBase,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Click applies the click behavior for a node. Directories toggle their own
// expanded flag; files are passed to onSelect. The returned bool is the
// directory's new expanded state (always false for files).
func (e *Engine) Click(node core.TreeNode, onSelect func(core.TreeNode)) bool {
	if node.IsDir() {
		return e.Toggle(node.Path)
	}
	if onSelect != nil {
		onSelect(node)
	}
	return false
}

// Toggle flips the expanded flag of one directory and returns the new value.
func (e *Engine) Toggle(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := !e.expanded[path]
	e.expanded[path] = v
	return v
}

// SetExpanded sets the expanded flag of one directory.
func (e *Engine) SetExpanded(path string, expanded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expanded[path] = expanded
}

// IsExpanded reports whether a directory is expanded. Unseen paths are collapsed.
func (e *Engine) IsExpanded(path string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expanded[path]
}

// Indent returns the visual offset for a depth.
func (e *Engine) Indent(depth int) int {
	return depth*e.unit + e.base
}

// Row is one visible node.
type Row struct {
	Node        core.TreeNode
	Depth       int
	Indent      int
	Expanded    bool
	Selected    bool
	HasChildren bool
}

// View is the rendered state of a forest.
type View struct {
	Rows        []Row
	Empty       bool
	Placeholder string
}

// Render flattens the forest into visible rows. An empty forest yields a view
// carrying the placeholder instead of rows.
func (e *Engine) Render(forest core.Forest, selectedPath string) View {
	if len(forest) == 0 {
		return View{Empty: true, Placeholder: Placeholder}
	}
	return View{Rows: e.Rows(forest, selectedPath)}
}

// Rows returns the visible rows in display order. A directory's children are
// visited only when it is expanded and has at least one child. Sibling order
// is taken from the input as-is.
func (e *Engine) Rows(forest core.Forest, selectedPath string) []Row {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rows := make([]Row, 0, len(forest))
	var walk func(nodes []core.TreeNode, depth int)
	walk = func(nodes []core.TreeNode, depth int) {
		for _, n := range nodes {
			expanded := n.IsDir() && e.expanded[n.Path]
			rows = append(rows, Row{
				Node:        n,
				Depth:       depth,
				Indent:      depth*e.unit + e.base,
				Expanded:    expanded,
				Selected:    selectedPath != "" && n.Path == selectedPath,
				HasChildren: len(n.Children) > 0,
			})
			if expanded && len(n.Children) > 0 {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(forest, 0)
	return rows
}

// ExpandedPaths returns the directories currently expanded.
func (e *Engine) ExpandedPaths() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.expanded))
	for p, v := range e.expanded {
		if v {
			out = append(out, p)
		}
	}
	return out
}
