package core

import (
	"errors"
	"fmt"
)

// NodeKind distinguishes leaf entries from expandable containers.
type NodeKind string

// Node kinds.
const (
	KindFile      NodeKind = "file"
	KindDirectory NodeKind = "directory"
)

// TreeNode is one entry in a hierarchical listing.
//
// Children is only meaningful for directories. A nil slice means the directory
// has not been populated yet; a non-nil empty slice means it is known to be empty.
type TreeNode struct {
	Name     string     `json:"name" yaml:"name"`
	Path     string     `json:"path" yaml:"path"`
	Kind     NodeKind   `json:"kind" yaml:"kind"`
	Children []TreeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsDir reports whether the node is a directory.
func (n TreeNode) IsDir() bool {
	return n.Kind == KindDirectory
}

// Populated reports whether a directory's children have been listed.
func (n TreeNode) Populated() bool {
	return n.Children != nil
}

// File returns a file node.
func File(name, path string) TreeNode {
	return TreeNode{Name: name, Path: path, Kind: KindFile}
}

// Dir returns a directory node. Passing no children yields a populated, empty
// directory; use LazyDir for one whose children are not yet known.
func Dir(name, path string, children ...TreeNode) TreeNode {
	if children == nil {
		children = []TreeNode{}
	}
	return TreeNode{Name: name, Path: path, Kind: KindDirectory, Children: children}
}

// LazyDir returns a directory node whose children have not been listed.
func LazyDir(name, path string) TreeNode {
	return TreeNode{Name: name, Path: path, Kind: KindDirectory}
}

// Forest is the top-level ordered sequence of nodes.
type Forest []TreeNode

// Validation errors.
var (
	ErrEmptyPath        = errors.New("node path is empty")
	ErrDuplicatePath    = errors.New("duplicate node path")
	ErrFileWithChildren = errors.New("file node carries children")
	ErrUnknownKind      = errors.New("unknown node kind")
)

// ValidationError describes the first invariant violation found in a forest.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid node %q: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks the forest invariants: every node has a non-empty unique
// path, a known kind, and files carry no children.
func (f Forest) Validate() error {
	seen := make(map[string]struct{})
	var walk func(nodes []TreeNode) error
	walk = func(nodes []TreeNode) error {
		for _, n := range nodes {
			if n.Path == "" {
				return &ValidationError{Path: n.Name, Err: ErrEmptyPath}
			}
			if _, dup := seen[n.Path]; dup {
				return &ValidationError{Path: n.Path, Err: ErrDuplicatePath}
			}
			seen[n.Path] = struct{}{}

			switch n.Kind {
			case KindFile:
				if n.Children != nil {
					return &ValidationError{Path: n.Path, Err: ErrFileWithChildren}
				}
			case KindDirectory:
				if err := walk(n.Children); err != nil {
					return err
				}
			default:
				return &ValidationError{Path: n.Path, Err: ErrUnknownKind}
			}
		}
		return nil
	}
	return walk(f)
}

// Find returns the node with the given path.
func (f Forest) Find(path string) (TreeNode, bool) {
	for _, n := range f {
		if n.Path == path {
			return n, true
		}
		if n.IsDir() && len(n.Children) > 0 {
			if found, ok := Forest(n.Children).Find(path); ok {
				return found, true
			}
		}
	}
	return TreeNode{}, false
}

// WithChildren returns a copy of the forest in which the directory at path has
// the given children. The receiver is never modified. The second return value
// is false when no directory with that path exists.
func (f Forest) WithChildren(path string, children []TreeNode) (Forest, bool) {
	if children == nil {
		children = []TreeNode{}
	}
	out, ok := replaceChildren(f, path, children)
	if !ok {
		return f, false
	}
	return out, true
}

func replaceChildren(nodes []TreeNode, path string, children []TreeNode) ([]TreeNode, bool) {
	for i, n := range nodes {
		if !n.IsDir() {
			continue
		}
		if n.Path == path {
			out := make([]TreeNode, len(nodes))
			copy(out, nodes)
			out[i].Children = children
			return out, true
		}
		if len(n.Children) == 0 {
			continue
		}
		if sub, ok := replaceChildren(n.Children, path, children); ok {
			out := make([]TreeNode, len(nodes))
			copy(out, nodes)
			out[i].Children = sub
			return out, true
		}
	}
	return nil, false
}

// Count returns the number of files and directories currently listed.
func (f Forest) Count() (files, dirs int) {
	for _, n := range f {
		if n.IsDir() {
			dirs++
			cf, cd := Forest(n.Children).Count()
			files += cf
			dirs += cd
			continue
		}
		files++
	}
	return files, dirs
}
