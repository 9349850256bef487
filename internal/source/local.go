package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/repolens/pkg/core"
)

// Local reads a repository checked out on disk. Only the top level is listed
// eagerly; directories are populated one level at a time.
type Local struct {
	root     string
	fsys     fs.FS
	maxBytes int64
	logger   *slog.Logger
}

// NewLocal opens the directory at root.
func NewLocal(root string, maxBytes int64, logger *slog.Logger) (*Local, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotDir)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Local{
		root:     abs,
		fsys:     os.DirFS(abs),
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// Name returns the absolute root directory.
func (l *Local) Name() string {
	return l.root
}

// Root returns the absolute root directory.
func (l *Local) Root() string {
	return l.root
}

// List returns the top-level entries.
func (l *Local) List(ctx context.Context) (core.Forest, error) {
	nodes, err := l.readDir(ctx, "")
	if err != nil {
		return nil, err
	}
	return core.Forest(nodes), nil
}

// ListChildren returns the entries of one directory.
func (l *Local) ListChildren(ctx context.Context, path string) ([]core.TreeNode, error) {
	return l.readDir(ctx, path)
}

func (l *Local) readDir(ctx context.Context, dir string) ([]core.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := dir
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
	}

	entries, err := fs.ReadDir(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	nodes := make([]core.TreeNode, 0, len(entries))
	for _, e := range entries {
		if hidden(e.Name()) {
			continue
		}
		p := joinPath(dir, e.Name())
		if e.IsDir() {
			nodes = append(nodes, core.LazyDir(e.Name(), p))
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		nodes = append(nodes, core.File(e.Name(), p))
	}

	l.logger.Debug("listed directory", "dir", name, "entries", len(nodes))
	return nodes, nil
}

// Fetch returns the text content of a file.
func (l *Local) Fetch(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !fs.ValidPath(path) || path == "." {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}

	info, err := fs.Stat(l.fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: %w", path, ErrNotFile)
	}
	if info.Size() > l.maxBytes {
		return "", fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrTooLarge)
	}

	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := checkText(path, data, int64(len(data)), l.maxBytes); err != nil {
		return "", err
	}
	return string(data), nil
}
