package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/leapstack-labs/repolens/pkg/core"
)

// GitOptions configures a Git source. Path opens an existing repository on
// disk; otherwise URL is cloned into memory.
type GitOptions struct {
	Path     string
	URL      string
	Branch   string
	Depth    int
	Token    string
	MaxBytes int64
	Logger   *slog.Logger
}

// Git lists the tree of a branch head in a git repository.
type Git struct {
	mu       sync.Mutex
	repo     *git.Repository
	name     string
	branch   string
	maxBytes int64
	logger   *slog.Logger
}

// OpenGit opens or clones the repository described by opts.
func OpenGit(ctx context.Context, opts GitOptions) (*Git, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	var (
		repo *git.Repository
		name string
		err  error
	)
	switch {
	case opts.URL != "":
		repo, err = cloneInMemory(ctx, opts)
		name = opts.URL
	case opts.Path != "":
		repo, err = git.PlainOpenWithOptions(opts.Path, &git.PlainOpenOptions{DetectDotGit: true})
		name = opts.Path
	default:
		return nil, errors.New("git source needs a path or url")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository %s: %w", name, err)
	}

	g := &Git{
		repo:     repo,
		name:     name,
		branch:   opts.Branch,
		maxBytes: opts.MaxBytes,
		logger:   opts.Logger,
	}

	// fail early on a missing branch or an empty repository
	if _, err := g.rootTree(); err != nil {
		return nil, err
	}
	return g, nil
}

func cloneInMemory(ctx context.Context, opts GitOptions) (*git.Repository, error) {
	cloneOpts := &git.CloneOptions{
		URL:          opts.URL,
		SingleBranch: true,
		Depth:        opts.Depth,
		Tags:         git.NoTags,
	}
	if opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
	}
	if opts.Token != "" {
		cloneOpts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: opts.Token}
	}

	opts.Logger.Info("cloning repository", "url", opts.URL, "branch", opts.Branch, "depth", opts.Depth)
	return git.CloneContext(ctx, memory.NewStorage(), nil, cloneOpts)
}

// Name returns the repository path or URL.
func (g *Git) Name() string {
	if g.branch != "" {
		return g.name + "@" + g.branch
	}
	return g.name
}

// rootTree resolves the tree of the configured branch head.
func (g *Git) rootTree() (*object.Tree, error) {
	var (
		ref *plumbing.Reference
		err error
	)
	if g.branch != "" {
		ref, err = g.repo.Reference(plumbing.NewBranchReferenceName(g.branch), true)
	} else {
		ref, err = g.repo.Head()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve branch head: %w", err)
	}

	commit, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", ref.Hash(), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree: %w", err)
	}
	return tree, nil
}

// List returns the top-level entries of the branch head.
func (g *Git) List(ctx context.Context) (core.Forest, error) {
	nodes, err := g.listTree(ctx, "")
	if err != nil {
		return nil, err
	}
	return core.Forest(nodes), nil
}

// ListChildren returns the entries of one directory.
func (g *Git) ListChildren(ctx context.Context, path string) ([]core.TreeNode, error) {
	return g.listTree(ctx, path)
}

func (g *Git) listTree(ctx context.Context, dir string) ([]core.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	tree, err := g.rootTree()
	if err != nil {
		return nil, err
	}
	if dir != "" {
		tree, err = tree.Tree(dir)
		if err != nil {
			if errors.Is(err, object.ErrDirectoryNotFound) {
				return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to read tree %s: %w", dir, err)
		}
	}

	nodes := make([]core.TreeNode, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if hidden(e.Name) {
			continue
		}
		p := joinPath(dir, e.Name)
		switch {
		case e.Mode == filemode.Dir:
			nodes = append(nodes, core.LazyDir(e.Name, p))
		case e.Mode == filemode.Submodule:
			// submodules have no tree in this repository
			nodes = append(nodes, core.Dir(e.Name, p))
		case e.Mode.IsFile():
			nodes = append(nodes, core.File(e.Name, p))
		}
	}

	g.logger.Debug("listed tree", "dir", dir, "entries", len(nodes))
	return nodes, nil
}

// Fetch returns the blob content of a file at the branch head.
func (g *Git) Fetch(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path = strings.Trim(path, "/")

	g.mu.Lock()
	defer g.mu.Unlock()

	tree, err := g.rootTree()
	if err != nil {
		return "", err
	}
	if _, derr := tree.Tree(path); derr == nil {
		return "", fmt.Errorf("%s: %w", path, ErrNotFile)
	}
	f, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if f.Size > g.maxBytes {
		return "", fmt.Errorf("%s (%d bytes): %w", path, f.Size, ErrTooLarge)
	}

	content, err := f.Contents()
	if err != nil {
		return "", fmt.Errorf("failed to read blob %s: %w", path, err)
	}
	if err := checkText(path, []byte(content), f.Size, g.maxBytes); err != nil {
		return "", err
	}
	return content, nil
}
