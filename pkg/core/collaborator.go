package core

import (
	"context"
	"time"
)

// Lister returns the ordered forest for a repository.
type Lister interface {
	List(ctx context.Context) (Forest, error)
}

// ChildLister populates one level of a lazily listed directory.
type ChildLister interface {
	ListChildren(ctx context.Context, path string) ([]TreeNode, error)
}

// ContentFetcher returns the textual content of a file node.
type ContentFetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// Source is a repository a browsing session reads from.
type Source interface {
	Lister
	ContentFetcher
	// Name identifies the source in logs and import records.
	Name() string
}

// ImportRequest is the previewed file handed to an Importer.
type ImportRequest struct {
	Source   string
	Path     string
	FileName string
	Content  string
}

// ImportRecord is the result of a completed import.
type ImportRecord struct {
	ID          string    `json:"id" yaml:"id"`
	Source      string    `json:"source" yaml:"source"`
	Path        string    `json:"path" yaml:"path"`
	FileName    string    `json:"file_name" yaml:"file_name"`
	Content     string    `json:"-" yaml:"-"`
	ContentHash string    `json:"content_hash" yaml:"content_hash"`
	Size        int64     `json:"size" yaml:"size"`
	ImportedAt  time.Time `json:"imported_at" yaml:"imported_at"`
}

// Importer performs the external import action for previewed content.
type Importer interface {
	Import(ctx context.Context, req ImportRequest) (*ImportRecord, error)
}
