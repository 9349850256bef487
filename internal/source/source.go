// Package source provides the repository collaborators a browsing session
// reads from: a local directory, a git repository and an in-memory mock.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/repolens/pkg/core"
)

// Source types.
const (
	TypeLocal = "local"
	TypeGit   = "git"
	TypeMock  = "mock"
)

// DefaultMaxBytes is the largest file a source will return content for.
const DefaultMaxBytes = 1 << 20

// Sentinel errors returned by sources.
var (
	ErrNotFound    = errors.New("path not found")
	ErrNotFile     = errors.New("path is not a file")
	ErrNotDir      = errors.New("path is not a directory")
	ErrTooLarge    = errors.New("file exceeds preview size limit")
	ErrBinary      = errors.New("file is not text")
	ErrUnavailable = errors.New("source unavailable")
)

// Config selects and configures a source.
type Config struct {
	Type     string
	Path     string
	URL      string
	Branch   string
	Depth    int
	Token    string
	MaxBytes int64

	// Mock only.
	Latency     time.Duration
	FailureRate float64

	Logger *slog.Logger
}

// New builds the source described by cfg.
func New(ctx context.Context, cfg Config) (core.Source, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	switch strings.ToLower(cfg.Type) {
	case TypeLocal, "":
		return NewLocal(cfg.Path, cfg.MaxBytes, cfg.Logger)
	case TypeGit:
		return OpenGit(ctx, GitOptions{
			Path:     cfg.Path,
			URL:      cfg.URL,
			Branch:   cfg.Branch,
			Depth:    cfg.Depth,
			Token:    cfg.Token,
			MaxBytes: cfg.MaxBytes,
			Logger:   cfg.Logger,
		})
	case TypeMock:
		return NewMock(MockOptions{
			Latency:     cfg.Latency,
			FailureRate: cfg.FailureRate,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// checkText rejects content that is too large or not valid text.
func checkText(path string, data []byte, size, maxBytes int64) error {
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%s (%d bytes): %w", path, size, ErrTooLarge)
	}
	if isBinary(data) {
		return fmt.Errorf("%s: %w", path, ErrBinary)
	}
	return nil
}

// isBinary looks for a NUL byte or invalid UTF-8 in the first 8KB.
func isBinary(data []byte) bool {
	sniff := data
	truncated := false
	if len(sniff) > 8000 {
		sniff = sniff[:8000]
		truncated = true
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	if truncated {
		// drop a rune cut in half at the boundary
		for i := 0; i < utf8.UTFMax-1 && len(sniff) > 0 && !utf8.Valid(sniff); i++ {
			sniff = sniff[:len(sniff)-1]
		}
	}
	return !utf8.Valid(sniff)
}

// hidden reports whether a directory entry is skipped from listings.
func hidden(name string) bool {
	return name == ".git" || name == ".DS_Store"
}

// joinPath builds a forest path from a parent path and an entry name.
func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
