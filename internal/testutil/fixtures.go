package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// WriteFiles writes files (slash-separated relative path -> content) under dir.
func WriteFiles(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	}
}

// SetupRepoDir creates a temporary directory holding the given files.
func SetupRepoDir(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, files)
	return dir
}

// SetupGitRepo creates a temporary git repository with the given files
// committed on its default branch.
func SetupGitRepo(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := SetupRepoDir(t, files)

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for rel := range files {
		_, err := wt.Add(rel)
		require.NoError(t, err)
	}
	_, err = wt.Commit("initial import", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "repolens",
			Email: "repolens@example.com",
			When:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	return dir
}

// SampleFiles is a small repository used across tests.
func SampleFiles() map[string]string {
	return map[string]string{
		"README.md":       "# sample\n",
		"src/a.ts":        "let x=1;",
		"src/lib/b.ts":    "export const b = 2;\n",
		"docs/guide.md":   "guide\n",
		"empty.txt":       "",
		"assets/logo.bin": "\x00\x01\x02",
	}
}
