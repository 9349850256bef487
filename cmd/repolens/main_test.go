// Package main provides tests for the repolens CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/repolens/internal/cli"
	"github.com/leapstack-labs/repolens/internal/cli/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeProject creates a directory holding a repolens.yaml and a small source
// tree, and returns the config file path.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"repolens.yaml":   "source:\n  type: local\n  path: repo\nimport:\n  dsn: imports.db\n",
		"repo/main.go":    "package main\n",
		"repo/pkg/lib.go": "package pkg\n",
		"repo/NOTES.md":   "",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return filepath.Join(dir, "repolens.yaml")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "repolens v")
}

func TestHelpCommand(t *testing.T) {
	out, err := runCLI(t, "--help")
	require.NoError(t, err)
	for _, expected := range []string{"ui", "browse", "tree", "show", "import", "imports", "init", "completion"} {
		assert.Contains(t, out, expected)
	}
}

func TestTreeFromLocalProject(t *testing.T) {
	cfgFile := writeProject(t)

	out, err := runCLI(t, "--config", cfgFile, "-o", "text", "tree", "-L", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "pkg/")
	assert.Contains(t, out, "lib.go")
	assert.Contains(t, out, "NOTES.md")
	assert.Contains(t, out, "1 directories, 3 files")
}

func TestShowAndImportFromLocalProject(t *testing.T) {
	cfgFile := writeProject(t)

	out, err := runCLI(t, "--config", cfgFile, "-o", "text", "show", "main.go")
	require.NoError(t, err)
	assert.Contains(t, out, "package main")

	out, err = runCLI(t, "--config", cfgFile, "-o", "json", "import", "main.go")
	require.NoError(t, err)
	assert.Contains(t, out, `"path": "main.go"`)

	_, err = os.Stat(filepath.Join(filepath.Dir(cfgFile), "imports.db"))
	assert.NoError(t, err, "import store is created next to the config file")

	_, err = runCLI(t, "--config", cfgFile, "import", "NOTES.md")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "nothing to import"))
}

func TestInvalidOutputFormat(t *testing.T) {
	cfgFile := writeProject(t)

	_, err := runCLI(t, "--config", cfgFile, "-o", "xml", "tree")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
}

func TestCompletionCommand(t *testing.T) {
	out, err := runCLI(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "repolens")

	_, err = runCLI(t, "completion", "tcsh")
	assert.Error(t, err)
}
