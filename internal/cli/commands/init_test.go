package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
		wantText  string
	}{
		{
			name:      "init empty directory",
			args:      []string{},
			wantFiles: []string{"repolens.yaml", ".gitignore"},
			wantText:  "type: local",
		},
		{
			name:      "init demo",
			args:      []string{"--demo"},
			wantFiles: []string{"repolens.yaml", ".gitignore"},
			wantText:  "type: mock",
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "repolens.yaml"), []byte("existing"), 0600)
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "repolens.yaml"), []byte("existing"), 0600)
			},
			args:      []string{"--force"},
			wantFiles: []string{"repolens.yaml"},
			wantText:  "source:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create temp directory and change to it
			tmpDir := t.TempDir()
			oldWd, _ := os.Getwd()
			require.NoError(t, os.Chdir(tmpDir))
			defer func() { _ = os.Chdir(oldWd) }()

			// Run setup if provided
			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				assert.FileExists(t, filepath.Join(tmpDir, f))
			}
			content, err := os.ReadFile(filepath.Join(tmpDir, "repolens.yaml"))
			require.NoError(t, err)
			assert.Contains(t, string(content), tt.wantText)
			assert.Contains(t, buf.String(), "repolens initialized!")
		})
	}
}

func TestInitCommand_Subdirectory(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "workspace")

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{target})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(target, "repolens.yaml"))
	assert.FileExists(t, filepath.Join(target, ".gitignore"))
}

func TestRenameSpecialFiles(t *testing.T) {
	assert.Equal(t, ".gitignore", renameSpecialFiles("gitignore"))
	assert.Equal(t, "sub/.gitignore", renameSpecialFiles("sub/gitignore"))
	assert.Equal(t, "repolens.yaml", renameSpecialFiles("repolens.yaml"))
}

func TestTemplateNames(t *testing.T) {
	assert.ElementsMatch(t, []string{"demo", "minimal"}, templateNames())
}
