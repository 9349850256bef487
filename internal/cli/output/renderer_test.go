package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"TEXT", ModeText},
		{"markdown", ModeMarkdown},
		{"md", ModeMarkdown},
		{"json", ModeJSON},
		{" yaml ", ModeYAML},
		{"yml", ModeYAML},
		{"bogus", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"json on terminal", ModeJSON, true, ModeJSON},
		{"yaml", ModeYAML, false, ModeYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestMarkdownOutputHasNoANSI(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeMarkdown, false)

	r.Header(1, "Files")
	r.StatusLine("a.txt", "success", "(3 B)")
	r.Success("done")
	r.Error("boom")
	r.KeyValue("Path", "src/a.txt")
	r.Table([]string{"ID", "Path"}, [][]string{{"1", "a|b"}})

	assert.False(t, ansiPattern.MatchString(out.String()+errOut.String()))
	assert.Contains(t, out.String(), "# Files")
	assert.Contains(t, out.String(), "- **Path**: src/a.txt")
	assert.Contains(t, out.String(), `| 1 | a\|b |`)
	assert.Contains(t, errOut.String(), "boom")
	assert.NotContains(t, out.String(), "boom")
}

func TestTextTable(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)

	r.Table([]string{"ID", "Path"}, [][]string{{"1", "src/a.ts"}, {"2", "README.md"}})

	s := out.String()
	assert.Contains(t, s, "ID")
	assert.Contains(t, s, "src/a.ts")
	assert.Contains(t, s, "README.md")
	assert.Contains(t, s, "┌", "box drawing table")
}

func TestStructured(t *testing.T) {
	v := map[string]any{"path": "src/a.ts", "size": 8}

	t.Run("json", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeJSON, false)
		ok, err := r.Structured(v)
		require.NoError(t, err)
		assert.True(t, ok)

		var got map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, "src/a.ts", got["path"])
	})

	t.Run("yaml", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeYAML, false)
		ok, err := r.Structured(v)
		require.NoError(t, err)
		assert.True(t, ok)

		var got map[string]any
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, 8, got["size"])
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, true)
		ok, err := r.Structured(v)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, out.String())
	})
}

func TestFormatCodeBlock(t *testing.T) {
	assert.Equal(t, "```go\nx := 1\n```", FormatCodeBlock("go", "x := 1"))

	nested := FormatCodeBlock("md", "```sh\nls\n```\n")
	assert.True(t, strings.HasPrefix(nested, "````md\n"))
	assert.True(t, strings.HasSuffix(nested, "\n````"))
}

func TestFormatHeader(t *testing.T) {
	assert.Equal(t, "# A", FormatHeader(0, "A"))
	assert.Equal(t, "### A", FormatHeader(3, "A"))
	assert.Equal(t, "###### A", FormatHeader(9, "A"))
}

func TestLanguageForFile(t *testing.T) {
	tests := map[string]string{
		"emi.ts":     "typescript",
		"main.go":    "go",
		"README.md":  "markdown",
		"Makefile":   "",
		"config.YML": "yaml",
	}
	for name, want := range tests {
		assert.Equal(t, want, LanguageForFile(name), name)
	}
}
