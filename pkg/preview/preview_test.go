package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		fileName  string
		content   string
		isLoading bool
		want      RenderState
	}{
		{name: "nothing selected", want: StateIdle},
		{name: "content without file", content: "stale body", want: StateIdle},
		{name: "loading without file", isLoading: true, want: StateLoading},
		{name: "loading with file", fileName: "a.ts", isLoading: true, want: StateLoading},
		{name: "loading with stale content", fileName: "a.ts", content: "old", isLoading: true, want: StateLoading},
		{name: "empty content", fileName: "a.ts", want: StateEmpty},
		{name: "loaded", fileName: "a.ts", content: "let x=1;", want: StateLoaded},
		{name: "whitespace is content", fileName: "a.ts", content: " ", want: StateLoaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.fileName, tt.content, tt.isLoading))
		})
	}
}

func TestProps_View(t *testing.T) {
	tests := []struct {
		name  string
		props Props
		want  View
	}{
		{
			name:  "idle",
			props: Props{},
			want: View{
				State:       StateIdle,
				Placeholder: IdlePlaceholder,
				Import:      ImportControl{Label: ImportLabel},
			},
		},
		{
			name:  "content without file is idle",
			props: Props{Content: "stale body"},
			want: View{
				State:       StateIdle,
				Placeholder: IdlePlaceholder,
				Import:      ImportControl{Label: ImportLabel},
			},
		},
		{
			name:  "loading hides title body and import",
			props: Props{FileName: "a.ts", Content: "x", IsLoading: true},
			want: View{
				State:        StateLoading,
				ShowSkeleton: true,
				Import:       ImportControl{Label: ImportLabel},
			},
		},
		{
			name:  "empty",
			props: Props{FileName: "a.ts"},
			want: View{
				State:       StateEmpty,
				Title:       "a.ts",
				Placeholder: EmptyPlaceholder,
				Import:      ImportControl{Label: ImportLabel},
			},
		},
		{
			name:  "loaded",
			props: Props{FileName: "a.ts", Content: "let x=1;"},
			want: View{
				State:  StateLoaded,
				Title:  "a.ts",
				Body:   "let x=1;",
				Import: ImportControl{Visible: true, Label: ImportLabel},
			},
		},
		{
			name:  "loaded while importing",
			props: Props{FileName: "a.ts", Content: "let x=1;", IsImporting: true},
			want: View{
				State:  StateLoaded,
				Title:  "a.ts",
				Body:   "let x=1;",
				Import: ImportControl{Visible: true, Disabled: true, Label: ImportingLabel},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.props.View())
		})
	}
}

func TestProps_View_BodyIsVerbatim(t *testing.T) {
	content := "  line one\n\tline two\n\n<script>alert(1)</script>\n"
	v := Props{FileName: "x.html", Content: content}.View()
	assert.Equal(t, content, v.Body)
}

func TestControl_FollowsImportingFlag(t *testing.T) {
	p := Props{FileName: "a.ts", Content: "let x=1;"}
	assert.True(t, p.Control().Enabled())

	p.IsImporting = true
	assert.False(t, p.Control().Enabled())
	assert.True(t, p.Control().Visible)

	p.IsImporting = false
	assert.True(t, p.Control().Enabled())
}

func TestControl_RequiresContent(t *testing.T) {
	// importing flag alone never makes the control visible
	p := Props{FileName: "a.ts", IsImporting: true}
	assert.False(t, p.Control().Visible)
	assert.False(t, p.Control().Enabled())
}

func TestRenderState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "loaded", StateLoaded.String())
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "unknown", RenderState(42).String())
}
