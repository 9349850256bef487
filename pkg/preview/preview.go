// Package preview derives what the content preview shows from the preview
// state owned by a browsing session. Nothing here holds state of its own, so
// the preview cannot drift from the session that owns the data.
package preview

// RenderState classifies what the preview shows.
type RenderState int

// Render states.
const (
	StateIdle RenderState = iota
	StateLoading
	StateLoaded
	StateEmpty
)

func (s RenderState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Placeholder and label text.
const (
	IdlePlaceholder  = "Select a file to preview its content"
	EmptyPlaceholder = "No content available"
	ImportLabel      = "Import"
	ImportingLabel   = "Importing..."
)

// Derive classifies the preview. Loading takes precedence over every other
// field. An empty fileName or content counts as undefined.
func Derive(fileName, content string, isLoading bool) RenderState {
	switch {
	case isLoading:
		return StateLoading
	case fileName == "":
		return StateIdle
	case content != "":
		return StateLoaded
	default:
		return StateEmpty
	}
}

// Props is the externally owned preview state.
type Props struct {
	FileName    string
	Content     string
	IsLoading   bool
	IsImporting bool
}

// State returns the derived render state.
func (p Props) State() RenderState {
	return Derive(p.FileName, p.Content, p.IsLoading)
}

// ImportControl describes the import action's control.
type ImportControl struct {
	Visible  bool
	Disabled bool
	Label    string
}

// Enabled reports whether triggering the control has an effect.
func (c ImportControl) Enabled() bool {
	return c.Visible && !c.Disabled
}

// Control returns the import control for the props. It is only visible once
// content is loaded and is disabled while an import is in flight.
func (p Props) Control() ImportControl {
	if p.State() != StateLoaded {
		return ImportControl{Label: ImportLabel}
	}
	if p.IsImporting {
		return ImportControl{Visible: true, Disabled: true, Label: ImportingLabel}
	}
	return ImportControl{Visible: true, Label: ImportLabel}
}

// View is everything a renderer needs to draw the preview.
type View struct {
	State        RenderState
	Title        string
	Body         string
	Placeholder  string
	ShowSkeleton bool
	Import       ImportControl
}

// View projects the props onto a renderable view. Body is the content verbatim.
func (p Props) View() View {
	v := View{State: p.State(), Import: p.Control()}
	switch v.State {
	case StateIdle:
		v.Placeholder = IdlePlaceholder
	case StateLoading:
		v.ShowSkeleton = true
	case StateLoaded:
		v.Title = p.FileName
		v.Body = p.Content
	case StateEmpty:
		v.Title = p.FileName
		v.Placeholder = EmptyPlaceholder
	}
	return v
}
