// Package components renders the explorer's HTML fragments. Every fragment
// has a stable id so SSE patches morph it in place.
package components

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/repolens/internal/session"
	"github.com/leapstack-labs/repolens/internal/ui/features/common"
	"github.com/leapstack-labs/repolens/pkg/preview"
	"github.com/leapstack-labs/repolens/pkg/tree"
)

// Element ids.
const (
	ExplorerID = "explorer"
	TreeID     = "explorer-tree"
	PreviewID  = "explorer-preview"
	ToastsID   = "explorer-toasts"
	ImportID   = "import-button"
)

// Endpoints used by the fragments.
const (
	UpdatesPath = "/explorer/updates"
	ClickPath   = "/api/explorer/click"
	ImportPath  = "/api/explorer/import"
	RefreshPath = "/api/explorer/refresh"
	ToastsPath  = "/api/explorer/toasts/"
)

// Page renders the explorer as a full document. The wrapper opens the
// long-lived updates stream; the explorer inside it is what updates patch.
func Page(snap session.Snapshot, isDev bool) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := common.NewWriter(w)
		hw.Printf(`<main id="app" data-init="@get('%s')">`, UpdatesPath)
		if hw.Err() != nil {
			return hw.Err()
		}
		if err := Explorer(snap).Render(ctx, w); err != nil {
			return err
		}
		hw.Printf(`</main>`)
		return hw.Err()
	})
	return common.Layout(title(snap), isDev, body)
}

func title(snap session.Snapshot) string {
	if snap.SourceName == "" {
		return "Explorer"
	}
	return snap.SourceName
}

// Explorer renders the header, tree, preview and toasts.
func Explorer(snap session.Snapshot) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := common.NewWriter(w)
		hw.Printf(`<div id="%s" class="explorer">`, ExplorerID)
		hw.Printf(`<header class="explorer-header"><h1 class="explorer-source">%s</h1>`, common.Escape(title(snap)))
		hw.Printf(`<button type="button" class="btn btn-ghost" id="refresh-button" data-on:click="%s">Refresh</button></header>`,
			common.Escape(common.Post(RefreshPath, nil)))
		hw.Printf(`<div class="explorer-body">`)
		if hw.Err() != nil {
			return hw.Err()
		}
		for _, c := range []templ.Component{Tree(snap.Tree), Preview(snap.Preview), Toasts(snap.Toasts)} {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		hw.Printf(`</div></div>`)
		return hw.Err()
	})
}

// Tree renders the visible rows, or the placeholder for an empty forest.
func Tree(view tree.View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := common.NewWriter(w)
		hw.Printf(`<nav id="%s" class="tree" role="tree">`, TreeID)
		if view.Empty {
			hw.Printf(`<p class="tree-empty">%s</p>`, common.Escape(view.Placeholder))
		}
		for _, row := range view.Rows {
			writeRow(hw, row)
		}
		hw.Printf(`</nav>`)
		return hw.Err()
	})
}

func writeRow(hw *common.Writer, row tree.Row) {
	n := row.Node
	kind := "tree-file"
	icon := "&middot;"
	if n.IsDir() {
		kind = "tree-dir"
		icon = "&#9656;"
		if row.Expanded {
			icon = "&#9662;"
		}
	}
	selected := ""
	if row.Selected {
		selected = "is-selected"
	}

	hw.Printf(`<div class="%s" role="treeitem" data-path="%s" data-depth="%d" style="padding-left: %dpx"`,
		common.Classes("tree-row", kind, selected), common.Escape(n.Path), row.Depth, row.Indent)
	if n.IsDir() {
		hw.Printf(` aria-expanded="%t"`, row.Expanded)
	}
	hw.Printf(` aria-selected="%t" data-on:click="%s">`, row.Selected,
		common.Escape(common.Post(ClickPath, url.Values{"path": {n.Path}})))
	hw.Printf(`<span class="tree-icon">%s</span><span class="tree-label">%s</span></div>`, icon, common.Escape(n.Name))
}

// Preview renders the preview panel for its derived state.
func Preview(v preview.View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := common.NewWriter(w)
		hw.Printf(`<section id="%s" class="preview" data-state="%s">`, PreviewID, v.State)

		switch v.State {
		case preview.StateIdle:
			hw.Printf(`<p class="preview-placeholder">%s</p>`, common.Escape(v.Placeholder))
		case preview.StateLoading:
			hw.Printf(`<div class="preview-skeleton" aria-busy="true">`)
			hw.Printf(`<div class="skeleton skeleton-title"></div>`)
			for i := 0; i < 3; i++ {
				hw.Printf(`<div class="skeleton skeleton-line"></div>`)
			}
			hw.Printf(`</div>`)
		case preview.StateLoaded:
			hw.Printf(`<header class="preview-header"><h2 class="preview-title">%s</h2>`, common.Escape(v.Title))
			writeImport(hw, v.Import)
			hw.Printf(`</header><pre class="preview-body"><code>%s</code></pre>`, common.Escape(v.Body))
		case preview.StateEmpty:
			hw.Printf(`<header class="preview-header"><h2 class="preview-title">%s</h2></header>`, common.Escape(v.Title))
			hw.Printf(`<p class="preview-placeholder">%s</p>`, common.Escape(v.Placeholder))
		}

		hw.Printf(`</section>`)
		return hw.Err()
	})
}

func writeImport(hw *common.Writer, c preview.ImportControl) {
	if !c.Visible {
		return
	}
	disabled := ""
	if c.Disabled {
		disabled = ` disabled aria-busy="true"`
	}
	hw.Printf(`<button type="button" id="%s" class="btn btn-primary"%s data-on:click="%s">%s</button>`,
		ImportID, disabled, common.Escape(common.Post(ImportPath, nil)), common.Escape(c.Label))
}

// Toasts renders the session's notifications, oldest first.
func Toasts(toasts []session.Toast) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := common.NewWriter(w)
		hw.Printf(`<div id="%s" class="toasts" aria-live="polite">`, ToastsID)
		for _, t := range toasts {
			id := strconv.FormatInt(t.ID, 10)
			hw.Printf(`<div class="toast toast-%s" data-toast-id="%s"><span>%s</span>`,
				common.Escape(string(t.Level)), id, common.Escape(t.Message))
			hw.Printf(`<button type="button" class="toast-dismiss" aria-label="Dismiss" data-on:click="%s">&times;</button></div>`,
				common.Escape(common.Post(ToastsPath+id+"/dismiss", nil)))
		}
		hw.Printf(`</div>`)
		return hw.Err()
	})
}
