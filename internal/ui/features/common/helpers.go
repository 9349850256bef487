// Package common provides the page shell and small rendering helpers shared by
// UI features.
package common

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/repolens/internal/ui/resources"
)

// DatastarScript is the client runtime for data-* attributes.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Layout renders a full HTML document around body. In dev mode the page
// reloads itself when the server restarts.
func Layout(title string, isDev bool, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := NewWriter(w)
		hw.Printf(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		hw.Printf(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.Printf(`<title>%s - repolens</title>`, Escape(title))
		hw.Printf(`<link rel="stylesheet" href="%s">`, Escape(resources.StaticPath("app.css")))
		hw.Printf(`<script type="module" src="%s"></script>`, Escape(DatastarScript))
		hw.Printf(`</head><body>`)
		if isDev {
			hw.Printf(`<div id="hotreload" data-init="@get('/reload')"></div>`)
		}
		if hw.Err() != nil {
			return hw.Err()
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		hw.Printf(`</body></html>`)
		return hw.Err()
	})
}

// Escape escapes text for HTML content and attribute values.
func Escape(s string) string {
	return templ.EscapeString(s)
}

// Post returns a datastar action that posts to path with the given query
// parameters.
func Post(path string, params url.Values) string {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	// query escaping leaves no quote that could end the JS string
	return "@post('" + path + "')"
}

// Classes joins the non-empty class names.
func Classes(names ...string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}

// Writer writes formatted HTML and remembers the first error.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Printf writes unless an earlier write failed. Arguments are not escaped.
func (hw *Writer) Printf(format string, args ...any) {
	if hw.err != nil {
		return
	}
	_, hw.err = fmt.Fprintf(hw.w, format, args...)
}

// Err returns the first write error.
func (hw *Writer) Err() error {
	return hw.err
}
