// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/repolens/internal/session"
	"github.com/leapstack-labs/repolens/internal/source"
	"github.com/leapstack-labs/repolens/internal/testutil"
	"github.com/leapstack-labs/repolens/internal/ui/notifier"
	"github.com/leapstack-labs/repolens/pkg/core"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Source       core.Source
	Importer     core.Importer
	Manager      *session.Manager
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture creates a manager over src whose sessions notify the
// fixture's notifier. A nil src serves the scenario forest.
func SetupTestFixture(t *testing.T, src core.Source, imp core.Importer) *TestFixture {
	t.Helper()

	if src == nil {
		src = ScenarioSource()
	}
	logger := testutil.NewTestLogger(t)
	notify := notifier.New()

	manager := session.NewManager(func(id string) *session.Session {
		return session.New(session.Config{
			ID:       id,
			Source:   src,
			Importer: imp,
			Context:  context.Background(),
			Notify:   func() { notify.Notify(id) },
			Logger:   logger,
		})
	})
	t.Cleanup(manager.Wait)

	return &TestFixture{
		Source:       src,
		Importer:     imp,
		Manager:      manager,
		Notifier:     notify,
		SessionStore: NewTestSessionStore(),
	}
}

// ScenarioSource is an in-memory source with one directory holding a file
// with content and an empty file.
func ScenarioSource() *source.Mock {
	return source.NewMock(source.MockOptions{
		Forest: core.Forest{
			core.Dir("src", "src",
				core.File("a.ts", "src/a.ts"),
				core.File("empty.ts", "src/empty.ts"),
			),
			core.File("README.md", "README.md"),
		},
		Contents: map[string]string{
			"src/a.ts":  "let x=1;",
			"README.md": "# <sample> & co\n",
		},
	})
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithCookies copies the cookies set by an earlier response onto r so both
// requests share a browsing session.
func WithCookies(r *http.Request, from http.Header) *http.Request {
	resp := http.Response{Header: from}
	for _, c := range resp.Cookies() {
		r.AddCookie(c)
	}
	return r
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
