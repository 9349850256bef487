// Package explorer provides the repository explorer feature for the UI.
package explorer

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/repolens/internal/session"
	"github.com/leapstack-labs/repolens/internal/ui/features/explorer/components"
	"github.com/leapstack-labs/repolens/internal/ui/notifier"
)

// Cookie session names.
const (
	CookieName = "repolens"
	cookieKey  = "session_id"
)

// Handlers provides HTTP handlers for the explorer feature.
type Handlers struct {
	manager      *session.Manager
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	logger       *slog.Logger
	isDev        bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(manager *session.Manager, sessionStore sessions.Store, notify *notifier.Notifier, logger *slog.Logger, isDev bool) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		manager:      manager,
		sessionStore: sessionStore,
		notifier:     notify,
		logger:       logger,
		isDev:        isDev,
	}
}

// browsingSession returns the browsing session bound to the request's cookie,
// creating both on first use. It must run before any SSE output is written.
func (h *Handlers) browsingSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	cookie, err := h.sessionStore.Get(r, CookieName)
	if err != nil && cookie == nil {
		return nil, err
	}
	// a cookie that fails to decode is replaced

	id, _ := cookie.Values[cookieKey].(string)
	sess, created := h.manager.GetOrCreate(r.Context(), id)
	if created || id != sess.ID() {
		cookie.Values[cookieKey] = sess.ID()
		if err := cookie.Save(r, w); err != nil {
			return nil, err
		}
		h.logger.Debug("browsing session created", "session", sess.ID())
	}
	return sess, nil
}

// ExplorerPage renders the explorer page with full content.
func (h *Handlers) ExplorerPage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.browsingSession(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := components.Page(sess.Snapshot(), h.isDev).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ExplorerUpdates is the long-lived SSE endpoint for the explorer page.
// It patches the explorer whenever the browsing session changes. The initial
// state is already rendered by ExplorerPage.
func (h *Handlers) ExplorerUpdates(w http.ResponseWriter, r *http.Request) {
	sess, err := h.browsingSession(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sse := datastar.NewSSE(w, r)

	// an open page keeps its session from being swept
	release := h.manager.Hold(sess.ID())
	defer release()

	updates := h.notifier.Subscribe(sess.ID())
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.PatchElementTempl(components.Explorer(sess.Snapshot())); err != nil {
				_ = sse.ConsoleError(err)
				// keep streaming; the next update may succeed
			}
		}
	}
}

// TreeSSE sends the explorer tree via SSE.
func (h *Handlers) TreeSSE(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(sse *datastar.ServerSentEventGenerator, sess *session.Session) error {
		return sse.PatchElementTempl(components.Tree(sess.Snapshot().Tree))
	})
}

// Click applies a click on the node named by the path query parameter.
func (h *Handlers) Click(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	h.withSession(w, r, func(sse *datastar.ServerSentEventGenerator, sess *session.Session) error {
		if path == "" {
			return errors.New("missing path")
		}
		if err := sess.Click(r.Context(), path); err != nil {
			return err
		}
		return sse.PatchElementTempl(components.Explorer(sess.Snapshot()))
	})
}

// Import triggers the import action for the previewed file. While an import is
// in flight the request has no effect.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(sse *datastar.ServerSentEventGenerator, sess *session.Session) error {
		if !sess.Import() {
			h.logger.Debug("import ignored", "session", sess.ID())
		}
		return sse.PatchElementTempl(components.Explorer(sess.Snapshot()))
	})
}

// Refresh reloads the forest from the source.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(sse *datastar.ServerSentEventGenerator, sess *session.Session) error {
		// a failed listing is shown as a toast
		_ = sess.Load(r.Context())
		return sse.PatchElementTempl(components.Explorer(sess.Snapshot()))
	})
}

// DismissToast removes one toast.
func (h *Handlers) DismissToast(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	h.withSession(w, r, func(sse *datastar.ServerSentEventGenerator, sess *session.Session) error {
		id, err := strconv.ParseInt(idParam, 10, 64)
		if err != nil {
			return errors.New("invalid toast id: " + idParam)
		}
		sess.Dismiss(id)
		return sse.PatchElementTempl(components.Toasts(sess.Snapshot().Toasts))
	})
}

// withSession resolves the browsing session, opens the SSE stream and runs fn,
// reporting its error to the browser console.
func (h *Handlers) withSession(w http.ResponseWriter, r *http.Request, fn func(*datastar.ServerSentEventGenerator, *session.Session) error) {
	sess, err := h.browsingSession(w, r)
	if err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(err)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := fn(sse, sess); err != nil {
		h.logger.Warn("explorer action failed", "session", sess.ID(), "path", r.URL.Path, "error", err)
		_ = sse.ConsoleError(err)
	}
}
