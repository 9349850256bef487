package explorer

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/repolens/internal/session"
	"github.com/leapstack-labs/repolens/internal/ui/notifier"
)

// SetupRoutes registers explorer routes on the router.
func SetupRoutes(
	router chi.Router,
	manager *session.Manager,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	logger *slog.Logger,
	isDev bool,
) error {
	handlers := NewHandlers(manager, sessionStore, notify, logger, isDev)

	router.Get("/", handlers.ExplorerPage)
	router.Get("/explorer/updates", handlers.ExplorerUpdates)

	router.Route("/api/explorer", func(r chi.Router) {
		r.Get("/", handlers.TreeSSE) // Full tree
		r.Post("/click", handlers.Click)
		r.Post("/import", handlers.Import)
		r.Post("/refresh", handlers.Refresh)
		r.Post("/toasts/{id}/dismiss", handlers.DismissToast)
	})

	return nil
}
