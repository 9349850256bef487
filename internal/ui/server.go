// Package ui provides the web explorer for repolens.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/repolens/internal/session"
	"github.com/leapstack-labs/repolens/internal/source"
	"github.com/leapstack-labs/repolens/internal/ui/notifier"
	"github.com/leapstack-labs/repolens/internal/ui/router"
	"github.com/leapstack-labs/repolens/pkg/core"
)

// DefaultSessionIdle is how long an unused browsing session is kept.
const DefaultSessionIdle = 30 * time.Minute

// Server is the main UI server.
type Server struct {
	source        core.Source
	importer      core.Importer
	sessionStore  *sessions.CookieStore
	host          string
	port          int
	watchDir      string
	fetchTimeout  time.Duration
	importTimeout time.Duration
	sessionIdle   time.Duration
	isDev         bool
	logger        *slog.Logger
	notifier      *notifier.Notifier
	ready         chan string
}

// Config holds configuration for the UI server.
type Config struct {
	Source        core.Source
	Importer      core.Importer
	Host          string
	Port          int
	SessionSecret string
	// WatchDir enables reloading sessions when files under it change.
	WatchDir      string
	FetchTimeout  time.Duration
	ImportTimeout time.Duration
	// SessionIdle is how long an unused browsing session is kept.
	SessionIdle time.Duration
	// SecureCookie marks the session cookie Secure. Only set it when the
	// server is reached over TLS.
	SecureCookie bool
	Dev          bool
	Logger       *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = DefaultSessionIdle
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	// NewCookieStore defaults to Secure, which plain http clients drop
	sessionStore.Options.Secure = cfg.SecureCookie
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		source:        cfg.Source,
		importer:      cfg.Importer,
		sessionStore:  sessionStore,
		host:          cfg.Host,
		port:          cfg.Port,
		watchDir:      cfg.WatchDir,
		fetchTimeout:  cfg.FetchTimeout,
		importTimeout: cfg.ImportTimeout,
		sessionIdle:   cfg.SessionIdle,
		isDev:         cfg.Dev,
		logger:        cfg.Logger,
		notifier:      notifier.New(),
		ready:         make(chan string, 1),
	}
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, fmt.Sprint(s.port)))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	url := "http://" + displayAddr(ln.Addr())
	s.logger.Info("starting UI server", "addr", url)

	eg, egctx := errgroup.WithContext(ctx)

	manager := s.NewManager(egctx)
	handler, err := s.Handler(manager)
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start file watcher if enabled
	if s.watchDir != "" {
		w := source.NewWatcher(s.watchDir, func() { s.reloadSessions(egctx, manager) }, s.logger)
		eg.Go(func() error {
			return w.Run(egctx)
		})
	}

	// Drop browsing sessions nobody uses anymore
	eg.Go(func() error {
		s.sweepSessions(egctx, manager)
		return nil
	})

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	s.ready <- url

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		err := srv.Shutdown(shutdownCtx)
		manager.Wait()
		return err
	})

	return eg.Wait()
}

// Ready delivers the server's base URL once it is accepting connections.
func (s *Server) Ready() <-chan string {
	return s.ready
}

// NewManager creates the session manager. Background work of every session
// is bound to ctx.
func (s *Server) NewManager(ctx context.Context) *session.Manager {
	return session.NewManager(func(id string) *session.Session {
		return session.New(session.Config{
			ID:            id,
			Source:        s.source,
			Importer:      s.importer,
			FetchTimeout:  s.fetchTimeout,
			ImportTimeout: s.importTimeout,
			Context:       ctx,
			Notify:        func() { s.notifier.Notify(id) },
			Logger:        s.logger,
		})
	})
}

// Handler builds the HTTP handler serving manager's sessions.
func (s *Server) Handler(manager *session.Manager) (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, manager, s.sessionStore, s.notifier, s.logger, s.isDev); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// reloadSessions relists the source for every session after a file change,
// then pings every open page. A session whose listing failed still shows
// its error toast.
func (s *Server) reloadSessions(ctx context.Context, manager *session.Manager) {
	s.logger.Debug("source changed, reloading sessions", "sessions", manager.Len())
	manager.Each(func(sess *session.Session) {
		if err := sess.Load(ctx); err != nil {
			s.logger.Error("reload failed", "session", sess.ID(), "error", err)
		}
	})
	s.notifier.Broadcast()
}

// sweepSessions periodically drops idle sessions until ctx ends.
func (s *Server) sweepSessions(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(sweepInterval(s.sessionIdle))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := manager.Sweep(s.sessionIdle); len(dropped) > 0 {
				s.logger.Debug("dropped idle sessions", "count", len(dropped), "live", manager.Len())
			}
		}
	}
}

func sweepInterval(idle time.Duration) time.Duration {
	return max(idle/4, 10*time.Millisecond)
}

func displayAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp.IP.IsUnspecified() {
		if ok {
			return fmt.Sprintf("localhost:%d", tcp.Port)
		}
		return addr.String()
	}
	return tcp.String()
}
