// Package session owns the state of one browsing session: the forest, the
// tree engine's expand state, the selected path, the preview props and the
// in-flight flags. Fetches and imports run in goroutines owned by the session
// and every state change is reported through a notify callback.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/leapstack-labs/repolens/pkg/core"
	"github.com/leapstack-labs/repolens/pkg/dispatch"
	"github.com/leapstack-labs/repolens/pkg/preview"
	"github.com/leapstack-labs/repolens/pkg/tree"
)

// Defaults for Config.
const (
	DefaultFetchTimeout  = 10 * time.Second
	DefaultImportTimeout = 30 * time.Second
	DefaultMaxToasts     = 5
)

// ErrUnknownPath is returned when a click names a path outside the forest.
var ErrUnknownPath = errors.New("path not in tree")

// Config configures a Session.
type Config struct {
	ID       string
	Source   core.Source
	Importer core.Importer

	FetchTimeout  time.Duration
	ImportTimeout time.Duration
	MaxToasts     int

	// Context bounds the lifetime of background fetches and imports.
	Context context.Context
	// Notify is called after every state change, outside the session lock.
	Notify func()

	Engine *tree.Engine
	Logger *slog.Logger
}

// Session is one browsing session.
type Session struct {
	mu sync.Mutex

	id       string
	src      core.Source
	importer core.Importer
	engine   *tree.Engine
	dispatch *dispatch.Dispatcher

	forest   core.Forest
	loaded   bool
	selected string
	props    preview.Props
	toasts   toastList

	ctx           context.Context
	fetchTimeout  time.Duration
	importTimeout time.Duration
	notify        func()
	logger        *slog.Logger

	wg sync.WaitGroup
}

// New creates a session. The forest is empty until Load is called.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}
	if cfg.MaxToasts <= 0 {
		cfg.MaxToasts = DefaultMaxToasts
	}
	if cfg.Engine == nil {
		cfg.Engine = tree.New()
	}

	s := &Session{
		id:            cfg.ID,
		src:           cfg.Source,
		importer:      cfg.Importer,
		engine:        cfg.Engine,
		toasts:        toastList{max: cfg.MaxToasts},
		ctx:           cfg.Context,
		fetchTimeout:  cfg.FetchTimeout,
		importTimeout: cfg.ImportTimeout,
		notify:        cfg.Notify,
		logger:        cfg.Logger.With("session", cfg.ID),
	}
	// the dispatcher is triggered with s.mu held
	s.dispatch = dispatch.New(s.startImportLocked)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Load replaces the forest with a fresh listing. Directories that are still
// expanded are repopulated and the selected file, if it still exists, is
// fetched again while its current preview stays visible. On failure the forest is left unchanged and an
// error toast is added.
func (s *Session) Load(ctx context.Context) error {
	if s.src == nil {
		return errors.New("session has no source")
	}

	forest, err := s.src.List(ctx)
	if err != nil {
		s.mu.Lock()
		s.toasts.add(ToastError, fmt.Sprintf("Failed to load repository: %v", err))
		s.mu.Unlock()
		s.logger.Error("failed to list repository", "source", s.src.Name(), "error", err)
		s.changed()
		return fmt.Errorf("failed to list repository: %w", err)
	}
	if err := forest.Validate(); err != nil {
		s.mu.Lock()
		s.toasts.add(ToastError, fmt.Sprintf("Invalid repository listing: %v", err))
		s.mu.Unlock()
		s.changed()
		return err
	}

	s.mu.Lock()
	s.forest = forest
	s.loaded = true
	s.mu.Unlock()

	files, dirs := forest.Count()
	s.logger.Debug("repository listed", "source", s.src.Name(), "files", files, "dirs", dirs)

	// parents sort before their descendants
	expanded := s.engine.ExpandedPaths()
	slices.Sort(expanded)
	for _, p := range expanded {
		s.mu.Lock()
		n, ok := s.forest.Find(p)
		s.mu.Unlock()
		if ok && n.IsDir() && !n.Populated() {
			_ = s.populate(ctx, p)
		}
	}

	// the selected file may have changed on disk
	s.mu.Lock()
	if s.selected != "" {
		if n, ok := s.forest.Find(s.selected); ok && !n.IsDir() {
			s.wg.Add(1)
			go s.fetch(n)
		}
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// Loaded reports whether a listing has succeeded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Click applies a click on the node at path. Directories toggle; expanding a
// lazily listed directory populates it first. Files become the selection and
// start a content fetch.
func (s *Session) Click(ctx context.Context, path string) error {
	s.mu.Lock()
	node, ok := s.forest.Find(path)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", path, ErrUnknownPath)
	}
	expanded := s.engine.Click(node, s.selectLocked)
	s.mu.Unlock()

	if expanded && !node.Populated() {
		if err := s.populate(ctx, path); err != nil {
			s.engine.SetExpanded(path, false)
		}
	}

	s.changed()
	return nil
}

// Select makes the file at path the selection without going through the
// engine's click handling.
func (s *Session) Select(path string) error {
	s.mu.Lock()
	node, ok := s.forest.Find(path)
	if !ok || node.IsDir() {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", path, ErrUnknownPath)
	}
	s.selectLocked(node)
	s.mu.Unlock()

	s.changed()
	return nil
}

// selectLocked is the selection callback. It is the only writer of the
// selected path and starts the fetch for the new selection. Earlier fetches
// still in flight are not cancelled and overwrite the preview when they
// complete.
func (s *Session) selectLocked(node core.TreeNode) {
	s.selected = node.Path
	s.props.FileName = node.Name
	s.props.Content = ""
	s.props.IsLoading = true

	s.wg.Add(1)
	go s.fetch(node)
}

func (s *Session) fetch(node core.TreeNode) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.fetchTimeout)
	defer cancel()

	content, err := s.src.Fetch(ctx, node.Path)

	s.mu.Lock()
	s.props.FileName = node.Name
	s.props.Content = content
	s.props.IsLoading = false
	if err != nil {
		s.props.Content = ""
		s.toasts.add(ToastError, fmt.Sprintf("Failed to load %s: %v", node.Name, err))
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to fetch content", "path", node.Path, "error", err)
	} else {
		s.logger.Debug("content fetched", "path", node.Path, "bytes", len(content))
	}
	s.changed()
}

// populate asks the source for one level of a lazily listed directory.
func (s *Session) populate(ctx context.Context, path string) error {
	var children []core.TreeNode
	if cl, ok := s.src.(core.ChildLister); ok {
		kids, err := cl.ListChildren(ctx, path)
		if err != nil {
			s.mu.Lock()
			s.toasts.add(ToastError, fmt.Sprintf("Failed to open %s: %v", path, err))
			s.mu.Unlock()
			s.logger.Warn("failed to list directory", "path", path, "error", err)
			return err
		}
		children = kids
	}
	if children == nil {
		children = []core.TreeNode{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if next, ok := s.forest.WithChildren(path, children); ok {
		s.forest = next
	}
	return nil
}

// Import triggers the import action for the previewed file. It reports
// whether the action ran; it has no effect unless the import control is
// visible and enabled.
func (s *Session) Import() bool {
	s.mu.Lock()
	ran := s.dispatch.Trigger(s.props)
	s.mu.Unlock()

	if ran {
		s.changed()
	}
	return ran
}

// startImportLocked is the dispatcher's onImport callback.
func (s *Session) startImportLocked() {
	s.props.IsImporting = true
	req := core.ImportRequest{
		Path:     s.selected,
		FileName: s.props.FileName,
		Content:  s.props.Content,
	}
	if s.src != nil {
		req.Source = s.src.Name()
	}

	s.wg.Add(1)
	go s.runImport(req)
}

func (s *Session) runImport(req core.ImportRequest) {
	defer s.wg.Done()

	var (
		rec *core.ImportRecord
		err error
	)
	if s.importer == nil {
		err = errors.New("no import target configured")
	} else {
		ctx, cancel := context.WithTimeout(s.ctx, s.importTimeout)
		rec, err = s.importer.Import(ctx, req)
		cancel()
	}

	s.mu.Lock()
	s.props.IsImporting = false
	if err != nil {
		s.toasts.add(ToastError, fmt.Sprintf("Import of %s failed: %v", req.FileName, err))
	} else {
		s.toasts.add(ToastSuccess, fmt.Sprintf("Imported %s", req.FileName))
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("import failed", "path", req.Path, "error", err)
	} else {
		s.logger.Info("import completed", "path", req.Path, "id", rec.ID)
	}
	s.changed()
}

// Dismiss removes a toast.
func (s *Session) Dismiss(id int64) {
	s.mu.Lock()
	removed := s.toasts.remove(id)
	s.mu.Unlock()
	if removed {
		s.changed()
	}
}

// Wait blocks until background fetches and imports have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Snapshot is a consistent copy of the session state for rendering.
type Snapshot struct {
	ID           string
	SourceName   string
	Loaded       bool
	SelectedPath string
	Tree         tree.View
	Props        preview.Props
	Preview      preview.View
	Toasts       []Toast
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.id,
		Loaded:       s.loaded,
		SelectedPath: s.selected,
		Tree:         s.engine.Render(s.forest, s.selected),
		Props:        s.props,
		Preview:      s.props.View(),
		Toasts:       s.toasts.list(),
	}
	if s.src != nil {
		snap.SourceName = s.src.Name()
	}
	return snap
}

// Forest returns the current forest.
func (s *Session) Forest() core.Forest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forest
}

func (s *Session) changed() {
	if s.notify != nil {
		s.notify()
	}
}
