package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/repolens/internal/session"
	"github.com/leapstack-labs/repolens/internal/source"
	"github.com/leapstack-labs/repolens/internal/testutil"
	"github.com/leapstack-labs/repolens/pkg/core"
)

// TestHelper drives a model over a real session. Commands returned by key
// presses are run synchronously; session notifications are applied by Sync.
type TestHelper struct {
	t     *testing.T
	sess  *session.Session
	model Model
}

func NewTestHelper(t *testing.T, src core.Source, imp core.Importer) *TestHelper {
	t.Helper()

	sig := NewSignal()
	sess := session.New(session.Config{
		ID:       "tui",
		Source:   src,
		Importer: imp,
		Engine:   NewEngine(),
		Notify:   sig.Notify,
		Logger:   testutil.NewTestLogger(t),
	})
	t.Cleanup(sess.Wait)
	_ = sess.Load(context.Background())

	h := &TestHelper{t: t, sess: sess, model: NewModel(context.Background(), sess, sig)}
	return h.SendWindowSize(120, 40)
}

func (h *TestHelper) update(msg tea.Msg) tea.Cmd {
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	return cmd
}

func (h *TestHelper) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		if _, quit := msg.(tea.QuitMsg); !quit {
			h.update(msg)
		}
	}
}

// SendKey simulates a key press and runs the resulting command.
func (h *TestHelper) SendKey(keyType tea.KeyType) *TestHelper {
	h.run(h.update(tea.KeyMsg{Type: keyType}))
	return h
}

// SendKeyRune simulates a character key press and runs the resulting command.
func (h *TestHelper) SendKeyRune(r rune) *TestHelper {
	h.run(h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}))
	return h
}

// SendWindowSize simulates a window resize.
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	h.update(tea.WindowSizeMsg{Width: width, Height: height})
	return h
}

// Changed applies a session notification without waiting for background work.
func (h *TestHelper) Changed() *TestHelper {
	h.update(changedMsg{})
	return h
}

// Sync waits for background fetches and imports and then redraws.
func (h *TestHelper) Sync() *TestHelper {
	h.sess.Wait()
	return h.Changed()
}

func (h *TestHelper) GetModel() Model {
	return h.model
}

func (h *TestHelper) GetView() string {
	return h.model.View()
}

// CurrentPath returns the path under the tree cursor.
func (h *TestHelper) CurrentPath() string {
	row, ok := h.model.current()
	require.True(h.t, ok, "cursor is on a row")
	return row.Node.Path
}

// scenarioSource has one directory holding a file with content and an empty
// file.
func scenarioSource() *source.Mock {
	return source.NewMock(source.MockOptions{
		Forest: core.Forest{
			core.Dir("src", "src",
				core.File("a.ts", "src/a.ts"),
				core.File("empty.ts", "src/empty.ts"),
			),
			core.File("README.md", "README.md"),
		},
		Contents: map[string]string{"src/a.ts": "let x=1;"},
	})
}

// gatedSource blocks fetches until the gate is closed.
type gatedSource struct {
	*source.Mock
	gate chan struct{}
}

func (g *gatedSource) Fetch(ctx context.Context, path string) (string, error) {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.Mock.Fetch(ctx, path)
}

type gatedImporter struct {
	mu    sync.Mutex
	gate  chan struct{}
	calls int
}

func (g *gatedImporter) Import(ctx context.Context, req core.ImportRequest) (*core.ImportRecord, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &core.ImportRecord{ID: "rec-1", Path: req.Path, FileName: req.FileName}, nil
}

func (g *gatedImporter) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
