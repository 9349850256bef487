package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/repolens/internal/testutil"
	"github.com/leapstack-labs/repolens/pkg/core"
	"github.com/leapstack-labs/repolens/pkg/preview"
)

// fakeSource serves a fixed forest. Fetches of a gated path block until the
// gate is closed.
type fakeSource struct {
	mu       sync.Mutex
	forest   core.Forest
	children map[string][]core.TreeNode
	contents map[string]string
	fetchErr map[string]error
	gates    map[string]chan struct{}
	listErr  error
	childErr error
	lists    int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) List(context.Context) (core.Forest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.forest, nil
}

func (f *fakeSource) ListChildren(_ context.Context, path string) ([]core.TreeNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.childErr != nil {
		return nil, f.childErr
	}
	return f.children[path], nil
}

func (f *fakeSource) Fetch(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	gate := f.gates[path]
	content, err := f.contents[path], f.fetchErr[path]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return content, err
}

type fakeImporter struct {
	mu    sync.Mutex
	gate  chan struct{}
	err   error
	calls []core.ImportRequest
}

func (f *fakeImporter) Import(ctx context.Context, req core.ImportRequest) (*core.ImportRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n, gate := len(f.calls), f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return &core.ImportRecord{ID: fmt.Sprintf("imp-%d", n), Path: req.Path}, nil
}

func (f *fakeImporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func scenarioSource() *fakeSource {
	return &fakeSource{
		forest: core.Forest{
			core.Dir("src", "src",
				core.File("a.ts", "src/a.ts"),
				core.File("b.ts", "src/b.ts"),
				core.File("empty.ts", "src/empty.ts"),
			),
		},
		contents: map[string]string{
			"src/a.ts": "let x=1;",
			"src/b.ts": "let y=2;",
		},
	}
}

func newSession(t *testing.T, src core.Source, imp core.Importer) *Session {
	t.Helper()
	s := New(Config{
		ID:       "test",
		Source:   src,
		Importer: imp,
		Logger:   testutil.NewTestLogger(t),
	})
	require.NoError(t, s.Load(context.Background()))
	t.Cleanup(s.Wait)
	return s
}

func rowPaths(snap Snapshot) []string {
	out := make([]string, len(snap.Tree.Rows))
	for i, r := range snap.Tree.Rows {
		out[i] = r.Node.Path
	}
	return out
}

func TestSession_ClickScenario(t *testing.T) {
	s := newSession(t, scenarioSource(), nil)
	ctx := context.Background()

	assert.Equal(t, []string{"src"}, rowPaths(s.Snapshot()))
	assert.Equal(t, preview.StateIdle, s.Snapshot().Preview.State)

	require.NoError(t, s.Click(ctx, "src"))
	snap := s.Snapshot()
	assert.Equal(t, []string{"src", "src/a.ts", "src/b.ts", "src/empty.ts"}, rowPaths(snap))
	assert.Equal(t, 1, snap.Tree.Rows[1].Depth)

	require.NoError(t, s.Click(ctx, "src/a.ts"))
	s.Wait()

	snap = s.Snapshot()
	assert.Equal(t, "src/a.ts", snap.SelectedPath)
	assert.True(t, snap.Tree.Rows[0].Expanded, "selecting a file leaves the directory expanded")
	assert.True(t, snap.Tree.Rows[1].Selected)
	assert.Equal(t, preview.StateLoaded, snap.Preview.State)
	assert.Equal(t, "a.ts", snap.Preview.Title)
	assert.Equal(t, "let x=1;", snap.Preview.Body)
	assert.True(t, snap.Preview.Import.Enabled())
}

func TestSession_LoadingWhileFetching(t *testing.T) {
	src := scenarioSource()
	gate := make(chan struct{})
	src.gates = map[string]chan struct{}{"src/a.ts": gate}
	s := newSession(t, src, nil)

	require.NoError(t, s.Select("src/a.ts"))
	snap := s.Snapshot()
	assert.Equal(t, preview.StateLoading, snap.Preview.State)
	assert.True(t, snap.Preview.ShowSkeleton)
	assert.False(t, snap.Preview.Import.Visible)
	assert.False(t, s.Import(), "import has no effect while loading")

	close(gate)
	s.Wait()
	assert.Equal(t, preview.StateLoaded, s.Snapshot().Preview.State)
}

func TestSession_EmptyContent(t *testing.T) {
	s := newSession(t, scenarioSource(), &fakeImporter{})

	require.NoError(t, s.Select("src/empty.ts"))
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, preview.StateEmpty, snap.Preview.State)
	assert.Equal(t, "empty.ts", snap.Preview.Title)
	assert.Equal(t, preview.EmptyPlaceholder, snap.Preview.Placeholder)
	assert.False(t, snap.Preview.Import.Visible)
	assert.False(t, s.Import())
}

func TestSession_FetchFailure(t *testing.T) {
	src := scenarioSource()
	src.fetchErr = map[string]error{"src/a.ts": errors.New("boom")}
	s := newSession(t, src, nil)

	require.NoError(t, s.Select("src/a.ts"))
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, preview.StateEmpty, snap.Preview.State)
	assert.False(t, snap.Props.IsLoading)
	require.Len(t, snap.Toasts, 1)
	assert.Equal(t, ToastError, snap.Toasts[0].Level)
	assert.Contains(t, snap.Toasts[0].Message, "boom")
}

func TestSession_Import(t *testing.T) {
	imp := &fakeImporter{gate: make(chan struct{})}
	s := newSession(t, scenarioSource(), imp)

	require.NoError(t, s.Select("src/a.ts"))
	s.Wait()

	require.True(t, s.Import())
	snap := s.Snapshot()
	assert.True(t, snap.Props.IsImporting)
	assert.True(t, snap.Preview.Import.Visible)
	assert.True(t, snap.Preview.Import.Disabled)
	assert.Equal(t, preview.ImportingLabel, snap.Preview.Import.Label)

	// repeated triggers while in flight have no effect
	assert.False(t, s.Import())
	assert.False(t, s.Import())

	close(imp.gate)
	s.Wait()

	snap = s.Snapshot()
	assert.False(t, snap.Props.IsImporting)
	assert.True(t, snap.Preview.Import.Enabled())
	assert.Equal(t, preview.ImportLabel, snap.Preview.Import.Label)
	assert.Equal(t, 1, imp.count())

	require.Len(t, snap.Toasts, 1)
	assert.Equal(t, ToastSuccess, snap.Toasts[0].Level)
	assert.Equal(t, core.ImportRequest{
		Source:   "fake",
		Path:     "src/a.ts",
		FileName: "a.ts",
		Content:  "let x=1;",
	}, imp.calls[0])
}

func TestSession_ImportFailureReenables(t *testing.T) {
	imp := &fakeImporter{err: errors.New("store down")}
	s := newSession(t, scenarioSource(), imp)

	require.NoError(t, s.Select("src/a.ts"))
	s.Wait()
	require.True(t, s.Import())
	s.Wait()

	snap := s.Snapshot()
	assert.False(t, snap.Props.IsImporting)
	assert.True(t, snap.Preview.Import.Enabled())
	require.Len(t, snap.Toasts, 1)
	assert.Equal(t, ToastError, snap.Toasts[0].Level)

	assert.True(t, s.Import(), "control is usable again after a failure")
	s.Wait()
	assert.Equal(t, 2, imp.count())
}

func TestSession_ImportWithoutImporter(t *testing.T) {
	s := newSession(t, scenarioSource(), nil)

	require.NoError(t, s.Select("src/a.ts"))
	s.Wait()
	require.True(t, s.Import())
	s.Wait()

	snap := s.Snapshot()
	assert.False(t, snap.Props.IsImporting)
	require.Len(t, snap.Toasts, 1)
	assert.Contains(t, snap.Toasts[0].Message, "no import target")
}

func TestSession_StaleFetchOverwrites(t *testing.T) {
	src := scenarioSource()
	gate := make(chan struct{})
	src.gates = map[string]chan struct{}{"src/a.ts": gate}
	s := newSession(t, src, nil)

	require.NoError(t, s.Select("src/a.ts"))
	require.NoError(t, s.Select("src/b.ts"))

	assert.Eventually(t, func() bool {
		return s.Snapshot().Preview.Body == "let y=2;"
	}, time.Second, 5*time.Millisecond)

	// the older fetch resolves last and wins
	close(gate)
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, "src/b.ts", snap.SelectedPath)
	assert.Equal(t, "a.ts", snap.Preview.Title)
	assert.Equal(t, "let x=1;", snap.Preview.Body)
}

func TestSession_LazyDirectories(t *testing.T) {
	src := &fakeSource{
		forest: core.Forest{core.LazyDir("src", "src"), core.File("README.md", "README.md")},
		children: map[string][]core.TreeNode{
			"src":     {core.LazyDir("lib", "src/lib"), core.File("a.ts", "src/a.ts")},
			"src/lib": {core.File("b.ts", "src/lib/b.ts")},
		},
	}
	s := newSession(t, src, nil)
	ctx := context.Background()

	require.NoError(t, s.Click(ctx, "src"))
	require.NoError(t, s.Click(ctx, "src/lib"))
	assert.Equal(t, []string{"src", "src/lib", "src/lib/b.ts", "src/a.ts", "README.md"}, rowPaths(s.Snapshot()))

	// collapse and reopen keeps the populated children
	require.NoError(t, s.Click(ctx, "src"))
	assert.Equal(t, []string{"src", "README.md"}, rowPaths(s.Snapshot()))
	require.NoError(t, s.Click(ctx, "src"))
	assert.Len(t, rowPaths(s.Snapshot()), 5)

	// a reload repopulates expanded directories
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, []string{"src", "src/lib", "src/lib/b.ts", "src/a.ts", "README.md"}, rowPaths(s.Snapshot()))
	assert.Equal(t, 2, src.lists)
}

func TestSession_ReloadRefetchesSelection(t *testing.T) {
	src := scenarioSource()
	s := newSession(t, src, nil)

	require.NoError(t, s.Select("src/a.ts"))
	s.Wait()
	require.Equal(t, "let x=1;", s.Snapshot().Preview.Body)

	gate := make(chan struct{})
	src.mu.Lock()
	src.contents["src/a.ts"] = "let x=2;"
	src.gates = map[string]chan struct{}{"src/a.ts": gate}
	src.mu.Unlock()

	require.NoError(t, s.Load(context.Background()))

	// the old body stays up while the new one is fetched
	snap := s.Snapshot()
	assert.Equal(t, preview.StateLoaded, snap.Preview.State)
	assert.Equal(t, "let x=1;", snap.Preview.Body)

	close(gate)
	s.Wait()
	snap = s.Snapshot()
	assert.Equal(t, "src/a.ts", snap.SelectedPath)
	assert.Equal(t, "let x=2;", snap.Preview.Body)
}

func TestSession_ReloadWithoutSelectionFetchesNothing(t *testing.T) {
	src := scenarioSource()
	src.fetchErr = map[string]error{"src/a.ts": errors.New("boom"), "src/b.ts": errors.New("boom")}
	s := newSession(t, src, nil)

	require.NoError(t, s.Load(context.Background()))
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, preview.StateIdle, snap.Preview.State)
	assert.Empty(t, snap.Toasts, "no fetch ran")
}

func TestSession_LazyDirectoryFailure(t *testing.T) {
	src := &fakeSource{
		forest:   core.Forest{core.LazyDir("src", "src")},
		childErr: errors.New("denied"),
	}
	s := newSession(t, src, nil)

	require.NoError(t, s.Click(context.Background(), "src"))

	snap := s.Snapshot()
	assert.False(t, snap.Tree.Rows[0].Expanded)
	require.Len(t, snap.Toasts, 1)
	assert.Contains(t, snap.Toasts[0].Message, "denied")
}

func TestSession_LoadFailureKeepsForest(t *testing.T) {
	src := scenarioSource()
	s := newSession(t, src, nil)

	src.mu.Lock()
	src.listErr = errors.New("offline")
	src.mu.Unlock()

	err := s.Load(context.Background())
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, []string{"src"}, rowPaths(snap))
	require.Len(t, snap.Toasts, 1)
	assert.Equal(t, ToastError, snap.Toasts[0].Level)
}

func TestSession_EmptyForest(t *testing.T) {
	s := newSession(t, &fakeSource{forest: core.Forest{}}, nil)

	snap := s.Snapshot()
	assert.True(t, snap.Tree.Empty)
	assert.Equal(t, "No files available", snap.Tree.Placeholder)
}

func TestSession_ClickUnknownPath(t *testing.T) {
	s := newSession(t, scenarioSource(), nil)

	assert.ErrorIs(t, s.Click(context.Background(), "nope"), ErrUnknownPath)
	assert.ErrorIs(t, s.Select("src"), ErrUnknownPath, "directories cannot be selected")
}

func TestSession_Notify(t *testing.T) {
	var n atomic.Int32
	s := New(Config{
		Source: scenarioSource(),
		Notify: func() { n.Add(1) },
	})
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, int32(1), n.Load())

	require.NoError(t, s.Select("src/a.ts"))
	s.Wait()
	// one for the selection, one for the fetch result
	assert.Equal(t, int32(3), n.Load())
}

func TestSession_Toasts(t *testing.T) {
	src := scenarioSource()
	src.listErr = errors.New("offline")
	s := New(Config{Source: src, MaxToasts: 3})

	for i := 0; i < 5; i++ {
		_ = s.Load(context.Background())
	}

	toasts := s.Snapshot().Toasts
	require.Len(t, toasts, 3)
	assert.Equal(t, int64(3), toasts[0].ID, "oldest toasts are dropped")

	s.Dismiss(toasts[1].ID)
	toasts = s.Snapshot().Toasts
	require.Len(t, toasts, 2)
	assert.Equal(t, []int64{3, 5}, []int64{toasts[0].ID, toasts[1].ID})
}
