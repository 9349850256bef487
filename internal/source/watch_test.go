package source

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/repolens/internal/testutil"
)

func TestWatcher_NotifiesOnChange(t *testing.T) {
	dir := testutil.SetupRepoDir(t, map[string]string{"src/a.ts": "a"})

	var calls atomic.Int32
	w := NewWatcher(dir, func() { calls.Add(1) }, testutil.NewTestLogger(t))
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register
	time.Sleep(50 * time.Millisecond)

	// a burst of writes collapses into one notification
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.ts"), []byte{byte('a' + i)}, 0600))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestUnderGitDir(t *testing.T) {
	root := filepath.FromSlash("/repo")
	assert.True(t, underGitDir(root, filepath.FromSlash("/repo/.git/index")))
	assert.False(t, underGitDir(root, filepath.FromSlash("/repo/src/.gitignore")))
	assert.False(t, underGitDir(root, filepath.FromSlash("/repo/src/a.ts")))
}
