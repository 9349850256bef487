package source

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/repolens/pkg/core"
)

func TestMock_SampleRepository(t *testing.T) {
	m := NewMock(MockOptions{})
	ctx := context.Background()

	forest, err := m.List(ctx)
	require.NoError(t, err)
	require.NoError(t, forest.Validate())
	assert.NotEmpty(t, forest)

	content, err := m.Fetch(ctx, "src/services/emi.ts")
	require.NoError(t, err)
	assert.Contains(t, content, "export function emi")

	content, err = m.Fetch(ctx, ".env.example")
	require.NoError(t, err)
	assert.Empty(t, content)

	_, err = m.Fetch(ctx, "src")
	assert.ErrorIs(t, err, ErrNotFile)

	_, err = m.Fetch(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMock_ListChildren(t *testing.T) {
	m := NewMock(MockOptions{
		Forest: core.Forest{
			core.Dir("src", "src", core.File("a.ts", "src/a.ts")),
			core.File("b", "b"),
		},
	})
	ctx := context.Background()

	kids, err := m.ListChildren(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts"}, names(kids))

	_, err = m.ListChildren(ctx, "b")
	assert.ErrorIs(t, err, ErrNotDir)

	_, err = m.ListChildren(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMock_FailureRate(t *testing.T) {
	ctx := context.Background()

	always := NewMock(MockOptions{FailureRate: 1})
	_, err := always.List(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	never := NewMock(MockOptions{FailureRate: 0, Rand: rand.New(rand.NewPCG(1, 2))})
	for i := 0; i < 20; i++ {
		_, err := never.List(ctx)
		require.NoError(t, err)
	}
}

func TestMock_LatencyHonoursContext(t *testing.T) {
	m := NewMock(MockOptions{Latency: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Fetch(ctx, "README.md")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	src, err := New(ctx, Config{Type: TypeMock})
	require.NoError(t, err)
	assert.Equal(t, "mock", src.Name())

	src, err = New(ctx, Config{Type: TypeLocal, Path: t.TempDir()})
	require.NoError(t, err)
	_, ok := src.(*Local)
	assert.True(t, ok)

	_, err = New(ctx, Config{Type: "svn"})
	assert.Error(t, err)
}
