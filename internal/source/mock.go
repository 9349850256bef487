package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/repolens/pkg/core"
)

// MockOptions configures a Mock source.
type MockOptions struct {
	// Forest and Contents override the built-in sample repository.
	Forest   core.Forest
	Contents map[string]string
	// Latency is slept before every call.
	Latency time.Duration
	// FailureRate is the probability in [0,1] that a call fails.
	FailureRate float64
	// Rand overrides the random source used for failures.
	Rand *rand.Rand
}

// Mock is an in-memory repository with simulated latency and failures.
type Mock struct {
	mu       sync.Mutex
	forest   core.Forest
	contents map[string]string
	latency  time.Duration
	failRate float64
	rng      *rand.Rand
}

// NewMock creates a mock source.
func NewMock(opts MockOptions) *Mock {
	forest, contents := opts.Forest, opts.Contents
	if forest == nil {
		forest, contents = sampleRepository()
	}
	if contents == nil {
		contents = map[string]string{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	return &Mock{
		forest:   forest,
		contents: contents,
		latency:  opts.Latency,
		failRate: opts.FailureRate,
		rng:      rng,
	}
}

// Name identifies the mock.
func (m *Mock) Name() string {
	return "mock"
}

// List returns the configured forest.
func (m *Mock) List(ctx context.Context) (core.Forest, error) {
	if err := m.simulate(ctx, "list"); err != nil {
		return nil, err
	}
	return m.forest, nil
}

// ListChildren returns the children of a directory in the configured forest.
func (m *Mock) ListChildren(ctx context.Context, path string) ([]core.TreeNode, error) {
	if err := m.simulate(ctx, "list "+path); err != nil {
		return nil, err
	}
	n, ok := m.forest.Find(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if !n.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotDir)
	}
	return n.Children, nil
}

// Fetch returns the configured content for a file.
func (m *Mock) Fetch(ctx context.Context, path string) (string, error) {
	if err := m.simulate(ctx, "fetch "+path); err != nil {
		return "", err
	}
	n, ok := m.forest.Find(path)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if n.IsDir() {
		return "", fmt.Errorf("%s: %w", path, ErrNotFile)
	}
	return m.contents[path], nil
}

func (m *Mock) simulate(ctx context.Context, op string) error {
	if m.latency > 0 {
		t := time.NewTimer(m.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if m.failRate <= 0 {
		return nil
	}
	m.mu.Lock()
	roll := m.rng.Float64()
	m.mu.Unlock()
	if roll < m.failRate {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return nil
}

// sampleRepository is the demo repository used when no forest is given.
func sampleRepository() (core.Forest, map[string]string) {
	forest := core.Forest{
		core.Dir("src", "src",
			core.Dir("components", "src/components",
				core.File("LoanForm.tsx", "src/components/LoanForm.tsx"),
				core.File("PaymentCard.tsx", "src/components/PaymentCard.tsx"),
			),
			core.Dir("services", "src/services",
				core.File("emi.ts", "src/services/emi.ts"),
			),
			core.File("main.ts", "src/main.ts"),
		),
		core.Dir("assets", "assets"),
		core.File("README.md", "README.md"),
		core.File(".env.example", ".env.example"),
	}
	contents := map[string]string{
		"src/components/LoanForm.tsx":    "export function LoanForm() {\n  return null;\n}\n",
		"src/components/PaymentCard.tsx": "export function PaymentCard() {\n  return null;\n}\n",
		"src/services/emi.ts": strings.Join([]string{
			"export function emi(principal: number, rate: number, months: number): number {",
			"  const r = rate / 12 / 100;",
			"  return (principal * r * Math.pow(1 + r, months)) / (Math.pow(1 + r, months) - 1);",
			"}",
			"",
		}, "\n"),
		"src/main.ts":  "import './services/emi';\n",
		"README.md":    "# sample\n\nA sample repository.\n",
		".env.example": "",
	}
	return forest, contents
}
