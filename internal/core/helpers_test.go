package core

//go:generate mockgen -destination=mock_engine_test.go -package=core github.com/giantswarm/simenv/internal/engine Engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giantswarm/simenv/internal/engine"
)

// validConfig returns a RegistryConfig that passes Validate, rooted in a
// per-test temporary directory.
func validConfig(t *testing.T) RegistryConfig {
	t.Helper()
	return RegistryConfig{
		DataDir:              t.TempDir(),
		OperationTimeout:     5 * time.Second,
		CloseTimeout:         5 * time.Second,
		ShutdownDrainTimeout: 5 * time.Second,
		LockTimeout:          time.Second,
		UploadTimeout:        5 * time.Second,
		Catalog:              testCatalog(),
		IDGenerator:          NewID,
	}
}

// testCatalog is the default catalog plus the Seq engine.
func testCatalog() *engine.Catalog {
	c := engine.DefaultCatalog()
	c.MustRegister("Seq", func(context.Context, int64) (engine.Engine, error) { return newSeqEngine(), nil })
	return c
}

// newTestRegistry builds a Registry from validConfig after applying mods and
// shuts it down when the test ends.
func newTestRegistry(t *testing.T, mods ...func(*RegistryConfig)) *Registry {
	t.Helper()
	cfg := validConfig(t)
	for _, m := range mods {
		m(&cfg)
	}
	r := NewRegistry(cfg)
	t.Cleanup(func() { _ = r.Shutdown() })
	return r
}

// mockCatalog returns a catalog whose "Mock" kind always yields eng.
func mockCatalog(eng engine.Engine) func(*RegistryConfig) {
	return func(c *RegistryConfig) {
		cat := engine.NewCatalog()
		cat.MustRegister("Mock", func(context.Context, int64) (engine.Engine, error) { return eng, nil })
		c.Catalog = cat
	}
}

func mustCreate(t *testing.T, r *Registry, kind string) string {
	t.Helper()
	id, err := r.Create(context.Background(), kind)
	if err != nil {
		t.Fatalf("Create(%q): %v", kind, err)
	}
	return id
}

func mustReset(t *testing.T, r *Registry, id string) {
	t.Helper()
	if _, err := r.Reset(context.Background(), id, false); err != nil {
		t.Fatalf("Reset(%s): %v", id, err)
	}
}

// seqEngine appends every action it receives to a log and counts calls that
// overlap. Its observation is the log length.
type seqEngine struct {
	active   atomic.Int32
	overlaps atomic.Int32

	mu  sync.Mutex
	log []int
}

const seqActions = 100

func newSeqEngine() *seqEngine { return &seqEngine{} }

func (e *seqEngine) Spaces() engine.Spaces {
	return engine.Spaces{
		Action:      engine.Discrete(seqActions),
		Observation: engine.Box([]float64{0}, []float64{1e9}),
	}
}

func (e *seqEngine) RenderMode() engine.RenderMode { return engine.RenderText }

func (e *seqEngine) enter() func() {
	if e.active.Add(1) > 1 {
		e.overlaps.Add(1)
	}
	// Widen the window in which an overlap would be observed.
	time.Sleep(100 * time.Microsecond)
	return func() { e.active.Add(-1) }
}

func (e *seqEngine) Reset(context.Context) (engine.Observation, error) {
	defer e.enter()()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = nil
	return engine.Observation{0}, nil
}

func (e *seqEngine) Step(_ context.Context, a engine.Action) (engine.StepResult, error) {
	defer e.enter()()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, a.Index())
	return engine.StepResult{Observation: engine.Observation{float64(len(e.log))}}, nil
}

func (e *seqEngine) Render(context.Context, engine.RenderMode) (engine.Frame, error) {
	defer e.enter()()
	e.mu.Lock()
	defer e.mu.Unlock()
	return engine.Frame{Mode: engine.RenderText, Text: fmt.Sprintf("steps=%d\n", len(e.log))}, nil
}

func (e *seqEngine) Close() error { return nil }

func (e *seqEngine) actions() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.log...)
}

// seqOf returns the seqEngine behind id.
func seqOf(t *testing.T, r *Registry, id string) *seqEngine {
	t.Helper()
	inst, err := r.lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := inst.engine.(*seqEngine)
	if !ok {
		t.Fatalf("instance %s is not a Seq engine", id)
	}
	return e
}

// requirePanicContains calls fn and verifies it panics with a message
// containing wantSubstr.
func requirePanicContains(t *testing.T, fn func(), wantSubstr string) {
	t.Helper()

	var recovered string
	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = fmt.Sprint(r)
			}
		}()
		fn()
	}()

	if recovered == "" {
		t.Fatalf("expected panic containing %q, got none", wantSubstr)
	}
	if !strings.Contains(recovered, wantSubstr) {
		t.Fatalf("panic %q does not contain %q", recovered, wantSubstr)
	}
}
