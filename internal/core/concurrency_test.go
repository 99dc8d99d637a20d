package core

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestRegistry_ConcurrentInstancesDoNotInterleave(t *testing.T) {
	t.Parallel()
	const (
		instances = 100
		steps     = 20
	)
	r := newTestRegistry(t)
	ctx := context.Background()

	ids := make([]string, instances)
	var g errgroup.Group
	for n := range instances {
		g.Go(func() error {
			id, err := r.Create(ctx, "Seq")
			if err != nil {
				return err
			}
			ids[n] = id
			if _, err := r.Reset(ctx, id, false); err != nil {
				return err
			}
			// Each instance gets its own action pattern.
			for s := range steps {
				if _, err := r.Step(ctx, id, (n+s)%seqActions, false); err != nil {
					return fmt.Errorf("instance %d step %d: %w", n, s, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for n, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true

		want := make([]int, steps)
		for s := range steps {
			want[s] = (n + s) % seqActions
		}
		e := seqOf(t, r, id)
		if got := e.actions(); !reflect.DeepEqual(got, want) {
			t.Errorf("instance %d actions = %v, want %v", n, got, want)
		}
		if e.overlaps.Load() != 0 {
			t.Errorf("instance %d saw %d overlapping engine calls", n, e.overlaps.Load())
		}
	}
}

func TestRegistry_ConcurrentStepsOnOneInstance(t *testing.T) {
	t.Parallel()
	const callers = 10
	r := newTestRegistry(t)
	ctx := context.Background()
	id := mustCreate(t, r, "Seq")
	mustReset(t, r, id)

	observed := make([]float64, callers)
	var g errgroup.Group
	for n := range callers {
		g.Go(func() error {
			res, err := r.Step(ctx, id, n, n%2 == 0)
			if err != nil {
				return err
			}
			observed[n] = res.Observation[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	e := seqOf(t, r, id)
	if e.overlaps.Load() != 0 {
		t.Fatalf("%d overlapping engine calls", e.overlaps.Load())
	}

	// Every action applied exactly once.
	actions := e.actions()
	sorted := append([]int(nil), actions...)
	sort.Ints(sorted)
	for i, a := range sorted {
		if a != i {
			t.Fatalf("applied actions = %v, want each of 0..%d once", actions, callers-1)
		}
	}

	// Each caller saw the log length at its own position in the total order.
	for n, obs := range observed {
		pos := -1
		for i, a := range actions {
			if a == n {
				pos = i
			}
		}
		if obs != float64(pos+1) {
			t.Errorf("caller %d observed %v, but its action was applied at position %d", n, obs, pos)
		}
	}
}

func TestRegistry_ConcurrentRendersNeverReuseCounter(t *testing.T) {
	t.Parallel()
	const renders = 25
	r := newTestRegistry(t)
	ctx := context.Background()
	id := mustCreate(t, r, "Seq")

	frames := make([]string, renders)
	var g errgroup.Group
	for n := range renders {
		g.Go(func() error {
			st, err := r.Render(ctx, id)
			frames[n] = st.Frame
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	sort.Strings(frames)
	want := make([]string, renders)
	for i := range renders {
		want[i] = fmt.Sprintf("%d.txt", i)
	}
	sort.Strings(want)
	if !reflect.DeepEqual(frames, want) {
		t.Errorf("frames = %v, want %v", frames, want)
	}
}

func TestRegistry_CreateCloseChurn(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	ctx := context.Background()

	var g errgroup.Group
	g.SetLimit(16)
	for range 200 {
		g.Go(func() error {
			id, err := r.Create(ctx, "GridWorld")
			if err != nil {
				return err
			}
			if _, err := r.Reset(ctx, id, false); err != nil {
				return err
			}
			return r.Close(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if n := len(r.List()); n != 0 {
		t.Errorf("%d instances left after churn", n)
	}
}

func TestRegistry_ShutdownDuringCreates(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t)
	ctx := context.Background()

	var g errgroup.Group
	for range 50 {
		g.Go(func() error {
			_, err := r.Create(ctx, "Bandit")
			if err != nil && KindOf(err) != KindShuttingDown {
				return err
			}
			return nil
		})
	}
	if err := r.Shutdown(); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	// Creates that won the race were torn down; none slipped in afterwards.
	if n := len(r.List()); n != 0 {
		t.Errorf("%d instances survived shutdown", n)
	}
}
