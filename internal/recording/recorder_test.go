package recording

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giantswarm/simenv/internal/engine"
)

func startRecorder(t *testing.T, dir string, opts Options) *Recorder {
	t.Helper()
	r, err := Start(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return r
}

// recordEpisode records a reset followed by steps steps, the last one done.
func recordEpisode(t *testing.T, r *Recorder, steps int) {
	t.Helper()
	ctx := context.Background()
	if err := r.RecordReset(ctx, engine.Observation{0, 0}); err != nil {
		t.Fatalf("RecordReset: %v", err)
	}
	for i := range steps {
		res := engine.StepResult{
			Observation: engine.Observation{0, float64(i + 1)},
			Done:        i == steps-1,
			Info:        map[string]any{"steps": i + 1},
		}
		if err := r.RecordStep(ctx, engine.Action{2}, res); err != nil {
			t.Fatalf("RecordStep: %v", err)
		}
	}
}

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := OpenStore(context.Background(), filepath.Join(dir, DatabaseFile))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecorder_RecordsTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "recording")

	r := startRecorder(t, dir, Options{InstanceID: "abcd1234", EnvKind: "GridWorld"})
	recordEpisode(t, r, 2)
	session := r.SessionID()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s := openTestStore(t, dir)
	trs, err := s.Transitions(ctx, session)
	if err != nil {
		t.Fatal(err)
	}
	if len(trs) != 3 {
		t.Fatalf("got %d transitions, want 3", len(trs))
	}
	if trs[0].Kind != KindReset || trs[0].Action != "" || trs[0].Episode != 1 {
		t.Errorf("first transition = %+v, want reset of episode 1", trs[0])
	}
	last := trs[2]
	if last.Kind != KindStep || last.Step != 2 || !last.Done || last.Action != "[2]" {
		t.Errorf("last transition = %+v", last)
	}

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if m.InstanceID != "abcd1234" || len(m.Sessions) != 1 {
		t.Fatalf("manifest = %+v", m)
	}
	if got := m.Sessions[0]; got.Episodes != 1 || got.Steps != 2 || got.ClosedAt == nil {
		t.Errorf("manifest session = %+v", got)
	}
}

func TestStart_PriorData(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts         Options
		wantErr      error
		wantSessions int
	}{
		"conflict without flags": {opts: Options{}, wantErr: ErrConflict},
		"force discards":         {opts: Options{Force: true}, wantSessions: 1},
		"resume appends":         {opts: Options{Resume: true}, wantSessions: 2},
		"force wins over resume": {opts: Options{Force: true, Resume: true}, wantSessions: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			dir := t.TempDir()

			first := startRecorder(t, dir, Options{})
			recordEpisode(t, first, 1)
			if err := first.Close(ctx); err != nil {
				t.Fatal(err)
			}
			// Unrelated files are never touched.
			keep := filepath.Join(dir, "notes.txt")
			if err := os.WriteFile(keep, []byte("x"), 0o600); err != nil {
				t.Fatal(err)
			}

			r, err := Start(ctx, dir, tc.opts)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Start error = %v, want %v", err, tc.wantErr)
				}
				if _, statErr := os.Stat(filepath.Join(dir, DatabaseFile)); statErr != nil {
					t.Errorf("prior data removed on conflict: %v", statErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			if err := r.Close(ctx); err != nil {
				t.Fatal(err)
			}

			sessions, err := openTestStore(t, dir).Sessions(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(sessions) != tc.wantSessions {
				t.Errorf("got %d sessions, want %d", len(sessions), tc.wantSessions)
			}
			if _, err := os.Stat(keep); err != nil {
				t.Errorf("unrelated file removed: %v", err)
			}
		})
	}
}

func TestStart_ResumeContinuesEpisodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	first := startRecorder(t, dir, Options{})
	recordEpisode(t, first, 1)
	recordEpisode(t, first, 1)
	if err := first.Close(ctx); err != nil {
		t.Fatal(err)
	}

	second := startRecorder(t, dir, Options{Resume: true})
	recordEpisode(t, second, 1)
	session := second.SessionID()
	if err := second.Close(ctx); err != nil {
		t.Fatal(err)
	}

	trs, err := openTestStore(t, dir).Transitions(ctx, session)
	if err != nil {
		t.Fatal(err)
	}
	if len(trs) == 0 || trs[0].Episode != 3 {
		t.Errorf("resumed episode = %+v, want episode 3", trs)
	}
}

func TestStart_Locked(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	holder := startRecorder(t, dir, Options{})
	t.Cleanup(func() { _ = holder.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if _, err := Start(ctx, dir, Options{Resume: true}); !errors.Is(err, ErrLocked) {
		t.Fatalf("Start error = %v, want ErrLocked", err)
	}
}

func TestRecorder_AfterClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := startRecorder(t, t.TempDir(), Options{})
	if err := r.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(ctx); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if err := r.RecordReset(ctx, engine.Observation{0}); !errors.Is(err, ErrClosed) {
		t.Errorf("RecordReset after close = %v, want ErrClosed", err)
	}
	if err := r.RecordStep(ctx, engine.Action{0}, engine.StepResult{}); !errors.Is(err, ErrClosed) {
		t.Errorf("RecordStep after close = %v, want ErrClosed", err)
	}
}

func TestRecorder_LockReleasedOnClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	r := startRecorder(t, dir, Options{})
	if err := r.Close(ctx); err != nil {
		t.Fatal(err)
	}
	again := startRecorder(t, dir, Options{Resume: true})
	if err := again.Close(ctx); err != nil {
		t.Fatal(err)
	}
}
