package recording

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/xid"

	"github.com/giantswarm/simenv/internal/engine"
	"github.com/giantswarm/simenv/internal/fileutil"
	"github.com/giantswarm/simenv/internal/sentinel"
)

// File names inside a recording directory.
const (
	FilePrefix   = "simenv."
	LockFile     = FilePrefix + "lock"
	DatabaseFile = FilePrefix + "episodes.db"
	ManifestFile = FilePrefix + "manifest.json"
)

// ErrConflict is returned by Start when the directory already holds
// recordings and neither Force nor Resume was requested.
const ErrConflict = sentinel.Error("recording directory holds prior data")

// ErrLocked is returned by Start when another recorder holds the directory.
const ErrLocked = sentinel.Error("recording directory is locked by another monitor")

// ErrClosed is returned by Recorder methods after Close.
const ErrClosed = sentinel.Error("recorder is closed")

const manifestFileMode = 0o644

// Options control how Start treats prior data in the directory.
type Options struct {
	// Force discards prior recordings. Takes precedence over Resume.
	Force bool
	// Resume appends to prior recordings.
	Resume bool

	InstanceID string
	EnvKind    string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Recorder appends transitions for one monitor session. It is not safe for
// concurrent use; callers serialize access.
type Recorder struct {
	dir     string
	session Session
	lock    *flock.Flock
	store   *Store
	log     *slog.Logger
	now     func() time.Time

	episode int
	step    int
	closed  bool
}

// Start opens a monitor session on dir. It takes the directory lock, applies
// the Force/Resume policy to prior data, opens the trace store and records a
// new session row. ctx bounds lock acquisition.
func Start(ctx context.Context, dir string, opts Options) (_ *Recorder, retErr error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, err
	}

	fl, err := acquireLock(ctx, filepath.Join(dir, LockFile))
	if err != nil {
		return nil, err
	}
	defer func() {
		if retErr != nil {
			releaseLock(log, fl)
		}
	}()

	prior, err := fileutil.ListPrefixed(dir, FilePrefix, LockFile)
	if err != nil {
		return nil, err
	}
	resumed := false
	if len(prior) > 0 {
		switch {
		case opts.Force:
			n, err := fileutil.RemovePrefixed(dir, FilePrefix, LockFile)
			if err != nil {
				return nil, fmt.Errorf("discard prior recordings: %w", err)
			}
			log.Info("discarded prior recordings", "dir", dir, "files", n)
		case opts.Resume:
			resumed = true
		default:
			return nil, fmt.Errorf("%w: %s (%d files); use force or resume", ErrConflict, dir, len(prior))
		}
	}

	store, err := OpenStore(ctx, filepath.Join(dir, DatabaseFile))
	if err != nil {
		return nil, err
	}
	defer func() {
		if retErr != nil {
			_ = store.Close()
		}
	}()

	episode, err := store.LastEpisode(ctx)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		dir:   dir,
		lock:  fl,
		store: store,
		log:   log,
		now:   time.Now,
		session: Session{
			ID:         xid.New().String(),
			InstanceID: opts.InstanceID,
			EnvKind:    opts.EnvKind,
			Resumed:    resumed,
		},
		episode: episode,
	}
	r.session.StartedAt = r.now()
	if err := store.BeginSession(ctx, r.session); err != nil {
		return nil, err
	}

	log.Debug("recording started", "dir", dir, "session", r.session.ID, "resumed", resumed)
	return r, nil
}

// Dir returns the recording directory.
func (r *Recorder) Dir() string { return r.dir }

// SessionID returns the id of the session this recorder writes.
func (r *Recorder) SessionID() string { return r.session.ID }

// RecordReset starts a new episode with its initial observation.
func (r *Recorder) RecordReset(ctx context.Context, obs engine.Observation) error {
	if r.closed {
		return ErrClosed
	}
	r.episode++
	r.step = 0

	obsJSON, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	return r.store.Append(ctx, Transition{
		SessionID:   r.session.ID,
		Episode:     r.episode,
		Step:        r.step,
		Kind:        KindReset,
		Observation: string(obsJSON),
		At:          r.now(),
	})
}

// RecordStep appends one step of the current episode. Steps taken before the
// first RecordReset of a fresh trace belong to episode 0.
func (r *Recorder) RecordStep(ctx context.Context, action engine.Action, res engine.StepResult) error {
	if r.closed {
		return ErrClosed
	}
	r.step++

	actionJSON, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	obsJSON, err := json.Marshal(res.Observation)
	if err != nil {
		return fmt.Errorf("encode observation: %w", err)
	}
	var info string
	if len(res.Info) > 0 {
		b, err := json.Marshal(res.Info)
		if err != nil {
			return fmt.Errorf("encode info: %w", err)
		}
		info = string(b)
	}

	return r.store.Append(ctx, Transition{
		SessionID:   r.session.ID,
		Episode:     r.episode,
		Step:        r.step,
		Kind:        KindStep,
		Action:      string(actionJSON),
		Observation: string(obsJSON),
		Reward:      res.Reward,
		Done:        res.Done,
		Info:        info,
		At:          r.now(),
	})
}

// Close ends the session, writes the manifest, closes the store and releases
// the directory lock. The lock is released even if earlier steps fail.
// Calling Close more than once returns nil.
func (r *Recorder) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	r.closed = true
	defer releaseLock(r.log, r.lock)

	var errs []error
	if err := r.store.EndSession(ctx, r.session.ID, r.now()); err != nil {
		errs = append(errs, err)
	} else if err := r.writeManifest(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	r.log.Debug("recording closed", "dir", r.dir, "session", r.session.ID)
	return errors.Join(errs...)
}

// Manifest summarizes every session recorded in a directory.
type Manifest struct {
	InstanceID string            `json:"instance_id"`
	EnvKind    string            `json:"env_kind"`
	Sessions   []ManifestSession `json:"sessions"`
}

// ManifestSession is one entry of Manifest.
type ManifestSession struct {
	ID        string     `json:"id"`
	Resumed   bool       `json:"resumed"`
	StartedAt time.Time  `json:"started_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Episodes  int        `json:"episodes"`
	Steps     int        `json:"steps"`
}

func (r *Recorder) writeManifest(ctx context.Context) error {
	sessions, err := r.store.Sessions(ctx)
	if err != nil {
		return err
	}

	m := Manifest{InstanceID: r.session.InstanceID, EnvKind: r.session.EnvKind}
	for _, s := range sessions {
		st, err := r.store.Stats(ctx, s.ID)
		if err != nil {
			return err
		}
		ms := ManifestSession{
			ID:        s.ID,
			Resumed:   s.Resumed,
			StartedAt: s.StartedAt.UTC(),
			Episodes:  st.Episodes,
			Steps:     st.Steps,
		}
		if !s.ClosedAt.IsZero() {
			closed := s.ClosedAt.UTC()
			ms.ClosedAt = &closed
		}
		m.Sessions = append(m.Sessions, ms)
	}

	path := filepath.Join(r.dir, ManifestFile)
	return fileutil.WriteFileAtomic(path, manifestFileMode, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}
