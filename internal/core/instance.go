package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giantswarm/simenv/internal/engine"
	"github.com/giantswarm/simenv/internal/frame"
	"github.com/giantswarm/simenv/internal/recording"
)

// Subdirectories of an instance directory.
const (
	renderedDirName  = "rendered"
	recordingDirName = "recording"
)

// State is the lifecycle state of an Instance.
type State uint32

const (
	// StateCreated means no episode is running; Step requires a Reset first.
	StateCreated State = iota
	// StateReady means an episode is running and Step is accepted.
	StateReady
	// StateStepping means an engine mutation is in flight.
	StateStepping
	// StateRecording means a monitor is active. It is reported in place of
	// Created or Ready while the monitor is open.
	StateRecording
	// StateClosed means the instance has been torn down.
	StateClosed
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReady:
		return "ready"
	case StateStepping:
		return "stepping"
	case StateRecording:
		return "recording"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Instance is one live simulation and everything attached to it.
//
// Synchronization strategy:
//   - guard is a FIFO turnstile held for the duration of every engine call.
//     Operations on the same instance run one at a time in admission order.
//   - sink serializes side-effect writes (frames, traces) and protects
//     renderCounter and recorder. It is taken before guard is released
//     (hand-over-hand) so writes land in admission order while the next
//     engine call proceeds. Lock order is always guard then sink.
//   - episode, closing and recording are atomics so Describe, List and State
//     never wait on an in-flight operation.
type Instance struct {
	id         string
	kind       string
	dir        string
	spaces     engine.Spaces
	renderMode engine.RenderMode
	createdAt  time.Time
	log        *slog.Logger

	// engine is exclusively owned by this instance and only touched while
	// guard is held.
	engine engine.Engine

	guard turnstile

	episode   atomic.Uint32 // State: Created, Ready, Stepping or Closed
	closing   atomic.Bool
	recording atomic.Bool

	sink          sync.Mutex
	frames        *frame.Writer
	renderCounter uint64
	recorder      *recording.Recorder
}

func newInstance(id, kind, dataDir string, eng engine.Engine) *Instance {
	dir := filepath.Join(dataDir, id)
	return &Instance{
		id:         id,
		kind:       kind,
		dir:        dir,
		spaces:     eng.Spaces(),
		renderMode: eng.RenderMode(),
		createdAt:  time.Now(),
		log:        instanceLogger(id, kind),
		engine:     eng,
		frames:     frame.NewWriter(filepath.Join(dir, renderedDirName)),
	}
}

// ID returns the instance identifier.
func (i *Instance) ID() string { return i.id }

// State returns the current lifecycle state.
func (i *Instance) State() State {
	s := i.loadEpisode()
	if s == StateClosed || s == StateStepping {
		return s
	}
	if i.recording.Load() {
		return StateRecording
	}
	return s
}

func (i *Instance) loadEpisode() State {
	return State(i.episode.Load())
}

func (i *Instance) storeEpisode(s State) {
	i.episode.Store(uint32(s))
}

func (i *Instance) recordingDir() string {
	return filepath.Join(i.dir, recordingDirName)
}

// acquire takes the guard for one operation. A caller admitted after Close
// started sees ErrInstanceNotFound.
func (i *Instance) acquire(ctx context.Context) error {
	if err := i.guard.Acquire(ctx); err != nil {
		return ErrTimeout.With("waiting for instance %s: %v", i.id, err)
	}
	if i.closing.Load() {
		i.guard.Release()
		return ErrInstanceNotFound.With("%s", i.id)
	}
	return nil
}

// exec runs fn against the engine while the caller holds the guard and
// returns when fn returns or ctx is done, whichever comes first.
//
// owned reports whether the caller still holds the guard. When ctx expires
// first, fn is abandoned: owned is false, err is ctx.Err(), and the
// goroutine running fn keeps the guard until fn returns. If mutates is set it
// then moves the episode back to StateCreated, since the caller never saw the
// resulting observation, before releasing the guard.
func (i *Instance) exec(ctx context.Context, mutates bool, fn func(context.Context) error) (owned bool, err error) {
	var (
		mu        sync.Mutex
		abandoned bool
	)
	done := make(chan error, 1)

	go func() {
		err := fn(ctx)

		mu.Lock()
		defer mu.Unlock()
		if !abandoned {
			done <- err
			return
		}
		if mutates {
			i.storeEpisode(StateCreated)
		}
		i.log.Warn("abandoned engine call returned; instance released", "error", err, "needs_reset", mutates)
		i.guard.Release()
	}()

	select {
	case err := <-done:
		return true, err
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	select {
	case err := <-done:
		return true, err
	default:
	}
	abandoned = true
	return false, ctx.Err()
}

// capture renders the engine in its preferred mode. Must be called with the
// guard held.
func (i *Instance) capture(ctx context.Context) (engine.Frame, error) {
	if i.renderMode == engine.RenderUnsupported {
		return engine.Frame{}, ErrRenderNotSupported.With("%s engine has no render capability", i.kind)
	}
	f, err := i.engine.Render(ctx, i.renderMode)
	if err != nil {
		return engine.Frame{}, classifyEngineErr("render", err)
	}
	return f, nil
}

// persistFrame writes f under the current render counter and advances the
// counter only once the file is durable. Must be called with sink held.
func (i *Instance) persistFrame(f engine.Frame) RenderStatus {
	counter := i.renderCounter
	name, err := i.frames.Write(counter, f)
	if err != nil {
		i.log.Warn("frame write failed", "counter", counter, "error", err)
		return RenderStatus{Err: ErrStorage.With("write frame %d: %v", counter, err)}
	}
	i.renderCounter++
	return RenderStatus{Frame: name, Counter: counter}
}

// teardown closes the monitor and releases the engine. Must be called with
// the guard held.
func (i *Instance) teardown(ctx context.Context) error {
	var errs []error

	i.sink.Lock()
	if i.recorder != nil {
		if err := i.recorder.Close(ctx); err != nil {
			errs = append(errs, classifyRecordingErr("close monitor", err))
		}
		i.recorder = nil
		i.recording.Store(false)
	}
	i.sink.Unlock()

	if err := i.engine.Close(); err != nil {
		errs = append(errs, classifyEngineErr("close engine", err))
	}
	i.storeEpisode(StateClosed)
	i.log.Info("instance closed")
	return errors.Join(errs...)
}
