package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/simenv/internal/engine"
	"github.com/giantswarm/simenv/internal/recording"
	"github.com/giantswarm/simenv/internal/upload"
)

// registryState represents the lifecycle state of a Registry.
type registryState uint32

const (
	registryReady        registryState = iota // Zero value; Create allowed
	registryShuttingDown                      // Shutdown called
)

// maxIDAttempts bounds re-draws when the id generator collides.
const maxIDAttempts = 16

// NewID returns a random 8-character hex identifier taken from a version 4
// UUID.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:4])
}

// Registry owns the mapping from instance id to Instance. It is safe for
// concurrent use by multiple goroutines.
//
// Synchronization strategy:
//   - mu guards instances, issued and closed. It is never held across an
//     engine call or any I/O.
//   - Per-instance work synchronizes on the Instance (see Instance).
//   - inflight counts Create calls between their shutdown check and map
//     insertion. Shutdown waits on inflightDone for them to drain so that
//     every created instance is seen by Shutdown's teardown pass.
type Registry struct {
	cfg RegistryConfig

	mu        sync.RWMutex
	instances map[string]*Instance
	issued    map[string]struct{} // every id ever handed out; never reused
	closed    bool                // set by Shutdown once instances are taken

	state atomic.Uint32 // registryState

	inflight         atomic.Int64
	inflightDone     chan struct{}
	inflightDoneOnce sync.Once
}

// NewRegistry creates a Registry with the provided configuration. It performs
// no I/O; instance directories are created on first use.
//
// Panics if cfg.Validate() reports any errors.
func NewRegistry(cfg RegistryConfig) *Registry {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("simenv: invalid registry config: %v", err))
	}
	return &Registry{
		cfg:          cfg,
		instances:    make(map[string]*Instance),
		issued:       make(map[string]struct{}),
		inflightDone: make(chan struct{}),
	}
}

func (r *Registry) loadState() registryState {
	return registryState(r.state.Load())
}

// Kinds returns the environment kinds Create accepts.
func (r *Registry) Kinds() []string {
	return r.cfg.Catalog.Kinds()
}

// Create instantiates an engine of the given kind and registers it under a
// fresh identifier. The instance starts in StateCreated.
func (r *Registry) Create(ctx context.Context, kind string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrTimeout.With("create %s: %v", kind, err)
	}
	if !r.enter() {
		return "", ErrShuttingDown
	}
	defer r.exit()

	opCtx, cancel := r.opContext(ctx)
	defer cancel()
	eng, err := r.cfg.Catalog.New(opCtx, kind, rand.Int64()) //nolint:gosec // G404: engine seeds need variety, not secrecy
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownKind):
			return "", ErrUnknownEnvironmentKind.With("%q (available: %v)", kind, r.cfg.Catalog.Kinds())
		case opCtx.Err() != nil:
			return "", ErrTimeout.With("create %s: %v", kind, err)
		}
		return "", ErrEngineFailure.With("create %s: %v", kind, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = eng.Close()
		return "", ErrShuttingDown
	}
	id, err := r.allocateID()
	if err != nil {
		r.mu.Unlock()
		_ = eng.Close()
		return "", err
	}
	inst := newInstance(id, kind, r.cfg.DataDir, eng)
	r.instances[id] = inst
	r.mu.Unlock()

	inst.log.Info("instance created")
	return id, nil
}

// allocateID draws ids until one has never been issued. Must be called with
// mu held.
func (r *Registry) allocateID() (string, error) {
	for range maxIDAttempts {
		id := r.cfg.IDGenerator()
		if id == "" {
			continue
		}
		if _, taken := r.issued[id]; taken {
			continue
		}
		r.issued[id] = struct{}{}
		return id, nil
	}
	return "", fmt.Errorf("allocate instance id: %d consecutive collisions", maxIDAttempts)
}

// enter registers an in-flight Create. Returns false if the registry is
// shutting down.
func (r *Registry) enter() bool {
	r.inflight.Add(1)
	if r.loadState() == registryShuttingDown {
		r.exit()
		return false
	}
	return true
}

func (r *Registry) exit() {
	if r.inflight.Add(-1) == 0 && r.loadState() == registryShuttingDown {
		r.inflightDoneOnce.Do(func() { close(r.inflightDone) })
	}
}

func (r *Registry) lookup(id string) (*Instance, error) {
	r.mu.RLock()
	inst, ok := r.instances[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrInstanceNotFound.With("%s", id)
	}
	return inst, nil
}

// opContext bounds ctx by OperationTimeout.
func (r *Registry) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.OperationTimeout)
}

// Reset starts a new episode and returns its initial observation. If render
// is set, a frame is captured after the reset.
func (r *Registry) Reset(ctx context.Context, id string, render bool) (ResetResult, error) {
	inst, err := r.lookup(id)
	if err != nil {
		return ResetResult{}, err
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if err := inst.acquire(ctx); err != nil {
		return ResetResult{}, err
	}

	var (
		obs      engine.Observation
		rendered engine.Frame
		rendErr  error
	)
	inst.storeEpisode(StateStepping)
	owned, err := inst.exec(ctx, true, func(ctx context.Context) error {
		o, err := inst.engine.Reset(ctx)
		if err != nil {
			return err
		}
		obs = o
		if render {
			rendered, rendErr = inst.capture(ctx)
		}
		return nil
	})
	if !owned {
		return ResetResult{}, ErrTimeout.With("reset %s: %v", id, err)
	}
	if err != nil {
		inst.storeEpisode(StateCreated)
		inst.guard.Release()
		return ResetResult{}, classifyEngineErr("reset", err)
	}
	inst.storeEpisode(StateReady)

	res := ResetResult{Observation: obs}
	inst.sink.Lock()
	inst.guard.Release()
	defer inst.sink.Unlock()

	if render {
		res.Render = inst.finishRender(rendered, rendErr)
	}
	if inst.recorder != nil {
		if err := inst.recorder.RecordReset(context.WithoutCancel(ctx), obs); err != nil {
			inst.log.Warn("recording reset failed", "error", err)
			res.Recording = ErrStorage.With("record reset: %v", err)
		}
	}
	return res, nil
}

// Step applies action to the running episode. action is decoded against the
// instance's action space before any engine call.
func (r *Registry) Step(ctx context.Context, id string, action any, render bool) (StepResult, error) {
	inst, err := r.lookup(id)
	if err != nil {
		return StepResult{}, err
	}
	decoded, err := inst.spaces.Action.Decode(action)
	if err != nil {
		return StepResult{}, ErrInvalidAction.With("%v", err)
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if err := inst.acquire(ctx); err != nil {
		return StepResult{}, err
	}
	if inst.loadEpisode() != StateReady {
		inst.guard.Release()
		return StepResult{}, ErrEngineResetRequired.With("instance %s has no running episode; call reset first", id)
	}

	var (
		out      engine.StepResult
		rendered engine.Frame
		rendErr  error
	)
	inst.storeEpisode(StateStepping)
	owned, err := inst.exec(ctx, true, func(ctx context.Context) error {
		res, err := inst.engine.Step(ctx, decoded)
		if err != nil {
			return err
		}
		out = res
		if render {
			rendered, rendErr = inst.capture(ctx)
		}
		return nil
	})
	if !owned {
		return StepResult{}, ErrTimeout.With("step %s: %v", id, err)
	}
	if err != nil {
		// Rejections leave the episode intact; anything else leaves the
		// engine in an unknown state.
		if errors.Is(err, engine.ErrNeedsReset) || errors.Is(err, engine.ErrInvalidAction) {
			inst.storeEpisode(StateReady)
		} else {
			inst.storeEpisode(StateCreated)
		}
		inst.guard.Release()
		return StepResult{}, classifyEngineErr("step", err)
	}
	inst.storeEpisode(StateReady)

	res := StepResult{
		Observation: out.Observation,
		Reward:      out.Reward,
		Done:        out.Done,
		Info:        out.Info,
	}
	inst.sink.Lock()
	inst.guard.Release()
	defer inst.sink.Unlock()

	if render {
		res.Render = inst.finishRender(rendered, rendErr)
	}
	if inst.recorder != nil {
		if err := inst.recorder.RecordStep(context.WithoutCancel(ctx), decoded, out); err != nil {
			inst.log.Warn("recording step failed", "error", err)
			res.Recording = ErrStorage.With("record step: %v", err)
		}
	}
	return res, nil
}

// finishRender turns a capture outcome into a RenderStatus, persisting the
// frame on success. Must be called with sink held.
func (i *Instance) finishRender(f engine.Frame, captureErr error) *RenderStatus {
	if captureErr != nil {
		return &RenderStatus{Err: captureErr}
	}
	st := i.persistFrame(f)
	return &st
}

// Render captures and persists one frame outside of reset/step.
func (r *Registry) Render(ctx context.Context, id string) (RenderStatus, error) {
	inst, err := r.lookup(id)
	if err != nil {
		return RenderStatus{}, err
	}
	if inst.renderMode == engine.RenderUnsupported {
		err := ErrRenderNotSupported.With("%s engine has no render capability", inst.kind)
		return RenderStatus{Err: err}, err
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if err := inst.acquire(ctx); err != nil {
		return RenderStatus{}, err
	}

	var rendered engine.Frame
	owned, err := inst.exec(ctx, false, func(ctx context.Context) error {
		f, err := inst.capture(ctx)
		rendered = f
		return err
	})
	if !owned {
		return RenderStatus{}, ErrTimeout.With("render %s: %v", id, err)
	}
	if err != nil {
		inst.guard.Release()
		return RenderStatus{Err: err}, err
	}

	inst.sink.Lock()
	inst.guard.Release()
	st := inst.persistFrame(rendered)
	inst.sink.Unlock()
	return st, st.Err
}

// Describe returns the immutable space metadata of an instance. It never
// waits on an in-flight operation.
func (r *Registry) Describe(id string) (Info, error) {
	inst, err := r.lookup(id)
	if err != nil {
		return Info{}, err
	}
	shape, low, high := inst.spaces.Observation.Bounds()
	act := inst.spaces.Action
	act.Shape, act.Low, act.High = act.Bounds()
	return Info{
		ID:               inst.id,
		Kind:             inst.kind,
		ActionSpace:      inst.spaces.Action.String(),
		Action:           act,
		ObservationSpace: inst.spaces.Observation.String(),
		ObservationShape: shape,
		ObservationLow:   low,
		ObservationHigh:  high,
		RenderMode:       inst.renderMode,
	}, nil
}

// List returns a summary of every live instance, oldest first.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	out := make([]Summary, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, Summary{
			ID:        inst.id,
			Kind:      inst.kind,
			State:     inst.State(),
			CreatedAt: inst.createdAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out
}

// MonitorStart begins recording every subsequent reset and step of the
// instance and returns the recording directory.
func (r *Registry) MonitorStart(ctx context.Context, id string, opts MonitorOptions) (string, error) {
	inst, err := r.lookup(id)
	if err != nil {
		return "", err
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if err := inst.acquire(ctx); err != nil {
		return "", err
	}
	inst.sink.Lock()
	inst.guard.Release()
	defer inst.sink.Unlock()

	if inst.recorder != nil {
		return "", ErrRecordingConflict.With("monitor already active for %s", id)
	}

	lockCtx, lockCancel := context.WithTimeout(ctx, r.cfg.LockTimeout)
	defer lockCancel()
	rec, err := recording.Start(lockCtx, inst.recordingDir(), recording.Options{
		Force:      opts.Force,
		Resume:     opts.Resume,
		InstanceID: inst.id,
		EnvKind:    inst.kind,
		Logger:     inst.log,
	})
	if err != nil {
		return "", classifyRecordingErr("monitor start", err)
	}
	inst.recorder = rec
	inst.recording.Store(true)
	inst.log.Info("monitor started", "dir", rec.Dir(), "session", rec.SessionID(),
		slog.Bool("force", opts.Force), slog.Bool("resume", opts.Resume))
	return rec.Dir(), nil
}

// MonitorClose stops the active recording. It is a no-op if none is active.
func (r *Registry) MonitorClose(ctx context.Context, id string) error {
	inst, err := r.lookup(id)
	if err != nil {
		return err
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()
	if err := inst.acquire(opCtx); err != nil {
		return err
	}
	inst.sink.Lock()
	inst.guard.Release()
	defer inst.sink.Unlock()

	if inst.recorder == nil {
		return nil
	}
	rec := inst.recorder
	inst.recorder = nil
	inst.recording.Store(false)
	if err := rec.Close(context.WithoutCancel(ctx)); err != nil {
		return classifyRecordingErr("monitor close", err)
	}
	inst.log.Info("monitor closed", "dir", rec.Dir())
	return nil
}

// Upload ships the instance's recording directory through the configured
// Uploader, bounded by UploadTimeout. The sink is held for the whole upload,
// so recording writes and monitor changes wait until the archive is sent.
func (r *Registry) Upload(ctx context.Context, id string, req UploadRequest) (upload.Result, error) {
	inst, err := r.lookup(id)
	if err != nil {
		return upload.Result{}, err
	}
	if r.cfg.Uploader == nil {
		return upload.Result{}, ErrUploadFailed.With("no upload endpoint configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.UploadTimeout)
	defer cancel()

	inst.sink.Lock()
	defer inst.sink.Unlock()
	if inst.recorder != nil && !req.IgnoreOpenMonitors {
		return upload.Result{}, ErrRecordingConflict.With("monitor for %s is still open; close it first or ignore open monitors", id)
	}

	res, err := r.cfg.Uploader.Upload(ctx, inst.recordingDir(), upload.Request{
		AlgorithmID: req.AlgorithmID,
		Writeup:     req.Writeup,
		APIKey:      req.APIKey,
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ErrTimeout.With("upload %s: %v", id, err)
		}
		return res, ErrUploadFailed.With("%s: %v", id, err)
	}
	inst.log.Info("recording uploaded", "files", res.Files, "upload_id", res.ID)
	return res, nil
}

// Close removes the instance and releases its engine. Lookups fail with
// ErrInstanceNotFound from the moment Close is called. An operation already
// in flight is waited for up to CloseTimeout; past that, the engine is
// released in the background once the operation returns.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	inst, ok := r.instances[id]
	delete(r.instances, id)
	r.mu.Unlock()
	if !ok {
		return ErrInstanceNotFound.With("%s", id)
	}
	return r.closeInstance(ctx, inst)
}

func (r *Registry) closeInstance(ctx context.Context, inst *Instance) error {
	inst.closing.Store(true)

	waitCtx, cancel := context.WithTimeout(ctx, r.cfg.CloseTimeout)
	defer cancel()
	if err := inst.guard.Acquire(waitCtx); err != nil {
		inst.log.Warn("operation still in flight; engine will be released when it returns",
			slog.Duration("timeout", r.cfg.CloseTimeout))
		go func() {
			_ = inst.guard.Acquire(context.Background())
			defer inst.guard.Release()
			if err := inst.teardown(context.Background()); err != nil {
				inst.log.Warn("deferred teardown failed", "error", err)
			}
		}()
		return nil
	}
	defer inst.guard.Release()
	return inst.teardown(context.WithoutCancel(ctx))
}

// Shutdown closes every instance in parallel and makes Create fail with
// ErrShuttingDown. In-flight Create calls are given ShutdownDrainTimeout to
// register their instance first. Safe to call multiple times; later calls
// find nothing left to close. Returns the joined teardown errors.
func (r *Registry) Shutdown() error {
	r.state.Store(uint32(registryShuttingDown))

	if r.inflight.Load() == 0 {
		r.inflightDoneOnce.Do(func() { close(r.inflightDone) })
	}
	drainTimer := time.NewTimer(r.cfg.ShutdownDrainTimeout)
	select {
	case <-r.inflightDone:
		drainTimer.Stop()
	case <-drainTimer.C:
		Logger().Warn("shutdown: timed out waiting for in-flight creates; proceeding",
			slog.Int64("inflight", r.inflight.Load()),
			slog.Duration("timeout", r.cfg.ShutdownDrainTimeout))
	}

	r.mu.Lock()
	r.closed = true
	insts := make([]*Instance, 0, len(r.instances))
	for id, inst := range r.instances {
		insts = append(insts, inst)
		delete(r.instances, id)
	}
	r.mu.Unlock()

	if len(insts) == 0 {
		return nil
	}
	Logger().Info("shutdown: closing instances", "count", len(insts))

	errs := make([]error, len(insts))
	var g errgroup.Group
	for idx, inst := range insts {
		g.Go(func() error {
			if err := r.closeInstance(context.Background(), inst); err != nil {
				errs[idx] = fmt.Errorf("close %s: %w", inst.id, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
