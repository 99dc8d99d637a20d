package simenv

import "context"

// Registry owns a set of simulation instances keyed by id.
//
// Operations on the same id are serialized in arrival order. Engine calls are
// bounded by the caller's context deadline or the configured operation
// timeout, whichever is earlier.
type Registry interface {
	// Kinds lists the environment kinds Create accepts, sorted.
	Kinds() []string

	// Create instantiates an engine of the given kind and returns a fresh id
	// that was never issued before by this registry. The instance starts
	// unready; Step fails with ErrEngineResetRequired until Reset.
	//
	// Returns ErrUnknownEnvironmentKind for an unregistered kind and
	// ErrShuttingDown once Shutdown has begun.
	Create(ctx context.Context, kind string) (string, error)

	// Reset starts a new episode and returns the initial observation. When
	// render is true a frame is captured and written; its outcome is reported
	// in ResetResult.Render and never fails the reset.
	Reset(ctx context.Context, id string, render bool) (ResetResult, error)

	// Step applies action. action is decoded against the instance's action
	// space: an integer for discrete spaces, a float vector for box spaces.
	//
	// Returns ErrInvalidAction when decoding fails and
	// ErrEngineResetRequired when the episode is over or was never started.
	Step(ctx context.Context, id string, action any, render bool) (StepResult, error)

	// Render captures and writes one frame outside of a step.
	Render(ctx context.Context, id string) (RenderStatus, error)

	// Describe returns the instance's spaces and render capability.
	Describe(id string) (Info, error)

	// List summarizes all live instances, oldest first.
	List() []Summary

	// MonitorStart opens an episode recorder for the instance and returns the
	// recording directory. Returns ErrRecordingConflict when a monitor is
	// already open, or when prior recordings exist and neither Force nor
	// Resume is set.
	MonitorStart(ctx context.Context, id string, opts MonitorOptions) (string, error)

	// MonitorClose flushes and closes the open recorder. Closing an instance
	// without an open monitor is a no-op.
	MonitorClose(ctx context.Context, id string) error

	// Upload archives the instance's recording directory and sends it to the
	// configured endpoint. It fails with ErrTimeout past the upload timeout.
	Upload(ctx context.Context, id string, req UploadRequest) (UploadResult, error)

	// Close removes the instance and releases its engine. Subsequent
	// operations on id fail with ErrInstanceNotFound.
	Close(ctx context.Context, id string) error

	// Shutdown closes every instance and rejects further Create calls.
	// Safe to call more than once; later calls return nil.
	Shutdown() error
}
