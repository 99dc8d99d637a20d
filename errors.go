package simenv

import "github.com/giantswarm/simenv/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrInstanceNotFound is returned for an id that was never issued or
	// whose instance has been closed.
	ErrInstanceNotFound = core.ErrInstanceNotFound

	// ErrUnknownEnvironmentKind is returned by Create for an unregistered kind.
	ErrUnknownEnvironmentKind = core.ErrUnknownEnvironmentKind

	// ErrInvalidAction is returned by Step when the action cannot be decoded
	// into the instance's action space.
	ErrInvalidAction = core.ErrInvalidAction

	// ErrEngineResetRequired is returned by Step before the first Reset, after
	// an episode ends, and after a timed-out mutation. Call Reset to recover.
	ErrEngineResetRequired = core.ErrEngineResetRequired

	// ErrRenderNotSupported reports that the engine cannot render frames.
	ErrRenderNotSupported = core.ErrRenderNotSupported

	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout = core.ErrTimeout

	// ErrStorage reports a failed frame or recording write.
	ErrStorage = core.ErrStorage

	// ErrRecordingConflict is returned by MonitorStart when a monitor is
	// already open or prior recordings exist without Force or Resume, and by
	// Upload while a monitor is open.
	ErrRecordingConflict = core.ErrRecordingConflict

	// ErrUploadFailed is returned by Upload when no uploader is configured or
	// the endpoint rejects the archive.
	ErrUploadFailed = core.ErrUploadFailed

	// ErrEngineFailure wraps an engine error outside the taxonomy.
	ErrEngineFailure = core.ErrEngineFailure

	// ErrShuttingDown is returned by Create once Shutdown has begun.
	ErrShuttingDown = core.ErrShuttingDown

	// ErrInvalidArgument is returned for malformed arguments such as an
	// empty environment kind.
	ErrInvalidArgument = core.ErrInvalidArgument
)

// Kind is the closed error taxonomy. Its String form is the name used on
// the wire.
type Kind = core.Kind

// Error kinds returned by KindOf.
const (
	KindNone                   = core.KindNone
	KindInstanceNotFound       = core.KindInstanceNotFound
	KindUnknownEnvironmentKind = core.KindUnknownEnvironmentKind
	KindInvalidAction          = core.KindInvalidAction
	KindEngineResetRequired    = core.KindEngineResetRequired
	KindRenderNotSupported     = core.KindRenderNotSupported
	KindTimeout                = core.KindTimeout
	KindStorageError           = core.KindStorageError
	KindRecordingConflict      = core.KindRecordingConflict
	KindUploadFailed           = core.KindUploadFailed
	KindEngineFailure          = core.KindEngineFailure
	KindShuttingDown           = core.KindShuttingDown
	KindInvalidArgument        = core.KindInvalidArgument
	KindInternal               = core.KindInternal
)

// KindOf classifies err into the taxonomy. Context expiry counts as
// KindTimeout; errors outside the taxonomy are KindInternal.
func KindOf(err error) Kind { return core.KindOf(err) }
