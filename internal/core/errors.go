package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/giantswarm/simenv/internal/engine"
	"github.com/giantswarm/simenv/internal/recording"
	"github.com/giantswarm/simenv/internal/sentinel"
)

// Sentinel errors, one per Kind. Registry operations return errors matching
// exactly one of these under errors.Is.
const (
	ErrInstanceNotFound       = sentinel.Error("instance not found")
	ErrUnknownEnvironmentKind = sentinel.Error("unknown environment kind")
	ErrInvalidAction          = sentinel.Error("invalid action")
	ErrEngineResetRequired    = sentinel.Error("engine reset required")
	ErrRenderNotSupported     = sentinel.Error("render not supported")
	ErrTimeout                = sentinel.Error("operation timed out")
	ErrStorage                = sentinel.Error("storage error")
	ErrRecordingConflict      = sentinel.Error("recording conflict")
	ErrUploadFailed           = sentinel.Error("upload failed")
	ErrEngineFailure          = sentinel.Error("engine failure")
	ErrShuttingDown           = sentinel.Error("registry is shutting down")
	ErrInvalidArgument        = sentinel.Error("invalid argument")
)

// Kind is the closed error taxonomy surfaced to transports.
type Kind int

const (
	// KindNone classifies a nil error.
	KindNone Kind = iota
	KindInstanceNotFound
	KindUnknownEnvironmentKind
	KindInvalidAction
	KindEngineResetRequired
	KindRenderNotSupported
	KindTimeout
	KindStorageError
	KindRecordingConflict
	KindUploadFailed
	KindEngineFailure
	KindShuttingDown
	KindInvalidArgument
	// KindInternal classifies errors outside the taxonomy.
	KindInternal
)

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{KindInstanceNotFound, ErrInstanceNotFound},
	{KindUnknownEnvironmentKind, ErrUnknownEnvironmentKind},
	{KindInvalidAction, ErrInvalidAction},
	{KindEngineResetRequired, ErrEngineResetRequired},
	{KindRenderNotSupported, ErrRenderNotSupported},
	{KindTimeout, ErrTimeout},
	{KindStorageError, ErrStorage},
	{KindRecordingConflict, ErrRecordingConflict},
	{KindUploadFailed, ErrUploadFailed},
	{KindEngineFailure, ErrEngineFailure},
	{KindShuttingDown, ErrShuttingDown},
	{KindInvalidArgument, ErrInvalidArgument},
}

// String returns the kind name used on the wire, e.g. "InstanceNotFound".
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInstanceNotFound:
		return "InstanceNotFound"
	case KindUnknownEnvironmentKind:
		return "UnknownEnvironmentKind"
	case KindInvalidAction:
		return "InvalidAction"
	case KindEngineResetRequired:
		return "EngineResetRequired"
	case KindRenderNotSupported:
		return "RenderNotSupported"
	case KindTimeout:
		return "Timeout"
	case KindStorageError:
		return "StorageError"
	case KindRecordingConflict:
		return "RecordingConflict"
	case KindUploadFailed:
		return "UploadFailed"
	case KindEngineFailure:
		return "EngineFailure"
	case KindShuttingDown:
		return "ShuttingDown"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsClientError reports whether errors of kind k are caused by the caller
// rather than by the server or its environment.
func (k Kind) IsClientError() bool {
	switch k {
	case KindInstanceNotFound, KindUnknownEnvironmentKind, KindInvalidAction,
		KindEngineResetRequired, KindRenderNotSupported, KindRecordingConflict,
		KindInvalidArgument:
		return true
	default:
		return false
	}
}

// KindOf classifies err. Context expiry counts as KindTimeout; anything
// outside the taxonomy is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindInternal
}

// classifyEngineErr maps an engine failure onto the taxonomy. Only the
// message of err is kept; engine error values never leave this package.
func classifyEngineErr(op string, err error) error {
	switch {
	case errors.Is(err, engine.ErrNeedsReset):
		return ErrEngineResetRequired.With("%s: %v", op, err)
	case errors.Is(err, engine.ErrInvalidAction):
		return ErrInvalidAction.With("%s: %v", op, err)
	case errors.Is(err, engine.ErrRenderUnsupported):
		return ErrRenderNotSupported.With("%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout.With("%s: %v", op, err)
	default:
		return ErrEngineFailure.With("%s: %v", op, err)
	}
}

// classifyRecordingErr maps a recording failure onto the taxonomy.
func classifyRecordingErr(op string, err error) error {
	switch {
	case errors.Is(err, recording.ErrConflict), errors.Is(err, recording.ErrLocked):
		return ErrRecordingConflict.With("%s: %v", op, err)
	default:
		return ErrStorage.With("%s: %v", op, err)
	}
}
