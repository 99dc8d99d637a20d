package simenv_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/giantswarm/simenv"
)

// publicErrors lists every exported sentinel with the kind it classifies as.
var publicErrors = []struct {
	name string
	err  error
	kind simenv.Kind
}{
	{"ErrInstanceNotFound", simenv.ErrInstanceNotFound, simenv.KindInstanceNotFound},
	{"ErrUnknownEnvironmentKind", simenv.ErrUnknownEnvironmentKind, simenv.KindUnknownEnvironmentKind},
	{"ErrInvalidAction", simenv.ErrInvalidAction, simenv.KindInvalidAction},
	{"ErrEngineResetRequired", simenv.ErrEngineResetRequired, simenv.KindEngineResetRequired},
	{"ErrRenderNotSupported", simenv.ErrRenderNotSupported, simenv.KindRenderNotSupported},
	{"ErrTimeout", simenv.ErrTimeout, simenv.KindTimeout},
	{"ErrStorage", simenv.ErrStorage, simenv.KindStorageError},
	{"ErrRecordingConflict", simenv.ErrRecordingConflict, simenv.KindRecordingConflict},
	{"ErrUploadFailed", simenv.ErrUploadFailed, simenv.KindUploadFailed},
	{"ErrEngineFailure", simenv.ErrEngineFailure, simenv.KindEngineFailure},
	{"ErrShuttingDown", simenv.ErrShuttingDown, simenv.KindShuttingDown},
	{"ErrInvalidArgument", simenv.ErrInvalidArgument, simenv.KindInvalidArgument},
}

// TestPublicErrorConstants verifies that every exported error constant:
//   - implements the error interface (Error() returns a non-empty string)
//   - matches itself when wrapped via fmt.Errorf %w
//   - classifies to its own kind, wrapped or not
func TestPublicErrorConstants(t *testing.T) {
	t.Parallel()

	for _, tc := range publicErrors {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if msg := tc.err.Error(); msg == "" {
				t.Errorf("%s.Error() returned empty string", tc.name)
			}

			wrapped := fmt.Errorf("wrapping: %w", tc.err)
			if !errors.Is(wrapped, tc.err) {
				t.Errorf("errors.Is(wrapped %s) = false, want true", tc.name)
			}

			if got := simenv.KindOf(tc.err); got != tc.kind {
				t.Errorf("KindOf(%s) = %v, want %v", tc.name, got, tc.kind)
			}
			if got := simenv.KindOf(wrapped); got != tc.kind {
				t.Errorf("KindOf(wrapped %s) = %v, want %v", tc.name, got, tc.kind)
			}
		})
	}
}

// TestPublicErrorConstantsAreDistinct verifies that no two exported error
// constants match each other.
func TestPublicErrorConstantsAreDistinct(t *testing.T) {
	t.Parallel()

	for i, a := range publicErrors {
		for _, b := range publicErrors[i+1:] {
			if errors.Is(a.err, b.err) || errors.Is(b.err, a.err) {
				t.Errorf("%s and %s match each other: constants must be distinct", a.name, b.name)
			}
		}
	}
}

func TestKindOfOutsideTaxonomy(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want simenv.Kind
	}{
		"nil":             {err: nil, want: simenv.KindNone},
		"deadline":        {err: context.DeadlineExceeded, want: simenv.KindTimeout},
		"canceled":        {err: fmt.Errorf("op: %w", context.Canceled), want: simenv.KindTimeout},
		"unknown":         {err: errors.New("boom"), want: simenv.KindInternal},
		"engine_sentinel": {err: simenv.EngineErrNeedsReset, want: simenv.KindInternal},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := simenv.KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestKindWireNames(t *testing.T) {
	t.Parallel()

	clientKinds := map[simenv.Kind]bool{
		simenv.KindInstanceNotFound:       true,
		simenv.KindUnknownEnvironmentKind: true,
		simenv.KindInvalidAction:          true,
		simenv.KindEngineResetRequired:    true,
		simenv.KindRenderNotSupported:     true,
		simenv.KindRecordingConflict:      true,
		simenv.KindInvalidArgument:        true,
	}

	for _, tc := range publicErrors {
		if got, want := tc.kind.String(), tc.name[len("Err"):]; got != want && tc.kind != simenv.KindStorageError {
			t.Errorf("%s: Kind.String() = %q, want %q", tc.name, got, want)
		}
		if got := tc.kind.IsClientError(); got != clientKinds[tc.kind] {
			t.Errorf("%s: IsClientError() = %v, want %v", tc.name, got, clientKinds[tc.kind])
		}
	}
	if got := simenv.KindStorageError.String(); got != "StorageError" {
		t.Errorf("KindStorageError.String() = %q, want StorageError", got)
	}
}
