package core

import (
	"time"

	"github.com/giantswarm/simenv/internal/engine"
)

// RenderStatus reports the outcome of one render. On success Frame names the
// file written, e.g. "3.png", and Counter is the render counter value it was
// written under. On failure Err holds an ErrRenderNotSupported, ErrTimeout,
// ErrEngineFailure or ErrStorage error and no counter value was consumed.
type RenderStatus struct {
	Frame   string
	Counter uint64
	Err     error
}

// ResetResult is the outcome of Reset. Render is set only when a render was
// requested. Recording holds an ErrStorage error if the active monitor
// failed to persist the transition.
type ResetResult struct {
	Observation engine.Observation
	Render      *RenderStatus
	Recording   error
}

// StepResult is the outcome of Step. Render and Recording are secondary
// statuses as in ResetResult; they never turn a completed step into an error.
type StepResult struct {
	Observation engine.Observation
	Reward      float64
	Done        bool
	Info        map[string]any
	Render      *RenderStatus
	Recording   error
}

// Info describes an instance's spaces and capabilities. It never changes
// after creation.
type Info struct {
	ID               string
	Kind             string
	ActionSpace      string
	Action           engine.Space
	ObservationSpace string
	ObservationShape []int
	ObservationLow   []float64
	ObservationHigh  []float64
	RenderMode       engine.RenderMode
}

// Summary is one entry of List.
type Summary struct {
	ID        string
	Kind      string
	State     State
	CreatedAt time.Time
}

// MonitorOptions control MonitorStart. Force discards prior recordings and
// takes precedence over Resume, which appends to them. With neither flag,
// prior recordings make MonitorStart fail with ErrRecordingConflict.
type MonitorOptions struct {
	Force  bool
	Resume bool
}

// UploadRequest describes an Upload.
type UploadRequest struct {
	AlgorithmID string
	Writeup     string
	APIKey      string
	// IgnoreOpenMonitors allows uploading while the monitor is still open.
	IgnoreOpenMonitors bool
}
