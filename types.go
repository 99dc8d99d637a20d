package simenv

import (
	"github.com/giantswarm/simenv/internal/core"
	"github.com/giantswarm/simenv/internal/engine"
	"github.com/giantswarm/simenv/internal/upload"
)

// Result and description types returned by Registry.
type (
	ResetResult    = core.ResetResult
	StepResult     = core.StepResult
	RenderStatus   = core.RenderStatus
	Info           = core.Info
	Summary        = core.Summary
	State          = core.State
	MonitorOptions = core.MonitorOptions
	UploadRequest  = core.UploadRequest
	UploadResult   = upload.Result
	// UploaderRequest is what an Uploader receives for each Upload call.
	UploaderRequest = upload.Request
)

// Instance lifecycle states reported by List.
const (
	StateCreated   = core.StateCreated
	StateReady     = core.StateReady
	StateStepping  = core.StateStepping
	StateRecording = core.StateRecording
	StateClosed    = core.StateClosed
)

// Engine adapter types, for registering custom environment kinds with
// WithCatalog.
type (
	Engine      = engine.Engine
	Catalog     = engine.Catalog
	Factory     = engine.Factory
	Space       = engine.Space
	Spaces      = engine.Spaces
	Observation = engine.Observation
	// EngineStepResult is what an Engine returns from Step.
	EngineStepResult = engine.StepResult
	Action           = engine.Action
	Frame            = engine.Frame
	RenderMode       = engine.RenderMode
)

// Render modes an engine may advertise.
const (
	RenderUnsupported = engine.RenderUnsupported
	RenderPixel       = engine.RenderPixel
	RenderText        = engine.RenderText
)

// Engine-side sentinels a custom Engine returns so the registry can classify
// its failures.
const (
	EngineErrNeedsReset        = engine.ErrNeedsReset
	EngineErrInvalidAction     = engine.ErrInvalidAction
	EngineErrRenderUnsupported = engine.ErrRenderUnsupported
)

// NewCatalog returns an empty engine catalog.
func NewCatalog() *Catalog { return engine.NewCatalog() }

// DefaultCatalog returns a catalog with the built-in GridWorld, CartPole
// and Bandit engines registered.
func DefaultCatalog() *Catalog { return engine.DefaultCatalog() }

// Discrete returns a discrete space of n actions.
func Discrete(n int) Space { return engine.Discrete(n) }

// Box returns a continuous space with the given bounds.
func Box(low, high []float64) Space { return engine.Box(low, high) }
