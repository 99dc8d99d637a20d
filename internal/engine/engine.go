package engine

import (
	"context"
	"fmt"
	"image"

	"github.com/giantswarm/simenv/internal/sentinel"
)

// ErrNeedsReset is returned by Step when the episode has terminated, or was
// never started, and Reset must be called first.
const ErrNeedsReset = sentinel.Error("engine requires reset before stepping")

// ErrInvalidAction is returned when an action does not belong to the engine's
// action space.
const ErrInvalidAction = sentinel.Error("action is not in the action space")

// ErrRenderUnsupported is returned by Render when the engine cannot produce
// the requested representation.
const ErrRenderUnsupported = sentinel.Error("render mode not supported")

// ErrUnknownKind is returned by Catalog.New for unregistered kinds.
const ErrUnknownKind = sentinel.Error("unknown engine kind")

// RenderMode is the capability tag an engine advertises for rendering.
type RenderMode int

const (
	// RenderUnsupported means the engine offers neither pixel nor text output.
	RenderUnsupported RenderMode = iota
	// RenderPixel produces an RGB image.
	RenderPixel
	// RenderText produces a text representation.
	RenderText
)

// String returns the name of the mode.
func (m RenderMode) String() string {
	switch m {
	case RenderUnsupported:
		return "unsupported"
	case RenderPixel:
		return "pixel"
	case RenderText:
		return "text"
	default:
		return fmt.Sprintf("RenderMode(%d)", int(m))
	}
}

// Observation is the perceived state returned by Reset and Step. Discrete
// observations are encoded as a single element.
type Observation []float64

// Action is a decoded action. Discrete actions hold a single element.
type Action []float64

// Index returns the discrete action index held in a.
func (a Action) Index() int {
	if len(a) == 0 {
		return -1
	}
	return int(a[0])
}

// StepResult is the outcome of a single Step.
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	Info        map[string]any
}

// Frame is one rendered snapshot. Exactly one of Image or Text is set,
// according to Mode.
type Frame struct {
	Mode  RenderMode
	Image image.Image
	Text  string
}

// Spaces describes the action and observation spaces of an engine. The value
// is fixed for the lifetime of the engine.
type Spaces struct {
	Action      Space
	Observation Space
}

// Engine is one running simulation.
type Engine interface {
	// Spaces returns the immutable action and observation space metadata.
	// It must be safe to call concurrently with any other method.
	Spaces() Spaces

	// RenderMode reports the best render capability of the engine.
	// It must be safe to call concurrently with any other method.
	RenderMode() RenderMode

	// Reset starts a new episode and returns its initial observation.
	Reset(ctx context.Context) (Observation, error)

	// Step applies action. Returns ErrNeedsReset if no episode is running
	// and ErrInvalidAction if the action is outside the action space.
	Step(ctx context.Context, action Action) (StepResult, error)

	// Render captures the current state in the given mode.
	Render(ctx context.Context, mode RenderMode) (Frame, error)

	// Close releases engine resources. Called exactly once.
	Close() error
}
