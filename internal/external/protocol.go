package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"

	"github.com/giantswarm/simenv/internal/engine"
)

const (
	opInit   = "init"
	opReset  = "reset"
	opStep   = "step"
	opRender = "render"
)

const (
	codeNeedsReset        = "needs_reset"
	codeInvalidAction     = "invalid_action"
	codeRenderUnsupported = "render_unsupported"
)

type request struct {
	Op     string        `json:"op"`
	Seed   *int64        `json:"seed,omitempty"`
	Action engine.Action `json:"action,omitempty"`
	Mode   string        `json:"mode,omitempty"`
}

type replyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type reply struct {
	Error *replyError `json:"error,omitempty"`

	// init
	ActionSpace      *spaceJSON `json:"action_space,omitempty"`
	ObservationSpace *spaceJSON `json:"observation_space,omitempty"`
	RenderMode       string     `json:"render_mode,omitempty"`

	// reset and step
	Observation engine.Observation `json:"observation,omitempty"`
	Reward      float64            `json:"reward,omitempty"`
	Done        bool               `json:"done,omitempty"`
	Info        map[string]any     `json:"info,omitempty"`

	// render
	Text string `json:"text,omitempty"`
	PNG  []byte `json:"png,omitempty"`
}

type spaceJSON struct {
	Kind string    `json:"kind"`
	N    int       `json:"n,omitempty"`
	Low  []float64 `json:"low,omitempty"`
	High []float64 `json:"high,omitempty"`
}

func (s *spaceJSON) space(name string) (engine.Space, error) {
	if s == nil {
		return engine.Space{}, fmt.Errorf("%s missing", name)
	}
	switch s.Kind {
	case "discrete":
		if s.N <= 0 {
			return engine.Space{}, fmt.Errorf("%s: discrete n must be greater than 0, got %d", name, s.N)
		}
		return engine.Discrete(s.N), nil
	case "box":
		if len(s.Low) == 0 || len(s.Low) != len(s.High) {
			return engine.Space{}, fmt.Errorf("%s: box bounds must be non-empty and equal in length, got %d and %d",
				name, len(s.Low), len(s.High))
		}
		for i := range s.Low {
			if s.Low[i] > s.High[i] {
				return engine.Space{}, fmt.Errorf("%s: box low[%d] > high[%d]", name, i, i)
			}
		}
		return engine.Box(s.Low, s.High), nil
	default:
		return engine.Space{}, fmt.Errorf("%s: unknown space kind %q", name, s.Kind)
	}
}

func parseRenderMode(s string) (engine.RenderMode, error) {
	switch s {
	case "", "unsupported":
		return engine.RenderUnsupported, nil
	case "pixel":
		return engine.RenderPixel, nil
	case "text":
		return engine.RenderText, nil
	default:
		return engine.RenderUnsupported, fmt.Errorf("unknown render mode %q", s)
	}
}

// err converts an error reply into an error wrapping the matching engine
// sentinel, or ErrSimulator for codes the engine package has no name for.
func (e *replyError) err() error {
	switch e.Code {
	case codeNeedsReset:
		return fmt.Errorf("%w: %s", engine.ErrNeedsReset, e.Message)
	case codeInvalidAction:
		return fmt.Errorf("%w: %s", engine.ErrInvalidAction, e.Message)
	case codeRenderUnsupported:
		return fmt.Errorf("%w: %s", engine.ErrRenderUnsupported, e.Message)
	default:
		return ErrSimulator.With("%s: %s", e.Code, e.Message)
	}
}

func decodeReply(line []byte) (reply, error) {
	var r reply
	if err := json.Unmarshal(line, &r); err != nil {
		return reply{}, ErrProtocol.With("decode reply: %v", err)
	}
	if r.Error != nil {
		return reply{}, r.Error.err()
	}
	return r, nil
}

func (r reply) frame(mode engine.RenderMode) (engine.Frame, error) {
	switch mode {
	case engine.RenderPixel:
		if len(r.PNG) == 0 {
			return engine.Frame{}, ErrProtocol.With("render reply carries no png")
		}
		img, err := png.Decode(bytes.NewReader(r.PNG))
		if err != nil {
			return engine.Frame{}, ErrProtocol.With("decode png frame: %v", err)
		}
		return engine.Frame{Mode: engine.RenderPixel, Image: img}, nil
	case engine.RenderText:
		return engine.Frame{Mode: engine.RenderText, Text: r.Text}, nil
	default:
		return engine.Frame{}, engine.ErrRenderUnsupported
	}
}
