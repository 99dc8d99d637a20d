package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Classic cart-pole constants (Barto, Sutton & Anderson).
const (
	cartGravity       = 9.8
	cartMassCart      = 1.0
	cartMassPole      = 0.1
	cartTotalMass     = cartMassCart + cartMassPole
	cartHalfPole      = 0.5
	cartPoleMassLen   = cartMassPole * cartHalfPole
	cartForceMag      = 10.0
	cartTau           = 0.02
	cartThetaLimit    = 12 * 2 * math.Pi / 360
	cartXLimit        = 2.4
	cartMaxSteps      = 500
	cartInitialSpread = 0.05
	cartTrackWidth    = 41
)

// CartPole balances a pole on a cart moving along a frictionless track.
// Actions are 0 (push left) and 1 (push right); each step yields reward 1
// until the pole falls, the cart leaves the track, or 500 steps elapse.
// Observations are [x, x_dot, theta, theta_dot]. Renders text only.
type CartPole struct {
	rng    *rand.Rand
	spaces Spaces

	state   [4]float64
	running bool
	steps   int
}

// Compile-time interface satisfaction check.
var _ Engine = (*CartPole)(nil)

// NewCartPole creates a cart-pole engine whose initial states are drawn from
// a generator seeded with seed.
func NewCartPole(seed int64) *CartPole {
	inf := math.MaxFloat32
	return &CartPole{
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)), //nolint:gosec // G404: simulation noise, not security
		spaces: Spaces{
			Action: Discrete(2),
			Observation: Box(
				[]float64{-cartXLimit * 2, -inf, -cartThetaLimit * 2, -inf},
				[]float64{cartXLimit * 2, inf, cartThetaLimit * 2, inf},
			),
		},
	}
}

// Spaces implements Engine.
func (c *CartPole) Spaces() Spaces { return c.spaces }

// RenderMode implements Engine.
func (c *CartPole) RenderMode() RenderMode { return RenderText }

// Reset implements Engine.
func (c *CartPole) Reset(ctx context.Context) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := range c.state {
		c.state[i] = (c.rng.Float64()*2 - 1) * cartInitialSpread
	}
	c.steps = 0
	c.running = true
	return c.observe(), nil
}

// Step implements Engine.
func (c *CartPole) Step(ctx context.Context, action Action) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	if !c.running {
		return StepResult{}, ErrNeedsReset
	}
	if !c.spaces.Action.Contains(action) {
		return StepResult{}, fmt.Errorf("%w: %v", ErrInvalidAction, []float64(action))
	}

	x, xDot, theta, thetaDot := c.state[0], c.state[1], c.state[2], c.state[3]
	force := cartForceMag
	if action.Index() == 0 {
		force = -cartForceMag
	}

	cosT, sinT := math.Cos(theta), math.Sin(theta)
	temp := (force + cartPoleMassLen*thetaDot*thetaDot*sinT) / cartTotalMass
	thetaAcc := (cartGravity*sinT - cosT*temp) /
		(cartHalfPole * (4.0/3.0 - cartMassPole*cosT*cosT/cartTotalMass))
	xAcc := temp - cartPoleMassLen*thetaAcc*cosT/cartTotalMass

	x += cartTau * xDot
	xDot += cartTau * xAcc
	theta += cartTau * thetaDot
	thetaDot += cartTau * thetaAcc
	c.state = [4]float64{x, xDot, theta, thetaDot}
	c.steps++

	res := StepResult{
		Observation: c.observe(),
		Reward:      1,
		Info:        map[string]any{"steps": c.steps},
	}
	switch {
	case x < -cartXLimit || x > cartXLimit || theta < -cartThetaLimit || theta > cartThetaLimit:
		res.Done = true
	case c.steps >= cartMaxSteps:
		res.Done = true
		res.Info["truncated"] = true
	}
	if res.Done {
		c.running = false
	}
	return res, nil
}

// Render implements Engine.
func (c *CartPole) Render(ctx context.Context, mode RenderMode) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if mode != RenderText {
		return Frame{}, fmt.Errorf("%w: %s", ErrRenderUnsupported, mode)
	}

	// Map x in [-limit, limit] onto the track.
	pos := int(math.Round((c.state[0] + cartXLimit) / (2 * cartXLimit) * float64(cartTrackWidth-1)))
	pos = max(0, min(cartTrackWidth-1, pos))

	pole := "|"
	switch {
	case c.state[2] > cartThetaLimit/3:
		pole = "/"
	case c.state[2] < -cartThetaLimit/3:
		pole = "\\"
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", pos) + pole + "\n")
	b.WriteString(strings.Repeat(" ", pos) + "#\n")
	b.WriteString(strings.Repeat("=", cartTrackWidth) + "\n")
	fmt.Fprintf(&b, "x=%+.3f theta=%+.3f step=%d\n", c.state[0], c.state[2], c.steps)
	return Frame{Mode: RenderText, Text: b.String()}, nil
}

// Close implements Engine.
func (c *CartPole) Close() error {
	c.running = false
	return nil
}

func (c *CartPole) observe() Observation {
	return Observation{c.state[0], c.state[1], c.state[2], c.state[3]}
}
