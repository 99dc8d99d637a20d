package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// Bandit defaults.
const (
	DefaultBanditArms  = 4
	DefaultBanditPulls = 10
)

// Bandit is a k-armed Bernoulli bandit. Each episode allows a fixed number of
// pulls; the observation is the number of pulls remaining. Payout
// probabilities are fixed at construction from the seed. Bandit has no
// visual representation and reports RenderUnsupported.
type Bandit struct {
	rng    *rand.Rand
	probs  []float64
	pulls  int
	spaces Spaces

	remaining int
	running   bool
}

// Compile-time interface satisfaction check.
var _ Engine = (*Bandit)(nil)

// NewBandit creates a bandit with arms arms and pulls pulls per episode.
// Panics if arms or pulls is < 1.
func NewBandit(arms, pulls int, seed int64) *Bandit {
	if arms < 1 || pulls < 1 {
		panic(fmt.Sprintf("engine: invalid bandit arms=%d pulls=%d", arms, pulls))
	}
	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15)) //nolint:gosec // G404: simulation noise, not security
	probs := make([]float64, arms)
	for i := range probs {
		probs[i] = rng.Float64()
	}
	return &Bandit{
		rng:   rng,
		probs: probs,
		pulls: pulls,
		spaces: Spaces{
			Action:      Discrete(arms),
			Observation: Box([]float64{0}, []float64{float64(pulls)}),
		},
	}
}

// Spaces implements Engine.
func (b *Bandit) Spaces() Spaces { return b.spaces }

// RenderMode implements Engine.
func (b *Bandit) RenderMode() RenderMode { return RenderUnsupported }

// Reset implements Engine.
func (b *Bandit) Reset(ctx context.Context) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.remaining = b.pulls
	b.running = true
	return Observation{float64(b.remaining)}, nil
}

// Step implements Engine.
func (b *Bandit) Step(ctx context.Context, action Action) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	if !b.running {
		return StepResult{}, ErrNeedsReset
	}
	if !b.spaces.Action.Contains(action) {
		return StepResult{}, fmt.Errorf("%w: %v", ErrInvalidAction, []float64(action))
	}

	reward := 0.0
	if b.rng.Float64() < b.probs[action.Index()] {
		reward = 1
	}
	b.remaining--
	done := b.remaining == 0
	if done {
		b.running = false
	}
	return StepResult{
		Observation: Observation{float64(b.remaining)},
		Reward:      reward,
		Done:        done,
		Info:        map[string]any{"arm": action.Index()},
	}, nil
}

// Render implements Engine. Always fails with ErrRenderUnsupported.
func (b *Bandit) Render(context.Context, RenderMode) (Frame, error) {
	return Frame{}, ErrRenderUnsupported
}

// Close implements Engine.
func (b *Bandit) Close() error {
	b.running = false
	return nil
}
