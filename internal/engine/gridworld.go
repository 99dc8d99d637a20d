package engine

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
)

// GridWorld defaults: a 3x3 grid with the agent starting in the top-left
// corner and the goal in the top-right corner.
const (
	DefaultGridRows     = 3
	DefaultGridCols     = 3
	gridMaxSteps        = 100
	gridCellPixels      = 16
	gridActionUp        = 0
	gridActionDown      = 1
	gridActionRight     = 2
	gridActionLeft      = 3
	gridActionCount     = 4
	gridGoalReward      = 1.0
	gridStepReward      = 0.0
	gridTruncatedInfo   = "truncated"
	gridStepsInfo       = "steps"
	gridPositionInfoKey = "position"
)

var (
	gridColorEmpty = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gridColorAgent = color.RGBA{R: 40, G: 90, B: 200, A: 255}
	gridColorGoal  = color.RGBA{R: 40, G: 170, B: 70, A: 255}
	gridColorLine  = color.RGBA{R: 180, G: 180, B: 180, A: 255}
)

type cell struct{ row, col int }

// GridWorld is a deterministic grid navigation task. Actions are
// 0=up, 1=down, 2=right, 3=left; moves into a wall leave the agent in place.
// Reaching the goal ends the episode with reward 1. Observations are
// [row, col].
type GridWorld struct {
	rows, cols  int
	start, goal cell
	spaces      Spaces

	pos     cell
	running bool
	steps   int
}

// Compile-time interface satisfaction check.
var _ Engine = (*GridWorld)(nil)

// NewGridWorld creates a rows x cols grid. Panics if either dimension is < 1
// or the grid has a single cell (start and goal would coincide).
func NewGridWorld(rows, cols int) *GridWorld {
	if rows < 1 || cols < 1 || rows*cols < 2 {
		panic(fmt.Sprintf("engine: invalid grid size %dx%d", rows, cols))
	}
	goal := cell{0, cols - 1}
	if cols == 1 {
		goal = cell{rows - 1, 0}
	}
	return &GridWorld{
		rows:  rows,
		cols:  cols,
		start: cell{0, 0},
		goal:  goal,
		spaces: Spaces{
			Action:      Discrete(gridActionCount),
			Observation: Box([]float64{0, 0}, []float64{float64(rows - 1), float64(cols - 1)}),
		},
	}
}

// Spaces implements Engine.
func (g *GridWorld) Spaces() Spaces { return g.spaces }

// RenderMode implements Engine. GridWorld renders pixels and text; pixels are
// the preferred mode.
func (g *GridWorld) RenderMode() RenderMode { return RenderPixel }

// Reset implements Engine.
func (g *GridWorld) Reset(ctx context.Context) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.pos = g.start
	g.steps = 0
	g.running = true
	return g.observe(), nil
}

// Step implements Engine.
func (g *GridWorld) Step(ctx context.Context, action Action) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	if !g.running {
		return StepResult{}, ErrNeedsReset
	}
	if !g.spaces.Action.Contains(action) {
		return StepResult{}, fmt.Errorf("%w: %v", ErrInvalidAction, []float64(action))
	}

	next := g.pos
	switch action.Index() {
	case gridActionUp:
		next.row--
	case gridActionDown:
		next.row++
	case gridActionRight:
		next.col++
	case gridActionLeft:
		next.col--
	}
	if next.row >= 0 && next.row < g.rows && next.col >= 0 && next.col < g.cols {
		g.pos = next
	}
	g.steps++

	res := StepResult{
		Observation: g.observe(),
		Reward:      gridStepReward,
		Info: map[string]any{
			gridStepsInfo:       g.steps,
			gridPositionInfoKey: []int{g.pos.row, g.pos.col},
		},
	}
	switch {
	case g.pos == g.goal:
		res.Reward = gridGoalReward
		res.Done = true
	case g.steps >= gridMaxSteps:
		res.Done = true
		res.Info[gridTruncatedInfo] = true
	}
	if res.Done {
		g.running = false
	}
	return res, nil
}

// Render implements Engine.
func (g *GridWorld) Render(ctx context.Context, mode RenderMode) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	switch mode {
	case RenderPixel:
		return Frame{Mode: RenderPixel, Image: g.pixels()}, nil
	case RenderText:
		return Frame{Mode: RenderText, Text: g.text()}, nil
	default:
		return Frame{}, fmt.Errorf("%w: %s", ErrRenderUnsupported, mode)
	}
}

// Close implements Engine.
func (g *GridWorld) Close() error {
	g.running = false
	return nil
}

func (g *GridWorld) observe() Observation {
	return Observation{float64(g.pos.row), float64(g.pos.col)}
}

func (g *GridWorld) text() string {
	var b strings.Builder
	for r := range g.rows {
		for c := range g.cols {
			switch (cell{r, c}) {
			case g.pos:
				b.WriteByte('A')
			case g.goal:
				b.WriteByte('G')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *GridWorld) pixels() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.cols*gridCellPixels, g.rows*gridCellPixels))
	for y := range img.Bounds().Dy() {
		for x := range img.Bounds().Dx() {
			c := cell{y / gridCellPixels, x / gridCellPixels}
			col := gridColorEmpty
			switch {
			case x%gridCellPixels == 0 || y%gridCellPixels == 0:
				col = gridColorLine
			case c == g.pos:
				col = gridColorAgent
			case c == g.goal:
				col = gridColorGoal
			}
			img.SetRGBA(x, y, col)
		}
	}
	return img
}
