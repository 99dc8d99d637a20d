package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SpaceKind distinguishes the supported space families.
type SpaceKind int

const (
	// SpaceDiscrete is the set {0, 1, ..., N-1}.
	SpaceDiscrete SpaceKind = iota
	// SpaceBox is a bounded box in R^n.
	SpaceBox
)

// Space describes a set of valid actions or observations.
type Space struct {
	Kind  SpaceKind
	N     int       // discrete spaces only
	Shape []int     // box spaces only
	Low   []float64 // box spaces only
	High  []float64 // box spaces only
}

// Discrete returns a discrete space with n elements.
func Discrete(n int) Space {
	return Space{Kind: SpaceDiscrete, N: n}
}

// Box returns a one-dimensional box bounded element-wise by low and high.
// Panics if the bounds differ in length.
func Box(low, high []float64) Space {
	if len(low) != len(high) {
		panic(fmt.Sprintf("engine: box bounds length mismatch: %d != %d", len(low), len(high)))
	}
	return Space{
		Kind:  SpaceBox,
		Shape: []int{len(low)},
		Low:   append([]float64(nil), low...),
		High:  append([]float64(nil), high...),
	}
}

// String renders the space the way gym prints it, e.g. "Discrete(4)" or "Box(4,)".
func (s Space) String() string {
	switch s.Kind {
	case SpaceDiscrete:
		return fmt.Sprintf("Discrete(%d)", s.N)
	case SpaceBox:
		dims := make([]string, len(s.Shape))
		for i, d := range s.Shape {
			dims[i] = strconv.Itoa(d)
		}
		if len(dims) == 1 {
			return "Box(" + dims[0] + ",)"
		}
		return "Box(" + strings.Join(dims, ", ") + ")"
	default:
		return fmt.Sprintf("Space(%d)", int(s.Kind))
	}
}

// Bounds returns the shape and element-wise bounds of the space. Discrete
// spaces report shape [1] with bounds [0, N-1].
func (s Space) Bounds() (shape []int, low, high []float64) {
	if s.Kind == SpaceDiscrete {
		return []int{1}, []float64{0}, []float64{float64(s.N - 1)}
	}
	return append([]int(nil), s.Shape...),
		append([]float64(nil), s.Low...),
		append([]float64(nil), s.High...)
}

// Contains reports whether a belongs to the space.
func (s Space) Contains(a Action) bool {
	switch s.Kind {
	case SpaceDiscrete:
		if len(a) != 1 || a[0] != math.Trunc(a[0]) {
			return false
		}
		return a[0] >= 0 && a[0] < float64(s.N)
	case SpaceBox:
		if len(a) != len(s.Low) {
			return false
		}
		for i, v := range a {
			if math.IsNaN(v) || v < s.Low[i] || v > s.High[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Decode converts a loosely typed value, as produced by encoding/json or a
// Go caller, into an Action of this space. Discrete spaces accept a single
// integral number; box spaces accept a list of numbers. The result is
// validated with Contains. Errors wrap ErrInvalidAction.
func (s Space) Decode(v any) (Action, error) {
	var a Action
	switch s.Kind {
	case SpaceDiscrete:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: want an integer for %s, got %T", ErrInvalidAction, s, v)
		}
		a = Action{f}
	case SpaceBox:
		vals, ok := toFloats(v)
		if !ok {
			return nil, fmt.Errorf("%w: want a list of numbers for %s, got %T", ErrInvalidAction, s, v)
		}
		a = vals
	default:
		return nil, fmt.Errorf("%w: unsupported space %s", ErrInvalidAction, s)
	}

	if !s.Contains(a) {
		return nil, fmt.Errorf("%w: %v not in %s", ErrInvalidAction, []float64(a), s)
	}
	return a, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toFloats(v any) ([]float64, bool) {
	switch list := v.(type) {
	case []float64:
		return append([]float64(nil), list...), true
	case Action:
		return append([]float64(nil), list...), true
	case []any:
		out := make([]float64, len(list))
		for i, item := range list {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
