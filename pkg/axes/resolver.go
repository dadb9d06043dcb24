// Package axes decides which axis of an ambiguous 4D array is time and maps
// the remaining three onto the pipeline's canonical (Z,Y,X) spatial order.
//
// Shape-based inference is inherently ambiguous, so the decision is modeled as
// a pluggable strategy. The two strategies are not equivalent: ExplicitAxis
// trusts a caller-supplied time axis and remaps the smallest remaining extent
// to Z, while ThresholdHeuristic guesses the time axis from extent thresholds
// and leaves the spatial axes in source order.
package axes

import (
	"fmt"
)

// Order is a resolved axis assignment for a 4D shape.
type Order struct {
	// Perm maps output axis position to source axis index; Perm[0] is the
	// time axis, Perm[1..3] are the spatial axes in (Z,Y,X) output order.
	Perm [4]int

	// T, Z, Y, X are the extents after reordering
	T, Z, Y, X int

	// Strategy names the resolver that produced this order
	Strategy string
}

// Resolver determines the axis order of a 4D shape.
type Resolver interface {
	Resolve(shape [4]int) (Order, error)
}

// ExplicitAxis resolves axes from a caller-supplied time-axis index. Among
// the three remaining axes, the one with the smallest extent becomes Z (the
// innermost anatomical axis); the other two keep their relative order as Y
// and X.
type ExplicitAxis struct {
	// Axis is the time-axis index in the source shape, 0..3
	Axis int
}

// ConfigError reports an invalid axis configuration.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func (r ExplicitAxis) Resolve(shape [4]int) (Order, error) {
	if r.Axis < 0 || r.Axis > 3 {
		return Order{}, &ConfigError{Msg: fmt.Sprintf("time axis must be 0..3, got %d", r.Axis)}
	}

	// Spatial axes in source order, time axis removed.
	var spatial []int
	for i := 0; i < 4; i++ {
		if i != r.Axis {
			spatial = append(spatial, i)
		}
	}

	// Smallest spatial extent is Z.
	zPos := 0
	for i, ax := range spatial {
		if shape[ax] < shape[spatial[zPos]] {
			zPos = i
		}
	}
	ordered := []int{spatial[zPos]}
	for i, ax := range spatial {
		if i != zPos {
			ordered = append(ordered, ax)
		}
	}

	o := Order{
		Perm:     [4]int{r.Axis, ordered[0], ordered[1], ordered[2]},
		Strategy: "explicit",
	}
	o.T = shape[o.Perm[0]]
	o.Z = shape[o.Perm[1]]
	o.Y = shape[o.Perm[2]]
	o.X = shape[o.Perm[3]]
	return o, nil
}

// ThresholdHeuristic guesses the time axis from the shape alone:
//   - first extent < 16 and last extent > 32: the last axis is time
//   - first extent >= 16 and last extent < 16: the first axis is already time
//   - otherwise: the axis with the largest extent is time
//
// The remaining three axes keep their source order with no anatomical remap,
// so the "Z,Y,X" labels follow the source layout.
type ThresholdHeuristic struct{}

func (ThresholdHeuristic) Resolve(shape [4]int) (Order, error) {
	var tAxis int
	switch {
	case shape[0] < 16 && shape[3] > 32:
		tAxis = 3
	case shape[0] >= 16 && shape[3] < 16:
		tAxis = 0
	default:
		tAxis = 0
		for i := 1; i < 4; i++ {
			if shape[i] > shape[tAxis] {
				tAxis = i
			}
		}
	}

	o := Order{Strategy: "heuristic"}
	o.Perm[0] = tAxis
	pos := 1
	for i := 0; i < 4; i++ {
		if i != tAxis {
			o.Perm[pos] = i
			pos++
		}
	}
	o.T = shape[o.Perm[0]]
	o.Z = shape[o.Perm[1]]
	o.Y = shape[o.Perm[2]]
	o.X = shape[o.Perm[3]]
	return o, nil
}
