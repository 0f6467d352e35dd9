// Package field implements the pairwise point-process energy functions
// (C1) and the Gibbs-field sampler (C2) used to populate patches of the
// procedural map. Every function here is pure: given the same parameters
// and inputs it always returns the same log-density contribution, which is
// what lets the sampler (and, transitively, the map's "fix neighborhood"
// protocol) be deterministic for a fixed seed.
package field

import "math"

// IntensityKind names a family of single-item log-intensity functions.
type IntensityKind uint8

const (
	// IntensityConstant gives a per-type constant log-rate Theta[0].
	IntensityConstant IntensityKind = iota
)

// Intensity is f(x; theta) for a single item type.
type Intensity struct {
	Kind  IntensityKind
	Theta []float64
}

// Eval returns the log-intensity of placing an item of this type, ignoring
// all neighboring context.
func (f Intensity) Eval() float64 {
	switch f.Kind {
	case IntensityConstant:
		if len(f.Theta) == 0 {
			return 0
		}
		return f.Theta[0]
	default:
		return 0
	}
}

// InteractionKind names a family of pairwise log-interaction functions.
type InteractionKind uint8

const (
	// InteractionZero always returns 0: the two item types do not interact.
	InteractionZero InteractionKind = iota
	// InteractionPiecewiseBox returns V1 within Chebyshev radius R1, V2
	// within R2, and 0 beyond. Params: [r1, r2, v1, v2].
	InteractionPiecewiseBox
	// InteractionCross is a rotation-aware axis-aligned template: nonzero
	// only along the two axes through the origin, out to a configured arm
	// length, with independent values for the near and far segments of each
	// arm. Params: [armLength, nearValue, farValue, nearSplit].
	InteractionCross
)

// Interaction is g(x_i, x_j, Delta; theta) for an ordered pair of item
// types, where Delta = location(j) - location(i).
type Interaction struct {
	Kind   InteractionKind
	Params []float64
}

// Eval returns g(i, j, (dx, dy)).
func (g Interaction) Eval(dx, dy int64) float64 {
	switch g.Kind {
	case InteractionPiecewiseBox:
		if len(g.Params) < 4 {
			return 0
		}
		r1, r2, v1, v2 := g.Params[0], g.Params[1], g.Params[2], g.Params[3]
		d := chebyshev(dx, dy)
		switch {
		case d <= r1:
			return v1
		case d <= r2:
			return v2
		default:
			return 0
		}
	case InteractionCross:
		if len(g.Params) < 4 {
			return 0
		}
		arm, near, far, split := g.Params[0], g.Params[1], g.Params[2], g.Params[3]
		onAxis := dx == 0 || dy == 0
		if !onAxis {
			return 0
		}
		d := chebyshev(dx, dy)
		if d == 0 || d > arm {
			return 0
		}
		if d <= split {
			return near
		}
		return far
	default: // InteractionZero
		return 0
	}
}

// Radius returns the effective interaction radius: the largest Chebyshev
// distance at which Eval can be nonzero. It is the building block for the
// sampler's per-type-pair radius cache (C2).
func (g Interaction) Radius() int64 {
	switch g.Kind {
	case InteractionPiecewiseBox:
		if len(g.Params) < 4 {
			return 0
		}
		r1, r2, v1, v2 := g.Params[0], g.Params[1], g.Params[2], g.Params[3]
		if v2 != 0 {
			return int64(math.Ceil(r2))
		}
		if v1 != 0 {
			return int64(math.Ceil(r1))
		}
		return 0
	case InteractionCross:
		if len(g.Params) < 1 {
			return 0
		}
		return int64(math.Ceil(g.Params[0]))
	default:
		return 0
	}
}

func chebyshev(dx, dy int64) float64 {
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return float64(dx)
	}
	return float64(dy)
}

// PairEnergy is the effective symmetrized pairwise energy the Gibbs target
// assigns to a type-i item at the origin and a type-j item at (dx, dy): the
// sum of the ordered contribution in both directions, per spec.md §4.1
// ("the specification need only require that g(i,j) + g(j,i) be the
// effective pairwise energy used in the Gibbs target").
func PairEnergy(gij, gji Interaction, dx, dy int64) float64 {
	return gij.Eval(dx, dy) + gji.Eval(-dx, -dy)
}
