package math

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedCurve is returned when a curve cannot resolve an x value that a
// monotonic easing curve must always resolve.
var ErrMalformedCurve = errors.New("malformed bezier curve")

// DefaultCurveEpsilon is the tolerance band used when accepting curve roots.
const DefaultCurveEpsilon float32 = 1e-4

// CubicBezierCurve is a cubic Bezier with fixed endpoints (0,0) and (1,1).
// P1 and P2 are the free control points.
type CubicBezierCurve struct {
	P1 Vec2
	P2 Vec2
}

// LinearCurve is the identity easing: y == x everywhere.
var LinearCurve = CubicBezierCurve{P1: Vec2{0.5, 0.5}, P2: Vec2{0.5, 0.5}}

// NewCubicBezierCurve creates a curve from its two control points.
func NewCubicBezierCurve(p1, p2 Vec2) CubicBezierCurve {
	return CubicBezierCurve{P1: p1, P2: p2}
}

// Validate checks that both control points lie in the unit square, which
// keeps x(t) monotonic on [0, 1].
func (c CubicBezierCurve) Validate() error {
	if !c.P1.InUnitSquare() || !c.P2.InUnitSquare() {
		return fmt.Errorf("%w: control points %v %v outside unit square", ErrMalformedCurve, c.P1, c.P2)
	}
	return nil
}

// X evaluates the x component at parameter t.
func (c CubicBezierCurve) X(t float32) float32 {
	return bernstein(t, 0, c.P1.X, c.P2.X, 1)
}

// Y evaluates the y component at parameter t.
func (c CubicBezierCurve) Y(t float32) float32 {
	return bernstein(t, 0, c.P1.Y, c.P2.Y, 1)
}

// SolveTimeFromX returns every distinct t in [-eps, 1+eps] with X(t) == x.
func (c CubicBezierCurve) SolveTimeFromX(x, eps float32) []float32 {
	p1, p2 := float64(c.P1.X), float64(c.P2.X)

	a0 := -float64(x)
	a1 := 3 * p1
	a2 := 3 * (-2*p1 + p2)
	a3 := 1 + 3*(p1-p2)

	lo, hi := float64(-eps), float64(1+eps)

	var out []float32
	for _, t := range SolveCubic(a3, a2, a1, a0) {
		if t < lo || t > hi || math.IsNaN(t) {
			continue
		}
		ft := float32(t)
		dup := false
		for _, seen := range out {
			if absf(seen-ft) <= 1e-6 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, ft)
		}
	}
	return out
}

// SolveYFromX resolves x to the root whose X(t) is closest to x and returns
// Y at that root.
func (c CubicBezierCurve) SolveYFromX(x float32) (float32, error) {
	roots := c.SolveTimeFromX(x, DefaultCurveEpsilon)
	if len(roots) == 0 {
		return 0, fmt.Errorf("%w: no root for x=%v", ErrMalformedCurve, x)
	}

	best := roots[0]
	bestErr := absf(c.X(best) - x)
	for _, t := range roots[1:] {
		if e := absf(c.X(t) - x); e < bestErr {
			best, bestErr = t, e
		}
	}

	// Roots inside the epsilon band may sit just outside [0, 1]
	if best < 0 {
		best = 0
	} else if best > 1 {
		best = 1
	}
	return c.Y(best), nil
}

func bernstein(t, p0, p1, p2, p3 float32) float32 {
	inv := 1 - t
	return inv*inv*inv*p0 + 3*inv*inv*t*p1 + 3*inv*t*t*p2 + t*t*t*p3
}
