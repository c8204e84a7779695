package math

import "math"

const polyEpsilon = 1e-12

// SolveCubic returns the real roots of a*t^3 + b*t^2 + c*t + d = 0 using the
// closed-form (Cardano / trigonometric) solution. Degenerate leading
// coefficients fall back to the quadratic and linear cases. Roots are
// polished with Newton steps on the original polynomial; they are not sorted
// and a repeated root may appear more than once.
func SolveCubic(a, b, c, d float64) []float64 {
	if math.Abs(a) < polyEpsilon {
		return SolveQuadratic(b, c, d)
	}

	B, C, D := b/a, c/a, d/a
	shift := -B / 3

	// Depressed cubic y^3 + p*y + q = 0 with t = y + shift
	p := C - B*B/3
	q := 2*B*B*B/27 - B*C/3 + D

	half := q / 2
	third := p / 3
	disc := half*half + third*third*third

	var roots []float64
	switch {
	case math.Abs(disc) < polyEpsilon:
		if math.Abs(half) < polyEpsilon {
			roots = []float64{shift}
		} else {
			u := math.Cbrt(-half)
			roots = []float64{2*u + shift, -u + shift}
		}
	case disc > 0:
		s := math.Sqrt(disc)
		u := math.Cbrt(-half + s)
		v := math.Cbrt(-half - s)
		roots = []float64{u + v + shift}
	default:
		r := math.Sqrt(-third)
		cosArg := -half / (r * r * r)
		cosArg = math.Max(-1, math.Min(1, cosArg))
		phi := math.Acos(cosArg) / 3
		for k := 0; k < 3; k++ {
			roots = append(roots, 2*r*math.Cos(phi-2*math.Pi*float64(k)/3)+shift)
		}
	}

	for i, t := range roots {
		roots[i] = polish(a, b, c, d, t)
	}
	return roots
}

// SolveQuadratic returns the real roots of a*t^2 + b*t + c = 0.
func SolveQuadratic(a, b, c float64) []float64 {
	if math.Abs(a) < polyEpsilon {
		if math.Abs(b) < polyEpsilon {
			return nil
		}
		return []float64{-c / b}
	}

	disc := b*b - 4*a*c
	switch {
	case math.Abs(disc) < polyEpsilon:
		return []float64{-b / (2 * a)}
	case disc < 0:
		return nil
	}

	// Numerically stable form avoids cancellation when b*b >> 4ac
	s := math.Sqrt(disc)
	if b < 0 {
		s = -s
	}
	q := -0.5 * (b + s)
	if math.Abs(q) < polyEpsilon {
		return []float64{-b / (2 * a)}
	}
	return []float64{q / a, c / q}
}

func polish(a, b, c, d, t float64) float64 {
	for i := 0; i < 2; i++ {
		f := ((a*t+b)*t+c)*t + d
		df := (3*a*t+2*b)*t + c
		if math.Abs(df) < polyEpsilon {
			break
		}
		t -= f / df
	}
	return t
}
