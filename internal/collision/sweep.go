package collision

import (
	gomath "math"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// DefaultEpsilon is the parallel-motion threshold for plane tests.
const DefaultEpsilon float32 = 1e-4

// zeroVelocitySubstitute replaces zero velocity components in the slab test.
const zeroVelocitySubstitute float32 = 1e-7

// Sweep is the straight path of a point moving with a constant per-frame
// velocity: P(t) = Origin + t*Velocity, t measured in frames.
type Sweep struct {
	Origin   math.Vec3
	Velocity math.Vec3
}

// Impact is the earliest hit of a sweep against the scene.
type Impact struct {
	// Time is the number of frames from the sweep origin to the surface.
	Time   float32
	Normal math.Vec3
	Object *StaticObject
}

// IntersectAABB tests whether the path can enter the box at t >= 0.
func (s Sweep) IntersectAABB(box AABB) bool {
	tmin := float32(-gomath.MaxFloat32)
	tmax := float32(gomath.MaxFloat32)

	for i := 0; i < 3; i++ {
		v := s.Velocity.Axis(i)
		if v == 0 {
			v = zeroVelocitySubstitute
		}
		t1 := (box.Min.Axis(i) - s.Origin.Axis(i)) / v
		t2 := (box.Max.Axis(i) - s.Origin.Axis(i)) / v
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return false
		}
	}

	return tmax >= 0
}

// TimeToPlane returns the time at which the path crosses the plane through
// point with the given normal. Motion within eps of parallel never hits.
func (s Sweep) TimeToPlane(point, normal math.Vec3, eps float32) (float32, bool) {
	dot := normal.Dot(s.Velocity)
	if dot <= eps && dot >= -eps {
		return 0, false
	}
	return normal.Dot(point.Sub(s.Origin)) / dot, true
}

// PassesThrough reports whether the line of motion pierces the triangle.
// The three edge cross products dotted with the velocity must share a sign.
func (s Sweep) PassesThrough(tri Triangle) bool {
	d1 := tri.P2.Sub(tri.P1).Cross(s.Origin.Sub(tri.P1)).Dot(s.Velocity)
	d2 := tri.P3.Sub(tri.P2).Cross(s.Origin.Sub(tri.P2)).Dot(s.Velocity)
	d3 := tri.P1.Sub(tri.P3).Cross(s.Origin.Sub(tri.P3)).Dot(s.Velocity)

	return (d1 > 0) == (d2 > 0) && (d2 > 0) == (d3 > 0)
}

// EarliestImpact returns the first triangle the sweep reaches at t >= 0.
func (s *Scene) EarliestImpact(sw Sweep, eps float32) (Impact, bool) {
	best := Impact{Time: float32(gomath.MaxFloat32)}
	found := false

	if sw.Velocity.IsZero() {
		return best, false
	}

	for _, obj := range s.Objects() {
		if !sw.IntersectAABB(obj.Box) {
			continue
		}
		for _, tri := range obj.Triangles {
			t, ok := sw.TimeToPlane(tri.P1, tri.Normal, eps)
			if !ok || t < 0 || t >= best.Time {
				continue
			}
			if !sw.PassesThrough(tri) {
				continue
			}
			best = Impact{Time: t, Normal: tri.Normal, Object: obj}
			found = true
		}
	}

	return best, found
}
