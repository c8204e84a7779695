package collision

import (
	"testing"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// floor returns a 10x10 quad at y=0 made of two triangles.
func floor() *StaticObject {
	a := math.Vec3{X: -5, Y: 0, Z: -5}
	b := math.Vec3{X: 5, Y: 0, Z: -5}
	c := math.Vec3{X: 5, Y: 0, Z: 5}
	d := math.Vec3{X: -5, Y: 0, Z: 5}
	return NewStaticObject("floor", []Triangle{
		NewTriangle(a, b, c),
		NewTriangle(a, c, d),
	})
}

func TestNewStaticObjectBounds(t *testing.T) {
	obj := floor()
	want := AABB{Min: math.Vec3{X: -5, Y: 0, Z: -5}, Max: math.Vec3{X: 5, Y: 0, Z: 5}}
	if obj.Box != want {
		t.Errorf("Box = %v, want %v", obj.Box, want)
	}
	if len(obj.Triangles) != 2 {
		t.Errorf("Triangles = %d, want 2", len(obj.Triangles))
	}
}

func TestNewStaticObjectDropsDegenerate(t *testing.T) {
	p := math.Vec3{X: 1, Y: 1, Z: 1}
	obj := NewStaticObject("line", []Triangle{NewTriangle(p, p, math.Vec3{})})
	if len(obj.Triangles) != 0 {
		t.Errorf("degenerate triangle kept")
	}
	if s := NewScene(obj); len(s.Objects()) != 0 {
		t.Errorf("empty object added to scene")
	}
}

func TestTriangleNormal(t *testing.T) {
	tri := NewTriangle(
		math.Vec3{X: 0, Y: 0, Z: 0},
		math.Vec3{X: 1, Y: 0, Z: 0},
		math.Vec3{X: 0, Y: 0, Z: 1},
	)
	// (P3-P1) x (P2-P1) = (0,0,1) x (1,0,0) = (0,1,0)
	if tri.Normal != (math.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("Normal = %v, want (0,1,0)", tri.Normal)
	}
}

func TestSweepIntersectAABB(t *testing.T) {
	box := NewAABB(math.Vec3{X: -1, Y: -1, Z: -1}, math.Vec3{X: 1, Y: 1, Z: 1})

	tests := []struct {
		name string
		s    Sweep
		want bool
	}{
		{"head on", Sweep{math.Vec3{X: -5}, math.Vec3{X: 1}}, true},
		{"moving away", Sweep{math.Vec3{X: -5}, math.Vec3{X: -1}}, false},
		{"miss above", Sweep{math.Vec3{X: -5, Y: 3}, math.Vec3{X: 1}}, false},
		{"inside", Sweep{math.Vec3{}, math.Vec3{Y: 1}}, true},
		{"diagonal", Sweep{math.Vec3{X: -5, Y: -5, Z: -5}, math.Vec3{X: 1, Y: 1, Z: 1}}, true},
		{"axis aligned miss", Sweep{math.Vec3{X: 2, Y: 5}, math.Vec3{Y: -1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.IntersectAABB(box); got != tt.want {
				t.Errorf("IntersectAABB() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSweepTimeToPlane(t *testing.T) {
	normal := math.Vec3{Y: 1}
	s := Sweep{Origin: math.Vec3{Y: 10}, Velocity: math.Vec3{Y: -2}}
	got, ok := s.TimeToPlane(math.Vec3{}, normal, DefaultEpsilon)
	if !ok || got != 5 {
		t.Errorf("TimeToPlane = (%v, %v), want (5, true)", got, ok)
	}

	parallel := Sweep{Origin: math.Vec3{Y: 10}, Velocity: math.Vec3{X: 1, Y: 1e-6}}
	if _, ok := parallel.TimeToPlane(math.Vec3{}, normal, DefaultEpsilon); ok {
		t.Error("near-parallel motion should not hit")
	}
}

func TestSweepPassesThrough(t *testing.T) {
	tri := NewTriangle(
		math.Vec3{X: 0, Y: 0, Z: 0},
		math.Vec3{X: 4, Y: 0, Z: 0},
		math.Vec3{X: 0, Y: 0, Z: 4},
	)
	down := math.Vec3{Y: -1}

	tests := []struct {
		name   string
		origin math.Vec3
		want   bool
	}{
		{"inside", math.Vec3{X: 1, Y: 5, Z: 1}, true},
		{"outside", math.Vec3{X: 3, Y: 5, Z: 3}, false},
		{"behind", math.Vec3{X: -1, Y: 5, Z: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Sweep{Origin: tt.origin, Velocity: down}
			if got := s.PassesThrough(tri); got != tt.want {
				t.Errorf("PassesThrough() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEarliestImpact(t *testing.T) {
	wall := NewStaticObject("wall", []Triangle{
		NewTriangle(math.Vec3{X: -5, Y: 2, Z: -5}, math.Vec3{X: 5, Y: 2, Z: -5}, math.Vec3{X: 0, Y: 2, Z: 5}),
	})
	scene := NewScene(floor(), wall)

	s := Sweep{Origin: math.Vec3{Y: 10}, Velocity: math.Vec3{Y: -1}}
	hit, ok := scene.EarliestImpact(s, DefaultEpsilon)
	if !ok {
		t.Fatal("expected an impact")
	}
	if hit.Time != 8 || hit.Object != wall {
		t.Errorf("impact = %+v, want time 8 on wall", hit)
	}

	up := Sweep{Origin: math.Vec3{Y: 10}, Velocity: math.Vec3{Y: 1}}
	if _, ok := scene.EarliestImpact(up, DefaultEpsilon); ok {
		t.Error("moving away should not hit")
	}

	still := Sweep{Origin: math.Vec3{Y: 10}}
	if _, ok := scene.EarliestImpact(still, DefaultEpsilon); ok {
		t.Error("zero velocity should not hit")
	}

	if _, ok := (*Scene)(nil).EarliestImpact(s, DefaultEpsilon); ok {
		t.Error("nil scene should not hit")
	}
}
