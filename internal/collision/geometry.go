// Package collision holds the static scene geometry and the swept tests used
// to schedule shot impacts.
package collision

import (
	"github.com/Faultbox/curtainfire/pkg/math"
)

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// NewAABB creates an AABB from two opposite corners in any order.
func NewAABB(a, b math.Vec3) AABB {
	box := AABB{Min: a, Max: b}
	if box.Min.X > box.Max.X {
		box.Min.X, box.Max.X = box.Max.X, box.Min.X
	}
	if box.Min.Y > box.Max.Y {
		box.Min.Y, box.Max.Y = box.Max.Y, box.Min.Y
	}
	if box.Min.Z > box.Max.Z {
		box.Min.Z, box.Max.Z = box.Max.Z, box.Min.Z
	}
	return box
}

// Extend grows the box to contain p.
func (b AABB) Extend(p math.Vec3) AABB {
	b.Min = math.Vec3{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
	b.Max = math.Vec3{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
	return b
}

// Contains reports whether p lies inside the box, borders included.
func (b AABB) Contains(p math.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Triangle is one face of a static mesh. Normal is the unit normal of
// (P3-P1) x (P2-P1); it is zero for degenerate triangles.
type Triangle struct {
	P1, P2, P3 math.Vec3
	Normal     math.Vec3
}

// NewTriangle creates a triangle and computes its normal.
func NewTriangle(p1, p2, p3 math.Vec3) Triangle {
	return Triangle{
		P1:     p1,
		P2:     p2,
		P3:     p3,
		Normal: p3.Sub(p1).Cross(p2.Sub(p1)).Normalize(),
	}
}

// Degenerate reports whether the triangle has no area.
func (t Triangle) Degenerate() bool {
	return t.Normal.IsZero()
}

// StaticObject is a read-only triangle soup with a precomputed bounding box.
type StaticObject struct {
	Name      string
	Box       AABB
	Triangles []Triangle
}

// NewStaticObject builds an object and computes its bounds from the
// triangles. Degenerate triangles are dropped.
func NewStaticObject(name string, tris []Triangle) *StaticObject {
	obj := &StaticObject{Name: name}
	for _, t := range tris {
		if t.Degenerate() {
			continue
		}
		if len(obj.Triangles) == 0 {
			obj.Box = NewAABB(t.P1, t.P1)
		}
		obj.Box = obj.Box.Extend(t.P1).Extend(t.P2).Extend(t.P3)
		obj.Triangles = append(obj.Triangles, t)
	}
	return obj
}

// Scene is the static collision geometry of a run. It is loaded before the
// simulation starts and never mutated afterwards, so it is safe to share.
type Scene struct {
	objects []*StaticObject
}

// NewScene creates a scene from the given objects. Objects without any
// triangles are skipped.
func NewScene(objects ...*StaticObject) *Scene {
	s := &Scene{}
	for _, o := range objects {
		if o != nil && len(o.Triangles) > 0 {
			s.objects = append(s.objects, o)
		}
	}
	return s
}

// Objects returns the scene objects.
func (s *Scene) Objects() []*StaticObject {
	if s == nil {
		return nil
	}
	return s.objects
}

// TriangleCount returns the number of triangles across all objects.
func (s *Scene) TriangleCount() int {
	n := 0
	for _, o := range s.Objects() {
		n += len(o.Triangles)
	}
	return n
}
