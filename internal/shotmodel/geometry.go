package shotmodel

import (
	"errors"
	"fmt"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// ErrUnknownShotType is returned by factories for an unregistered type.
var ErrUnknownShotType = errors.New("unknown shot type")

// ErrInvalidGeometry is returned when a factory produces inconsistent data.
var ErrInvalidGeometry = errors.New("invalid shot geometry")

// Vertex is a single-bone weighted vertex. Bone is an index into the
// owning geometry's bone list until aggregation remaps it.
type Vertex struct {
	Pos    math.Vec3
	Normal math.Vec3
	UV     math.Vec2
	Bone   int
}

// Material draw flags.
const (
	DrawDoubleSided uint8 = 1 << iota
	DrawGroundShadow
	DrawSelfShadowMap
	DrawSelfShadow
	DrawEdge
)

// Sphere texture modes.
const (
	SphereNone uint8 = iota
	SphereMultiply
	SphereAdd
)

// Material describes one draw range of the index buffer. FaceCount is the
// number of indices it covers. Texture and Sphere index the geometry's
// texture list, or are -1.
type Material struct {
	Name       string
	Diffuse    [4]float32
	Specular   [3]float32
	Shininess  float32
	Ambient    [3]float32
	DrawFlags  uint8
	EdgeColor  [4]float32
	EdgeSize   float32
	Texture    int
	Sphere     int
	SphereMode uint8
	Toon       int
	SharedToon bool
	Memo       string
	FaceCount  int
}

// Bone is a geometry-local bone. Parent indexes the same list or is -1.
type Bone struct {
	Name   string
	Pos    math.Vec3
	Parent int
}

// Rigid body shapes.
const (
	ShapeSphere uint8 = iota
	ShapeBox
	ShapeCapsule
)

// Rigid is a physics body attached to a local bone.
type Rigid struct {
	Name           string
	Bone           int
	Group          uint8
	Mask           uint16
	Shape          uint8
	Size           math.Vec3
	Pos            math.Vec3
	Rot            math.Vec3
	Mass           float32
	LinearDamping  float32
	AngularDamping float32
	Restitution    float32
	Friction       float32
	Mode           uint8
}

// Geometry is what a shot type produces for one property. Every block of a
// property shares its layout.
type Geometry struct {
	Bones     []Bone
	Vertices  []Vertex
	Indices   []int
	Materials []Material
	Textures  []string
	Rigids    []Rigid
}

// GeometryFactory builds geometry for a property. It is called once per
// pool miss.
type GeometryFactory interface {
	Geometry(p Property) (*Geometry, error)
}

// FactoryFunc adapts a function to GeometryFactory.
type FactoryFunc func(p Property) (*Geometry, error)

// Geometry implements GeometryFactory.
func (f FactoryFunc) Geometry(p Property) (*Geometry, error) {
	return f(p)
}

// HasMesh reports whether the geometry draws anything. Bone-only shot
// types have no mesh.
func (g *Geometry) HasMesh() bool {
	return len(g.Vertices) > 0 && len(g.Indices) > 0
}

// Validate checks index, bone and material references.
func (g *Geometry) Validate() error {
	if len(g.Bones) == 0 {
		return fmt.Errorf("%w: no bones", ErrInvalidGeometry)
	}
	for i, b := range g.Bones {
		if b.Parent >= i {
			return fmt.Errorf("%w: bone %d parent %d is not an earlier bone", ErrInvalidGeometry, i, b.Parent)
		}
	}
	for i, v := range g.Vertices {
		if v.Bone < 0 || v.Bone >= len(g.Bones) {
			return fmt.Errorf("%w: vertex %d bone %d out of range", ErrInvalidGeometry, i, v.Bone)
		}
	}
	if len(g.Indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidGeometry, len(g.Indices))
	}
	for i, idx := range g.Indices {
		if idx < 0 || idx >= len(g.Vertices) {
			return fmt.Errorf("%w: index %d = %d out of range", ErrInvalidGeometry, i, idx)
		}
	}

	faces := 0
	for i, m := range g.Materials {
		if m.Texture >= len(g.Textures) || m.Sphere >= len(g.Textures) {
			return fmt.Errorf("%w: material %d texture out of range", ErrInvalidGeometry, i)
		}
		faces += m.FaceCount
	}
	if faces != len(g.Indices) {
		return fmt.Errorf("%w: materials cover %d indices, have %d", ErrInvalidGeometry, faces, len(g.Indices))
	}

	for i, r := range g.Rigids {
		if r.Bone < -1 || r.Bone >= len(g.Bones) {
			return fmt.Errorf("%w: rigid %d bone %d out of range", ErrInvalidGeometry, i, r.Bone)
		}
	}
	return nil
}
