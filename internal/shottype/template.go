// Package shottype builds shot geometry: procedural shapes described by
// templates, registered in code or loaded from a TOML catalog.
package shottype

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/pkg/math"
)

// ErrInvalidTemplate is returned for templates that cannot build geometry.
var ErrInvalidTemplate = errors.New("invalid shot type template")

// Shapes a template can build.
const (
	ShapeSphere = "sphere"
	ShapeBox    = "box"
	ShapeQuad   = "quad"
	ShapeBone   = "bone"
	ShapePMX    = "pmx"
)

// Template describes a procedural shot type. Size is the sphere radius or
// the half extent of a box or quad.
type Template struct {
	Name        string  `toml:"name"`
	Description string  `toml:"description"`
	Shape       string  `toml:"shape"`
	Size        float32 `toml:"size"`
	Segments    int     `toml:"segments"`
	Rings       int     `toml:"rings"`
	Texture     string  `toml:"texture"`
	Alpha       float32 `toml:"alpha"` // 0 reads as opaque
	DoubleSided bool    `toml:"double_sided"`
	Edge        float32 `toml:"edge"`
	Rigid       bool    `toml:"rigid"`
	Model       string  `toml:"model"` // PMX file for the pmx shape
}

func (t Template) withDefaults() Template {
	if t.Size == 0 {
		t.Size = 1
	}
	if t.Segments == 0 {
		t.Segments = 8
	}
	if t.Rings == 0 {
		t.Rings = 6
	}
	if t.Alpha == 0 {
		t.Alpha = 1
	}
	return t
}

// Validate reports missing names, unknown shapes and bad sizes.
func (t Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTemplate)
	}
	switch t.Shape {
	case ShapeSphere:
		if t.Segments < 3 || t.Rings < 2 {
			return fmt.Errorf("%w: %s: sphere needs 3 segments and 2 rings, have %d and %d",
				ErrInvalidTemplate, t.Name, t.Segments, t.Rings)
		}
	case ShapeBox, ShapeQuad, ShapeBone:
	case ShapePMX:
		if t.Model == "" {
			return fmt.Errorf("%w: %s: pmx shape needs a model path", ErrInvalidTemplate, t.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown shape %q", ErrInvalidTemplate, t.Name, t.Shape)
	}
	if t.Size <= 0 {
		return fmt.Errorf("%w: %s: size %v", ErrInvalidTemplate, t.Name, t.Size)
	}
	if t.Alpha < 0 || t.Alpha > 1 {
		return fmt.Errorf("%w: %s: alpha %v outside [0, 1]", ErrInvalidTemplate, t.Name, t.Alpha)
	}
	return nil
}

// Build creates the unscaled, uncolored geometry of the template.
func (t Template) Build() (*shotmodel.Geometry, error) {
	t = t.withDefaults()
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if t.Shape == ShapePMX {
		return buildPMX(t)
	}

	g := &shotmodel.Geometry{
		Bones: []shotmodel.Bone{{Name: t.Name, Parent: -1}},
	}
	if t.Rigid {
		g.Rigids = []shotmodel.Rigid{{
			Name:        t.Name,
			Shape:       shotmodel.ShapeSphere,
			Size:        math.Vec3{X: t.Size},
			Mass:        1,
			Restitution: 0.5,
			Friction:    0.5,
			Mask:        0xFFFF,
		}}
	}

	switch t.Shape {
	case ShapeBone:
		return g, nil
	case ShapeSphere:
		g.Vertices, g.Indices = sphere(t.Size, t.Segments, t.Rings)
	case ShapeBox:
		g.Vertices, g.Indices = box(t.Size)
	case ShapeQuad:
		g.Vertices, g.Indices = quad(t.Size)
	}

	mat := shotmodel.Material{
		Diffuse:   [4]float32{1, 1, 1, t.Alpha},
		Ambient:   [3]float32{0.5, 0.5, 0.5},
		EdgeColor: [4]float32{0, 0, 0, 1},
		Texture:   -1,
		Sphere:    -1,
		Toon:      -1,
		Memo:      t.Description,
		FaceCount: len(g.Indices),
	}
	if t.DoubleSided {
		mat.DrawFlags |= shotmodel.DrawDoubleSided
	}
	if t.Edge > 0 {
		mat.DrawFlags |= shotmodel.DrawEdge
		mat.EdgeSize = t.Edge
	}
	if t.Texture != "" {
		g.Textures = []string{t.Texture}
		mat.Texture = 0
	}
	g.Materials = []shotmodel.Material{mat}

	return g, nil
}

func sphere(radius float32, segments, rings int) ([]shotmodel.Vertex, []int) {
	verts := make([]shotmodel.Vertex, 0, (rings+1)*(segments+1))
	for r := 0; r <= rings; r++ {
		theta := gomath.Pi * float64(r) / float64(rings)
		for s := 0; s <= segments; s++ {
			phi := 2 * gomath.Pi * float64(s) / float64(segments)
			n := math.Vec3{
				X: float32(gomath.Sin(theta) * gomath.Cos(phi)),
				Y: float32(gomath.Cos(theta)),
				Z: float32(gomath.Sin(theta) * gomath.Sin(phi)),
			}
			verts = append(verts, shotmodel.Vertex{
				Pos:    n.Scale(radius),
				Normal: n,
				UV:     math.Vec2{X: float32(s) / float32(segments), Y: float32(r) / float32(rings)},
			})
		}
	}

	stride := segments + 1
	indices := make([]int, 0, rings*segments*6)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := r*stride + s
			b := a + stride
			indices = append(indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return verts, indices
}

func box(half float32) ([]shotmodel.Vertex, []int) {
	faces := []struct{ n, u, v math.Vec3 }{
		{math.Vec3{X: 1}, math.Vec3{Z: -1}, math.Vec3{Y: 1}},
		{math.Vec3{X: -1}, math.Vec3{Z: 1}, math.Vec3{Y: 1}},
		{math.Vec3{Y: 1}, math.Vec3{X: 1}, math.Vec3{Z: -1}},
		{math.Vec3{Y: -1}, math.Vec3{X: 1}, math.Vec3{Z: 1}},
		{math.Vec3{Z: 1}, math.Vec3{X: 1}, math.Vec3{Y: 1}},
		{math.Vec3{Z: -1}, math.Vec3{X: -1}, math.Vec3{Y: 1}},
	}

	var verts []shotmodel.Vertex
	var indices []int
	for _, f := range faces {
		base := len(verts)
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := f.n.Add(f.u.Scale(c[0])).Add(f.v.Scale(c[1])).Scale(half)
			verts = append(verts, shotmodel.Vertex{
				Pos:    p,
				Normal: f.n,
				UV:     math.Vec2{X: (c[0] + 1) / 2, Y: (1 - c[1]) / 2},
			})
		}
		indices = append(indices, base, base+2, base+1, base, base+3, base+2)
	}
	return verts, indices
}

func quad(half float32) ([]shotmodel.Vertex, []int) {
	n := math.Vec3{Z: -1}
	verts := []shotmodel.Vertex{
		{Pos: math.Vec3{X: -half, Y: -half}, Normal: n, UV: math.Vec2{X: 0, Y: 1}},
		{Pos: math.Vec3{X: half, Y: -half}, Normal: n, UV: math.Vec2{X: 1, Y: 1}},
		{Pos: math.Vec3{X: half, Y: half}, Normal: n, UV: math.Vec2{X: 1, Y: 0}},
		{Pos: math.Vec3{X: -half, Y: half}, Normal: n, UV: math.Vec2{X: 0, Y: 0}},
	}
	return verts, []int{0, 2, 1, 0, 3, 2}
}
