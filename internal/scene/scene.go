// Package scene loads static collision geometry from YAML.
//
//	objects:
//	  - name: floor
//	    quad: {center: [0, 0, 0], size: [40, 40]}
//	  - name: pillar
//	    box: {min: [-1, 0, -1], max: [1, 10, 1]}
//	  - name: ramp
//	    triangles:
//	      - [[0, 0, 0], [4, 2, 0], [0, 0, 4]]
package scene

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/curtainfire/internal/collision"
	"github.com/Faultbox/curtainfire/pkg/math"
)

// ErrInvalidObject is returned for objects without usable geometry.
var ErrInvalidObject = errors.New("invalid scene object")

// File is the YAML document.
type File struct {
	Objects []Object `yaml:"objects"`
}

// Object is one static object. Exactly one of Triangles, Box and Quad is set.
type Object struct {
	Name      string          `yaml:"name"`
	Triangles [][3][3]float32 `yaml:"triangles,omitempty"`
	Box       *Box            `yaml:"box,omitempty"`
	Quad      *Quad           `yaml:"quad,omitempty"`
}

// Box is an axis-aligned box.
type Box struct {
	Min [3]float32 `yaml:"min"`
	Max [3]float32 `yaml:"max"`
}

// Quad is a horizontal rectangle facing +Y.
type Quad struct {
	Center [3]float32 `yaml:"center"`
	Size   [2]float32 `yaml:"size"`
}

// Parse decodes a scene document.
func Parse(data []byte) (*collision.Scene, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	return f.Build()
}

// Load reads a scene file.
func Load(path string) (*collision.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	return Parse(data)
}

// Build converts the document into collision objects.
func (f *File) Build() (*collision.Scene, error) {
	objs := make([]*collision.StaticObject, 0, len(f.Objects))
	for i, o := range f.Objects {
		tris, err := o.triangles()
		if err != nil {
			return nil, fmt.Errorf("object %d (%s): %w", i, o.Name, err)
		}
		obj := collision.NewStaticObject(o.Name, tris)
		if len(obj.Triangles) == 0 {
			return nil, fmt.Errorf("object %d (%s): %w: every triangle is degenerate", i, o.Name, ErrInvalidObject)
		}
		objs = append(objs, obj)
	}
	return collision.NewScene(objs...), nil
}

func (o Object) triangles() ([]collision.Triangle, error) {
	set := 0
	if len(o.Triangles) > 0 {
		set++
	}
	if o.Box != nil {
		set++
	}
	if o.Quad != nil {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: want exactly one of triangles, box, quad", ErrInvalidObject)
	}

	switch {
	case o.Box != nil:
		return boxTriangles(vec(o.Box.Min), vec(o.Box.Max)), nil
	case o.Quad != nil:
		c := vec(o.Quad.Center)
		hx, hz := o.Quad.Size[0]/2, o.Quad.Size[1]/2
		return quadTriangles(
			c.Add(math.Vec3{X: -hx, Z: -hz}),
			c.Add(math.Vec3{X: hx, Z: -hz}),
			c.Add(math.Vec3{X: hx, Z: hz}),
			c.Add(math.Vec3{X: -hx, Z: hz}),
		), nil
	}

	tris := make([]collision.Triangle, len(o.Triangles))
	for i, t := range o.Triangles {
		tris[i] = collision.NewTriangle(vec(t[0]), vec(t[1]), vec(t[2]))
	}
	return tris, nil
}

// quadTriangles splits a-b-c-d into two triangles.
func quadTriangles(a, b, c, d math.Vec3) []collision.Triangle {
	return []collision.Triangle{
		collision.NewTriangle(a, b, c),
		collision.NewTriangle(a, c, d),
	}
}

func boxTriangles(lo, hi math.Vec3) []collision.Triangle {
	b := collision.NewAABB(lo, hi)
	lo, hi = b.Min, b.Max

	p := func(x, y, z float32) math.Vec3 { return math.Vec3{X: x, Y: y, Z: z} }
	var tris []collision.Triangle
	for _, face := range [][4]math.Vec3{
		{p(lo.X, lo.Y, lo.Z), p(hi.X, lo.Y, lo.Z), p(hi.X, lo.Y, hi.Z), p(lo.X, lo.Y, hi.Z)}, // bottom
		{p(lo.X, hi.Y, lo.Z), p(lo.X, hi.Y, hi.Z), p(hi.X, hi.Y, hi.Z), p(hi.X, hi.Y, lo.Z)}, // top
		{p(lo.X, lo.Y, lo.Z), p(lo.X, hi.Y, lo.Z), p(hi.X, hi.Y, lo.Z), p(hi.X, lo.Y, lo.Z)}, // front
		{p(lo.X, lo.Y, hi.Z), p(hi.X, lo.Y, hi.Z), p(hi.X, hi.Y, hi.Z), p(lo.X, hi.Y, hi.Z)}, // back
		{p(lo.X, lo.Y, lo.Z), p(lo.X, lo.Y, hi.Z), p(lo.X, hi.Y, hi.Z), p(lo.X, hi.Y, lo.Z)}, // left
		{p(hi.X, lo.Y, lo.Z), p(hi.X, hi.Y, lo.Z), p(hi.X, hi.Y, hi.Z), p(hi.X, lo.Y, hi.Z)}, // right
	} {
		tris = append(tris, quadTriangles(face[0], face[1], face[2], face[3])...)
	}
	return tris
}

func vec(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}
