package shotmodel

import (
	"github.com/Faultbox/curtainfire/pkg/math"
)

// MorphOffset moves one model vertex.
type MorphOffset struct {
	Vertex int
	Offset math.Vec3
}

// Morph is a flattened vertex morph.
type Morph struct {
	Name    string
	Offsets []MorphOffset
}

// FrameKind tells what a display frame lists.
type FrameKind uint8

// Display frame kinds.
const (
	FrameBones FrameKind = iota
	FrameMorphs
)

// DisplayFrame groups bones or morphs for the editor's display panel.
type DisplayFrame struct {
	Name    string
	Special bool
	Kind    FrameKind
	Indices []int
}

// Model is the flattened result of a run. Vertex bones, material textures
// and rigid bones are global indices.
type Model struct {
	Bones     []GlobalBone
	Vertices  []Vertex
	Indices   []int
	Materials []Material
	Textures  []string
	Morphs    []Morph
	Rigids    []Rigid
	Frames    []DisplayFrame
}

// Bounds returns the axis-aligned bounds of all vertices.
func (m *Model) Bounds() (lo, hi math.Vec3) {
	if len(m.Vertices) == 0 {
		return lo, hi
	}
	lo, hi = m.Vertices[0].Pos, m.Vertices[0].Pos
	for _, v := range m.Vertices[1:] {
		lo = math.Vec3{X: min(lo.X, v.Pos.X), Y: min(lo.Y, v.Pos.Y), Z: min(lo.Z, v.Pos.Z)}
		hi = math.Vec3{X: max(hi.X, v.Pos.X), Y: max(hi.Y, v.Pos.Y), Z: max(hi.Z, v.Pos.Z)}
	}
	return lo, hi
}
