package shotmodel

import (
	"fmt"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// NoParent is the parent id of shots without a parent shot.
const NoParent = -1

// noOwner marks a vacated group.
const noOwner = -1

// VertexMorph moves every vertex of one block by a fixed offset.
// Offsets is indexed like the block's vertices.
type VertexMorph struct {
	Name    string
	Offsets []math.Vec3
}

// Data is one pooled mesh/bone/morph fragment. It is never freed; when its
// shot dies it is handed to the next shot with the same pool key.
type Data struct {
	ID       int
	Property Property
	Geometry *Geometry

	// BoneOffset is the global index of local bone 0, the shot's root bone.
	BoneOffset int

	morphs     map[string]*VertexMorph
	morphOrder []string
	// scripted maps script morph names to model-wide names.
	scripted map[string]string
	frozen   bool
}

// RootBone returns the global index of the block's root bone.
func (d *Data) RootBone() int {
	return d.BoneOffset
}

// RootBoneName returns the name of the block's root bone.
func (d *Data) RootBoneName() string {
	return BoneName(d.BoneOffset)
}

// FadeMorph returns the name of the morph that hides the block, or "" for
// bone-only geometry.
func (d *Data) FadeMorph() string {
	if !d.Geometry.HasMesh() {
		return ""
	}
	return fmt.Sprintf("F%d", d.ID)
}

// MorphName returns the model-wide name of the script morph created as
// name. Model-wide names are short enough for the VMD name field.
func (d *Data) MorphName(name string) (string, bool) {
	global, ok := d.scripted[name]
	return global, ok
}

// VertexMorph returns a morph by its global name.
func (d *Data) VertexMorph(name string) (*VertexMorph, bool) {
	m, ok := d.morphs[name]
	return m, ok
}

// Morphs returns the block's morphs in creation order.
func (d *Data) Morphs() []*VertexMorph {
	out := make([]*VertexMorph, 0, len(d.morphOrder))
	for _, n := range d.morphOrder {
		out = append(out, d.morphs[n])
	}
	return out
}

// AddVertexMorph creates a morph whose offsets are fn(vertex position).
// The morph is named M<block>_<n>; MorphName maps name to it. Adding an
// existing name returns the existing morph and created=false.
func (d *Data) AddVertexMorph(name string, fn func(pos math.Vec3) math.Vec3) (m *VertexMorph, created bool, err error) {
	if d.frozen {
		return nil, false, ErrPoolFinalized
	}
	if global, ok := d.scripted[name]; ok {
		return d.morphs[global], false, nil
	}

	global := fmt.Sprintf("M%d_%d", d.ID, len(d.scripted))
	m = &VertexMorph{Name: global, Offsets: make([]math.Vec3, len(d.Geometry.Vertices))}
	for i, v := range d.Geometry.Vertices {
		m.Offsets[i] = fn(v.Pos)
	}
	if d.morphs == nil {
		d.morphs = make(map[string]*VertexMorph)
	}
	if d.scripted == nil {
		d.scripted = make(map[string]string)
	}
	d.morphs[global] = m
	d.morphOrder = append(d.morphOrder, global)
	d.scripted[name] = global
	return m, true, nil
}

// addFadeMorph collapses every vertex onto its bone.
func (d *Data) addFadeMorph() {
	name := d.FadeMorph()
	if name == "" {
		return
	}
	m := &VertexMorph{Name: name, Offsets: make([]math.Vec3, len(d.Geometry.Vertices))}
	for i, v := range d.Geometry.Vertices {
		m.Offsets[i] = d.Geometry.Bones[v.Bone].Pos.Sub(v.Pos)
	}
	d.morphs = map[string]*VertexMorph{name: m}
	d.morphOrder = []string{name}
}

// Group pairs a Data block with the shot currently occupying it and the
// parent under which it was created.
type Group struct {
	Data     *Data
	Owner    int
	ParentID int
}

// Key returns the pool key of the group.
func (g *Group) Key() Key {
	return Key{Property: g.Data.Property, ParentID: g.ParentID}
}

// Vacant reports whether no shot occupies the group.
func (g *Group) Vacant() bool {
	return g.Owner == noOwner
}

// Key selects reusable groups: same property under the same parent shot.
type Key struct {
	Property Property
	ParentID int
}

// BoneName returns the model-wide name of the bone at a global index.
func BoneName(global int) string {
	if global == 0 {
		return RootBoneName
	}
	return fmt.Sprintf("B%d", global-1)
}

// RootBoneName is the name of bone 0, the model root.
const RootBoneName = "センター"
