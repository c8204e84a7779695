package shottype

import (
	"fmt"

	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/pkg/formats"
	"github.com/Faultbox/curtainfire/pkg/math"
)

// buildPMX imports a PMX model as shot geometry, scaled by t.Size. Each
// vertex follows its most heavily weighted bone.
func buildPMX(t Template) (*shotmodel.Geometry, error) {
	m, err := formats.ParsePMXFile(t.Model)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}
	return pmxGeometry(m, t.Name, t.Size), nil
}

func pmxGeometry(m *formats.PMX, name string, size float32) *shotmodel.Geometry {
	g := &shotmodel.Geometry{
		Bones:     make([]shotmodel.Bone, len(m.Bones)),
		Vertices:  make([]shotmodel.Vertex, len(m.Vertices)),
		Indices:   make([]int, len(m.Indices)),
		Materials: make([]shotmodel.Material, len(m.Materials)),
		Textures:  append([]string(nil), m.Textures...),
		Rigids:    make([]shotmodel.Rigid, len(m.Rigids)),
	}

	for i, b := range m.Bones {
		parent := int(b.Parent)
		if parent < 0 || parent >= len(m.Bones) {
			parent = -1
		}
		g.Bones[i] = shotmodel.Bone{Name: b.Name, Pos: vec(b.Position).Scale(size), Parent: parent}
	}
	if len(g.Bones) == 0 {
		g.Bones = []shotmodel.Bone{{Name: name, Parent: -1}}
	}

	for i, v := range m.Vertices {
		bone := int(v.DominantBone())
		if bone < 0 || bone >= len(g.Bones) {
			bone = 0
		}
		g.Vertices[i] = shotmodel.Vertex{
			Pos:    vec(v.Position).Scale(size),
			Normal: vec(v.Normal),
			UV:     math.Vec2{X: v.UV[0], Y: v.UV[1]},
			Bone:   bone,
		}
	}
	for i, idx := range m.Indices {
		g.Indices[i] = int(idx)
	}

	for i, mat := range m.Materials {
		g.Materials[i] = shotmodel.Material{
			Name:       mat.Name,
			Diffuse:    mat.Diffuse,
			Specular:   mat.Specular,
			Shininess:  mat.SpecularStrength,
			Ambient:    mat.Ambient,
			DrawFlags:  mat.Flags,
			EdgeColor:  mat.EdgeColor,
			EdgeSize:   mat.EdgeSize,
			Texture:    int(mat.TextureIndex),
			Sphere:     int(mat.SphereIndex),
			SphereMode: mat.SphereMode,
			Toon:       int(mat.ToonIndex),
			SharedToon: mat.SharedToon,
			Memo:       mat.Memo,
			FaceCount:  int(mat.IndexCount),
		}
	}

	for i, r := range m.Rigids {
		bone := int(r.Bone)
		if bone < 0 || bone >= len(g.Bones) {
			bone = 0
		}
		g.Rigids[i] = shotmodel.Rigid{
			Name:           r.Name,
			Bone:           bone,
			Group:          r.Group,
			Mask:           r.NoCollisionMask,
			Shape:          r.Shape,
			Size:           vec(r.Size).Scale(size),
			Pos:            vec(r.Position).Scale(size),
			Rot:            vec(r.Rotation),
			Mass:           r.Mass,
			LinearDamping:  r.LinearDamping,
			AngularDamping: r.AngularDamping,
			Restitution:    r.Restitution,
			Friction:       r.Friction,
			Mode:           r.Mode,
		}
	}
	return g
}

func vec(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}
