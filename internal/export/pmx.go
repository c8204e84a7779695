// Package export turns a finalized run into PMX and VMD files, plus an
// optional msgpack dump for inspection.
package export

import (
	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/pkg/formats"
	"github.com/Faultbox/curtainfire/pkg/math"
)

const boneFlags = formats.PMXBoneRotatable | formats.PMXBoneMovable | formats.PMXBoneVisible | formats.PMXBoneEnabled

// ToPMX converts an aggregated model.
func ToPMX(m *shotmodel.Model, name, comment string) *formats.PMX {
	out := &formats.PMX{
		Header: formats.PMXHeader{
			Encoding: formats.PMXEncodingUTF16LE,
			Name:     name,
			Comment:  comment,
		},
		Vertices:  make([]formats.PMXVertex, len(m.Vertices)),
		Indices:   make([]int32, len(m.Indices)),
		Textures:  append([]string(nil), m.Textures...),
		Materials: make([]formats.PMXMaterial, len(m.Materials)),
		Bones:     make([]formats.PMXBone, len(m.Bones)),
		Morphs:    make([]formats.PMXMorph, len(m.Morphs)),
		Frames:    make([]formats.PMXFrame, len(m.Frames)),
		Rigids:    make([]formats.PMXRigid, len(m.Rigids)),
	}

	for i, v := range m.Vertices {
		out.Vertices[i] = formats.PMXVertex{
			Position:  vec3(v.Pos),
			Normal:    vec3(v.Normal),
			UV:        [2]float32{v.UV.X, v.UV.Y},
			Deform:    formats.PMXDeformBDEF1,
			Bones:     [4]int32{int32(v.Bone)},
			Weights:   [4]float32{1},
			EdgeScale: 1,
		}
	}
	for i, idx := range m.Indices {
		out.Indices[i] = int32(idx)
	}

	for i, mat := range m.Materials {
		out.Materials[i] = formats.PMXMaterial{
			Name:             mat.Name,
			Diffuse:          mat.Diffuse,
			Specular:         mat.Specular,
			SpecularStrength: mat.Shininess,
			Ambient:          mat.Ambient,
			Flags:            mat.DrawFlags,
			EdgeColor:        mat.EdgeColor,
			EdgeSize:         mat.EdgeSize,
			TextureIndex:     int32(mat.Texture),
			SphereIndex:      int32(mat.Sphere),
			SphereMode:       mat.SphereMode,
			SharedToon:       mat.SharedToon,
			ToonIndex:        int32(mat.Toon),
			Memo:             mat.Memo,
			IndexCount:       int32(mat.FaceCount),
		}
	}

	for i, b := range m.Bones {
		out.Bones[i] = formats.PMXBone{
			Name:     b.Name,
			Position: vec3(b.Pos),
			Parent:   int32(b.Parent),
			Flags:    boneFlags,
			TailBone: -1,
		}
	}

	for i, mo := range m.Morphs {
		pm := formats.PMXMorph{
			Name:          mo.Name,
			Panel:         formats.PMXPanelOther,
			Type:          formats.PMXMorphVertex,
			VertexOffsets: make([]formats.PMXVertexOffset, len(mo.Offsets)),
		}
		for j, o := range mo.Offsets {
			pm.VertexOffsets[j] = formats.PMXVertexOffset{Vertex: int32(o.Vertex), Offset: vec3(o.Offset)}
		}
		out.Morphs[i] = pm
	}

	for i, f := range m.Frames {
		pf := formats.PMXFrame{
			Name:     f.Name,
			Special:  f.Special,
			Elements: make([]formats.PMXFrameElement, len(f.Indices)),
		}
		for j, idx := range f.Indices {
			pf.Elements[j] = formats.PMXFrameElement{Morph: f.Kind == shotmodel.FrameMorphs, Index: int32(idx)}
		}
		out.Frames[i] = pf
	}

	for i, r := range m.Rigids {
		out.Rigids[i] = formats.PMXRigid{
			Name:            r.Name,
			Bone:            int32(r.Bone),
			Group:           r.Group,
			NoCollisionMask: r.Mask,
			Shape:           r.Shape,
			Size:            vec3(r.Size),
			Position:        vec3(r.Pos),
			Rotation:        vec3(r.Rot),
			Mass:            r.Mass,
			LinearDamping:   r.LinearDamping,
			AngularDamping:  r.AngularDamping,
			Restitution:     r.Restitution,
			Friction:        r.Friction,
			Mode:            r.Mode,
		}
	}

	return out
}

func vec3(v math.Vec3) [3]float32 {
	return v.Array()
}
