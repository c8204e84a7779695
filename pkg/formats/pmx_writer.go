package formats

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/curtainfire/pkg/encoding"
)

// WritePMX writes m as PMX 2.0. Index sizes are chosen from the element
// counts; the header's own sizes are ignored.
func WritePMX(w io.Writer, m *PMX) error {
	h := m.Header
	h.Version = 2.0
	h.VertexIndexSize = vertexIndexSize(len(m.Vertices))
	h.TextureIndexSize = indexSize(len(m.Textures))
	h.MaterialIndexSize = indexSize(len(m.Materials))
	h.BoneIndexSize = indexSize(len(m.Bones))
	h.MorphIndexSize = indexSize(len(m.Morphs))
	h.RigidIndexSize = indexSize(len(m.Rigids))

	if err := m.validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	p := &pmxWriter{binWriter: binWriter{w: bw}, h: h}
	p.write(pmxMagic)
	p.write(h.Version)
	p.write(uint8(8))
	p.write([8]uint8{
		uint8(h.Encoding), h.AdditionalUV,
		h.VertexIndexSize, h.TextureIndexSize, h.MaterialIndexSize,
		h.BoneIndexSize, h.MorphIndexSize, h.RigidIndexSize,
	})
	p.text(h.Name)
	p.text(h.NameEnglish)
	p.text(h.Comment)
	p.text(h.CommentEnglish)

	p.write(int32(len(m.Vertices)))
	for _, v := range m.Vertices {
		p.vertex(v)
	}

	p.write(int32(len(m.Indices)))
	for _, i := range m.Indices {
		p.vertexIndex(i)
	}

	p.write(int32(len(m.Textures)))
	for _, t := range m.Textures {
		p.text(t)
	}

	p.write(int32(len(m.Materials)))
	for _, mat := range m.Materials {
		p.material(mat)
	}

	p.write(int32(len(m.Bones)))
	for _, b := range m.Bones {
		p.bone(b)
	}

	p.write(int32(len(m.Morphs)))
	for _, mo := range m.Morphs {
		p.morph(mo)
	}

	p.write(int32(len(m.Frames)))
	for _, f := range m.Frames {
		p.frame(f)
	}

	p.write(int32(len(m.Rigids)))
	for _, r := range m.Rigids {
		p.rigid(r)
	}

	p.write(int32(len(m.Joints)))
	for _, j := range m.Joints {
		p.joint(j)
	}

	if p.err != nil {
		return fmt.Errorf("writing PMX: %w", p.err)
	}
	return bw.Flush()
}

// WritePMXFile writes m to path.
func WritePMXFile(path string, m *PMX) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating PMX file: %w", err)
	}
	if err := WritePMX(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// validate checks the references a reader would trip over.
func (m *PMX) validate() error {
	var faces int32
	for i, mat := range m.Materials {
		if mat.IndexCount < 0 || mat.IndexCount%3 != 0 {
			return fmt.Errorf("%w: material %d index count %d", ErrInvalidPMXData, i, mat.IndexCount)
		}
		faces += mat.IndexCount
	}
	if int(faces) != len(m.Indices) {
		return fmt.Errorf("%w: materials cover %d indices, have %d", ErrInvalidPMXData, faces, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if idx < 0 || int(idx) >= len(m.Vertices) {
			return fmt.Errorf("%w: index %d = %d out of range", ErrInvalidPMXData, i, idx)
		}
	}
	for i, v := range m.Vertices {
		if len(v.AdditionalUV) != int(m.Header.AdditionalUV) {
			return fmt.Errorf("%w: vertex %d has %d additional uvs", ErrInvalidPMXData, i, len(v.AdditionalUV))
		}
	}
	return nil
}

// indexSize is the smallest signed index width that holds n-1 and -1.
func indexSize(n int) uint8 {
	switch {
	case n < 1<<7:
		return 1
	case n < 1<<15:
		return 2
	default:
		return 4
	}
}

// vertexIndexSize is the smallest unsigned width that holds n-1.
func vertexIndexSize(n int) uint8 {
	switch {
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}

type pmxWriter struct {
	binWriter
	h PMXHeader
}

func (p *pmxWriter) text(s string) {
	var b []byte
	if p.h.Encoding == PMXEncodingUTF8 {
		b = []byte(s)
	} else {
		var err error
		if b, err = encoding.UTF8ToUTF16LE(s); err != nil && p.err == nil {
			p.err = err
		}
	}
	p.write(int32(len(b)))
	p.raw(b)
}

func (p *pmxWriter) index(size uint8, v int32) {
	switch size {
	case 1:
		p.write(int8(v))
	case 2:
		p.write(int16(v))
	default:
		p.write(v)
	}
}

func (p *pmxWriter) vertexIndex(v int32) {
	switch p.h.VertexIndexSize {
	case 1:
		p.write(uint8(v))
	case 2:
		p.write(uint16(v))
	default:
		p.write(v)
	}
}

func (p *pmxWriter) boneIndex(v int32) { p.index(p.h.BoneIndexSize, v) }

func (p *pmxWriter) vertex(v PMXVertex) {
	p.write(v.Position)
	p.write(v.Normal)
	p.write(v.UV)
	for _, uv := range v.AdditionalUV {
		p.write(uv)
	}

	p.write(v.Deform)
	switch v.Deform {
	case PMXDeformBDEF1:
		p.boneIndex(v.Bones[0])
	case PMXDeformBDEF2:
		p.boneIndex(v.Bones[0])
		p.boneIndex(v.Bones[1])
		p.write(v.Weights[0])
	case PMXDeformBDEF4:
		for _, b := range v.Bones {
			p.boneIndex(b)
		}
		p.write(v.Weights)
	case PMXDeformSDEF:
		p.boneIndex(v.Bones[0])
		p.boneIndex(v.Bones[1])
		p.write(v.Weights[0])
		p.write(v.SDEF)
	default:
		if p.err == nil {
			p.err = fmt.Errorf("%w: deform type %d", ErrInvalidPMXData, v.Deform)
		}
	}
	p.write(v.EdgeScale)
}

func (p *pmxWriter) material(m PMXMaterial) {
	p.text(m.Name)
	p.text(m.NameEnglish)
	p.write(m.Diffuse)
	p.write(m.Specular)
	p.write(m.SpecularStrength)
	p.write(m.Ambient)
	p.write(m.Flags)
	p.write(m.EdgeColor)
	p.write(m.EdgeSize)
	p.index(p.h.TextureIndexSize, m.TextureIndex)
	p.index(p.h.TextureIndexSize, m.SphereIndex)
	p.write(m.SphereMode)
	if m.SharedToon {
		p.write(uint8(1))
		p.write(uint8(m.ToonIndex))
	} else {
		p.write(uint8(0))
		p.index(p.h.TextureIndexSize, m.ToonIndex)
	}
	p.text(m.Memo)
	p.write(m.IndexCount)
}

func (p *pmxWriter) bone(b PMXBone) {
	p.text(b.Name)
	p.text(b.NameEnglish)
	p.write(b.Position)
	p.boneIndex(b.Parent)
	p.write(b.Layer)

	flags := b.Flags
	if b.IK != nil {
		flags |= PMXBoneIK
	} else {
		flags &^= PMXBoneIK
	}
	p.write(flags)

	if flags&PMXBoneTailIsBone != 0 {
		p.boneIndex(b.TailBone)
	} else {
		p.write(b.TailPosition)
	}
	if flags&(PMXBoneInheritRotation|PMXBoneInheritTranslation) != 0 {
		p.boneIndex(b.InheritParent)
		p.write(b.InheritWeight)
	}
	if flags&PMXBoneFixedAxis != 0 {
		p.write(b.FixedAxis)
	}
	if flags&PMXBoneLocalAxis != 0 {
		p.write(b.LocalX)
		p.write(b.LocalZ)
	}
	if flags&PMXBoneExternalParent != 0 {
		p.write(b.ExternalKey)
	}
	if b.IK != nil {
		p.boneIndex(b.IK.Target)
		p.write(b.IK.Loops)
		p.write(b.IK.LimitAngle)
		p.write(int32(len(b.IK.Links)))
		for _, l := range b.IK.Links {
			p.boneIndex(l.Bone)
			if l.HasLimits {
				p.write(uint8(1))
				p.write(l.Min)
				p.write(l.Max)
			} else {
				p.write(uint8(0))
			}
		}
	}
}

func (p *pmxWriter) morph(m PMXMorph) {
	if m.Type != PMXMorphVertex {
		if p.err == nil {
			p.err = fmt.Errorf("%w: cannot write morph type %d", ErrInvalidPMXData, m.Type)
		}
		return
	}
	p.text(m.Name)
	p.text(m.NameEnglish)
	p.write(m.Panel)
	p.write(m.Type)
	p.write(int32(len(m.VertexOffsets)))
	for _, o := range m.VertexOffsets {
		p.vertexIndex(o.Vertex)
		p.write(o.Offset)
	}
}

func (p *pmxWriter) frame(f PMXFrame) {
	p.text(f.Name)
	p.text(f.NameEnglish)
	p.write(boolByte(f.Special))
	p.write(int32(len(f.Elements)))
	for _, e := range f.Elements {
		p.write(boolByte(e.Morph))
		if e.Morph {
			p.index(p.h.MorphIndexSize, e.Index)
		} else {
			p.boneIndex(e.Index)
		}
	}
}

func (p *pmxWriter) rigid(r PMXRigid) {
	p.text(r.Name)
	p.text(r.NameEnglish)
	p.boneIndex(r.Bone)
	p.write(r.Group)
	p.write(r.NoCollisionMask)
	p.write(r.Shape)
	p.write(r.Size)
	p.write(r.Position)
	p.write(r.Rotation)
	p.write([5]float32{r.Mass, r.LinearDamping, r.AngularDamping, r.Restitution, r.Friction})
	p.write(r.Mode)
}

func (p *pmxWriter) joint(j PMXJoint) {
	p.text(j.Name)
	p.text(j.NameEnglish)
	p.write(j.Type)
	p.index(p.h.RigidIndexSize, j.RigidA)
	p.index(p.h.RigidIndexSize, j.RigidB)
	p.write([8][3]float32{j.Position, j.Rotation, j.PosMin, j.PosMax, j.RotMin, j.RotMax, j.PosSpring, j.RotSpring})
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
