package formats

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/Faultbox/curtainfire/pkg/encoding"
)

// PMX format errors.
var (
	ErrInvalidPMXMagic       = errors.New("invalid PMX magic: expected 'PMX '")
	ErrUnsupportedPMXVersion = errors.New("unsupported PMX version")
	ErrTruncatedPMXData      = errors.New("truncated PMX data")
	ErrInvalidPMXData        = errors.New("invalid PMX data")
)

var pmxMagic = [4]byte{'P', 'M', 'X', ' '}

// PMXEncoding is the text encoding of every string in the file.
type PMXEncoding uint8

const (
	PMXEncodingUTF16LE PMXEncoding = 0
	PMXEncodingUTF8    PMXEncoding = 1
)

// Vertex deform types.
const (
	PMXDeformBDEF1 uint8 = 0
	PMXDeformBDEF2 uint8 = 1
	PMXDeformBDEF4 uint8 = 2
	PMXDeformSDEF  uint8 = 3
)

// Bone flags.
const (
	PMXBoneTailIsBone         uint16 = 0x0001
	PMXBoneRotatable          uint16 = 0x0002
	PMXBoneMovable            uint16 = 0x0004
	PMXBoneVisible            uint16 = 0x0008
	PMXBoneEnabled            uint16 = 0x0010
	PMXBoneIK                 uint16 = 0x0020
	PMXBoneInheritRotation    uint16 = 0x0100
	PMXBoneInheritTranslation uint16 = 0x0200
	PMXBoneFixedAxis          uint16 = 0x0400
	PMXBoneLocalAxis          uint16 = 0x0800
	PMXBonePhysicsAfterDeform uint16 = 0x1000
	PMXBoneExternalParent     uint16 = 0x2000
)

// Morph types.
const (
	PMXMorphGroup    uint8 = 0
	PMXMorphVertex   uint8 = 1
	PMXMorphBone     uint8 = 2
	PMXMorphUV       uint8 = 3
	PMXMorphUVExt4   uint8 = 7
	PMXMorphMaterial uint8 = 8
)

// Morph panels.
const (
	PMXPanelSystem  uint8 = 0
	PMXPanelEyebrow uint8 = 1
	PMXPanelEye     uint8 = 2
	PMXPanelMouth   uint8 = 3
	PMXPanelOther   uint8 = 4
)

// PMXHeader holds the globals and model info. The index sizes are filled
// in by the parser; the writer computes its own.
type PMXHeader struct {
	Version      float32
	Encoding     PMXEncoding
	AdditionalUV uint8

	VertexIndexSize   uint8
	TextureIndexSize  uint8
	MaterialIndexSize uint8
	BoneIndexSize     uint8
	MorphIndexSize    uint8
	RigidIndexSize    uint8

	Name           string
	NameEnglish    string
	Comment        string
	CommentEnglish string
}

// PMXVertex is a skinned vertex. Bones and Weights hold as many entries as
// the deform type uses.
type PMXVertex struct {
	Position     [3]float32
	Normal       [3]float32
	UV           [2]float32
	AdditionalUV [][4]float32
	Deform       uint8
	Bones        [4]int32
	Weights      [4]float32
	SDEF         [3][3]float32 // C, R0, R1
	EdgeScale    float32
}

// DominantBone returns the bone with the largest weight.
func (v PMXVertex) DominantBone() int32 {
	switch v.Deform {
	case PMXDeformBDEF1:
		return v.Bones[0]
	case PMXDeformBDEF2, PMXDeformSDEF:
		if v.Weights[0] >= 0.5 {
			return v.Bones[0]
		}
		return v.Bones[1]
	}
	best := 0
	for i := 1; i < 4; i++ {
		if v.Weights[i] > v.Weights[best] {
			best = i
		}
	}
	return v.Bones[best]
}

// PMXMaterial is one draw range. IndexCount is the number of vertex
// indices it covers.
type PMXMaterial struct {
	Name             string
	NameEnglish      string
	Diffuse          [4]float32
	Specular         [3]float32
	SpecularStrength float32
	Ambient          [3]float32
	Flags            uint8
	EdgeColor        [4]float32
	EdgeSize         float32
	TextureIndex     int32
	SphereIndex      int32
	SphereMode       uint8
	SharedToon       bool
	ToonIndex        int32 // texture index, or 0-9 when SharedToon
	Memo             string
	IndexCount       int32
}

// PMXIKLink is one link of an IK chain.
type PMXIKLink struct {
	Bone      int32
	HasLimits bool
	Min       [3]float32
	Max       [3]float32
}

// PMXIK is the IK setup of a bone.
type PMXIK struct {
	Target     int32
	Loops      int32
	LimitAngle float32
	Links      []PMXIKLink
}

// PMXBone is a bone. Which optional fields are meaningful depends on Flags.
type PMXBone struct {
	Name          string
	NameEnglish   string
	Position      [3]float32
	Parent        int32
	Layer         int32
	Flags         uint16
	TailPosition  [3]float32
	TailBone      int32
	InheritParent int32
	InheritWeight float32
	FixedAxis     [3]float32
	LocalX        [3]float32
	LocalZ        [3]float32
	ExternalKey   int32
	IK            *PMXIK
}

// PMXVertexOffset is one entry of a vertex morph.
type PMXVertexOffset struct {
	Vertex int32
	Offset [3]float32
}

// PMXMorph is a morph. Only vertex morph offsets are kept; other kinds are
// parsed past and counted.
type PMXMorph struct {
	Name          string
	NameEnglish   string
	Panel         uint8
	Type          uint8
	VertexOffsets []PMXVertexOffset
	OtherOffsets  int
}

// PMXFrameElement references a bone or a morph.
type PMXFrameElement struct {
	Morph bool
	Index int32
}

// PMXFrame is a display frame.
type PMXFrame struct {
	Name        string
	NameEnglish string
	Special     bool
	Elements    []PMXFrameElement
}

// PMXRigid is a rigid body.
type PMXRigid struct {
	Name            string
	NameEnglish     string
	Bone            int32
	Group           uint8
	NoCollisionMask uint16
	Shape           uint8
	Size            [3]float32
	Position        [3]float32
	Rotation        [3]float32
	Mass            float32
	LinearDamping   float32
	AngularDamping  float32
	Restitution     float32
	Friction        float32
	Mode            uint8
}

// PMXJoint is a spring joint between two rigid bodies.
type PMXJoint struct {
	Name        string
	NameEnglish string
	Type        uint8
	RigidA      int32
	RigidB      int32
	Position    [3]float32
	Rotation    [3]float32
	PosMin      [3]float32
	PosMax      [3]float32
	RotMin      [3]float32
	RotMax      [3]float32
	PosSpring   [3]float32
	RotSpring   [3]float32
}

// PMX is a parsed or to-be-written PMX model.
type PMX struct {
	Header    PMXHeader
	Vertices  []PMXVertex
	Indices   []int32
	Textures  []string
	Materials []PMXMaterial
	Bones     []PMXBone
	Morphs    []PMXMorph
	Frames    []PMXFrame
	Rigids    []PMXRigid
	Joints    []PMXJoint
}

// ParsePMX parses PMX 2.0 data from a byte slice.
func ParsePMX(data []byte) (*PMX, error) {
	if len(data) < 9 {
		return nil, ErrTruncatedPMXData
	}

	p := &pmxParser{binReader: newBinReader(data)}
	m, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		if p.truncated() {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedPMXData, p.err)
		}
		return nil, p.err
	}
	return m, nil
}

// ParsePMXFile parses a PMX file from disk.
func ParsePMXFile(path string) (*PMX, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PMX file: %w", err)
	}
	return ParsePMX(data)
}

type pmxParser struct {
	*binReader
	h PMXHeader
}

func (p *pmxParser) parse() (*PMX, error) {
	var magic [4]byte
	p.read(&magic)
	if p.err == nil && magic != pmxMagic {
		return nil, ErrInvalidPMXMagic
	}

	h := &p.h
	h.Version = p.f32()
	if p.err == nil && h.Version != 2.0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPMXVersion, h.Version)
	}

	globals := p.bytes(int(p.u8()))
	if p.err != nil {
		return nil, p.err
	}
	if len(globals) < 8 {
		return nil, fmt.Errorf("%w: %d globals", ErrInvalidPMXData, len(globals))
	}
	h.Encoding = PMXEncoding(globals[0])
	h.AdditionalUV = globals[1]
	h.VertexIndexSize = globals[2]
	h.TextureIndexSize = globals[3]
	h.MaterialIndexSize = globals[4]
	h.BoneIndexSize = globals[5]
	h.MorphIndexSize = globals[6]
	h.RigidIndexSize = globals[7]
	if h.Encoding > PMXEncodingUTF8 || h.AdditionalUV > 4 {
		return nil, fmt.Errorf("%w: encoding %d, additional uv %d", ErrInvalidPMXData, h.Encoding, h.AdditionalUV)
	}
	for _, s := range globals[2:8] {
		if s != 1 && s != 2 && s != 4 {
			return nil, fmt.Errorf("%w: index size %d", ErrInvalidPMXData, s)
		}
	}

	h.Name = p.text()
	h.NameEnglish = p.text()
	h.Comment = p.text()
	h.CommentEnglish = p.text()

	m := &PMX{Header: *h}

	m.Vertices = make([]PMXVertex, p.count(1))
	for i := range m.Vertices {
		m.Vertices[i] = p.vertex()
	}

	m.Indices = make([]int32, p.count(int(h.VertexIndexSize)))
	for i := range m.Indices {
		m.Indices[i] = p.vertexIndex()
	}

	m.Textures = make([]string, p.count(4))
	for i := range m.Textures {
		m.Textures[i] = p.text()
	}

	m.Materials = make([]PMXMaterial, p.count(1))
	for i := range m.Materials {
		m.Materials[i] = p.material()
	}

	m.Bones = make([]PMXBone, p.count(1))
	for i := range m.Bones {
		m.Bones[i] = p.bone()
	}

	m.Morphs = make([]PMXMorph, p.count(1))
	for i := range m.Morphs {
		mo, err := p.morph()
		if err != nil {
			return nil, fmt.Errorf("morph %d: %w", i, err)
		}
		m.Morphs[i] = mo
	}

	m.Frames = make([]PMXFrame, p.count(1))
	for i := range m.Frames {
		m.Frames[i] = p.frame()
	}

	m.Rigids = make([]PMXRigid, p.count(1))
	for i := range m.Rigids {
		m.Rigids[i] = p.rigid()
	}

	// Joints are optional at the end of the file
	if p.err == nil && p.r.Len() >= 4 {
		m.Joints = make([]PMXJoint, p.count(1))
		for i := range m.Joints {
			m.Joints[i] = p.joint()
		}
	}

	return m, nil
}

func (p *pmxParser) text() string {
	n := p.i32()
	b := p.bytes(int(n))
	if p.err != nil {
		return ""
	}
	if p.h.Encoding == PMXEncodingUTF8 {
		if !utf8.Valid(b) {
			p.err = fmt.Errorf("%w: text is not UTF-8", ErrInvalidPMXData)
			return ""
		}
		return string(b)
	}
	s, err := encoding.UTF16LEToUTF8(b)
	if err != nil {
		p.err = fmt.Errorf("%w: %v", ErrInvalidPMXData, err)
	}
	return s
}

// index reads a signed index of the given size.
func (p *pmxParser) index(size uint8) int32 {
	switch size {
	case 1:
		var v int8
		p.read(&v)
		return int32(v)
	case 2:
		var v int16
		p.read(&v)
		return int32(v)
	default:
		return p.i32()
	}
}

// vertexIndex reads a vertex index; 1 and 2 byte sizes are unsigned.
func (p *pmxParser) vertexIndex() int32 {
	switch p.h.VertexIndexSize {
	case 1:
		return int32(p.u8())
	case 2:
		return int32(p.u16())
	default:
		return p.i32()
	}
}

func (p *pmxParser) boneIndex() int32 { return p.index(p.h.BoneIndexSize) }

func (p *pmxParser) vertex() PMXVertex {
	v := PMXVertex{
		Position: p.vec3(),
		Normal:   p.vec3(),
		UV:       p.vec2(),
	}
	for i := 0; i < int(p.h.AdditionalUV); i++ {
		v.AdditionalUV = append(v.AdditionalUV, p.vec4())
	}

	v.Deform = p.u8()
	switch v.Deform {
	case PMXDeformBDEF1:
		v.Bones[0] = p.boneIndex()
		v.Weights[0] = 1
	case PMXDeformBDEF2:
		v.Bones[0], v.Bones[1] = p.boneIndex(), p.boneIndex()
		v.Weights[0] = p.f32()
		v.Weights[1] = 1 - v.Weights[0]
	case PMXDeformBDEF4:
		for i := range 4 {
			v.Bones[i] = p.boneIndex()
		}
		for i := range 4 {
			v.Weights[i] = p.f32()
		}
	case PMXDeformSDEF:
		v.Bones[0], v.Bones[1] = p.boneIndex(), p.boneIndex()
		v.Weights[0] = p.f32()
		v.Weights[1] = 1 - v.Weights[0]
		for i := range 3 {
			v.SDEF[i] = p.vec3()
		}
	default:
		if p.err == nil {
			p.err = fmt.Errorf("%w: deform type %d", ErrInvalidPMXData, v.Deform)
		}
	}
	v.EdgeScale = p.f32()
	return v
}

func (p *pmxParser) material() PMXMaterial {
	m := PMXMaterial{
		Name:             p.text(),
		NameEnglish:      p.text(),
		Diffuse:          p.vec4(),
		Specular:         p.vec3(),
		SpecularStrength: p.f32(),
		Ambient:          p.vec3(),
		Flags:            p.u8(),
		EdgeColor:        p.vec4(),
		EdgeSize:         p.f32(),
		TextureIndex:     p.index(p.h.TextureIndexSize),
		SphereIndex:      p.index(p.h.TextureIndexSize),
		SphereMode:       p.u8(),
	}
	m.SharedToon = p.u8() == 1
	if m.SharedToon {
		m.ToonIndex = int32(p.u8())
	} else {
		m.ToonIndex = p.index(p.h.TextureIndexSize)
	}
	m.Memo = p.text()
	m.IndexCount = p.i32()
	return m
}

func (p *pmxParser) bone() PMXBone {
	b := PMXBone{
		Name:        p.text(),
		NameEnglish: p.text(),
		Position:    p.vec3(),
		Parent:      p.boneIndex(),
		Layer:       p.i32(),
		Flags:       p.u16(),
		TailBone:    -1,
	}
	if b.Flags&PMXBoneTailIsBone != 0 {
		b.TailBone = p.boneIndex()
	} else {
		b.TailPosition = p.vec3()
	}
	if b.Flags&(PMXBoneInheritRotation|PMXBoneInheritTranslation) != 0 {
		b.InheritParent = p.boneIndex()
		b.InheritWeight = p.f32()
	}
	if b.Flags&PMXBoneFixedAxis != 0 {
		b.FixedAxis = p.vec3()
	}
	if b.Flags&PMXBoneLocalAxis != 0 {
		b.LocalX = p.vec3()
		b.LocalZ = p.vec3()
	}
	if b.Flags&PMXBoneExternalParent != 0 {
		b.ExternalKey = p.i32()
	}
	if b.Flags&PMXBoneIK != 0 {
		ik := &PMXIK{
			Target:     p.boneIndex(),
			Loops:      p.i32(),
			LimitAngle: p.f32(),
		}
		ik.Links = make([]PMXIKLink, p.count(int(p.h.BoneIndexSize)+1))
		for i := range ik.Links {
			l := PMXIKLink{Bone: p.boneIndex(), HasLimits: p.u8() == 1}
			if l.HasLimits {
				l.Min = p.vec3()
				l.Max = p.vec3()
			}
			ik.Links[i] = l
		}
		b.IK = ik
	}
	return b
}

func (p *pmxParser) morph() (PMXMorph, error) {
	m := PMXMorph{
		Name:        p.text(),
		NameEnglish: p.text(),
		Panel:       p.u8(),
		Type:        p.u8(),
	}
	n := p.count(1)
	if p.err != nil {
		return m, nil
	}

	h := p.h
	var size int
	switch {
	case m.Type == PMXMorphVertex:
		m.VertexOffsets = make([]PMXVertexOffset, n)
		for i := range m.VertexOffsets {
			m.VertexOffsets[i] = PMXVertexOffset{Vertex: p.vertexIndex(), Offset: p.vec3()}
		}
		return m, nil
	case m.Type == PMXMorphGroup:
		size = int(h.MorphIndexSize) + 4
	case m.Type == PMXMorphBone:
		size = int(h.BoneIndexSize) + 12 + 16
	case m.Type >= PMXMorphUV && m.Type <= PMXMorphUVExt4:
		size = int(h.VertexIndexSize) + 16
	case m.Type == PMXMorphMaterial:
		size = int(h.MaterialIndexSize) + 1 + 28*4
	default:
		return m, fmt.Errorf("%w: morph type %d", ErrInvalidPMXData, m.Type)
	}
	p.skip(n * size)
	m.OtherOffsets = n
	return m, nil
}

func (p *pmxParser) frame() PMXFrame {
	f := PMXFrame{
		Name:        p.text(),
		NameEnglish: p.text(),
		Special:     p.u8() == 1,
	}
	f.Elements = make([]PMXFrameElement, p.count(2))
	for i := range f.Elements {
		e := PMXFrameElement{Morph: p.u8() == 1}
		if e.Morph {
			e.Index = p.index(p.h.MorphIndexSize)
		} else {
			e.Index = p.boneIndex()
		}
		f.Elements[i] = e
	}
	return f
}

func (p *pmxParser) rigid() PMXRigid {
	return PMXRigid{
		Name:            p.text(),
		NameEnglish:     p.text(),
		Bone:            p.boneIndex(),
		Group:           p.u8(),
		NoCollisionMask: p.u16(),
		Shape:           p.u8(),
		Size:            p.vec3(),
		Position:        p.vec3(),
		Rotation:        p.vec3(),
		Mass:            p.f32(),
		LinearDamping:   p.f32(),
		AngularDamping:  p.f32(),
		Restitution:     p.f32(),
		Friction:        p.f32(),
		Mode:            p.u8(),
	}
}

func (p *pmxParser) joint() PMXJoint {
	return PMXJoint{
		Name:        p.text(),
		NameEnglish: p.text(),
		Type:        p.u8(),
		RigidA:      p.index(p.h.RigidIndexSize),
		RigidB:      p.index(p.h.RigidIndexSize),
		Position:    p.vec3(),
		Rotation:    p.vec3(),
		PosMin:      p.vec3(),
		PosMax:      p.vec3(),
		RotMin:      p.vec3(),
		RotMax:      p.vec3(),
		PosSpring:   p.vec3(),
		RotSpring:   p.vec3(),
	}
}
