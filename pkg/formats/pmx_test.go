package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"
)

func samplePMX() *PMX {
	return &PMX{
		Header: PMXHeader{
			Name:    "弾幕",
			Comment: "generated",
		},
		Vertices: []PMXVertex{
			{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, -1}, UV: [2]float32{0.5, 0}, Deform: PMXDeformBDEF1, Bones: [4]int32{1}, EdgeScale: 1},
			{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, -1}, UV: [2]float32{1, 1}, Deform: PMXDeformBDEF1, Bones: [4]int32{1}, EdgeScale: 1},
			{Position: [3]float32{-1, 0, 0}, Normal: [3]float32{0, 0, -1}, UV: [2]float32{0, 1}, Deform: PMXDeformBDEF2, Bones: [4]int32{0, 1}, Weights: [4]float32{0.25, 0.75}, EdgeScale: 1},
		},
		Indices:  []int32{0, 1, 2},
		Textures: []string{"shot.png"},
		Materials: []PMXMaterial{{
			Name:         "S_0xFF0000",
			Diffuse:      [4]float32{1, 0, 0, 1},
			Flags:        0x01,
			TextureIndex: 0,
			SphereIndex:  -1,
			ToonIndex:    -1,
			IndexCount:   3,
		}},
		Bones: []PMXBone{
			{Name: "センター", Parent: -1, Flags: PMXBoneRotatable | PMXBoneMovable | PMXBoneVisible | PMXBoneEnabled},
			{Name: "B0", Position: [3]float32{0, 0, 5}, Parent: 0, Flags: PMXBoneRotatable | PMXBoneMovable | PMXBoneVisible | PMXBoneEnabled},
		},
		Morphs: []PMXMorph{{
			Name:  "F0",
			Panel: PMXPanelOther,
			Type:  PMXMorphVertex,
			VertexOffsets: []PMXVertexOffset{
				{Vertex: 0, Offset: [3]float32{0, -1, 0}},
				{Vertex: 2, Offset: [3]float32{1, 0, 0}},
			},
		}},
		Frames: []PMXFrame{
			{Name: "Root", Special: true, Elements: []PMXFrameElement{{Index: 0}}},
			{Name: "表情", Special: true, Elements: []PMXFrameElement{{Morph: true, Index: 0}}},
		},
		Rigids: []PMXRigid{{Name: "body", Bone: 1, Shape: 0, Size: [3]float32{1, 0, 0}, Mass: 1}},
	}
}

func TestWritePMXHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePMX(&buf, samplePMX()); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()

	if string(b[:4]) != "PMX " {
		t.Errorf("magic = %q", b[:4])
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != 0x40000000 {
		t.Errorf("version bits = %#x, want 2.0", v)
	}
	want := []byte{8, 0, 0, 1, 1, 1, 1, 1, 1}
	if !bytes.Equal(b[8:17], want) {
		t.Errorf("globals = % X, want % X", b[8:17], want)
	}
}

func TestPMXRoundTrip(t *testing.T) {
	in := samplePMX()
	var buf bytes.Buffer
	if err := WritePMX(&buf, in); err != nil {
		t.Fatal(err)
	}

	out, err := ParsePMX(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePMX: %v", err)
	}

	if out.Header.Name != in.Header.Name || out.Header.Comment != in.Header.Comment {
		t.Errorf("header = %+v", out.Header)
	}
	if len(out.Vertices) != 3 || out.Vertices[2].Weights[1] != 0.75 || out.Vertices[1].Bones[0] != 1 {
		t.Errorf("vertices = %+v", out.Vertices)
	}
	if len(out.Indices) != 3 || out.Indices[2] != 2 {
		t.Errorf("indices = %v", out.Indices)
	}
	if out.Materials[0].Name != "S_0xFF0000" || out.Materials[0].SphereIndex != -1 || out.Materials[0].IndexCount != 3 {
		t.Errorf("material = %+v", out.Materials[0])
	}
	if out.Bones[0].Name != "センター" || out.Bones[1].Parent != 0 || out.Bones[0].Parent != -1 {
		t.Errorf("bones = %+v", out.Bones)
	}
	if m := out.Morphs[0]; m.Name != "F0" || len(m.VertexOffsets) != 2 || m.VertexOffsets[1].Vertex != 2 {
		t.Errorf("morph = %+v", m)
	}
	if f := out.Frames[1]; !f.Special || !f.Elements[0].Morph {
		t.Errorf("frame = %+v", f)
	}
	if len(out.Rigids) != 1 || out.Rigids[0].Bone != 1 {
		t.Errorf("rigids = %+v", out.Rigids)
	}
	if len(out.Joints) != 0 {
		t.Errorf("joints = %d, want 0", len(out.Joints))
	}
}

func TestPMXUTF8AndWideIndices(t *testing.T) {
	m := samplePMX()
	m.Header.Encoding = PMXEncodingUTF8
	for i := 0; i < 300; i++ {
		m.Vertices = append(m.Vertices, PMXVertex{Deform: PMXDeformBDEF1})
	}
	m.Indices = append(m.Indices, 299, 300, 301)
	m.Materials[0].IndexCount = 6

	var buf bytes.Buffer
	if err := WritePMX(&buf, m); err != nil {
		t.Fatal(err)
	}
	out, err := ParsePMX(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if out.Header.VertexIndexSize != 2 {
		t.Errorf("vertex index size = %d, want 2", out.Header.VertexIndexSize)
	}
	if out.Indices[5] != 301 || out.Header.Name != "弾幕" {
		t.Errorf("indices = %v, name = %q", out.Indices, out.Header.Name)
	}
}

func TestWritePMXRejectsInconsistentModel(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *PMX)
	}{
		{"index out of range", func(m *PMX) { m.Indices[0] = 9 }},
		{"face count mismatch", func(m *PMX) { m.Materials[0].IndexCount = 6 }},
		{"non vertex morph", func(m *PMX) { m.Morphs[0].Type = PMXMorphGroup }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := samplePMX()
			tt.mutate(m)
			if err := WritePMX(&bytes.Buffer{}, m); !errors.Is(err, ErrInvalidPMXData) {
				t.Errorf("error = %v, want ErrInvalidPMXData", err)
			}
		})
	}
}

func TestParsePMXErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePMX(&buf, samplePMX()); err != nil {
		t.Fatal(err)
	}
	good := buf.Bytes()

	badMagic := append([]byte("PMD "), good[4:]...)
	badVersion := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(badVersion[4:], 0x40066666) // 2.1

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncatedPMXData},
		{"bad magic", badMagic, ErrInvalidPMXMagic},
		{"unsupported version", badVersion, ErrUnsupportedPMXVersion},
		{"truncated", good[:len(good)/2], ErrTruncatedPMXData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePMX(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPMXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pmx")
	if err := WritePMXFile(path, samplePMX()); err != nil {
		t.Fatal(err)
	}
	m, err := ParsePMXFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Bones) != 2 {
		t.Errorf("bones = %d, want 2", len(m.Bones))
	}
}

func TestDominantBone(t *testing.T) {
	tests := []struct {
		v    PMXVertex
		want int32
	}{
		{PMXVertex{Deform: PMXDeformBDEF1, Bones: [4]int32{3}}, 3},
		{PMXVertex{Deform: PMXDeformBDEF2, Bones: [4]int32{3, 4}, Weights: [4]float32{0.2, 0.8}}, 4},
		{PMXVertex{Deform: PMXDeformBDEF4, Bones: [4]int32{1, 2, 3, 4}, Weights: [4]float32{0.1, 0.2, 0.6, 0.1}}, 3},
	}
	for _, tt := range tests {
		if got := tt.v.DominantBone(); got != tt.want {
			t.Errorf("DominantBone(%+v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}
