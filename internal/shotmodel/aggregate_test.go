package shotmodel

import (
	"errors"
	"testing"

	"github.com/Faultbox/curtainfire/pkg/math"
)

func TestAggregate(t *testing.T) {
	pool := NewPool(testFactory(), nil)
	red := NewProperty("tri", 0xFF0000)
	blue := NewProperty("tri2", 0x0000FF)

	for owner, prop := range []Property{red, blue, red, NewProperty("bone", 0)} {
		if _, _, err := pool.Acquire(owner, NoParent, 0, prop); err != nil {
			t.Fatal(err)
		}
	}

	m, err := pool.Aggregate()
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Vertices) != 9 {
		t.Fatalf("vertices = %d, want 9", len(m.Vertices))
	}
	if len(m.Indices) != 9 {
		t.Fatalf("indices = %d, want 9", len(m.Indices))
	}

	// red blocks come first and share one material covering both faces
	wantIdx := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	for i, w := range wantIdx {
		if m.Indices[i] != w {
			t.Errorf("index %d = %d, want %d", i, m.Indices[i], w)
		}
	}

	if len(m.Materials) != 2 {
		t.Fatalf("materials = %d, want 2", len(m.Materials))
	}
	if m.Materials[0].Name != "tri_0xFF0000" || m.Materials[0].FaceCount != 6 {
		t.Errorf("material 0 = %q/%d", m.Materials[0].Name, m.Materials[0].FaceCount)
	}
	if m.Materials[1].Name != "tri2_0x0000FF" || m.Materials[1].FaceCount != 3 {
		t.Errorf("material 1 = %q/%d", m.Materials[1].Name, m.Materials[1].FaceCount)
	}

	// shot.png is shared by both properties and emitted once
	if len(m.Textures) != 2 || m.Textures[0] != "shot.png" || m.Textures[1] != "other.png" {
		t.Errorf("textures = %v", m.Textures)
	}
	if m.Materials[0].Texture != 0 || m.Materials[1].Texture != 0 {
		t.Errorf("texture refs = %d, %d, want 0, 0", m.Materials[0].Texture, m.Materials[1].Texture)
	}

	// block bones: red#0 -> 1, blue#1 -> 2, red#2 -> 3
	for i, want := range []int{1, 1, 1, 3, 3, 3, 2, 2, 2} {
		if m.Vertices[i].Bone != want {
			t.Errorf("vertex %d bone = %d, want %d", i, m.Vertices[i].Bone, want)
		}
	}

	if len(m.Morphs) != 3 {
		t.Fatalf("morphs = %d, want 3", len(m.Morphs))
	}
	second := m.Morphs[1]
	if second.Name != "F2" {
		t.Errorf("second morph = %q, want F2", second.Name)
	}
	for _, off := range second.Offsets {
		if off.Vertex < 3 || off.Vertex > 5 {
			t.Errorf("F2 moves vertex %d outside its block", off.Vertex)
		}
	}

	if len(m.Rigids) != 1 || m.Rigids[0].Bone != 5 {
		t.Errorf("rigids = %+v, want one on bone 5", m.Rigids)
	}

	if len(m.Frames) != 3 || len(m.Frames[2].Indices) != len(m.Bones)-1 {
		t.Errorf("frames = %+v", m.Frames)
	}
}

func TestAggregateSkipsInconsistentProperty(t *testing.T) {
	calls := 0
	factory := FactoryFunc(func(p Property) (*Geometry, error) {
		calls++
		g := triangle()
		if p.Type == "grow" && calls > 1 {
			g.Vertices = append(g.Vertices, Vertex{})
			g.Indices = append(g.Indices, 0, 1, 3)
			g.Materials[0].FaceCount = 6
		}
		return g, nil
	})

	pool := NewPool(factory, nil)
	_, _, _ = pool.Acquire(1, NoParent, 0, NewProperty("grow", 0))
	_, _, _ = pool.Acquire(2, NoParent, 0, NewProperty("grow", 0))
	_, _, _ = pool.Acquire(3, NoParent, 0, NewProperty("ok", 0))

	m, err := pool.Aggregate()
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Fatalf("Aggregate error = %v, want ErrInvalidGeometry", err)
	}
	if m == nil || len(m.Materials) != 1 || m.Materials[0].Name != "ok_0x000000" {
		t.Errorf("model should keep only the consistent property, got %+v", m)
	}
}

func TestAggregateOnce(t *testing.T) {
	pool := NewPool(testFactory(), nil)
	if _, err := pool.Aggregate(); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Aggregate(); !errors.Is(err, ErrPoolFinalized) {
		t.Errorf("second Aggregate error = %v, want ErrPoolFinalized", err)
	}
	if _, _, err := pool.Acquire(1, NoParent, 0, NewProperty("tri", 0)); !errors.Is(err, ErrPoolFinalized) {
		t.Errorf("Acquire after Aggregate error = %v, want ErrPoolFinalized", err)
	}
}

func TestModelBounds(t *testing.T) {
	m := &Model{Vertices: []Vertex{
		{Pos: math.Vec3{X: -1, Y: 2, Z: 0}},
		{Pos: math.Vec3{X: 3, Y: -2, Z: 5}},
	}}
	lo, hi := m.Bounds()
	if lo != (math.Vec3{X: -1, Y: -2, Z: 0}) || hi != (math.Vec3{X: 3, Y: 2, Z: 5}) {
		t.Errorf("Bounds() = %v, %v", lo, hi)
	}
}

func TestPropertyColorHex(t *testing.T) {
	tests := []struct {
		color uint32
		want  string
	}{
		{0xFF0000, "0xFF0000"},
		{0x00000A, "0x00000A"},
		{0x1FF0000, "0xFF0000"},
	}
	for _, tt := range tests {
		if got := NewProperty("x", tt.color).ColorHex(); got != tt.want {
			t.Errorf("ColorHex(%#x) = %q, want %q", tt.color, got, tt.want)
		}
	}
}
