package shotmodel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// triangle returns a one-bone, one-face geometry with the given textures.
func triangle(textures ...string) *Geometry {
	tex := -1
	if len(textures) > 0 {
		tex = 0
	}
	return &Geometry{
		Bones: []Bone{{Name: "root", Parent: -1}},
		Vertices: []Vertex{
			{Pos: math.Vec3{X: 0, Y: 1, Z: 0}},
			{Pos: math.Vec3{X: 1, Y: 0, Z: 0}},
			{Pos: math.Vec3{X: -1, Y: 0, Z: 0}},
		},
		Indices:   []int{0, 1, 2},
		Materials: []Material{{Texture: tex, Sphere: -1, FaceCount: 3}},
		Textures:  textures,
	}
}

// bonesOnly returns a two-bone geometry without a mesh.
func bonesOnly() *Geometry {
	return &Geometry{
		Bones: []Bone{
			{Name: "root", Parent: -1},
			{Name: "tip", Pos: math.Vec3{Z: 1}, Parent: 0},
		},
		Rigids: []Rigid{{Name: "body", Bone: 1}},
	}
}

func testFactory() FactoryFunc {
	return func(p Property) (*Geometry, error) {
		switch p.Type {
		case "tri":
			return triangle("shot.png"), nil
		case "tri2":
			return triangle("shot.png", "other.png"), nil
		case "bone":
			return bonesOnly(), nil
		default:
			return nil, fmt.Errorf("%q: %w", p.Type, ErrUnknownShotType)
		}
	}
}

func TestPoolReusesSameProperty(t *testing.T) {
	pool := NewPool(testFactory(), nil)
	prop := NewProperty("tri", 0xFF0000)

	a, reused, err := pool.Acquire(1, NoParent, 0, prop)
	if err != nil || reused {
		t.Fatalf("Acquire(A) = reused %v, err %v", reused, err)
	}
	pool.Release(1)
	pool.Collect()

	b, reused, err := pool.Acquire(2, NoParent, 0, prop)
	if err != nil {
		t.Fatal(err)
	}
	if !reused || a != b {
		t.Errorf("B did not reuse A's block (reused=%v)", reused)
	}
	if pool.Blocks() != 1 {
		t.Errorf("Blocks() = %d, want 1", pool.Blocks())
	}
}

func TestPoolNeverReusesAcrossKeys(t *testing.T) {
	tests := []struct {
		name     string
		prop     Property
		parentID int
	}{
		{"different color", NewProperty("tri", 0x00FF00), NoParent},
		{"different type", NewProperty("tri2", 0xFF0000), NoParent},
		{"different scale", NewProperty("tri", 0xFF0000).WithScale(math.Vec3{X: 2, Y: 2, Z: 2}), NoParent},
		{"different group", NewProperty("tri", 0xFF0000).WithGroup("g"), NoParent},
		{"different parent", NewProperty("tri", 0xFF0000), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(testFactory(), nil)
			a, _, err := pool.Acquire(1, NoParent, 0, NewProperty("tri", 0xFF0000))
			if err != nil {
				t.Fatal(err)
			}
			pool.Release(1)
			pool.Collect()

			b, reused, err := pool.Acquire(2, tt.parentID, 0, tt.prop)
			if err != nil {
				t.Fatal(err)
			}
			if reused || a == b {
				t.Error("block reused across different pool keys")
			}
		})
	}
}

func TestPoolReuseWaitsForCollect(t *testing.T) {
	pool := NewPool(testFactory(), nil)
	prop := NewProperty("tri", 0xFF0000)

	a, _, _ := pool.Acquire(1, NoParent, 0, prop)
	pool.Release(1)

	b, reused, err := pool.Acquire(2, NoParent, 0, prop)
	if err != nil {
		t.Fatal(err)
	}
	if reused || a == b {
		t.Error("block reused before its owner's death was collected")
	}
}

func TestPoolOwnerHoldsOneBlock(t *testing.T) {
	pool := NewPool(testFactory(), nil)
	prop := NewProperty("tri", 0xFF0000)

	if _, _, err := pool.Acquire(1, NoParent, 0, prop); err != nil {
		t.Fatal(err)
	}
	if _, _, err := pool.Acquire(1, NoParent, 0, prop); !errors.Is(err, ErrGroupOccupied) {
		t.Errorf("second Acquire error = %v, want ErrGroupOccupied", err)
	}
	if pool.Occupied() != 1 {
		t.Errorf("Occupied() = %d, want 1", pool.Occupied())
	}
}

func TestPoolUnknownType(t *testing.T) {
	pool := NewPool(testFactory(), nil)
	_, _, err := pool.Acquire(1, NoParent, 0, NewProperty("nope", 0))
	if !errors.Is(err, ErrUnknownShotType) {
		t.Errorf("Acquire error = %v, want ErrUnknownShotType", err)
	}
}

func TestPoolRejectsInvalidGeometry(t *testing.T) {
	bad := FactoryFunc(func(Property) (*Geometry, error) {
		g := triangle()
		g.Indices = []int{0, 1, 9}
		return g, nil
	})
	pool := NewPool(bad, nil)
	if _, _, err := pool.Acquire(1, NoParent, 0, NewProperty("tri", 0)); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("Acquire error = %v, want ErrInvalidGeometry", err)
	}
}

func TestPoolBones(t *testing.T) {
	pool := NewPool(testFactory(), nil)

	parent, _, err := pool.Acquire(1, NoParent, 0, NewProperty("bone", 0))
	if err != nil {
		t.Fatal(err)
	}
	child, _, err := pool.Acquire(2, 1, parent.RootBone(), NewProperty("tri", 0))
	if err != nil {
		t.Fatal(err)
	}

	bones := pool.Bones()
	want := []GlobalBone{
		{Name: RootBoneName, Parent: -1},
		{Name: "B0", Parent: 0},
		{Name: "B1", Pos: math.Vec3{Z: 1}, Parent: 1},
		{Name: "B2", Parent: 1},
	}
	if len(bones) != len(want) {
		t.Fatalf("got %d bones, want %d", len(bones), len(want))
	}
	for i := range want {
		if bones[i] != want[i] {
			t.Errorf("bone %d = %+v, want %+v", i, bones[i], want[i])
		}
	}
	if parent.RootBoneName() != "B0" || child.RootBoneName() != "B2" {
		t.Errorf("root names = %s, %s", parent.RootBoneName(), child.RootBoneName())
	}
	if parent.FadeMorph() != "" {
		t.Error("bone-only block should have no fade morph")
	}
	if child.FadeMorph() == "" {
		t.Error("mesh block should have a fade morph")
	}
}

func TestAddVertexMorph(t *testing.T) {
	pool := NewPool(testFactory(), nil)
	d, _, _ := pool.Acquire(1, NoParent, 0, NewProperty("tri", 0))

	m, created, err := d.AddVertexMorph("a rather long growth morph", func(p math.Vec3) math.Vec3 { return p })
	if err != nil || !created {
		t.Fatalf("AddVertexMorph = created %v, err %v", created, err)
	}
	if len(m.Offsets) != 3 || m.Offsets[0] != (math.Vec3{Y: 1}) {
		t.Errorf("offsets = %v", m.Offsets)
	}
	if global, ok := d.MorphName("a rather long growth morph"); !ok || global != m.Name {
		t.Errorf("MorphName = %q, %v, want %q", global, ok, m.Name)
	}
	if len(m.Name) > 15 {
		t.Errorf("morph name %q does not fit a VMD name field", m.Name)
	}
	if _, ok := d.MorphName("missing"); ok {
		t.Error("MorphName found a morph that was never added")
	}

	again, created, _ := d.AddVertexMorph("a rather long growth morph", func(math.Vec3) math.Vec3 { return math.Vec3{} })
	if created || again != m {
		t.Error("adding an existing morph should return it unchanged")
	}

	if _, err := pool.Aggregate(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.AddVertexMorph("late", func(p math.Vec3) math.Vec3 { return p }); !errors.Is(err, ErrPoolFinalized) {
		t.Errorf("AddVertexMorph after finalize error = %v, want ErrPoolFinalized", err)
	}
}
