package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/curtainfire/internal/collision"
	"github.com/Faultbox/curtainfire/pkg/math"
)

const sample = `
objects:
  - name: floor
    quad: {center: [0, 0, 0], size: [20, 20]}
  - name: pillar
    box: {min: [3, 0, 3], max: [5, 10, 5]}
  - name: ramp
    triangles:
      - [[0, 0, 0], [4, 2, 0], [0, 0, 4]]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	objs := s.Objects()
	if len(objs) != 3 {
		t.Fatalf("objects = %d, want 3", len(objs))
	}

	tests := []struct {
		name string
		tris int
		box  collision.AABB
	}{
		{"floor", 2, collision.AABB{Min: math.Vec3{X: -10, Z: -10}, Max: math.Vec3{X: 10, Z: 10}}},
		{"pillar", 12, collision.AABB{Min: math.Vec3{X: 3, Z: 3}, Max: math.Vec3{X: 5, Y: 10, Z: 5}}},
		{"ramp", 1, collision.AABB{Max: math.Vec3{X: 4, Y: 2, Z: 4}}},
	}
	for i, tt := range tests {
		o := objs[i]
		if o.Name != tt.name || len(o.Triangles) != tt.tris {
			t.Errorf("object %d = %s with %d triangles, want %s with %d", i, o.Name, len(o.Triangles), tt.name, tt.tris)
		}
		if o.Box != tt.box {
			t.Errorf("%s box = %v, want %v", o.Name, o.Box, tt.box)
		}
	}
	if s.TriangleCount() != 15 {
		t.Errorf("TriangleCount() = %d, want 15", s.TriangleCount())
	}
}

func TestParsedFloorStopsShots(t *testing.T) {
	s, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	hit, ok := s.EarliestImpact(collision.Sweep{
		Origin:   math.Vec3{X: -2, Y: 6, Z: -7},
		Velocity: math.Vec3{Y: -2},
	}, collision.DefaultEpsilon)
	if !ok {
		t.Fatal("no impact with the floor")
	}
	if hit.Time != 3 || hit.Object.Name != "floor" {
		t.Errorf("impact = %v on %s, want time 3 on floor", hit.Time, hit.Object.Name)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no geometry", "objects:\n  - name: empty\n"},
		{"two shapes", "objects:\n  - name: both\n    box: {min: [0,0,0], max: [1,1,1]}\n    quad: {center: [0,0,0], size: [1,1]}\n"},
		{"degenerate", "objects:\n  - name: line\n    triangles:\n      - [[0,0,0],[1,1,1],[2,2,2]]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); !errors.Is(err, ErrInvalidObject) {
				t.Errorf("error = %v, want ErrInvalidObject", err)
			}
		})
	}

	if _, err := Parse([]byte("objects: [")); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
