package sim

import (
	"fmt"
	"testing"

	"github.com/Faultbox/curtainfire/internal/collision"
	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/pkg/math"
)

func testFactory() shotmodel.FactoryFunc {
	return func(p shotmodel.Property) (*shotmodel.Geometry, error) {
		switch p.Type {
		case "tri":
			return &shotmodel.Geometry{
				Bones: []shotmodel.Bone{{Name: "root", Parent: -1}},
				Vertices: []shotmodel.Vertex{
					{Pos: math.Vec3{Y: 1}},
					{Pos: math.Vec3{X: 1}},
					{Pos: math.Vec3{X: -1}},
				},
				Indices:   []int{0, 1, 2},
				Materials: []shotmodel.Material{{Texture: -1, Sphere: -1, FaceCount: 3}},
			}, nil
		case "bone":
			return &shotmodel.Geometry{
				Bones: []shotmodel.Bone{{Name: "root", Parent: -1}},
			}, nil
		default:
			return nil, fmt.Errorf("%q: %w", p.Type, shotmodel.ErrUnknownShotType)
		}
	}
}

func newTestWorld(t *testing.T, start, end int) *World {
	t.Helper()
	opts := DefaultOptions()
	opts.StartFrame = start
	opts.EndFrame = end
	opts.Factory = testFactory()
	w, err := NewWorld(opts)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w
}

// floorScene is a large triangle at y=0 around the origin.
func floorScene() *collision.Scene {
	return collision.NewScene(collision.NewStaticObject("floor", []collision.Triangle{
		collision.NewTriangle(
			math.Vec3{X: -100, Z: -100},
			math.Vec3{X: 100, Z: -100},
			math.Vec3{Z: 100},
		),
	}))
}

func spawnShot(t *testing.T, w *World, typ string, parent Node) *Shot {
	t.Helper()
	s, err := w.NewShot(shotmodel.NewProperty(typ, 0xFF0000), parent)
	if err != nil {
		t.Fatalf("NewShot: %v", err)
	}
	if err := s.Spawn(); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	return s
}

func stepN(t *testing.T, w *World, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := w.Step(); err != nil {
			t.Fatalf("Step at frame %d: %v", w.Frame(), err)
		}
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
