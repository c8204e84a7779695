package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/pkg/math"
)

func TestNewWorldRequiresFactory(t *testing.T) {
	if _, err := NewWorld(DefaultOptions()); err == nil {
		t.Error("NewWorld without factory succeeded")
	}

	opts := DefaultOptions()
	opts.Factory = testFactory()
	opts.StartFrame, opts.EndFrame = 10, 5
	if _, err := NewWorld(opts); err == nil {
		t.Error("NewWorld with end before start succeeded")
	}
}

func TestSingleShotLifecycle(t *testing.T) {
	w := newTestWorld(t, 0, 30)

	s := spawnShot(t, w, "tri", nil)
	s.LivingLimit = 20
	s.SetVelocity(math.Vec3{Z: 1})

	deaths := 0
	s.OnDeath(func() { deaths++ })

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if deaths != 1 {
		t.Errorf("death listeners fired %d times, want 1", deaths)
	}
	if !s.Removed() || s.DeathFrame() != 20 {
		t.Errorf("removed=%v deathFrame=%d, want death at 20", s.Removed(), s.DeathFrame())
	}
	if w.Frame() != 30 {
		t.Errorf("Frame() = %d, want 30", w.Frame())
	}

	res, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Deaths != 1 || res.Spawned != 1 {
		t.Errorf("spawned=%d deaths=%d, want 1/1", res.Spawned, res.Deaths)
	}
	if len(res.Model.Vertices) != 3 {
		t.Errorf("model vertices = %d, want the shot's 3", len(res.Model.Vertices))
	}

	fade := s.Data().FadeMorph()
	found := false
	for _, m := range res.Model.Morphs {
		if m.Name == fade {
			found = true
		}
	}
	if !found {
		t.Errorf("model has no fade morph %q", fade)
	}

	frames, err := w.Recorder().MorphFrames(fade)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		frame  int
		weight float32
	}{
		{-1, weightHidden},
		{0, weightVisible},
		{19, weightVisible},
		{20, weightHidden},
	}
	if len(frames) != len(want) {
		t.Fatalf("fade keyframes = %+v, want %d records", frames, len(want))
	}
	for i, wf := range want {
		if frames[i].Frame != wf.frame || frames[i].Weight != wf.weight {
			t.Errorf("fade[%d] = (%d, %v), want (%d, %v)",
				i, frames[i].Frame, frames[i].Weight, wf.frame, wf.weight)
		}
	}
}

func TestFinalizeOnce(t *testing.T) {
	w := newTestWorld(t, 0, 5)
	spawnShot(t, w, "tri", nil)
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finalize(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Finalize(); !errors.Is(err, ErrWorldFinalized) {
		t.Errorf("second Finalize error = %v, want ErrWorldFinalized", err)
	}
	if err := w.Step(); !errors.Is(err, ErrWorldFinalized) {
		t.Errorf("Step after Finalize error = %v, want ErrWorldFinalized", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w := newTestWorld(t, 0, 100)
	ctx, cancel := context.WithCancel(context.Background())

	w.AddTask(func(run int) error {
		if run == 4 {
			cancel()
		}
		return nil
	}, Every(1), 0, 0)

	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if w.Frame() != 5 {
		t.Errorf("stopped at frame %d, want 5", w.Frame())
	}
	if _, err := w.Finalize(); err != nil {
		t.Errorf("Finalize after cancel: %v", err)
	}
}

func TestFailingTaskFinishesFrame(t *testing.T) {
	w := newTestWorld(t, 0, 10)
	a := spawnShot(t, w, "tri", nil)
	a.SetVelocity(math.Vec3{Z: 1})

	badCurve := errors.New("bad curve")
	b := spawnShot(t, w, "tri", nil)
	b.RemoveWhen(func(*Entity) bool { return true })
	b.AddTask(func(int) error { return badCurve }, Every(1), 0, 0)

	err := w.Step()
	if !errors.Is(err, badCurve) {
		t.Fatalf("Step error = %v, want bad curve", err)
	}
	if w.Frame() != 1 {
		t.Errorf("Frame() = %d after a failing frame, want 1", w.Frame())
	}
	if got := a.Pos().Z; got != 1 {
		t.Errorf("sibling z = %v after one frame, want 1", got)
	}
	if !b.Removed() || b.DeathFrame() != 0 {
		t.Errorf("removal pass skipped: removed=%v deathFrame=%d", b.Removed(), b.DeathFrame())
	}

	if err := w.Step(); err != nil {
		t.Fatalf("second Step: %v", err)
	}
	if got := a.Pos().Z; got != 2 {
		t.Errorf("sibling z = %v after two frames, want 2", got)
	}
}

func TestRunContinuesAfterFailingTask(t *testing.T) {
	w := newTestWorld(t, 0, 20)
	s := spawnShot(t, w, "tri", nil)
	s.SetVelocity(math.Vec3{X: 1})

	ticks := 0
	w.AddTask(func(int) error { ticks++; return nil }, Every(1), 0, 0)
	w.AddTask(func(int) error {
		return s.SetCurve(math.Vec2{X: 2}, math.Vec2{X: 0.5, Y: 1}, 10, true)
	}, Every(1), 0, 10)

	err := w.Run(context.Background())
	if !errors.Is(err, math.ErrMalformedCurve) {
		t.Fatalf("Run error = %v, want ErrMalformedCurve", err)
	}
	if w.Frame() != 20 || ticks != 20 {
		t.Errorf("frame=%d ticks=%d, want the run to reach 20", w.Frame(), ticks)
	}
	if got := s.Pos().X; got != 20 {
		t.Errorf("x = %v, want 20", got)
	}

	res, err := w.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.LastFrame != 20 || len(res.Motion.Bones) == 0 {
		t.Errorf("last frame %d with %d bone keyframes", res.LastFrame, len(res.Motion.Bones))
	}
}

func TestWorldTaskSpawnsShots(t *testing.T) {
	w := newTestWorld(t, 0, 30)
	var shots []*Shot

	w.AddTask(func(int) error {
		s, err := w.NewShot(shotmodel.NewProperty("tri", 0x00FF00), nil)
		if err != nil {
			return err
		}
		s.LivingLimit = 3
		shots = append(shots, s)
		return s.Spawn()
	}, Every(5), 3, 0)

	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(shots) != 3 {
		t.Fatalf("spawned %d shots, want 3", len(shots))
	}
	for i, s := range shots {
		if s.SpawnFrame() != i*5 {
			t.Errorf("shot %d spawned at %d, want %d", i, s.SpawnFrame(), i*5)
		}
		if s.DeathFrame() != i*5+3 {
			t.Errorf("shot %d died at %d, want %d", i, s.DeathFrame(), i*5+3)
		}
	}
	// Each shot dies before the next spawns, so one block serves all.
	if w.Pool().Blocks() != 1 {
		t.Errorf("Blocks() = %d, want 1", w.Pool().Blocks())
	}
}

func TestShotPoolingThroughWorld(t *testing.T) {
	w := newTestWorld(t, 0, 50)
	prop := shotmodel.NewProperty("tri", 0xFF0000)

	a := spawnShot(t, w, "tri", nil)
	a.LivingLimit = 2
	stepN(t, w, 3)
	if !a.Removed() {
		t.Fatal("shot A still alive")
	}

	// Released this frame; not reusable until the next frame starts.
	early, err := w.NewShot(prop, nil)
	if err != nil {
		t.Fatal(err)
	}
	if early.Data() == a.Data() {
		t.Error("block reused on the frame it was released")
	}

	stepN(t, w, 1)

	b, err := w.NewShot(prop, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b.Data() != a.Data() {
		t.Error("shot B did not reuse A's block")
	}

	c, err := w.NewShot(shotmodel.NewProperty("tri", 0x0000FF), nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Data() == a.Data() {
		t.Error("different property reused A's block")
	}
}

func TestReusedBlockKeepsEarlierVisibility(t *testing.T) {
	w := newTestWorld(t, 0, 50)

	a := spawnShot(t, w, "tri", nil)
	a.LivingLimit = 2
	stepN(t, w, 4)

	b := spawnShot(t, w, "tri", nil)
	if b.Data() != a.Data() {
		t.Fatal("block not reused")
	}

	frames, err := w.Recorder().MorphFrames(a.Data().FadeMorph())
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[int]float32)
	for _, f := range frames {
		got[f.Frame] = f.Weight
	}
	// A was visible at the start frame; B's placeholder must not hide it.
	checks := map[int]float32{0: weightVisible, 1: weightVisible, 2: weightHidden, 3: weightHidden, 4: weightVisible}
	for frame, want := range checks {
		if got[frame] != want {
			t.Errorf("weight at %d = %v, want %v", frame, got[frame], want)
		}
	}
}

func TestNewShotErrors(t *testing.T) {
	w := newTestWorld(t, 0, 10)
	if _, err := w.NewShot(shotmodel.NewProperty("nope", 0), nil); !errors.Is(err, shotmodel.ErrUnknownShotType) {
		t.Errorf("unknown type error = %v", err)
	}

	other := newTestWorld(t, 0, 10)
	foreign, err := other.NewEntity(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.NewShot(shotmodel.NewProperty("tri", 0), foreign); !errors.Is(err, ErrForeignEntity) {
		t.Errorf("foreign parent error = %v, want ErrForeignEntity", err)
	}
}

func TestEntityLifecycleErrors(t *testing.T) {
	w := newTestWorld(t, 0, 10)
	e, err := w.NewEntity(nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Remove(); !errors.Is(err, ErrNotSpawned) {
		t.Errorf("Remove before Spawn = %v, want ErrNotSpawned", err)
	}
	if err := e.Spawn(); err != nil {
		t.Fatal(err)
	}
	if err := e.Spawn(); !errors.Is(err, ErrAlreadySpawned) {
		t.Errorf("second Spawn = %v, want ErrAlreadySpawned", err)
	}
	if err := e.Remove(); err != nil {
		t.Fatal(err)
	}
	if err := e.Remove(); !errors.Is(err, ErrEntityRemoved) {
		t.Errorf("second Remove = %v, want ErrEntityRemoved", err)
	}
	if err := e.Spawn(); !errors.Is(err, ErrEntityRemoved) {
		t.Errorf("Spawn after Remove = %v, want ErrEntityRemoved", err)
	}
}

func TestEntityIDsAreWorldLocal(t *testing.T) {
	a := newTestWorld(t, 0, 10)
	b := newTestWorld(t, 0, 10)
	ea, _ := a.NewEntity(nil)
	eb, _ := b.NewEntity(nil)
	if ea.ID() != 0 || eb.ID() != 0 {
		t.Errorf("first ids = %d, %d, want 0, 0", ea.ID(), eb.ID())
	}
}

func TestUpdateOrderFollowsHierarchy(t *testing.T) {
	w := newTestWorld(t, 0, 10)

	parent, _ := w.NewEntity(nil)
	child, _ := w.NewEntity(parent)
	root, _ := w.NewEntity(nil)

	var order []int
	for _, e := range []*Entity{child, root, parent} {
		e.AddTask(func(int) error {
			order = append(order, e.ID())
			return nil
		}, nil, 1, 0)
		if err := e.Spawn(); err != nil {
			t.Fatal(err)
		}
	}

	stepN(t, w, 1)

	want := []int{root.ID(), parent.ID(), child.ID()}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if child.FramePriority() != 1 {
		t.Errorf("child priority = %d, want 1", child.FramePriority())
	}
}

func TestChildFollowsParentTransform(t *testing.T) {
	w := newTestWorld(t, 0, 10)

	parent, _ := w.NewEntity(nil)
	parent.SetPos(math.Vec3{Y: 5})

	child := spawnShot(t, w, "tri", parent)
	child.SetPos(math.Vec3{X: 1})
	if err := parent.Spawn(); err != nil {
		t.Fatal(err)
	}

	stepN(t, w, 1)
	if got := child.WorldPos(); !got.EpsilonEquals(math.Vec3{X: 1, Y: 5}, 1e-5) {
		t.Errorf("child world pos = %v, want (1, 5, 0)", got)
	}

	parent.SetPos(math.Vec3{Y: 8})
	stepN(t, w, 1)
	if got := child.WorldPos(); !got.EpsilonEquals(math.Vec3{X: 1, Y: 8}, 1e-5) {
		t.Errorf("child world pos after move = %v, want (1, 8, 0)", got)
	}
}

func TestChildShotBoneHangsUnderParentShot(t *testing.T) {
	w := newTestWorld(t, 0, 10)
	parent := spawnShot(t, w, "bone", nil)
	child := spawnShot(t, w, "tri", parent)

	bones := w.Pool().Bones()
	if got := bones[child.Data().RootBone()].Parent; got != parent.Data().RootBone() {
		t.Errorf("child root bone parent = %d, want %d", got, parent.Data().RootBone())
	}
	if got := bones[parent.Data().RootBone()].Parent; got != 0 {
		t.Errorf("parent root bone parent = %d, want 0", got)
	}
}

func TestRemoveWhen(t *testing.T) {
	w := newTestWorld(t, 0, 20)
	e, _ := w.NewEntity(nil)
	e.RemoveWhen(func(e *Entity) bool { return e.Age() >= 4 })
	if err := e.Spawn(); err != nil {
		t.Fatal(err)
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e.DeathFrame() != 4 {
		t.Errorf("death frame = %d, want 4", e.DeathFrame())
	}
	if w.Live() != 0 {
		t.Errorf("Live() = %d, want 0", w.Live())
	}
}
