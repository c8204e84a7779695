// Package sim runs the frame-stepped shot simulation: entity hierarchy,
// scheduled tasks, collision response and keyframe recording.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/curtainfire/internal/collision"
	"github.com/Faultbox/curtainfire/internal/keyframe"
	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/pkg/math"
)

// Options configures a World.
type Options struct {
	StartFrame int
	EndFrame   int

	// Epsilon is the change threshold for recording policies.
	Epsilon float32
	// CollisionEpsilon is the near-parallel threshold of plane tests.
	CollisionEpsilon float32
	// ReflectOffset lifts reflected shots off the surface.
	ReflectOffset float32

	TieRule keyframe.TieRule

	Scene   *collision.Scene
	Factory shotmodel.GeometryFactory
	Logger  *zap.Logger
}

// DefaultOptions returns options for a 300 frame run.
func DefaultOptions() Options {
	return Options{
		StartFrame:       0,
		EndFrame:         300,
		Epsilon:          1e-5,
		CollisionEpsilon: collision.DefaultEpsilon,
		ReflectOffset:    1e-3,
		TieRule:          keyframe.TieLatest,
	}
}

// Result is the finalized output of a run.
type Result struct {
	Model  *shotmodel.Model
	Motion keyframe.Motion

	StartFrame int
	LastFrame  int
	Spawned    int
	Deaths     int
	Collisions int
}

// World owns the frame clock, the live entities, the shot pool and the
// keyframe recorder. It is driven one frame at a time and finalized once.
type World struct {
	opts Options
	log  *zap.Logger

	frame  int
	nextID int

	live  []Node
	tasks taskList

	pool     *shotmodel.Pool
	recorder *keyframe.Recorder

	spawned    int
	deaths     int
	collisions int
	finalized  bool
}

// NewWorld creates a world positioned at opts.StartFrame.
func NewWorld(opts Options) (*World, error) {
	if opts.Factory == nil {
		return nil, errors.New("world needs a geometry factory")
	}
	if opts.EndFrame < opts.StartFrame {
		return nil, fmt.Errorf("end frame %d before start frame %d", opts.EndFrame, opts.StartFrame)
	}
	if opts.Scene == nil {
		opts.Scene = collision.NewScene()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &World{
		opts:     opts,
		log:      log,
		frame:    opts.StartFrame,
		pool:     shotmodel.NewPool(opts.Factory, log.Named("pool")),
		recorder: keyframe.NewRecorder(opts.TieRule),
	}, nil
}

// Frame returns the current frame.
func (w *World) Frame() int { return w.frame }

// StartFrame returns the first frame of the run.
func (w *World) StartFrame() int { return w.opts.StartFrame }

// EndFrame returns the frame at which Run stops.
func (w *World) EndFrame() int { return w.opts.EndFrame }

// Scene returns the static collision geometry.
func (w *World) Scene() *collision.Scene { return w.opts.Scene }

// Pool returns the shot model pool.
func (w *World) Pool() *shotmodel.Pool { return w.pool }

// Recorder returns the keyframe recorder.
func (w *World) Recorder() *keyframe.Recorder { return w.recorder }

// Live returns the number of live entities.
func (w *World) Live() int { return len(w.live) }

// Finalized reports whether Finalize has run.
func (w *World) Finalized() bool { return w.finalized }

// AddTask schedules a world-level task. World tasks run at the start of
// each frame, before any entity, so shots they spawn advance that frame.
func (w *World) AddTask(fn TaskFunc, interval IntervalFunc, executeTimes, waitTime int) *Task {
	t := NewTask(fn, interval, executeTimes, waitTime)
	w.tasks.add(t)
	return t
}

// NewEntity creates an unspawned transform entity.
func (w *World) NewEntity(parent Node) (*Entity, error) {
	p, err := w.parentOf(parent)
	if err != nil {
		return nil, err
	}
	e := &Entity{}
	e.init(w, e, p)
	return e, nil
}

// NewShot creates an unspawned shot and binds it to a pooled block.
func (w *World) NewShot(prop shotmodel.Property, parent Node) (*Shot, error) {
	p, err := w.parentOf(parent)
	if err != nil {
		return nil, err
	}

	s := &Shot{
		upward: math.UnitY,
		record: RecordVelocity,
	}
	s.init(w, s, p)

	parentBone := 0
	if ps, ok := parent.(*Shot); ok {
		parentBone = ps.data.RootBone()
	}

	data, reused, err := w.pool.Acquire(s.id, s.ParentID(), parentBone, prop)
	if err != nil {
		return nil, fmt.Errorf("shot %d: %w", s.id, err)
	}
	s.property = prop
	s.data = data

	if !reused {
		// A fresh block stays hidden and parked until a shot shows it.
		w.recorder.RegisterBone(data.RootBoneName())
		if fade := data.FadeMorph(); fade != "" {
			w.recorder.RegisterMorph(fade)
		}
		if err := s.fade(w.opts.StartFrame, weightHidden, keyframe.PriorityPlaceholder); err != nil {
			return nil, err
		}
		if err := s.park(w.opts.StartFrame); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (w *World) parentOf(parent Node) (*Entity, error) {
	if parent == nil {
		return nil, nil
	}
	p := parent.base()
	if p == nil {
		return nil, nil
	}
	if p.world != w {
		return nil, ErrForeignEntity
	}
	return p, nil
}

func (w *World) addLive(n Node) {
	w.live = append(w.live, n)
	w.spawned++
}

// Step advances the world by one frame: world tasks, then every live
// entity in ascending frame priority, then removals. The frame always
// completes; task and curve failures are returned joined afterwards and
// the failing task or curve does not run again.
func (w *World) Step() error {
	if w.finalized {
		return ErrWorldFinalized
	}

	w.pool.Collect()

	var errs []error
	if err := w.tasks.run(); err != nil {
		w.log.Warn("world task failed", zap.Int("frame", w.frame), zap.Error(err))
		errs = append(errs, fmt.Errorf("world task: %w", err))
	}

	// Entities spawned while this frame runs start next frame.
	batch := make([]Node, len(w.live))
	copy(batch, w.live)
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].base().priority < batch[j].base().priority
	})

	for _, n := range batch {
		e := n.base()
		if e.removed {
			continue
		}
		if err := n.tick(w.frame); err != nil {
			w.log.Warn("entity tick failed",
				zap.Int("frame", w.frame),
				zap.Int("id", e.id),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("entity %d: %w", e.id, err))
		}
	}

	for _, n := range batch {
		e := n.base()
		if !e.removed && n.shouldRemove() {
			if err := e.Remove(); err != nil {
				errs = append(errs, fmt.Errorf("entity %d: %w", e.id, err))
			}
		}
	}

	alive := w.live[:0]
	for _, n := range w.live {
		if !n.base().removed {
			alive = append(alive, n)
		}
	}
	clear(w.live[len(alive):])
	w.live = alive

	w.frame++
	if len(errs) > 0 {
		return fmt.Errorf("frame %d: %w", w.frame-1, errors.Join(errs...))
	}
	return nil
}

// Run steps until the end frame or until ctx is cancelled. A failing frame
// does not stop the loop; the frame errors are returned joined at the end.
// A cancelled run returns ctx.Err() alone when no frame failed. Everything
// produced up to the stop remains valid for Finalize.
func (w *World) Run(ctx context.Context) error {
	var errs []error
	for w.frame < w.opts.EndFrame {
		if err := ctx.Err(); err != nil {
			w.log.Info("frame loop cancelled", zap.Int("frame", w.frame))
			if len(errs) == 0 {
				return err
			}
			return errors.Join(append(errs, err)...)
		}
		if err := w.Step(); err != nil {
			errs = append(errs, err)
		}
	}

	w.log.Info("frame loop finished",
		zap.Int("frames", w.frame-w.opts.StartFrame),
		zap.Int("spawned", w.spawned),
		zap.Int("deaths", w.deaths),
		zap.Int("live", len(w.live)),
		zap.Int("occupied_blocks", w.pool.Occupied()),
		zap.Int("failed_frames", len(errs)))
	return errors.Join(errs...)
}

// Finalize aggregates the pool into one model and the recorder into one
// motion. It runs once; afterwards the world is read-only. A non-nil
// Result may come with an error naming the properties left out.
func (w *World) Finalize() (*Result, error) {
	if w.finalized {
		return nil, ErrWorldFinalized
	}
	w.finalized = true

	model, err := w.pool.Aggregate()
	if model == nil {
		return nil, err
	}

	res := &Result{
		Model:      model,
		Motion:     w.recorder.Motion(),
		StartFrame: w.opts.StartFrame,
		LastFrame:  w.frame,
		Spawned:    w.spawned,
		Deaths:     w.deaths,
		Collisions: w.collisions,
	}

	bones, morphs := w.recorder.Len()
	w.log.Info("world finalized",
		zap.Int("bone_keyframes", bones),
		zap.Int("morph_keyframes", morphs),
		zap.Int("collisions", w.collisions))

	return res, err
}
