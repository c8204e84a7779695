package sim

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/curtainfire/internal/collision"
	"github.com/Faultbox/curtainfire/internal/keyframe"
	"github.com/Faultbox/curtainfire/internal/motion"
	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/pkg/math"
)

// ParkedPosition is where a block's root bone waits while no shot shows it.
var ParkedPosition = math.Vec3{Y: -100000}

// Morph weights of the fade morph.
const (
	weightVisible float32 = 0
	weightHidden  float32 = 1
)

// Shot is a projectile entity backed by a pooled model block.
type Shot struct {
	Entity

	property shotmodel.Property
	data     *shotmodel.Data

	velocity math.Vec3
	upward   math.Vec3
	interp   *motion.Interpolation

	record    RecordPolicy
	collision CollisionPolicy

	velocityDirty bool
	localDirty    bool

	armed       bool
	impactDirty bool
	hasImpact   bool
	impactAt    float64
	impact      collision.Impact
	vanished    bool
}

// Property returns the shot's visual property.
func (s *Shot) Property() shotmodel.Property { return s.property }

// Data returns the pooled block the shot occupies.
func (s *Shot) Data() *shotmodel.Data { return s.data }

// Velocity returns the per-frame velocity.
func (s *Shot) Velocity() math.Vec3 { return s.velocity }

// Upward returns the up vector used for the recorded rotation.
func (s *Shot) Upward() math.Vec3 { return s.upward }

// SetVelocity sets the per-frame velocity.
func (s *Shot) SetVelocity(v math.Vec3) {
	if !s.velocity.EpsilonEquals(v, s.world.opts.Epsilon) {
		s.velocityDirty = true
	}
	s.velocity = v
	s.impactDirty = true
}

// SetUpward sets the up vector. Changing it counts as a velocity change.
func (s *Shot) SetUpward(up math.Vec3) {
	if !s.upward.EpsilonEquals(up, s.world.opts.Epsilon) {
		s.velocityDirty = true
	}
	s.upward = up
}

// SetPos sets the local position.
func (s *Shot) SetPos(p math.Vec3) {
	if !s.pos.EpsilonEquals(p, s.world.opts.Epsilon) {
		s.localDirty = true
	}
	s.pos = p
	s.impactDirty = true
}

// SetRot sets the local rotation.
func (s *Shot) SetRot(q math.Quat) {
	if !s.rot.EpsilonEquals(q, s.world.opts.Epsilon) {
		s.localDirty = true
	}
	s.rot = q
}

// SetRecordPolicy chooses when keyframes are recorded.
func (s *Shot) SetRecordPolicy(p RecordPolicy) { s.record = p }

// RecordPolicy returns the recording policy.
func (s *Shot) RecordPolicy() RecordPolicy { return s.record }

// SetCollision sets the collision policy and arms detection unless the
// policy is CollisionNone.
func (s *Shot) SetCollision(p CollisionPolicy) {
	s.collision = p
	s.ArmCollision(p != CollisionNone)
}

// CollisionPolicy returns the collision policy.
func (s *Shot) CollisionPolicy() CollisionPolicy { return s.collision }

// ArmCollision enables or disables impact detection. Detection disarms
// itself after each impact.
func (s *Shot) ArmCollision(on bool) {
	s.armed = on
	s.impactDirty = true
	s.hasImpact = false
}

// CollisionArmed reports whether impact detection is enabled.
func (s *Shot) CollisionArmed() bool { return s.armed }

// ScheduledImpact returns the frame time of the next impact, if any.
func (s *Shot) ScheduledImpact() (float64, bool) {
	return s.impactAt, s.armed && s.hasImpact
}

// Interpolation returns the active easing window or nil.
func (s *Shot) Interpolation() *motion.Interpolation { return s.interp }

// SetCurve eases velocity over the next length frames. A keyframe is
// recorded first so the eased segment starts from the current pose.
func (s *Shot) SetCurve(p1, p2 math.Vec2, length int, syncVelocity bool) error {
	m, err := motion.New(s.world.frame, length, math.NewCubicBezierCurve(p1, p2), syncVelocity)
	if err != nil {
		return err
	}
	if s.spawned && !s.removed {
		if err := s.recordBone(keyframe.PriorityNormal); err != nil {
			return err
		}
	}
	s.interp = m
	s.impactDirty = true
	return nil
}

// ClearCurve drops the active easing window without syncing velocity.
func (s *Shot) ClearCurve() {
	s.interp = nil
	s.impactDirty = true
}

// RecordedRotation is the rotation written to keyframes: the shot faces
// its velocity, then applies its own rotation.
func (s *Shot) RecordedRotation() math.Quat {
	if s.velocity.IsZero() {
		return s.rot
	}
	return math.QuatLookAt(s.velocity, s.upward).Mul(s.rot)
}

// CreateVertexMorph adds a named vertex morph to the shot's block. fn maps
// each vertex position to its offset. The returned name is the model-wide
// morph name. Bone-only shots have no vertices to morph and get "".
func (s *Shot) CreateVertexMorph(name string, fn func(pos math.Vec3) math.Vec3) (string, error) {
	if !s.data.Geometry.HasMesh() {
		return "", nil
	}
	m, created, err := s.data.AddVertexMorph(name, fn)
	if err != nil {
		return "", err
	}
	if created {
		s.world.recorder.RegisterMorph(m.Name)
	}
	return m.Name, nil
}

// AddMorphKeyframe sets a morph created with CreateVertexMorph to weight at
// the current frame plus frameOffset.
func (s *Shot) AddMorphKeyframe(name string, frameOffset int, weight float32) error {
	if !s.data.Geometry.HasMesh() {
		return nil
	}
	global, ok := s.data.MorphName(name)
	if !ok {
		return fmt.Errorf("morph %q: %w", name, keyframe.ErrUnknownTarget)
	}
	return s.world.recorder.AddMorph(keyframe.MorphFrame{
		Morph:  global,
		Frame:  s.world.frame + frameOffset,
		Weight: weight,
	})
}

// AddBoneKeyframe records the root bone pose at the current frame.
func (s *Shot) AddBoneKeyframe() error {
	return s.recordBone(keyframe.PriorityNormal)
}

func (s *Shot) curve() math.CubicBezierCurve {
	if s.interp != nil && s.interp.StartFrame < s.world.frame {
		return s.interp.Curve
	}
	return math.LinearCurve
}

func (s *Shot) recordBone(priority int) error {
	return s.world.recorder.AddBone(keyframe.BoneFrame{
		Bone:     s.data.RootBoneName(),
		Frame:    s.world.frame,
		Pos:      s.pos,
		Rot:      s.RecordedRotation(),
		Curve:    s.curve(),
		Priority: priority,
	})
}

func (s *Shot) park(frame int) error {
	return s.world.recorder.AddBone(keyframe.BoneFrame{
		Bone:     s.data.RootBoneName(),
		Frame:    frame,
		Pos:      ParkedPosition,
		Rot:      math.QuatIdentity(),
		Curve:    math.LinearCurve,
		Priority: keyframe.PriorityPlaceholder,
	})
}

func (s *Shot) fade(frame int, weight float32, priority int) error {
	name := s.data.FadeMorph()
	if name == "" {
		return nil
	}
	return s.world.recorder.AddMorph(keyframe.MorphFrame{
		Morph:    name,
		Frame:    frame,
		Weight:   weight,
		Priority: priority,
	})
}

// onSpawn brackets the block so it is hidden before this shot appears.
func (s *Shot) onSpawn() error {
	sf, start := s.spawnFrame, s.world.opts.StartFrame

	if err := s.fade(sf-1, weightHidden, keyframe.PriorityPlaceholder); err != nil {
		return err
	}
	if err := s.fade(sf, weightVisible, keyframe.PriorityNormal); err != nil {
		return err
	}
	if sf > start {
		if err := s.fade(start, weightHidden, keyframe.PriorityPlaceholder); err != nil {
			return err
		}
		if err := s.park(sf - 1); err != nil {
			return err
		}
		if err := s.park(start); err != nil {
			return err
		}
	}
	return s.recordBone(keyframe.PriorityNormal)
}

// onDeath hides the block from this frame on and frees it for reuse.
func (s *Shot) onDeath() error {
	df := s.deathFrame

	err := s.fade(df-1, weightVisible, keyframe.PriorityNormal)
	if err == nil {
		err = s.fade(df, weightHidden, keyframe.PriorityPlaceholder)
	}
	if err == nil {
		err = s.recordBone(keyframe.PriorityNormal)
	}
	s.world.pool.Release(s.id)
	return err
}

func (s *Shot) shouldRecord(frame int) bool {
	if frame == s.world.opts.StartFrame {
		return true
	}
	switch s.record {
	case RecordVelocity:
		return s.velocityDirty
	case RecordLocalMat:
		return s.localDirty
	default:
		return false
	}
}

// tick finishes the frame even when a task or the easing curve fails.
// A failing curve is dropped.
func (s *Shot) tick(frame int) error {
	var errs []error
	if err := s.tasks.run(); err != nil {
		errs = append(errs, err)
	}
	if s.removed {
		return errors.Join(errs...)
	}

	s.updateCollision(frame)
	if s.vanished {
		s.updateTransform()
		return errors.Join(errs...)
	}

	if s.interp != nil && frame >= s.interp.EndFrame() {
		if err := s.recordBone(keyframe.PriorityNormal); err != nil {
			errs = append(errs, err)
		}
		s.velocity = s.velocity.Scale(s.interp.SyncFactor())
		s.interp = nil
		s.impactDirty = true
	} else if s.shouldRecord(frame) {
		if err := s.recordBone(keyframe.PriorityNormal); err != nil {
			errs = append(errs, err)
		}
	}
	s.velocityDirty = false
	s.localDirty = false

	amount, err := s.changeAmount(frame)
	if err != nil {
		errs = append(errs, fmt.Errorf("shot %d: %w", s.id, err))
		s.interp = nil
		s.impactDirty = true
		amount = 1
	}
	if step := s.velocity.Scale(amount); !step.IsZero() {
		s.pos = s.pos.Add(step)
		s.localDirty = true
	}
	if s.interp != nil {
		// Eased motion leaves the straight path the impact was computed on.
		s.impactDirty = true
	}

	s.updateTransform()
	return errors.Join(errs...)
}

func (s *Shot) changeAmount(frame int) (float32, error) {
	if s.interp == nil {
		return 1, nil
	}
	return s.interp.ChangeAmount(frame)
}

func (s *Shot) updateCollision(frame int) {
	if !s.armed || s.collision == CollisionNone {
		return
	}
	if s.impactDirty {
		s.scheduleImpact(frame)
	}
	if !s.hasImpact || float64(frame) < gomath.Floor(s.impactAt) {
		return
	}

	remainder := float32(s.impactAt - gomath.Floor(s.impactAt))
	s.armed = false
	s.hasImpact = false
	s.collide(remainder)
}

// scheduleImpact leaves the impact dirty when the curve cannot be
// evaluated; tick reports that error and drops the curve.
func (s *Shot) scheduleImpact(frame int) {
	s.hasImpact = false
	amount, err := s.changeAmount(frame)
	if err != nil {
		return
	}
	s.impactDirty = false

	sweep := collision.Sweep{Origin: s.pos, Velocity: s.velocity.Scale(amount)}
	hit, ok := s.world.opts.Scene.EarliestImpact(sweep, s.world.opts.CollisionEpsilon)
	if !ok {
		return
	}
	s.hasImpact = true
	s.impactAt = float64(frame) + float64(hit.Time)
	s.impact = hit
}

func (s *Shot) collide(remainder float32) {
	switch s.collision {
	case CollisionVanish:
		s.vanished = true
	case CollisionStick:
		s.SetPos(s.pos.Add(s.velocity.Scale(remainder)))
		s.SetVelocity(math.Vec3{})
	case CollisionReflect:
		n := s.impact.Normal
		side := n
		if s.velocity.Dot(n) > 0 {
			side = n.Neg()
		}
		s.SetPos(s.pos.Add(s.velocity.Scale(remainder)).Add(side.Scale(s.world.opts.ReflectOffset)))
		s.SetVelocity(s.velocity.Reflect(n))
	}
	s.world.collisions++
}

func (s *Shot) shouldRemove() bool {
	return s.vanished || s.Entity.shouldRemove()
}
