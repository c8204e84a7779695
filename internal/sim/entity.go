package sim

import (
	"go.uber.org/zap"

	"github.com/Faultbox/curtainfire/pkg/math"
)

// NoParent is the parent id of root entities.
const NoParent = -1

// Node is an entity the world can advance: a plain *Entity or a *Shot.
type Node interface {
	base() *Entity
	tick(frame int) error
	onSpawn() error
	onDeath() error
	shouldRemove() bool
}

// Entity is a transform node with a lifetime. Children compose their local
// transform with their parent's world transform.
type Entity struct {
	world *World
	self  Node

	id       int
	parent   *Entity
	priority int

	pos math.Vec3
	rot math.Quat

	localMat math.Mat4
	worldMat math.Mat4

	// LivingLimit is the age in frames at which the entity is removed.
	// Zero means it lives until removed explicitly.
	LivingLimit int
	removeWhen  func(e *Entity) bool

	spawnFrame int
	deathFrame int
	spawned    bool
	removed    bool

	tasks     taskList
	attrs     Attributes
	deathSubs []func()
}

func (e *Entity) init(w *World, self Node, parent *Entity) {
	e.world = w
	e.self = self
	e.id = w.nextID
	w.nextID++
	e.parent = parent
	if parent != nil {
		e.priority = parent.priority + 1
	}
	e.rot = math.QuatIdentity()
	e.localMat = math.Identity()
	e.worldMat = math.Identity()
}

func (e *Entity) base() *Entity { return e }

// ID returns the world-unique entity id.
func (e *Entity) ID() int { return e.id }

// World returns the owning world.
func (e *Entity) World() *World { return e.world }

// Parent returns the parent entity or nil.
func (e *Entity) Parent() *Entity { return e.parent }

// ParentID returns the parent's id or NoParent.
func (e *Entity) ParentID() int {
	if e.parent == nil {
		return NoParent
	}
	return e.parent.id
}

// FramePriority is the depth in the hierarchy; roots are 0. The world
// advances lower priorities first so parents are fresh for their children.
func (e *Entity) FramePriority() int { return e.priority }

// Pos returns the local position.
func (e *Entity) Pos() math.Vec3 { return e.pos }

// Rot returns the local rotation.
func (e *Entity) Rot() math.Quat { return e.rot }

// SetPos sets the local position.
func (e *Entity) SetPos(p math.Vec3) { e.pos = p }

// SetRot sets the local rotation.
func (e *Entity) SetRot(q math.Quat) { e.rot = q }

// LocalMat returns the local transform computed at the last update.
func (e *Entity) LocalMat() math.Mat4 { return e.localMat }

// WorldMat returns the world transform computed at the last update.
func (e *Entity) WorldMat() math.Mat4 { return e.worldMat }

// WorldPos returns the world-space position.
func (e *Entity) WorldPos() math.Vec3 { return e.worldMat.Translation() }

// SpawnFrame returns the frame the entity was spawned on.
func (e *Entity) SpawnFrame() int { return e.spawnFrame }

// DeathFrame returns the frame the entity was removed on.
func (e *Entity) DeathFrame() int { return e.deathFrame }

// Spawned reports whether Spawn succeeded.
func (e *Entity) Spawned() bool { return e.spawned }

// Removed reports whether the entity is dead.
func (e *Entity) Removed() bool { return e.removed }

// Age returns the number of frames since spawn.
func (e *Entity) Age() int {
	if !e.spawned {
		return 0
	}
	if e.removed {
		return e.deathFrame - e.spawnFrame
	}
	return e.world.frame - e.spawnFrame
}

// RemoveWhen replaces the default removal predicate.
func (e *Entity) RemoveWhen(fn func(e *Entity) bool) { e.removeWhen = fn }

func (e *Entity) shouldRemove() bool {
	if e.removeWhen != nil {
		return e.removeWhen(e)
	}
	return e.LivingLimit != 0 && e.Age() >= e.LivingLimit
}

// SetAttr stores a script attribute.
func (e *Entity) SetAttr(name string, v Value) { e.attrs.Set(name, v) }

// Attr reads a script attribute. Names never set fail with
// ErrUnknownAttribute.
func (e *Entity) Attr(name string) (Value, error) { return e.attrs.Get(name) }

// Attrs exposes the attribute map.
func (e *Entity) Attrs() *Attributes { return &e.attrs }

// AddTask schedules fn on this entity. See NewTask for the schedule.
func (e *Entity) AddTask(fn TaskFunc, interval IntervalFunc, executeTimes, waitTime int) *Task {
	t := NewTask(fn, interval, executeTimes, waitTime)
	e.tasks.add(t)
	return t
}

// OnDeath registers fn to run after the entity is removed.
func (e *Entity) OnDeath(fn func()) { e.deathSubs = append(e.deathSubs, fn) }

// Spawn registers the entity with its world on the current frame.
func (e *Entity) Spawn() error {
	switch {
	case e.world.finalized:
		return ErrWorldFinalized
	case e.removed:
		return ErrEntityRemoved
	case e.spawned:
		return ErrAlreadySpawned
	}

	e.spawned = true
	e.spawnFrame = e.world.frame
	e.updateTransform()
	e.world.addLive(e.self)

	e.world.log.Debug("entity spawned",
		zap.Int("id", e.id),
		zap.Int("frame", e.spawnFrame),
		zap.Int("parent", e.ParentID()))

	return e.self.onSpawn()
}

// Remove kills the entity on the current frame and notifies listeners.
func (e *Entity) Remove() error {
	switch {
	case e.removed:
		return ErrEntityRemoved
	case !e.spawned:
		return ErrNotSpawned
	}

	e.removed = true
	e.deathFrame = e.world.frame
	e.world.deaths++

	e.world.log.Debug("entity removed",
		zap.Int("id", e.id),
		zap.Int("frame", e.deathFrame),
		zap.Int("age", e.Age()))

	err := e.self.onDeath()
	for _, fn := range e.deathSubs {
		fn()
	}
	return err
}

func (e *Entity) onSpawn() error { return nil }
func (e *Entity) onDeath() error { return nil }

func (e *Entity) tick(int) error {
	err := e.tasks.run()
	e.updateTransform()
	return err
}

func (e *Entity) updateTransform() {
	e.localMat = math.Compose(e.rot, e.pos)
	if e.parent != nil {
		e.worldMat = e.parent.worldMat.Mul(e.localMat)
	} else {
		e.worldMat = e.localMat
	}
}
