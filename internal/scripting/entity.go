package scripting

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/Faultbox/curtainfire/internal/shotmodel"
	"github.com/Faultbox/curtainfire/internal/sim"
	"github.com/Faultbox/curtainfire/pkg/math"
)

const (
	entityTypeName = "entity"
	shotTypeName   = "shot"
)

// node is the surface shared by *sim.Entity and *sim.Shot. Shot overrides
// the position setters so they mark it for recording.
type node interface {
	sim.Node
	ID() int
	Pos() math.Vec3
	Rot() math.Quat
	SetPos(math.Vec3)
	SetRot(math.Quat)
	WorldPos() math.Vec3
	Age() int
	Spawned() bool
	Removed() bool
	Spawn() error
	Remove() error
	AddTask(fn sim.TaskFunc, interval sim.IntervalFunc, executeTimes, waitTime int) *sim.Task
	SetAttr(name string, v sim.Value)
	Attr(name string) (sim.Value, error)
	OnDeath(fn func())
	RemoveWhen(fn func(e *sim.Entity) bool)
}

func entityOf(n node) *sim.Entity {
	if s, ok := n.(*sim.Shot); ok {
		return &s.Entity
	}
	return n.(*sim.Entity)
}

func (e *Engine) registerEntityTypes() {
	common := map[string]lua.LGFunction{
		"id":               e.nodeID,
		"spawn":            e.nodeSpawn,
		"remove":           e.nodeRemove,
		"pos":              e.nodePos,
		"world_pos":        e.nodeWorldPos,
		"set_pos":          e.nodeSetPos,
		"set_rotation":     e.nodeSetRotation,
		"rotate":           e.nodeRotate,
		"age":              e.nodeAge,
		"alive":            e.nodeAlive,
		"set_living_limit": e.nodeSetLivingLimit,
		"add_task":         e.nodeAddTask,
		"set_attr":         e.nodeSetAttr,
		"attr":             e.nodeAttr,
		"on_death":         e.nodeOnDeath,
		"remove_when":      e.nodeRemoveWhen,
	}

	mt := e.vm.NewTypeMetatable(entityTypeName)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), common))

	shotMethods := map[string]lua.LGFunction{
		"velocity":       e.shotVelocity,
		"set_velocity":   e.shotSetVelocity,
		"set_upward":     e.shotSetUpward,
		"set_curve":      e.shotSetCurve,
		"clear_curve":    e.shotClearCurve,
		"set_collision":  e.shotSetCollision,
		"arm_collision":  e.shotArmCollision,
		"set_record":     e.shotSetRecord,
		"keyframe":       e.shotKeyframe,
		"vertex_morph":   e.shotVertexMorph,
		"morph_keyframe": e.shotMorphKeyframe,
		"type":           e.shotType,
	}
	for k, v := range common {
		shotMethods[k] = v
	}
	mt = e.vm.NewTypeMetatable(shotTypeName)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), shotMethods))
}

func (e *Engine) push(L *lua.LState, n node) {
	ud := L.NewUserData()
	ud.Value = n
	if _, ok := n.(*sim.Shot); ok {
		L.SetMetatable(ud, L.GetTypeMetatable(shotTypeName))
	} else {
		L.SetMetatable(ud, L.GetTypeMetatable(entityTypeName))
	}
	L.Push(ud)
}

func checkNode(L *lua.LState, n int) node {
	ud := L.CheckUserData(n)
	if v, ok := ud.Value.(node); ok {
		return v
	}
	L.ArgError(n, "entity expected")
	return nil
}

func optNode(L *lua.LState, n int) sim.Node {
	if L.Get(n) == lua.LNil {
		return nil
	}
	return checkNode(L, n)
}

func checkShot(L *lua.LState, n int) *sim.Shot {
	ud := L.CheckUserData(n)
	if v, ok := ud.Value.(*sim.Shot); ok {
		return v
	}
	L.ArgError(n, "shot expected")
	return nil
}

// raise turns a Go error into a Lua error at the call site.
func raise(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

// shot(type, color [, parent [, scale]]) creates an unspawned shot.
func (e *Engine) luaShot(L *lua.LState) int {
	prop := shotmodel.NewProperty(L.CheckString(1), uint32(L.CheckInt64(2)))
	parent := optNode(L, 3)
	switch v := L.Get(4).(type) {
	case lua.LNumber:
		f := float32(v)
		prop = prop.WithScale(math.Vec3{X: f, Y: f, Z: f})
	case *lua.LTable:
		prop = prop.WithScale(tableVec(v))
	}
	if g, ok := L.Get(5).(lua.LString); ok {
		prop = prop.WithGroup(string(g))
	}

	s, err := e.world.NewShot(prop, parent)
	raise(L, err)
	e.push(L, s)
	return 1
}

// entity([parent]) creates an unspawned transform-only entity.
func (e *Engine) luaEntity(L *lua.LState) int {
	en, err := e.world.NewEntity(optNode(L, 1))
	raise(L, err)
	e.push(L, en)
	return 1
}

func (e *Engine) nodeID(L *lua.LState) int {
	L.Push(lua.LNumber(checkNode(L, 1).ID()))
	return 1
}

func (e *Engine) nodeSpawn(L *lua.LState) int {
	n := checkNode(L, 1)
	raise(L, n.Spawn())
	L.Push(L.Get(1))
	return 1
}

func (e *Engine) nodeRemove(L *lua.LState) int {
	n := checkNode(L, 1)
	err := n.Remove()
	if errors.Is(err, sim.ErrEntityRemoved) {
		return 0
	}
	raise(L, err)
	return 0
}

func (e *Engine) nodePos(L *lua.LState) int {
	L.Push(vecTable(L, checkNode(L, 1).Pos()))
	return 1
}

func (e *Engine) nodeWorldPos(L *lua.LState) int {
	L.Push(vecTable(L, checkNode(L, 1).WorldPos()))
	return 1
}

func (e *Engine) nodeSetPos(L *lua.LState) int {
	n := checkNode(L, 1)
	v, _ := checkVec(L, 2)
	n.SetPos(v)
	return 0
}

// set_rotation(x, y, z, w) sets the quaternion directly.
func (e *Engine) nodeSetRotation(L *lua.LState) int {
	n := checkNode(L, 1)
	q := math.Quat{
		X: float32(L.CheckNumber(2)),
		Y: float32(L.CheckNumber(3)),
		Z: float32(L.CheckNumber(4)),
		W: float32(L.CheckNumber(5)),
	}
	n.SetRot(q.Normalize())
	return 0
}

// rotate(axis, radians) applies a rotation after the current one.
func (e *Engine) nodeRotate(L *lua.LState) int {
	n := checkNode(L, 1)
	axis, next := checkVec(L, 2)
	angle := float32(L.CheckNumber(next))
	n.SetRot(math.QuatFromAxisAngle(axis.Normalize(), angle).Mul(n.Rot()))
	return 0
}

func (e *Engine) nodeAge(L *lua.LState) int {
	L.Push(lua.LNumber(checkNode(L, 1).Age()))
	return 1
}

func (e *Engine) nodeAlive(L *lua.LState) int {
	n := checkNode(L, 1)
	L.Push(lua.LBool(n.Spawned() && !n.Removed()))
	return 1
}

func (e *Engine) nodeSetLivingLimit(L *lua.LState) int {
	entityOf(checkNode(L, 1)).LivingLimit = L.CheckInt(2)
	return 0
}

func (e *Engine) nodeAddTask(L *lua.LState) int {
	n := checkNode(L, 1)
	fn, interval, times, wait := e.checkTask(L, 2)
	n.AddTask(fn, interval, times, wait)
	return 0
}

func (e *Engine) nodeSetAttr(L *lua.LState) int {
	n := checkNode(L, 1)
	n.SetAttr(L.CheckString(2), toValue(L.Get(3)))
	return 0
}

func (e *Engine) nodeAttr(L *lua.LState) int {
	n := checkNode(L, 1)
	v, err := n.Attr(L.CheckString(2))
	raise(L, err)
	L.Push(fromValue(L, v))
	return 1
}

func (e *Engine) nodeOnDeath(L *lua.LState) int {
	n := checkNode(L, 1)
	fn := L.CheckFunction(2)
	self := L.Get(1)
	n.OnDeath(func() {
		if err := e.call(fn, self); err != nil {
			e.log.Error("lua on_death error", zap.Int("id", n.ID()), zap.Error(err))
		}
	})
	return 0
}

// remove_when(fn) removes the entity after the first frame fn returns true.
func (e *Engine) nodeRemoveWhen(L *lua.LState) int {
	n := checkNode(L, 1)
	fn := L.CheckFunction(2)
	self := L.Get(1)
	n.RemoveWhen(func(*sim.Entity) bool {
		if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, self); err != nil {
			e.log.Error("lua remove_when error", zap.Int("id", n.ID()), zap.Error(err))
			return false
		}
		ret := e.vm.Get(-1)
		e.vm.Pop(1)
		return lua.LVAsBool(ret)
	})
	return 0
}
