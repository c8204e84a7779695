package scripting

import (
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/Faultbox/curtainfire/internal/sim"
	"github.com/Faultbox/curtainfire/pkg/math"
)

func (e *Engine) shotType(L *lua.LState) int {
	L.Push(lua.LString(checkShot(L, 1).Property().Type))
	return 1
}

func (e *Engine) shotVelocity(L *lua.LState) int {
	L.Push(vecTable(L, checkShot(L, 1).Velocity()))
	return 1
}

func (e *Engine) shotSetVelocity(L *lua.LState) int {
	s := checkShot(L, 1)
	v, _ := checkVec(L, 2)
	s.SetVelocity(v)
	return 0
}

func (e *Engine) shotSetUpward(L *lua.LState) int {
	s := checkShot(L, 1)
	v, _ := checkVec(L, 2)
	s.SetUpward(v)
	return 0
}

// set_curve(x1, y1, x2, y2, length [, sync]) eases velocity. sync
// defaults to true.
func (e *Engine) shotSetCurve(L *lua.LState) int {
	s := checkShot(L, 1)
	p1 := math.Vec2{X: float32(L.CheckNumber(2)), Y: float32(L.CheckNumber(3))}
	p2 := math.Vec2{X: float32(L.CheckNumber(4)), Y: float32(L.CheckNumber(5))}
	length := L.CheckInt(6)
	sync := L.OptBool(7, true)
	raise(L, s.SetCurve(p1, p2, length, sync))
	return 0
}

func (e *Engine) shotClearCurve(L *lua.LState) int {
	checkShot(L, 1).ClearCurve()
	return 0
}

func (e *Engine) shotSetCollision(L *lua.LState) int {
	s := checkShot(L, 1)
	p, err := sim.ParseCollisionPolicy(L.CheckString(2))
	if err != nil {
		L.ArgError(2, err.Error())
	}
	s.SetCollision(p)
	return 0
}

func (e *Engine) shotArmCollision(L *lua.LState) int {
	checkShot(L, 1).ArmCollision(L.OptBool(2, true))
	return 0
}

func (e *Engine) shotSetRecord(L *lua.LState) int {
	s := checkShot(L, 1)
	p, err := sim.ParseRecordPolicy(L.CheckString(2))
	if err != nil {
		L.ArgError(2, err.Error())
	}
	s.SetRecordPolicy(p)
	return 0
}

func (e *Engine) shotKeyframe(L *lua.LState) int {
	raise(L, checkShot(L, 1).AddBoneKeyframe())
	return 0
}

// vertex_morph(name, fn) builds a morph whose offsets are fn(vertex).
// fn receives and returns a vector table.
func (e *Engine) shotVertexMorph(L *lua.LState) int {
	s := checkShot(L, 1)
	name := L.CheckString(2)
	fn := L.CheckFunction(3)

	var callErr error
	global, err := s.CreateVertexMorph(name, func(pos math.Vec3) math.Vec3 {
		if callErr != nil {
			return math.Vec3{}
		}
		if callErr = L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, vecTable(L, pos)); callErr != nil {
			return math.Vec3{}
		}
		ret := L.Get(-1)
		L.Pop(1)
		t, ok := ret.(*lua.LTable)
		if !ok {
			callErr = errors.New("vertex_morph: function must return a vector")
			return math.Vec3{}
		}
		return tableVec(t)
	})
	raise(L, callErr)
	raise(L, err)
	L.Push(lua.LString(global))
	return 1
}

func (e *Engine) shotMorphKeyframe(L *lua.LState) int {
	s := checkShot(L, 1)
	raise(L, s.AddMorphKeyframe(L.CheckString(2), L.CheckInt(3), float32(L.CheckNumber(4))))
	return 0
}
