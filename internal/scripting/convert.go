package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/Faultbox/curtainfire/internal/sim"
	"github.com/Faultbox/curtainfire/pkg/math"
)

// vec(x, y, z) builds a vector table.
func luaVec(L *lua.LState) int {
	L.Push(vecTable(L, math.Vec3{
		X: float32(L.OptNumber(1, 0)),
		Y: float32(L.OptNumber(2, 0)),
		Z: float32(L.OptNumber(3, 0)),
	}))
	return 1
}

func vecTable(L *lua.LState, v math.Vec3) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	t.RawSetString("z", lua.LNumber(v.Z))
	return t
}

// tableVec reads {x=, y=, z=} or {1, 2, 3}.
func tableVec(t *lua.LTable) math.Vec3 {
	get := func(key string, idx int) float32 {
		v := t.RawGetString(key)
		if v == lua.LNil {
			v = t.RawGetInt(idx)
		}
		return float32(lua.LVAsNumber(v))
	}
	return math.Vec3{X: get("x", 1), Y: get("y", 2), Z: get("z", 3)}
}

// checkVec reads a vector at argument n, either as one table or as three
// numbers. It returns the index of the next argument.
func checkVec(L *lua.LState, n int) (math.Vec3, int) {
	if t, ok := L.Get(n).(*lua.LTable); ok {
		return tableVec(t), n + 1
	}
	return math.Vec3{
		X: float32(L.CheckNumber(n)),
		Y: float32(L.CheckNumber(n + 1)),
		Z: float32(L.CheckNumber(n + 2)),
	}, n + 3
}

// toValue maps a Lua value to an attribute. Tables, functions and
// userdata are kept as opaque handles.
func toValue(v lua.LValue) sim.Value {
	switch lv := v.(type) {
	case lua.LBool:
		return sim.Bool(bool(lv))
	case lua.LNumber:
		return sim.Number(float64(lv))
	case lua.LString:
		return sim.String(string(lv))
	case *lua.LNilType:
		return sim.Value{}
	default:
		return sim.Opaque(v)
	}
}

func fromValue(L *lua.LState, v sim.Value) lua.LValue {
	switch v.Kind() {
	case sim.KindBool:
		b, _ := v.AsBool()
		return lua.LBool(b)
	case sim.KindNumber:
		n, _ := v.AsNumber()
		return lua.LNumber(n)
	case sim.KindString:
		s, _ := v.AsString()
		return lua.LString(s)
	case sim.KindVec3:
		vec, _ := v.AsVec3()
		return vecTable(L, vec)
	case sim.KindOpaque:
		o, _ := v.AsOpaque()
		if lv, ok := o.(lua.LValue); ok {
			return lv
		}
	}
	return lua.LNil
}
