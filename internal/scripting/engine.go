// Package scripting drives a World from Lua pattern scripts.
package scripting

import (
	"fmt"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/Faultbox/curtainfire/internal/sim"
)

// APIVersion is exposed to scripts as API_VERSION.
const APIVersion = 1

// Engine wraps a single gopher-lua VM bound to one World.
// Single-goroutine access only: the World calls back into the VM from Step.
type Engine struct {
	vm    *lua.LState
	world *sim.World
	log   *zap.Logger
}

// NewEngine creates a Lua engine bound to w. moduleDirs are appended to the
// Lua module search path so scripts can require shared pattern libraries.
func NewEngine(w *sim.World, moduleDirs []string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	e := &Engine{vm: vm, world: w, log: log}

	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))
	vm.SetGlobal("START_FRAME", lua.LNumber(w.StartFrame()))
	vm.SetGlobal("END_FRAME", lua.LNumber(w.EndFrame()))

	e.registerEntityTypes()
	vm.SetFuncs(vm.G.Global, map[string]lua.LGFunction{
		"frame":    e.luaFrame,
		"shot":     e.luaShot,
		"entity":   e.luaEntity,
		"add_task": e.luaAddTask,
		"vec":      luaVec,
		"log":      e.luaLog,
	})

	if len(moduleDirs) > 0 {
		e.addModuleDirs(moduleDirs)
	}
	return e
}

func (e *Engine) addModuleDirs(dirs []string) {
	pkg, ok := e.vm.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	paths := []string{lua.LVAsString(pkg.RawGetString("path"))}
	for _, d := range dirs {
		paths = append(paths, filepath.Join(d, "?.lua"))
	}
	pkg.RawSetString("path", lua.LString(strings.Join(paths, ";")))
}

// LoadFile runs a pattern script. Top-level code runs at the world's
// current frame; scheduled tasks run later from World.Step.
func (e *Engine) LoadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// LoadString runs a pattern script held in memory.
func (e *Engine) LoadString(name, src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	e.log.Debug("loaded lua script", zap.String("name", name))
	return nil
}

// World returns the bound world.
func (e *Engine) World() *sim.World { return e.world }

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// call runs a Lua function in protected mode with no results.
func (e *Engine) call(fn *lua.LFunction, args ...lua.LValue) error {
	return e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...)
}

func (e *Engine) luaFrame(L *lua.LState) int {
	L.Push(lua.LNumber(e.world.Frame()))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info(L.CheckString(1), zap.Int("frame", e.world.Frame()))
	return 0
}

// luaAddTask registers a world task: add_task(fn, interval, times, wait).
func (e *Engine) luaAddTask(L *lua.LState) int {
	fn, interval, times, wait := e.checkTask(L, 1)
	e.world.AddTask(fn, interval, times, wait)
	return 0
}

// checkTask reads (fn, interval, times, wait) starting at argument n.
// interval is a frame count or a function of the run count.
func (e *Engine) checkTask(L *lua.LState, n int) (sim.TaskFunc, sim.IntervalFunc, int, int) {
	fn := L.CheckFunction(n)

	var interval sim.IntervalFunc
	switch v := L.Get(n + 1).(type) {
	case lua.LNumber:
		interval = sim.Every(int(v))
	case *lua.LFunction:
		interval = e.intervalFunc(v)
	case *lua.LNilType:
		interval = sim.Every(1)
	default:
		L.ArgError(n+1, "interval must be a number or function")
	}

	times := L.OptInt(n+2, 0)
	wait := L.OptInt(n+3, 0)

	task := func(run int) error {
		return e.call(fn, lua.LNumber(run))
	}
	return task, interval, times, wait
}

func (e *Engine) intervalFunc(fn *lua.LFunction) sim.IntervalFunc {
	return func(runs int) int {
		if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LNumber(runs)); err != nil {
			e.log.Error("lua interval error", zap.Error(err))
			return 1
		}
		ret := e.vm.Get(-1)
		e.vm.Pop(1)
		return int(lua.LVAsNumber(ret))
	}
}
