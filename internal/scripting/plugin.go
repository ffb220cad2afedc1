package scripting

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/plugin"
)

// LuaPlugin adapts one script directory into the plugin capability contract.
// Every hook looks up the matching Lua global and no-ops when the script does
// not define it. One isolated LState per plugin; single-goroutine access only
// (registry and tick both run on the host loop).
type LuaPlugin struct {
	manifest *Manifest
	dir      string
	vm       *lua.LState
	pc       *plugin.Context
	log      *zap.Logger
	ticker   *tickSystem // non-nil while active and the script defines on_tick
}

func NewLuaPlugin(m *Manifest, dir string, log *zap.Logger) *LuaPlugin {
	return &LuaPlugin{
		manifest: m,
		dir:      dir,
		log:      log.Named(m.Name),
	}
}

func (p *LuaPlugin) Metadata() plugin.Metadata { return p.manifest.Metadata() }

func (p *LuaPlugin) Algorithms() []plugin.Algorithm { return p.manifest.PluginAlgorithms() }

// Initialize creates the VM, installs the host API, runs the entry script,
// then calls the script's optional initialize().
func (p *LuaPlugin) Initialize(ctx context.Context, pc *plugin.Context) error {
	p.pc = pc
	p.vm = lua.NewState(lua.Options{SkipOpenLibs: false})
	p.vm.SetGlobal("API_VERSION", lua.LNumber(1))
	p.installAPI()

	entry := filepath.Join(p.dir, p.manifest.Entry)
	if err := p.vm.DoFile(entry); err != nil {
		p.vm.Close()
		p.vm = nil
		return fmt.Errorf("run entry script %s: %w", entry, err)
	}
	return p.callOptional("initialize")
}

func (p *LuaPlugin) Cleanup(ctx context.Context) error {
	if p.vm == nil {
		return nil
	}
	err := p.callOptional("cleanup")
	p.vm.Close()
	p.vm = nil
	return err
}

func (p *LuaPlugin) OnLoad(ctx context.Context) error   { return p.callOptional("on_load") }
func (p *LuaPlugin) OnUnload(ctx context.Context) error { return p.callOptional("on_unload") }

// OnActivate applies the manifest's parameter definitions, calls the script's
// on_activate, and registers a tick system when the script defines on_tick.
func (p *LuaPlugin) OnActivate(ctx context.Context) error {
	for _, ps := range p.manifest.Parameters {
		if err := p.pc.Params.Define(ps.Name, ps.Default, ps.Min, ps.Max); err != nil {
			return fmt.Errorf("define parameter %q: %w", ps.Name, err)
		}
	}
	if err := p.callOptional("on_activate"); err != nil {
		return err
	}
	if p.vm.GetGlobal("on_tick") != lua.LNil && p.ticker == nil {
		p.ticker = &tickSystem{p: p}
		p.pc.World.RegisterSystem(p.ticker)
	}
	return nil
}

func (p *LuaPlugin) OnDeactivate(ctx context.Context) error {
	if p.ticker != nil {
		p.pc.World.UnregisterSystem(p.ticker)
		p.ticker = nil
	}
	return p.callOptional("on_deactivate")
}

func (p *LuaPlugin) OnParameterChanged(ctx context.Context, name string, value float64) error {
	return p.callOptional("on_parameter_changed", lua.LString(name), lua.LNumber(value))
}

func (p *LuaPlugin) OnSimulationStateChanged(ctx context.Context, state plugin.SimulationState) error {
	return p.callOptional("on_simulation_state_changed", lua.LString(state.String()))
}

// callOptional invokes a Lua global if it exists. A missing global is not an
// error; scripts implement only the hooks they care about.
func (p *LuaPlugin) callOptional(name string, args ...lua.LValue) error {
	if p.vm == nil {
		return fmt.Errorf("plugin %q: vm not initialized", p.manifest.Name)
	}
	fn := p.vm.GetGlobal(name)
	if fn == lua.LNil {
		return nil
	}
	if err := p.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		return fmt.Errorf("lua %s: %w", name, err)
	}
	return nil
}

// tickSystem forwards world ticks into the script's on_tick(dt_seconds).
type tickSystem struct {
	p *LuaPlugin
}

func (t *tickSystem) Update(w *ecs.World, dt time.Duration) {
	if err := t.p.callOptional("on_tick", lua.LNumber(dt.Seconds())); err != nil {
		t.p.log.Error("lua on_tick failed", zap.Error(err))
	}
}

// ─── host API exposed to scripts ───

// installAPI builds the `reef` table: the plugin-facing ECS surface plus
// parameters and logging. Component values cross the boundary as Lua tables
// mirrored into map[string]any.
func (p *LuaPlugin) installAPI() {
	vm := p.vm
	t := vm.NewTable()

	vm.SetField(t, "create_entity", vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(p.pc.World.CreateEntity()))
		return 1
	}))
	vm.SetField(t, "destroy_entity", vm.NewFunction(func(L *lua.LState) int {
		id := ecs.Entity(L.CheckInt(1))
		L.Push(lua.LBool(p.pc.World.DestroyEntity(id)))
		return 1
	}))
	vm.SetField(t, "add_component", vm.NewFunction(func(L *lua.LState) int {
		id := ecs.Entity(L.CheckInt(1))
		name := L.CheckString(2)
		value := luaToGo(L.CheckAny(3))
		p.pc.World.AddComponent(id, name, value)
		return 0
	}))
	vm.SetField(t, "get_component", vm.NewFunction(func(L *lua.LState) int {
		id := ecs.Entity(L.CheckInt(1))
		name := L.CheckString(2)
		c, ok := p.pc.World.GetComponent(id, name)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, c))
		return 1
	}))
	vm.SetField(t, "remove_component", vm.NewFunction(func(L *lua.LState) int {
		id := ecs.Entity(L.CheckInt(1))
		p.pc.World.RemoveComponent(id, L.CheckString(2))
		return 0
	}))
	vm.SetField(t, "entities_with", vm.NewFunction(func(L *lua.LState) int {
		names := make([]string, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			names[i-1] = L.CheckString(i)
		}
		result := L.NewTable()
		for i, e := range p.pc.World.EntitiesWith(names...) {
			result.RawSetInt(i+1, lua.LNumber(e))
		}
		L.Push(result)
		return 1
	}))
	vm.SetField(t, "get_parameter", vm.NewFunction(func(L *lua.LState) int {
		v, ok := p.pc.Params.Get(L.CheckString(1))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(v))
		return 1
	}))
	vm.SetField(t, "log", vm.NewFunction(func(L *lua.LState) int {
		p.log.Info(L.CheckString(1))
		return 0
	}))

	vm.SetGlobal("reef", t)
}

// luaToGo mirrors a Lua value into Go. Tables with only positive integer keys
// become slices, everything else becomes map[string]any.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, luaToGo(val.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]any)
		val.ForEach(func(k, v lua.LValue) {
			m[k.String()] = luaToGo(v)
		})
		return m
	default:
		return nil
	}
}

// goToLua mirrors a Go value into Lua. Unknown types render as their string
// form; scripts only ever see data they or a scene file put in.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, goToLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, goToLua(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}
