package lua

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook"
)

// ModuleName is the global the hook API is installed under.
const ModuleName = "hooks"

// HookModule exposes a hook.Hooks instance to the scripts of one State as
// the global "hooks" table:
//
//	hooks.register(name, fn [, opts])        -> id
//	hooks.register_async(name, fn [, opts])  -> id
//	hooks.unregister(id)                     -> bool
//	hooks.name(segment, ...)                 -> "segment.segment"
//	hooks.priority.core .. hooks.priority.lowest
//
// opts is a table with optional priority (number or band name), id and
// domain fields. Handlers are owned by the plugin: an id held by another
// plugin cannot be reused, and unregister only removes the plugin's own
// handlers. Handlers receive a ctx table with hook, params, get(key)
// and set(key, value). A handler fails by raising an error or by
// returning false and an optional message.
type HookModule struct {
	hooks  *hook.Hooks
	state  *State
	bridge *Bridge
	plugin string
	domain string

	mu     sync.Mutex
	ids    []string
	closed bool
}

// NewHookModule creates a module registering into hooks on behalf of plugin.
// Handlers are tagged with domain unless a registration names another.
func NewHookModule(hooks *hook.Hooks, state *State, plugin, domain string) *HookModule {
	if domain == "" {
		domain = plugin
	}
	return &HookModule{
		hooks:  hooks,
		state:  state,
		bridge: NewBridge(state.L),
		plugin: plugin,
		domain: domain,
	}
}

// Install registers the module table into the Lua state.
func (m *HookModule) Install() error {
	return m.state.Do(context.Background(), func(L *lua.LState) error {
		mod := L.NewTable()
		L.SetField(mod, "register", L.NewFunction(m.register(hook.KindSync)))
		L.SetField(mod, "register_async", L.NewFunction(m.register(hook.KindAsync)))
		L.SetField(mod, "unregister", L.NewFunction(m.unregister))
		L.SetField(mod, "name", L.NewFunction(hookName))

		priorities := L.NewTable()
		for name, p := range hook.Priorities {
			L.SetField(priorities, name, lua.LNumber(p))
		}
		L.SetField(mod, "priority", priorities)

		L.SetGlobal(ModuleName, mod)
		return nil
	})
}

// Registered returns the IDs of the handlers the module currently owns, in
// registration order.
func (m *HookModule) Registered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, len(m.ids))
	copy(ids, m.ids)
	return ids
}

// Cleanup unregisters every handler the module registered. Later
// registrations from the script fail.
func (m *HookModule) Cleanup() int {
	m.mu.Lock()
	ids := m.ids
	m.ids = nil
	m.closed = true
	m.mu.Unlock()

	removed := 0
	for _, id := range ids {
		removed += m.hooks.UnregisterOwned(id, m.plugin)
	}
	return removed
}

// name(segment, ...) -> dotted hook name
func hookName(L *lua.LState) int {
	segments := make([]string, L.GetTop())
	for i := range segments {
		segments[i] = L.CheckString(i + 1)
	}
	L.Push(lua.LString(hook.Name(segments...)))
	return 1
}

// register(name, fn [, opts]) -> id
func (m *HookModule) register(kind hook.Kind) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		opts := L.OptTable(3, nil)

		regOpts, err := m.registerOptions(opts)
		if err != nil {
			L.ArgError(3, err.Error())
			return 0
		}

		m.mu.Lock()
		closed := m.closed
		m.mu.Unlock()
		if closed {
			L.RaiseError("%s", ErrModuleClosed.Error())
			return 0
		}

		var id string
		if kind == hook.KindSync {
			id, err = m.hooks.Register(name, func(hc *hook.Context) error {
				return m.invoke(context.Background(), fn, hc)
			}, regOpts...)
		} else {
			id, err = m.hooks.RegisterAsync(name, func(ctx context.Context, hc *hook.Context) error {
				return m.invoke(ctx, fn, hc)
			}, regOpts...)
		}
		if err != nil {
			L.RaiseError("register %q: %s", name, err.Error())
			return 0
		}

		m.track(id)
		L.Push(lua.LString(id))
		return 1
	}
}

func (m *HookModule) registerOptions(opts *lua.LTable) ([]hook.RegisterOption, error) {
	regOpts := []hook.RegisterOption{hook.WithDomain(m.domain), hook.WithOwner(m.plugin)}
	if opts == nil {
		return regOpts, nil
	}

	switch p := opts.RawGetString("priority").(type) {
	case lua.LNumber:
		regOpts = append(regOpts, hook.WithPriority(hook.Priority(int(p))))
	case lua.LString:
		priority, ok := hook.Priorities[string(p)]
		if !ok {
			return nil, fmt.Errorf("unknown priority %q", string(p))
		}
		regOpts = append(regOpts, hook.WithPriority(priority))
	case *lua.LNilType:
	default:
		return nil, fmt.Errorf("priority must be a number or name, got %s", p.Type())
	}

	if id, ok := m.bridge.GetTableString(opts, "id"); ok && id != "" {
		regOpts = append(regOpts, hook.WithID(id))
	}
	if domain, ok := m.bridge.GetTableString(opts, "domain"); ok && domain != "" {
		regOpts = append(regOpts, hook.WithDomain(domain))
	}
	return regOpts, nil
}

func (m *HookModule) track(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.ids {
		if existing == id {
			return
		}
	}
	m.ids = append(m.ids, id)
}

// unregister(id) -> bool
// Only handlers registered by this module can be removed.
func (m *HookModule) unregister(L *lua.LState) int {
	id := L.CheckString(1)

	m.mu.Lock()
	idx := -1
	for i, existing := range m.ids {
		if existing == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		L.Push(lua.LFalse)
		return 1
	}
	m.ids = append(m.ids[:idx:idx], m.ids[idx+1:]...)
	m.mu.Unlock()

	L.Push(lua.LBool(m.hooks.UnregisterOwned(id, m.plugin) > 0))
	return 1
}

// invoke calls a Lua handler with a ctx table bound to hc.
func (m *HookModule) invoke(ctx context.Context, fn *lua.LFunction, hc *hook.Context) error {
	return m.state.Do(ctx, func(L *lua.LState) error {
		top := L.GetTop()
		defer L.SetTop(top)

		L.Push(fn)
		L.Push(m.contextTable(L, hc))
		if err := L.PCall(1, 2, nil); err != nil {
			return err
		}

		ok, msg := L.Get(-2), L.Get(-1)
		if ok == lua.LFalse {
			if msg == lua.LNil {
				return ErrHandlerFailed
			}
			return fmt.Errorf("%w: %s", ErrHandlerFailed, msg.String())
		}
		return nil
	})
}

// contextTable builds the ctx table handed to a Lua handler. Its get and
// set functions read and write hc directly, so a mutation is visible to
// every later handler of the pass, Lua or Go.
func (m *HookModule) contextTable(L *lua.LState, hc *hook.Context) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("hook", lua.LString(hc.Hook()))
	t.RawSetString("params", m.bridge.ToLuaValue(hc.Params()))

	// argBase lets ctx.get(k) and ctx:get(k) both work.
	argBase := func(L *lua.LState) int {
		if L.Get(1) == t {
			return 2
		}
		return 1
	}

	t.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		v, _ := hc.Get(L.CheckString(argBase(L)))
		L.Push(m.bridge.ToLuaValue(v))
		return 1
	}))
	t.RawSetString("set", L.NewFunction(func(L *lua.LState) int {
		base := argBase(L)
		hc.Set(L.CheckString(base), m.bridge.ToGoValue(L.Get(base+1)))
		return 0
	}))
	t.RawSetString("has", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(hc.Has(L.CheckString(argBase(L)))))
		return 1
	}))
	t.RawSetString("delete", L.NewFunction(func(L *lua.LState) int {
		hc.Delete(L.CheckString(argBase(L)))
		return 0
	}))
	return t
}
