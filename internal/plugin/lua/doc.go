// Package lua provides the Lua runtime for hook plugins.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management with execution timeouts
//   - Go-Lua type conversion
//   - The "hooks" module scripts register handlers through
//
// # State
//
// A State opens only the base, table, string and math libraries and
// removes the base file loaders:
//
//	state := lua.NewState(lua.WithExecutionTimeout(2 * time.Second))
//	defer state.Close()
//
// # Hook Module
//
// HookModule binds a State to a hook.Hooks instance:
//
//	mod := lua.NewHookModule(hooks, state, "audit", "")
//	if err := mod.Install(); err != nil {
//	    return err
//	}
//	if err := state.DoFile(ctx, "audit.lua"); err != nil {
//	    return err
//	}
//
// with audit.lua:
//
//	hooks.register("user.save", function(ctx)
//	    ctx.set("audited", true)
//	end, { priority = hooks.priority.high })
//
//	hooks.register_async("user.saved", function(ctx)
//	    if ctx.params[1] == nil then
//	        return false, "missing user"
//	    end
//	end)
//
// Handlers of one State never run concurrently: every call takes the State
// lock.
package lua
