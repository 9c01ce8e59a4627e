package app

import (
	"fmt"
	"path/filepath"
	"strings"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/keystage/internal/notify"
	"github.com/dshills/keystage/internal/plugin"
	"github.com/dshills/keystage/internal/plugin/lua"
	"github.com/dshills/keystage/internal/schedule"
)

// StageModule is the name configuration scripts require to reach the host.
const StageModule = "stage"

// stageLoader builds the stage module table.
func (app *Application) stageLoader(L *glua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "now", L.NewFunction(app.luaSchedule(schedule.Immediate)))
	L.SetField(mod, "now_if_args", L.NewFunction(app.luaSchedule(schedule.ImmediateIfFileArgs)))
	L.SetField(mod, "later", L.NewFunction(app.luaSchedule(schedule.Deferred)))
	L.SetField(mod, "add", L.NewFunction(app.luaAdd))
	L.SetField(mod, "setup", L.NewFunction(app.luaSetup))
	L.SetField(mod, "notify", L.NewFunction(app.luaNotify))
	L.SetField(mod, "has_file_args", L.NewFunction(app.luaHasFileArgs))
	L.SetField(mod, "files", L.NewFunction(app.luaFiles))

	L.Push(mod)
	return 1
}

// now(fn [, name]), now_if_args(fn [, name]), later(fn [, name])
// Queues fn into a bucket. The task is named after where fn was defined
// unless a name is given.
func (app *Application) luaSchedule(b schedule.Bucket) glua.LGFunction {
	return func(L *glua.LState) int {
		fn := L.CheckFunction(1)
		name := L.OptString(2, "")
		if name == "" {
			name = lua.FuncLocation(fn)
		}

		state := app.lua
		app.scheduler.Register(b, name, func() error {
			_, err := state.CallFunction(fn)
			return err
		})
		return 0
	}
}

// add(source | spec) -> path
// Registers a plugin and makes sure it is installed. spec is a table with
// source (or [1]), name, checkout, depends and hooks.
func (app *Application) luaAdd(L *glua.LState) int {
	spec, err := app.specFromLua(L, L.Get(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}

	if app.declareOnly {
		err = app.plugins.Declare(spec)
	} else {
		err = app.install(spec)
	}
	if err != nil {
		L.RaiseError("stage.add: %v", err)
		return 0
	}

	spec, _ = spec.Normalize()
	if e, ok := app.plugins.Get(spec.Name); ok && e.Path != "" {
		L.Push(glua.LString(e.Path))
		return 1
	}
	L.Push(glua.LNil)
	return 1
}

// install adds spec to the registry. Git and hooks do not count against
// the script's execution timeout; hooks are timed on their own.
func (app *Application) install(spec plugin.Spec) error {
	resume := app.lua.Suspend()
	defer resume()
	return app.plugins.Add(app.runContext(), spec)
}

func (app *Application) specFromLua(L *glua.LState, lv glua.LValue) (plugin.Spec, error) {
	if s, ok := lv.(glua.LString); ok {
		return plugin.Spec{Source: string(s)}, nil
	}
	t, ok := lv.(*glua.LTable)
	if !ok {
		return plugin.Spec{}, fmt.Errorf("expected source string or spec table, got %s", lv.Type())
	}
	bridge := lua.NewBridge(L)

	var spec plugin.Spec
	if s, ok := bridge.TableString(t, "source"); ok {
		spec.Source = s
	} else if s, ok := t.RawGetInt(1).(glua.LString); ok {
		spec.Source = string(s)
	}
	spec.Name, _ = bridge.TableString(t, "name")
	spec.Checkout, _ = bridge.TableString(t, "checkout")

	if deps, ok := bridge.TableTable(t, "depends"); ok {
		list, err := bridge.StringList(deps)
		if err != nil {
			return plugin.Spec{}, fmt.Errorf("depends: %w", err)
		}
		spec.Depends = list
	}

	if hooks, ok := bridge.TableTable(t, "hooks"); ok {
		var err error
		hooks.ForEach(func(k, v glua.LValue) {
			if err != nil {
				return
			}
			fn, ok := v.(*glua.LFunction)
			if !ok {
				err = fmt.Errorf("hooks.%s: expected function, got %s", k.String(), v.Type())
				return
			}
			err = spec.Hooks.Set(k.String(), app.luaHook(fn))
		})
		if err != nil {
			return plugin.Spec{}, err
		}
	}
	return spec, nil
}

// luaHook adapts a Lua function to a plugin lifecycle hook. The function
// receives a table with name, path, source and hook.
func (app *Application) luaHook(fn *glua.LFunction) plugin.HookFunc {
	return func(ev plugin.HookEvent) error {
		bridge := lua.NewBridge(app.lua.LuaState())
		arg := bridge.ToLuaValue(map[string]any{
			"name":   ev.Name,
			"path":   ev.Path,
			"source": ev.Source,
			"hook":   ev.Hook,
		})
		_, err := app.lua.CallFunction(fn, arg)
		return err
	}
}

// setup(tool, opts)
// Validates and stores the options of a built-in tool.
func (app *Application) luaSetup(L *glua.LState) int {
	tool := L.CheckString(1)

	var raw map[string]any
	switch v := L.Get(2).(type) {
	case *glua.LNilType:
	case *glua.LTable:
		m, ok := lua.NewBridge(L).ToGoValue(v).(map[string]any)
		if !ok {
			L.ArgError(2, "options must be a table with named fields")
			return 0
		}
		raw = m
	default:
		L.ArgError(2, fmt.Sprintf("options must be a table, got %s", v.Type()))
		return 0
	}

	if _, err := app.tools.Configure(tool, raw); err != nil {
		L.RaiseError("stage.setup: %v", err)
		return 0
	}
	app.Logger().WithComponent("tools").Debug("configured %s", tool)
	return 0
}

// notify(msg [, level])
// Sends a diagnostic attributed to the calling line.
func (app *Application) luaNotify(L *glua.LState) int {
	msg := L.CheckString(1)
	name := L.OptString(2, "info")

	level, ok := notify.ParseLevel(name)
	if !ok {
		L.ArgError(2, fmt.Sprintf("unknown level %q", name))
		return 0
	}

	app.notifier.Notify(notify.Diagnostic{
		Level:   level,
		Source:  callerLocation(L),
		Message: msg,
	})
	return 0
}

// has_file_args() -> bool
func (app *Application) luaHasFileArgs(L *glua.LState) int {
	L.Push(glua.LBool(app.startup.InvokedWithFileArgs))
	return 1
}

// files() -> {string}
// Returns the file arguments the editor was started with.
func (app *Application) luaFiles(L *glua.LState) int {
	L.Push(lua.NewBridge(L).ToLuaValue(append([]string(nil), app.opts.Files...)))
	return 1
}

// callerLocation returns "file:line" of the Lua code calling the current
// Go function.
func callerLocation(L *glua.LState) string {
	where := strings.TrimSuffix(L.Where(1), ":")
	if where == "" {
		return "lua"
	}
	return filepath.Base(where)
}
