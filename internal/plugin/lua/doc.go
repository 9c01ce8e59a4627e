// Package lua runs user configuration scripts on an embedded, sandboxed
// gopher-lua runtime.
//
// # State
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(2 * time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	state.Preload("stage", stageLoader)
//	if err := state.DoFile("init.lua"); err != nil {
//	    return err
//	}
//
// Every entry into Lua (DoFile, DoString, CallFunction) runs under the
// execution timeout and converts Lua errors and Go panics into errors.
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load and loadstring are removed, os is reduced to getenv,
// time, clock and date, and require resolves built-in libraries and
// modules registered with Preload only.
//
// # Bridge
//
// The Bridge converts between Lua and Go values. Tables become
// map[string]any or []any, numbers become int64 when integral, and
// functions are kept as *lua.LFunction so callers can store callbacks.
package lua
