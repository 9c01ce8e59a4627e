package lua

import (
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// dangerousGlobals are removed from every configuration state.
var dangerousGlobals = []string{"dofile", "loadfile", "load", "loadstring"}

// safeOsFuncs are the os functions a configuration may use.
var safeOsFuncs = []string{"getenv", "time", "clock", "date"}

// builtinModules are reachable through require without preloading.
var builtinModules = []string{"string", "table", "math", "os"}

// Sandbox restricts what configuration scripts can reach.
type Sandbox struct {
	L      *lua.LState
	stdout io.Writer

	allowed map[string]bool
}

// NewSandbox creates a sandbox for L that prints to stdout.
func NewSandbox(L *lua.LState, stdout io.Writer) *Sandbox {
	s := &Sandbox{
		L:       L,
		stdout:  stdout,
		allowed: make(map[string]bool),
	}
	for _, name := range builtinModules {
		s.allowed[name] = true
	}
	return s
}

// Install applies the restrictions to the state.
func (s *Sandbox) Install() error {
	for _, name := range dangerousGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}
	if err := s.restrictOs(); err != nil {
		return err
	}
	s.installPrint()
	s.installRequire()
	return nil
}

// Allow makes a module name reachable through require.
func (s *Sandbox) Allow(name string) {
	s.allowed[name] = true
}

// Allowed reports whether require(name) is permitted.
func (s *Sandbox) Allowed(name string) bool {
	return s.allowed[name]
}

// restrictOs replaces the os table with a copy holding only safe functions.
func (s *Sandbox) restrictOs() error {
	full, ok := s.L.GetGlobal("os").(*lua.LTable)
	if !ok {
		return fmt.Errorf("sandbox: os library is not open")
	}

	safe := s.L.NewTable()
	for _, name := range safeOsFuncs {
		safe.RawSetString(name, full.RawGetString(name))
	}
	s.L.SetGlobal("os", safe)

	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		if loaded, ok := pkg.RawGetString("loaded").(*lua.LTable); ok {
			loaded.RawSetString("os", safe)
		}
	}
	return nil
}

// installPrint routes print to the configured writer.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		fmt.Fprintln(s.stdout, strings.Join(parts, "\t"))
		return 0
	}))
}

// installRequire replaces require with a whitelist check in front of the
// original loader. package.path and package.cpath are cleared so nothing
// is loaded from disk.
func (s *Sandbox) installRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	original := s.L.GetGlobal("require")
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !s.allowed[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(original)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}
