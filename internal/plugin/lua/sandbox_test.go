package lua

import (
	"strings"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestSandboxDangerousFunctionsRemoved(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	for _, name := range dangerousGlobals {
		if state.GetGlobal(name) != glua.LNil {
			t.Errorf("%s should be removed", name)
		}
	}
	if state.GetGlobal("io") != glua.LNil {
		t.Error("io should not be opened")
	}
	if state.GetGlobal("debug") != glua.LNil {
		t.Error("debug should not be opened")
	}
}

func TestSandboxRestrictedOs(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	code := `
		has_getenv = type(os.getenv) == "function"
		has_time = type(os.time) == "function"
		has_execute = os.execute ~= nil
		has_remove = os.remove ~= nil
		required_execute = require("os").execute ~= nil
	`
	if err := state.DoString(code); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	for name, want := range map[string]glua.LValue{
		"has_getenv":       glua.LTrue,
		"has_time":         glua.LTrue,
		"has_execute":      glua.LFalse,
		"has_remove":       glua.LFalse,
		"required_execute": glua.LFalse,
	} {
		if got := state.GetGlobal(name); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestSandboxRequire(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`local s = require("string"); assert(s.upper("a") == "A")`); err != nil {
		t.Errorf("require(string) error = %v", err)
	}

	err := state.DoString(`require("socket")`)
	if err == nil || !strings.Contains(err.Error(), "not available") {
		t.Errorf("require(socket) error = %v, want not available", err)
	}

	state.Preload("stage", func(L *glua.LState) int {
		mod := L.NewTable()
		mod.RawSetString("name", glua.LString("stage"))
		L.Push(mod)
		return 1
	})
	if !state.Sandbox().Allowed("stage") {
		t.Fatal("Allowed(stage) = false after Preload")
	}
	if err := state.DoString(`assert(require("stage").name == "stage")`); err != nil {
		t.Errorf("require(stage) error = %v", err)
	}
}
