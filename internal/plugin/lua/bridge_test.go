package lua

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	glua "github.com/yuin/gopher-lua"
)

func TestBridgeToGoValue(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	code := `
		value = {
			formatters_by_ft = { lua = { "stylua" }, python = { "isort", "black" } },
			format_on_save = { timeout_ms = 500, lsp_format = "fallback" },
			ratio = 0.5,
			enabled = true,
			empty = {},
		}
	`
	if err := state.DoString(code); err != nil {
		t.Fatal(err)
	}

	b := NewBridge(state.LuaState())
	got := b.ToGoValue(state.GetGlobal("value"))

	want := map[string]any{
		"formatters_by_ft": map[string]any{
			"lua":    []any{"stylua"},
			"python": []any{"isort", "black"},
		},
		"format_on_save": map[string]any{
			"timeout_ms": int64(500),
			"lsp_format": "fallback",
		},
		"ratio":   0.5,
		"enabled": true,
		"empty":   map[string]any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToGoValue() mismatch (-want +got):\n%s", diff)
	}
}

func TestBridgeFunctionsAndCycles(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	code := `
		value = { hook = function() end }
		value.self = value
	`
	if err := state.DoString(code); err != nil {
		t.Fatal(err)
	}

	b := NewBridge(state.LuaState())
	m, ok := b.ToGoValue(state.GetGlobal("value")).(map[string]any)
	if !ok {
		t.Fatal("ToGoValue() did not return a map")
	}
	if _, ok := m["hook"].(*glua.LFunction); !ok {
		t.Errorf("hook = %T, want *lua.LFunction", m["hook"])
	}
	if m["self"] != nil {
		t.Errorf("self = %v, want nil for cycle", m["self"])
	}
}

func TestBridgeToLuaValue(t *testing.T) {
	state, _ := NewState()
	defer state.Close()
	b := NewBridge(state.LuaState())

	in := map[string]any{
		"files": []string{"a.go", "b.go"},
		"count": 2,
		"nested": map[string]any{
			"ok": true,
		},
		"list": []any{int64(1), "two"},
	}
	lv := b.ToLuaValue(in)
	if diff := cmp.Diff(map[string]any{
		"files":  []any{"a.go", "b.go"},
		"count":  int64(2),
		"nested": map[string]any{"ok": true},
		"list":   []any{int64(1), "two"},
	}, b.ToGoValue(lv)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if b.ToLuaValue(nil) != glua.LNil {
		t.Error("ToLuaValue(nil) should be LNil")
	}
}

func TestBridgeTableHelpers(t *testing.T) {
	state, _ := NewState()
	defer state.Close()
	if err := state.DoString(`spec = { source = "a/b", depends = { "c/d", "e/f" }, hooks = { post_install = function() end }, bad = { 1, "x" } }`); err != nil {
		t.Fatal(err)
	}

	b := NewBridge(state.LuaState())
	spec := state.GetGlobal("spec").(*glua.LTable)

	if s, ok := b.TableString(spec, "source"); !ok || s != "a/b" {
		t.Errorf("TableString(source) = %q, %v", s, ok)
	}
	deps, _ := b.TableTable(spec, "depends")
	list, err := b.StringList(deps)
	if err != nil {
		t.Fatalf("StringList() error = %v", err)
	}
	if diff := cmp.Diff([]string{"c/d", "e/f"}, list); diff != "" {
		t.Errorf("StringList() mismatch (-want +got):\n%s", diff)
	}
	bad, _ := b.TableTable(spec, "bad")
	if _, err := b.StringList(bad); err == nil {
		t.Error("StringList() with number item should fail")
	}
	hooks, _ := b.TableTable(spec, "hooks")
	fn, ok := b.TableFunc(hooks, "post_install")
	if !ok {
		t.Fatal("TableFunc(post_install) not found")
	}
	if loc := FuncLocation(fn); loc != "<string>:1" {
		t.Errorf("FuncLocation() = %q, want <string>:1", loc)
	}
}
