package lua

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func TestNewState(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	defer state.Close()

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}
	if state.LuaState() == nil {
		t.Error("LuaState() is nil")
	}
	if state.Sandbox() == nil {
		t.Error("Sandbox() is nil")
	}
}

func TestStateDoString(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`x = 1 + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if num, ok := state.GetGlobal("x").(glua.LNumber); !ok || float64(num) != 2 {
		t.Errorf("x = %v, want 2", state.GetGlobal("x"))
	}
}

func TestStateDoStringSyntaxError(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`invalid lua code !!!`); err == nil {
		t.Error("DoString() with invalid code should return error")
	}
}

func TestStateDoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.lua")
	if err := os.WriteFile(path, []byte("loaded = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	state, _ := NewState()
	defer state.Close()

	if err := state.DoFile(path); err != nil {
		t.Fatalf("DoFile() error = %v", err)
	}
	if state.GetGlobal("loaded") != glua.LTrue {
		t.Error("loaded global not set")
	}
	if err := state.DoFile(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("DoFile() with missing file should return error")
	}
}

func TestStateCallFunction(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if err := state.DoString(`function add(a, b) return a + b, "sum" end`); err != nil {
		t.Fatal(err)
	}

	results, err := state.CallFunction(state.GetGlobal("add"), glua.LNumber(2), glua.LNumber(3))
	if err != nil {
		t.Fatalf("CallFunction() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("CallFunction() returned %d values, want 2", len(results))
	}
	if results[0].(glua.LNumber) != 5 || results[1].String() != "sum" {
		t.Errorf("results = %v", results)
	}
	if top := state.LuaState().GetTop(); top != 0 {
		t.Errorf("stack top = %d after call, want 0", top)
	}
}

func TestStateCallFunctionErrors(t *testing.T) {
	state, _ := NewState()
	defer state.Close()

	if _, err := state.CallFunction(glua.LString("nope")); !errors.Is(err, ErrNotFunction) {
		t.Errorf("CallFunction(string) error = %v, want %v", err, ErrNotFunction)
	}

	_ = state.DoString(`function fail() error("broken setup") end`)
	_, err := state.CallFunction(state.GetGlobal("fail"))
	if err == nil || !strings.Contains(err.Error(), "broken setup") {
		t.Errorf("CallFunction(fail) error = %v, want message", err)
	}

	results, err := state.CallFunction(state.LuaState().NewFunction(func(*glua.LState) int { return 0 }))
	if err != nil || results == nil || len(results) != 0 {
		t.Errorf("CallFunction(no results) = %v, %v; want empty slice", results, err)
	}
}

func TestStateExecutionTimeout(t *testing.T) {
	state, _ := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer state.Close()

	err := state.DoString(`while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("DoString(loop) error = %v, want %v", err, ErrExecutionTimeout)
	}

	if err := state.DoString(`ok = 1`); err != nil {
		t.Errorf("DoString() after timeout error = %v", err)
	}
}

func TestStateSuspend(t *testing.T) {
	tests := []struct {
		name    string
		suspend bool
		wantErr error
	}{
		{"suspended", true, nil},
		{"not suspended", false, ErrExecutionTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, _ := NewState(WithExecutionTimeout(100 * time.Millisecond))
			defer state.Close()

			state.SetGlobal("host_work", state.LuaState().NewFunction(func(*glua.LState) int {
				if tt.suspend {
					defer state.Suspend()()
				}
				time.Sleep(300 * time.Millisecond)
				return 0
			}))

			err := state.DoString(`host_work(); done = true`)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DoString() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && state.GetGlobal("done") != glua.LTrue {
				t.Error("script did not continue after host work")
			}
		})
	}
}

func TestStateSuspendTimesNestedEntries(t *testing.T) {
	state, _ := NewState(WithExecutionTimeout(100 * time.Millisecond))
	defer state.Close()

	var nestedErr error
	state.SetGlobal("host_call", state.LuaState().NewFunction(func(L *glua.LState) int {
		fn := L.CheckFunction(1)
		defer state.Suspend()()
		_, nestedErr = state.CallFunction(fn)
		return 0
	}))

	if err := state.DoString(`host_call(function() while true do end end); done = true`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if !errors.Is(nestedErr, ErrExecutionTimeout) {
		t.Errorf("nested CallFunction() error = %v, want %v", nestedErr, ErrExecutionTimeout)
	}
	if state.GetGlobal("done") != glua.LTrue {
		t.Error("script did not continue after nested timeout")
	}
}

func TestStateClosedOperations(t *testing.T) {
	state, _ := NewState()
	if err := state.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := state.DoString(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() error = %v, want %v", err, ErrStateClosed)
	}
	if err := state.DoFile("init.lua"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoFile() error = %v, want %v", err, ErrStateClosed)
	}
	if _, err := state.CallFunction(glua.LNil); !errors.Is(err, ErrStateClosed) {
		t.Errorf("CallFunction() error = %v, want %v", err, ErrStateClosed)
	}
	if state.GetGlobal("x") != glua.LNil {
		t.Error("GetGlobal() on closed state should return LNil")
	}
}

func TestStatePrintRedirect(t *testing.T) {
	var out bytes.Buffer
	state, _ := NewState(WithStdout(&out))
	defer state.Close()

	if err := state.DoString(`print("hello", 42, true)`); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "hello\t42\ttrue\n" {
		t.Errorf("print output = %q", got)
	}
}
