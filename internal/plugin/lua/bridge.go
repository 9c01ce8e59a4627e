package lua

import (
	"fmt"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts values between Lua and Go.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value.
// Functions are returned as *lua.LFunction.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LFunction:
		return v
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

// tableToGo converts a sequence to []any and anything else to map[string]any.
// An empty table becomes an empty map.
func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n, ok := sequenceLen(t); ok && n > 0 {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = b.toGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[keyString(k)] = b.toGo(v, visited)
	})
	return m
}

// sequenceLen reports the length of t if its keys are exactly 1..n.
func sequenceLen(t *lua.LTable) (int, bool) {
	count, maxN := 0, 0
	isSeq := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 {
			isSeq = false
			return
		}
		if int(kn) > maxN {
			maxN = int(kn)
		}
	})
	return maxN, isSeq && count == maxN
}

func keyString(k lua.LValue) string {
	switch kv := k.(type) {
	case lua.LString:
		return string(kv)
	case lua.LNumber:
		return kv.String()
	default:
		return k.String()
	}
}

// ToLuaValue converts a Go value to a Lua value.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
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
	case []string:
		t := b.L.NewTable()
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []any:
		t := b.L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, b.ToLuaValue(item))
		}
		return t
	case map[string]any:
		t := b.L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.RawSetString(k, b.ToLuaValue(val[k]))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// TableString gets a string field from a Lua table.
func (b *Bridge) TableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// TableFunc gets a function field from a Lua table.
func (b *Bridge) TableFunc(t *lua.LTable, key string) (*lua.LFunction, bool) {
	f, ok := t.RawGetString(key).(*lua.LFunction)
	return f, ok
}

// TableTable gets a table field from a Lua table.
func (b *Bridge) TableTable(t *lua.LTable, key string) (*lua.LTable, bool) {
	sub, ok := t.RawGetString(key).(*lua.LTable)
	return sub, ok
}

// StringList converts a sequence of strings. Non-string items are rejected.
func (b *Bridge) StringList(t *lua.LTable) ([]string, error) {
	var out []string
	var err error
	n := t.Len()
	for i := 1; i <= n; i++ {
		s, ok := t.RawGetInt(i).(lua.LString)
		if !ok {
			err = fmt.Errorf("item %d: expected string, got %s", i, t.RawGetInt(i).Type())
			break
		}
		out = append(out, string(s))
	}
	return out, err
}

// FuncLocation returns "file:line" for where fn was defined, or "" for Go
// functions.
func FuncLocation(fn *lua.LFunction) string {
	if fn == nil || fn.IsG || fn.Proto == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(fn.Proto.SourceName), fn.Proto.LineDefined)
}
