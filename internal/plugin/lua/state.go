// Package lua provides the sandboxed Lua runtime for user configuration.
package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single entry into Lua.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps a gopher-lua state with the configuration sandbox.
//
// gopher-lua's LState is not goroutine-safe. A State must be used from the
// goroutine that sequences startup.
type State struct {
	L *lua.LState

	executionTimeout time.Duration
	stdout           io.Writer

	sandbox *Sandbox
	closed  bool

	// The deadline of the running entry. ctx is nil while nothing is
	// timed, including while the entry is suspended.
	ctx      context.Context
	cancel   context.CancelFunc
	deadline time.Time
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout for each entry into Lua.
// Zero disables the timeout.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.executionTimeout = d
		}
	}
}

// WithStdout redirects Lua's print.
func WithStdout(w io.Writer) StateOption {
	return func(s *State) {
		if w != nil {
			s.stdout = w
		}
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{
		executionTimeout: DefaultExecutionTimeout,
		stdout:           os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	s.L = L

	openSafeLibraries(L)

	s.sandbox = NewSandbox(L, s.stdout)
	if err := s.sandbox.Install(); err != nil {
		L.Close()
		return nil, err
	}
	return s, nil
}

// openSafeLibraries opens only the libraries a configuration needs.
// io, debug and the full os library stay closed.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.OsLibName, lua.OpenOs},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	if s.closed {
		return ErrStateClosed
	}
	return s.guard(func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua chunk.
func (s *State) DoString(code string) error {
	if s.closed {
		return ErrStateClosed
	}
	return s.guard(func() error {
		return s.L.DoString(code)
	})
}

// CallFunction calls fn with args and returns its results.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) CallFunction(fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	if s.closed {
		return nil, ErrStateClosed
	}
	if fn == nil || fn.Type() != lua.LTFunction {
		return nil, ErrNotFunction
	}

	var results []lua.LValue
	err := s.guard(func() error {
		top := s.L.GetTop()
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(arg)
		}
		if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}

		n := s.L.GetTop() - top
		results = make([]lua.LValue, 0, n)
		for i := 1; i <= n; i++ {
			results = append(results, s.L.Get(top+i))
		}
		s.L.Pop(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// guard runs fn under the execution timeout and converts panics to errors.
// An entry made while another one is timed shares its deadline.
func (s *State) guard(fn func() error) (err error) {
	if s.executionTimeout > 0 && s.ctx == nil {
		s.arm(s.executionTimeout)
		defer func() {
			if s.disarm() && err != nil {
				err = fmt.Errorf("%w after %s: %v", ErrExecutionTimeout, s.executionTimeout, err)
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Suspend stops the deadline of the running entry while the host works on
// its behalf, for example cloning a plugin. Entries into Lua made before
// resume is called are timed on their own. resume restarts the clock with
// the time that was left when Suspend was called.
func (s *State) Suspend() (resume func()) {
	if s.ctx == nil {
		return func() {}
	}
	remaining := time.Until(s.deadline)
	s.disarm()

	resumed := false
	return func() {
		if resumed {
			return
		}
		resumed = true
		s.arm(remaining)
	}
}

func (s *State) arm(d time.Duration) {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), d)
	s.deadline = time.Now().Add(d)
	s.L.SetContext(s.ctx)
}

// disarm removes the deadline and reports whether it had expired.
func (s *State) disarm() bool {
	if s.ctx == nil {
		return false
	}
	s.L.RemoveContext()
	expired := errors.Is(s.ctx.Err(), context.DeadlineExceeded)
	s.cancel()
	s.ctx, s.cancel = nil, nil
	return expired
}

// Preload registers a Go module loader reachable through require(name).
func (s *State) Preload(name string, loader lua.LGFunction) {
	if s.closed {
		return
	}
	s.L.PreloadModule(name, loader)
	s.sandbox.Allow(name)
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// LuaState returns the underlying gopher-lua state.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// Sandbox returns the sandbox installed on this state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
