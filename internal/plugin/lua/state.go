package lua

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undoredo/internal/logging"
)

// DefaultExecutionTimeout bounds a single script run.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps gopher-lua with sandboxing and execution deadlines.
//
// IMPORTANT: gopher-lua's LState is not goroutine-safe. The mutex serializes
// script runs started from Go, but callbacks that re-enter Lua while a script
// is running (such as history replays dispatched to Lua tables) use the LState
// directly and must stay on the running script's goroutine.
type State struct {
	L *lua.LState

	mu sync.Mutex

	// Configuration
	timeout time.Duration
	logger  *slog.Logger

	sandbox *Sandbox

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the deadline for each DoFile/DoString call.
// Zero disables the deadline.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.timeout = d
	}
}

// WithLogger sets the logger that receives script print output.
func WithLogger(l *slog.Logger) StateOption {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	state := &State{
		timeout: DefaultExecutionTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	state.L = L
	openSafeLibraries(L)

	state.sandbox = NewSandbox(L, state.logger)
	state.sandbox.Install()

	return state
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// io, os, debug, package and channel stay closed.
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, path, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a chunk of Lua source.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, "<string>", func() error {
		return s.L.DoString(code)
	})
}

func (s *State) run(ctx context.Context, chunk string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := doWithRecovery(fn)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return &ScriptError{Chunk: chunk, Err: err}
}

// doWithRecovery executes a function with panic recovery.
func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// RegisterModule registers a global table with the given functions.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) *lua.LTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	mod := s.L.SetFuncs(s.L.NewTable(), funcs)
	s.L.SetGlobal(name, mod)
	return mod
}

// LuaState returns the underlying gopher-lua state.
//
// WARNING: Direct access to LState bypasses the mutex. The caller is
// responsible for staying on the script goroutine.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// Close releases all resources associated with the Lua state.
// After Close is called, DoFile and DoString return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.L.Close()
	s.closed = true
	return nil
}
