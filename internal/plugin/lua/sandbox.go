package lua

import (
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L      *lua.LState
	logger *slog.Logger
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState, logger *slog.Logger) *Sandbox {
	return &Sandbox{L: L, logger: logger}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Functions that load code from disk or strings
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
}

// installPrint routes print to the logger instead of stdout.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, top)
		for i := 1; i <= top; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		s.logger.Info(strings.Join(parts, "\t"), "source", "lua")
		return 0
	}))
}
