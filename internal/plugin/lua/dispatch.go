package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undoredo/internal/dispatcher"
	"github.com/dshills/undoredo/internal/engine/variant"
)

// TableHandler performs operations on Lua tables. Methods are table fields
// holding functions, called with the table as self; properties are plain
// field assignments.
type TableHandler struct {
	bridge *Bridge
}

// NewTableHandler creates a handler that runs on the bridge's Lua state.
func NewTableHandler(b *Bridge) *TableHandler {
	return &TableHandler{bridge: b}
}

// CanHandle claims Lua tables.
func (h *TableHandler) CanHandle(target any) bool {
	_, ok := target.(*lua.LTable)
	return ok
}

// CallMethod calls tbl:method(args...).
func (h *TableHandler) CallMethod(target any, method string, args []variant.Value) error {
	tbl, ok := target.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w: %T", dispatcher.ErrNoHandler, target)
	}

	L := h.bridge.L
	fn, ok := L.GetField(tbl, method).(*lua.LFunction)
	if !ok {
		return fmt.Errorf("%w: %s", dispatcher.ErrUnknownMethod, method)
	}

	params := make([]lua.LValue, 0, len(args)+1)
	params = append(params, tbl)
	for _, arg := range args {
		params = append(params, h.bridge.ToLua(arg))
	}
	return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, params...)
}

// SetProperty assigns tbl[property] = value.
func (h *TableHandler) SetProperty(target any, property string, value variant.Value) error {
	tbl, ok := target.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w: %T", dispatcher.ErrNoHandler, target)
	}
	h.bridge.L.SetField(tbl, property, h.bridge.ToLua(value))
	return nil
}
