package lua

import (
	"math"
	"sort"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/engine/variant"
)

// handleTypeName is the metatable name of handle userdata.
const handleTypeName = "undoredo.handle"

// maxExactInt is the largest integer a Lua number holds exactly.
const maxExactInt = 1 << 53

// Bridge converts between Lua values and variant values.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state and registers the
// handle userdata type.
func NewBridge(L *lua.LState) *Bridge {
	b := &Bridge{L: L}
	b.registerHandleType()
	return b
}

func (b *Bridge) registerHandleType() {
	mt := b.L.NewTypeMetatable(handleTypeName)
	b.L.SetField(mt, "__tostring", b.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(b.CheckHandle(1).String()))
		return 1
	}))
	b.L.SetField(mt, "__eq", b.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(b.CheckHandle(1) == b.CheckHandle(2)))
		return 1
	}))
}

// NewHandle wraps h as Lua userdata.
func (b *Bridge) NewHandle(h object.Handle) *lua.LUserData {
	ud := b.L.NewUserData()
	ud.Value = h
	b.L.SetMetatable(ud, b.L.GetTypeMetatable(handleTypeName))
	return ud
}

// CheckHandle returns the handle argument at position n or raises an argument error.
func (b *Bridge) CheckHandle(n int) object.Handle {
	ud := b.L.CheckUserData(n)
	h, ok := ud.Value.(object.Handle)
	if !ok {
		b.L.ArgError(n, "handle expected")
	}
	return h
}

// ToValue converts a Lua value to a variant.
func (b *Bridge) ToValue(lv lua.LValue) variant.Value {
	return b.toValue(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toValue(lv lua.LValue, visited map[*lua.LTable]bool) variant.Value {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return variant.Nil()
	case lua.LBool:
		return variant.Bool(bool(v))
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
			return variant.Int(int64(f))
		}
		return variant.Float(f)
	case lua.LString:
		return variant.String(string(v))
	case *lua.LTable:
		if visited[v] {
			// Break circular reference
			return variant.Nil()
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToValue(v, visited)
	case *lua.LUserData:
		if h, ok := v.Value.(object.Handle); ok {
			return variant.Handle(h)
		}
		return variant.Opaque(v.Value)
	default:
		return variant.Opaque(lv)
	}
}

// tableToValue converts a sequence to a list and anything else to a map.
func (b *Bridge) tableToValue(t *lua.LTable, visited map[*lua.LTable]bool) variant.Value {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		list := make([]variant.Value, n)
		for i := 1; i <= n; i++ {
			list[i-1] = b.toValue(t.RawGetInt(i), visited)
		}
		return variant.List(list...)
	}

	fields := make(map[string]variant.Value, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'g', -1, 64)
		default:
			key = k.String()
		}
		fields[key] = b.toValue(v, visited)
	})
	return variant.Map(fields)
}

// ToLua converts a variant to a Lua value.
func (b *Bridge) ToLua(v variant.Value) lua.LValue {
	switch v.Kind() {
	case variant.KindBool:
		x, _ := v.AsBool()
		return lua.LBool(x)
	case variant.KindInt:
		x, _ := v.AsInt()
		return lua.LNumber(x)
	case variant.KindFloat:
		x, _ := v.AsFloat()
		return lua.LNumber(x)
	case variant.KindString:
		x, _ := v.AsString()
		return lua.LString(x)
	case variant.KindHandle:
		h, _ := v.AsHandle()
		return b.NewHandle(h)
	case variant.KindList:
		list, _ := v.AsList()
		t := b.L.CreateTable(len(list), 0)
		for _, item := range list {
			t.Append(b.ToLua(item))
		}
		return t
	case variant.KindMap:
		fields, _ := v.AsMap()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		t := b.L.CreateTable(0, len(fields))
		for _, k := range keys {
			t.RawSetString(k, b.ToLua(fields[k]))
		}
		return t
	case variant.KindOpaque:
		raw := v.Interface()
		if lv, ok := raw.(lua.LValue); ok {
			return lv
		}
		ud := b.L.NewUserData()
		ud.Value = raw
		return ud
	default:
		return lua.LNil
	}
}

// Args converts the Lua stack from position start to the top.
func (b *Bridge) Args(start int) []variant.Value {
	top := b.L.GetTop()
	if top < start {
		return nil
	}
	out := make([]variant.Value, 0, top-start+1)
	for i := start; i <= top; i++ {
		out = append(out, b.ToValue(b.L.Get(i)))
	}
	return out
}
