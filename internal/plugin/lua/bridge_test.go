package lua

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/engine/variant"
)

func newTestBridge(t *testing.T) (*State, *Bridge) {
	t.Helper()
	s := NewState()
	t.Cleanup(func() { _ = s.Close() })
	return s, NewBridge(s.LuaState())
}

func TestBridgeNumbers(t *testing.T) {
	_, b := newTestBridge(t)

	assert.Equal(t, variant.Int(3), b.ToValue(lua.LNumber(3)))
	assert.Equal(t, variant.Float(2.5), b.ToValue(lua.LNumber(2.5)))
	assert.Equal(t, variant.Float(1e300), b.ToValue(lua.LNumber(1e300)), "huge integral numbers stay float")
	assert.Equal(t, variant.Nil(), b.ToValue(lua.LNil))
	assert.Equal(t, variant.Nil(), b.ToValue(nil))
}

func TestBridgeTables(t *testing.T) {
	s, b := newTestBridge(t)

	require.NoError(t, s.DoString(context.Background(), `
		list = { 1, "two", true }
		record = { name = "n", pos = { 1, 2 } }
		cyclic = {}
		cyclic.self = cyclic
	`))

	list := b.ToValue(s.GetGlobal("list"))
	assert.Equal(t, variant.List(variant.Int(1), variant.String("two"), variant.Bool(true)), list)

	record := b.ToValue(s.GetGlobal("record"))
	fields, ok := record.AsMap()
	require.True(t, ok)
	assert.Equal(t, variant.String("n"), fields["name"])
	assert.Equal(t, variant.List(variant.Int(1), variant.Int(2)), fields["pos"])

	cyclic, ok := b.ToValue(s.GetGlobal("cyclic")).AsMap()
	require.True(t, ok)
	assert.True(t, cyclic["self"].IsNil(), "cycles are cut")
}

func TestBridgeToLua(t *testing.T) {
	_, b := newTestBridge(t)

	v := variant.Map(map[string]variant.Value{
		"items": variant.List(variant.Int(1), variant.Float(0.5)),
		"label": variant.String("x"),
		"none":  variant.Nil(),
	})
	tbl, ok := b.ToLua(v).(*lua.LTable)
	require.True(t, ok)

	items, ok := tbl.RawGetString("items").(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, 2, items.Len())
	assert.Equal(t, lua.LString("x"), tbl.RawGetString("label"))
	assert.Equal(t, lua.LNil, tbl.RawGetString("none"))

	back, ok := b.ToValue(tbl).AsMap()
	require.True(t, ok)
	assert.Len(t, back, 2, "nil fields do not exist in Lua tables")
	assert.Equal(t, variant.String("x"), back["label"])
	assert.Equal(t, variant.List(variant.Int(1), variant.Float(0.5)), back["items"])
}

func TestBridgeHandles(t *testing.T) {
	s, b := newTestBridge(t)
	h := object.Handle{Index: 4, Generation: 2}

	ud, ok := b.ToLua(variant.Handle(h)).(*lua.LUserData)
	require.True(t, ok)
	assert.Equal(t, variant.Handle(h), b.ToValue(ud))

	L := s.LuaState()
	L.SetGlobal("a", b.NewHandle(h))
	L.SetGlobal("b", b.NewHandle(h))
	require.NoError(t, s.DoString(context.Background(), `
		same = a == b
		text = tostring(a)
	`))
	assert.Equal(t, lua.LTrue, s.GetGlobal("same"))
	assert.Equal(t, lua.LString("#4:2"), s.GetGlobal("text"))
}

func TestBridgeOpaque(t *testing.T) {
	_, b := newTestBridge(t)

	type payload struct{ n int }
	p := &payload{n: 1}
	ud, ok := b.ToLua(variant.Opaque(p)).(*lua.LUserData)
	require.True(t, ok)
	assert.Same(t, p, ud.Value)
	assert.Equal(t, variant.Opaque(p), b.ToValue(ud))
}
