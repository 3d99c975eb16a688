// Package variant provides the tagged value type used for recorded
// operation arguments.
//
// A Value holds exactly one of a small set of kinds. Argument lists are plain
// slices with an explicit length, so a Nil value is an ordinary argument and
// never marks the end of a list.
package variant

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/undoredo/internal/engine/object"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	// KindNil is the zero value.
	KindNil Kind = iota
	// KindBool holds a boolean.
	KindBool
	// KindInt holds a signed integer.
	KindInt
	// KindFloat holds a float64.
	KindFloat
	// KindString holds a string.
	KindString
	// KindHandle holds an object handle.
	KindHandle
	// KindList holds an ordered list of values.
	KindList
	// KindMap holds string-keyed values.
	KindMap
	// KindOpaque holds an arbitrary host value.
	KindOpaque
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindHandle:
		return "handle"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged union.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	h      object.Handle
	list   []Value
	fields map[string]Value
	opaque any
}

// Nil returns the nil value.
func Nil() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Handle wraps an object handle.
func Handle(h object.Handle) Value { return Value{kind: KindHandle, h: h} }

// List wraps a copy of the given values.
func List(vs ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), vs...)}
}

// Map wraps a copy of the given fields.
func Map(m map[string]Value) Value {
	fields := make(map[string]Value, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return Value{kind: KindMap, fields: fields}
}

// Opaque wraps an arbitrary host value that has no dedicated kind.
func Opaque(v any) Value {
	if v == nil {
		return Nil()
	}
	return Value{kind: KindOpaque, opaque: v}
}

// Of converts a Go value into a Value, picking the narrowest kind.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Nil()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return String(x)
	case object.Handle:
		return Handle(x)
	case []Value:
		return List(x...)
	case []any:
		list := make([]Value, len(x))
		for i, item := range x {
			list[i] = Of(item)
		}
		return Value{kind: KindList, list: list}
	case map[string]Value:
		return Map(x)
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			fields[k] = Of(item)
		}
		return Value{kind: KindMap, fields: fields}
	default:
		return Opaque(v)
	}
}

// Values converts each Go value with Of.
func Values(vs ...any) []Value {
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = Of(v)
	}
	return out
}

// Kind returns the held kind.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the boolean and whether v holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer and whether v holds one.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns v as a float. Integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsString returns the string and whether v holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsHandle returns the handle and whether v holds one.
func (v Value) AsHandle() (object.Handle, bool) { return v.h, v.kind == KindHandle }

// AsList returns a copy of the list and whether v holds one.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value(nil), v.list...), true
}

// AsMap returns a copy of the fields and whether v holds a map.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	out := make(map[string]Value, len(v.fields))
	for k, f := range v.fields {
		out[k] = f
	}
	return out, true
}

// Len returns the element count of a list or map, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.fields)
	default:
		return 0
	}
}

// Interface converts v back to a plain Go value.
// Lists become []any, maps become map[string]any and handles stay handles.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindHandle:
		return v.h
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, item := range v.fields {
			out[k] = item.Interface()
		}
		return out
	case KindOpaque:
		return v.opaque
	default:
		return nil
	}
}

// Export is like Interface but renders handles and opaque values as strings,
// producing a tree that any encoder can serialize.
func (v Value) Export() any {
	switch v.kind {
	case KindHandle:
		return v.h.String()
	case KindOpaque:
		return fmt.Sprintf("%v", v.opaque)
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Export()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, item := range v.fields {
			out[k] = item.Export()
		}
		return out
	default:
		return v.Interface()
	}
}

// Equal reports deep equality. Opaque values compare with ==, which panics
// for uncomparable host types, so those are treated as unequal.
func (v Value) Equal(o Value) (eq bool) {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindHandle:
		return v.h == o.h
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for k, f := range v.fields {
			of, ok := o.fields[k]
			if !ok || !f.Equal(of) {
				return false
			}
		}
		return true
	case KindOpaque:
		defer func() {
			if recover() != nil {
				eq = false
			}
		}()
		return v.opaque == o.opaque
	}
	return false
}

// String renders v for logs and history panels.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindHandle:
		return v.h.String()
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.fields[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindOpaque:
		return fmt.Sprintf("%v", v.opaque)
	default:
		return "?"
	}
}

// Clone returns a copy of the argument list.
func Clone(args []Value) []Value {
	if len(args) == 0 {
		return nil
	}
	return append([]Value(nil), args...)
}
