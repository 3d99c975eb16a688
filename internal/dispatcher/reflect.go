package dispatcher

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/engine/variant"
)

var (
	valueType  = reflect.TypeOf(variant.Value{})
	handleType = reflect.TypeOf(object.Handle{})
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// Reflect performs operations on plain Go values through reflection.
// Methods must be exported; a trailing error result is returned to the
// caller. Properties are assigned through a SetName method if one exists,
// otherwise through an exported field of a struct pointer.
type Reflect struct{}

// CallMethod calls the exported method matching method.
func (Reflect) CallMethod(target any, method string, args []variant.Value) error {
	m := reflect.ValueOf(target).MethodByName(GoName(method))
	if !m.IsValid() {
		return fmt.Errorf("%w: %T.%s", ErrUnknownMethod, target, method)
	}
	return call(m, method, args)
}

// SetProperty assigns the property matching property.
func (Reflect) SetProperty(target any, property string, value variant.Value) error {
	v := reflect.ValueOf(target)
	name := GoName(property)

	if setter := v.MethodByName("Set" + name); setter.IsValid() && setter.Type().NumIn() == 1 {
		return call(setter, property, []variant.Value{value})
	}

	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T.%s", ErrUnknownProperty, target, property)
	}
	field := v.Elem().FieldByName(name)
	if !field.IsValid() || !field.CanSet() {
		return fmt.Errorf("%w: %T.%s", ErrUnknownProperty, target, property)
	}

	converted, err := convert(value, field.Type())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArgument, property, err)
	}
	field.Set(converted)
	return nil
}

func call(m reflect.Value, name string, args []variant.Value) error {
	mt := m.Type()
	if mt.IsVariadic() {
		if len(args) < mt.NumIn()-1 {
			return fmt.Errorf("%w: %s wants at least %d arguments, got %d", ErrArgument, name, mt.NumIn()-1, len(args))
		}
	} else if len(args) != mt.NumIn() {
		return fmt.Errorf("%w: %s wants %d arguments, got %d", ErrArgument, name, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if mt.IsVariadic() && i >= mt.NumIn()-1 {
			pt = mt.In(mt.NumIn() - 1).Elem()
		} else {
			pt = mt.In(i)
		}
		v, err := convert(arg, pt)
		if err != nil {
			return fmt.Errorf("%w: %s argument %d: %v", ErrArgument, name, i, err)
		}
		in[i] = v
	}

	out := m.Call(in)
	if n := len(out); n > 0 && out[n-1].Type().Implements(errorType) {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return err
		}
	}
	return nil
}

// convert turns a variant into a value assignable to t.
func convert(v variant.Value, t reflect.Type) (reflect.Value, error) {
	switch t {
	case valueType:
		return reflect.ValueOf(v), nil
	case handleType:
		if h, ok := v.AsHandle(); ok {
			return reflect.ValueOf(h), nil
		}
		return reflect.Value{}, fmt.Errorf("want handle, got %s", v.Kind())
	}

	if v.IsNil() {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
	}

	switch t.Kind() {
	case reflect.Bool:
		if b, ok := v.AsBool(); ok {
			return reflect.ValueOf(b).Convert(t), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := v.AsInt(); ok {
			out := reflect.New(t).Elem()
			if out.OverflowInt(i) {
				return reflect.Value{}, fmt.Errorf("%d overflows %s", i, t)
			}
			out.SetInt(i)
			return out, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i, ok := v.AsInt(); ok {
			out := reflect.New(t).Elem()
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, fmt.Errorf("%d overflows %s", i, t)
			}
			out.SetUint(uint64(i))
			return out, nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := v.AsFloat(); ok {
			return reflect.ValueOf(f).Convert(t), nil
		}
	case reflect.String:
		if s, ok := v.AsString(); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}
	case reflect.Slice:
		if list, ok := v.AsList(); ok {
			out := reflect.MakeSlice(t, len(list), len(list))
			for i, item := range list {
				elem, err := convert(item, t.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				out.Index(i).Set(elem)
			}
			return out, nil
		}
	case reflect.Map:
		if fields, ok := v.AsMap(); ok && t.Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(t, len(fields))
			for k, item := range fields {
				elem, err := convert(item, t.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("key %q: %w", k, err)
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), elem)
			}
			return out, nil
		}
	}

	raw := v.Interface()
	if rv := reflect.ValueOf(raw); rv.IsValid() && rv.Type().AssignableTo(t) {
		return rv, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Kind(), t)
}

// GoName maps a script-style member name to its exported Go form:
// "x" becomes "X" and "set_text" becomes "SetText".
func GoName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	upper := true
	for _, r := range name {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
