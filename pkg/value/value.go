// Package value implements the dynamic value representation passed between
// a compile caller and the template compiler: a small tagged variant plus
// the single "negative value" predicate the whole compiler is built around.
package value

import "fmt"

// Kind discriminates the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	Text
	Bytes
	List
	Map
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Text:
		return "text"
	case Bytes:
		return "bytes"
	case List:
		return "list"
	case Map:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a heterogeneous parameter value: null, bool, int, float, text,
// bytes, a list of values, or a string-keyed map of values.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	bytes []byte
	list  []Value
	m     map[string]Value
}

func NullValue() Value           { return Value{kind: Null} }
func BoolValue(b bool) Value     { return Value{kind: Bool, b: b} }
func IntValue(i int64) Value     { return Value{kind: Int, i: i} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }
func TextValue(s string) Value   { return Value{kind: Text, s: s} }
func BytesValue(b []byte) Value  { return Value{kind: Bytes, bytes: b} }
func ListValue(vs []Value) Value { return Value{kind: List, list: vs} }
func MapValue(m map[string]Value) Value { return Value{kind: Map, m: m} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) Bool() bool { return v.b }
func (v Value) Int() int64 { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Text() string { return v.s }
func (v Value) Bytes() []byte { return v.bytes }
func (v Value) List() []Value { return v.list }
func (v Value) Map() map[string]Value { return v.m }

// Any unwraps a Value into a plain Go value suitable for a database/sql
// driver argument (database/sql drivers understand nil, bool, int64,
// float64, string, []byte natively; List/Map have no driver representation
// and are returned as their Go composite form for callers that need it,
// e.g. the %concat/%L helpers, which never pass a List/Map to a driver).
func (v Value) Any() any {
	switch v.kind {
	case Null:
		return nil
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case Text:
		return v.s
	case Bytes:
		return v.bytes
	case List:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Any()
		}
		return out
	case Map:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Any()
		}
		return out
	default:
		return nil
	}
}

// String renders a Value as text for %concat/%L/%STR/%SQL helper
// interpolation.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return ""
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Int:
		return fmt.Sprintf("%d", v.i)
	case Float:
		return fmt.Sprintf("%g", v.f)
	case Text:
		return v.s
	case Bytes:
		return string(v.bytes)
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

// FromAny builds a Value from a plain Go value, the ergonomic entry point
// for callers who build parameter maps as map[string]any.
func FromAny(a any) Value {
	switch x := a.(type) {
	case nil:
		return NullValue()
	case Value:
		return x
	case bool:
		return BoolValue(x)
	case int:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case float32:
		return FloatValue(float64(x))
	case float64:
		return FloatValue(x)
	case string:
		return TextValue(x)
	case []byte:
		return BytesValue(x)
	case []any:
		list := make([]Value, len(x))
		for i, e := range x {
			list[i] = FromAny(e)
		}
		return ListValue(list)
	case []Value:
		return ListValue(x)
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, e := range x {
			m[k] = FromAny(e)
		}
		return MapValue(m)
	case map[string]Value:
		return MapValue(x)
	default:
		return TextValue(fmt.Sprintf("%v", x))
	}
}

// FromAnyMap converts a caller-supplied map[string]any into map[string]Value.
func FromAnyMap(m map[string]any) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = FromAny(v)
	}
	return out
}

// IsNegative is the single predicate governing line removal, fallback
// selection, required-check failure, and boolean-expression truthiness: a
// value is negative iff it is null, false, an empty sequence, or a
// non-empty sequence of which every element is itself negative.
func IsNegative(v Value) bool {
	switch v.kind {
	case Null:
		return true
	case Bool:
		return !v.b
	case List:
		if len(v.list) == 0 {
			return true
		}
		for _, e := range v.list {
			if !IsNegative(e) {
				return false
			}
		}
		return true
	default:
		// Int 0, Float 0, Text "", Bytes nil/empty, and Map (empty or not)
		// are never negative.
		return false
	}
}

// Lookup resolves a parameter name in a map, returning NullValue() (which is
// itself negative) when absent — a missing parameter behaves exactly like
// an explicit null.
func Lookup(params map[string]Value, name string) Value {
	if v, ok := params[name]; ok {
		return v
	}
	return NullValue()
}
