package values

import (
	"fmt"
	"math"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindMapping
	KindList
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMapping:
		return "mapping"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is one node of a document. The zero Value is Null.
type Value struct {
	kind  Kind
	b     bool
	n     float64
	s     string
	m     *Mapping
	items []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Map wraps a mapping as a value. A nil mapping is treated as empty.
func Map(m *Mapping) Value {
	if m == nil {
		m = NewMapping()
	}
	return Value{kind: KindMapping, m: m}
}

// List returns a list value holding items in order.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, items: items}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v, or false for other kinds.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the number held by v, or 0 for other kinds.
func (v Value) AsNumber() float64 { return v.n }

// AsString returns the string held by v, or "" for other kinds.
func (v Value) AsString() string { return v.s }

// AsMapping returns the mapping held by v, or nil for other kinds.
func (v Value) AsMapping() *Mapping { return v.m }

// AsList returns the items held by v, or nil for other kinds.
// The returned slice must not be modified.
func (v Value) AsList() []Value { return v.items }

// GoString renders v for test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindMapping:
		return v.m.GoString()
	case KindList:
		s := "["
		for i, item := range v.items {
			if i > 0 {
				s += ", "
			}
			s += item.GoString()
		}
		return s + "]"
	default:
		return "?"
	}
}

// Equal reports whether a and b are structurally equal. Mappings compare
// by key set and values, not by key order; lists compare element-wise.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		if math.IsNaN(a.n) && math.IsNaN(b.n) {
			return true
		}
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindMapping:
		return a.m.Equal(b.m)
	case KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}
