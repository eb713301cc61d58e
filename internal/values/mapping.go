package values

import (
	"iter"
	"strings"
)

// Mapping is an ordered set of string keys to values. Keys keep the
// position of their first insertion; setting an existing key replaces its
// value in place. A nil *Mapping behaves as an empty, read-only mapping.
type Mapping struct {
	keys   []string
	fields map[string]Value
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{fields: make(map[string]Value)}
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Set assigns v to key. A redeclared key keeps its original position.
func (m *Mapping) Set(key string, v Value) {
	if m.fields == nil {
		m.fields = make(map[string]Value)
	}
	if _, ok := m.fields[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = v
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.fields[key]
	return v, ok
}

// Delete removes key if present.
func (m *Mapping) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.fields[key]; !ok {
		return
	}
	delete(m.fields, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in declaration order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// All iterates over key/value pairs in declaration order.
func (m *Mapping) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.fields[k]) {
				return
			}
		}
	}
}

// Lookup follows a path of keys through nested mappings.
func (m *Mapping) Lookup(path ...string) (Value, bool) {
	cur := Map(m)
	for _, key := range path {
		if cur.kind != KindMapping {
			return Value{}, false
		}
		next, ok := cur.m.Get(key)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Equal reports whether m and other hold the same keys with equal values.
func (m *Mapping) Equal(other *Mapping) bool {
	if m.Len() != other.Len() {
		return false
	}
	for k, v := range m.All() {
		ov, ok := other.Get(k)
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of m.
func (m *Mapping) Clone() *Mapping {
	out := NewMapping()
	for k, v := range m.All() {
		out.Set(k, cloneValue(v))
	}
	return out
}

// GoString renders m for test failure output.
func (m *Mapping) GoString() string {
	var b strings.Builder
	b.WriteString("{")
	i := 0
	for k, v := range m.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v.GoString())
		i++
	}
	b.WriteString("}")
	return b.String()
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindMapping:
		return Map(v.m.Clone())
	case KindList:
		items := make([]Value, len(v.items))
		for i, item := range v.items {
			items[i] = cloneValue(item)
		}
		return List(items...)
	default:
		return v
	}
}
