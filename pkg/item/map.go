package item

import (
	"slices"

	"github.com/wandmagic/metapath/pkg/types"
)

// MapEntry is a key/value pair of a map.
type MapEntry struct {
	Key   *Atomic
	Value Sequence
}

// Map is an immutable map from atomic keys to sequences. Keys are matched
// by [MapKey] and iterate in insertion order.
type Map struct {
	order   []MapKey
	entries map[MapKey]MapEntry
}

// NewMap creates a map from entries. A later entry with the same key
// replaces the value of an earlier one.
func NewMap(entries ...MapEntry) *Map {
	m := &Map{entries: make(map[MapKey]MapEntry, len(entries))}
	for _, e := range entries {
		m.set(e)
	}
	return m
}

func (m *Map) set(e MapEntry) {
	k := e.Key.MapKey()
	if _, ok := m.entries[k]; !ok {
		m.order = append(m.order, k)
	}
	m.entries[k] = e
}

func (m *Map) clone() *Map {
	c := &Map{
		order:   slices.Clone(m.order),
		entries: make(map[MapKey]MapEntry, len(m.entries)+1),
	}
	for k, e := range m.entries {
		c.entries[k] = e
	}
	return c
}

// ItemKind implements Item.
func (*Map) ItemKind() Kind { return KindMap }

// Name implements Function.
func (*Map) Name() types.QName { return types.QName{} }

// Arity implements Function.
func (*Map) Arity() int { return 1 }

// Size returns the number of entries.
func (m *Map) Size() int { return len(m.order) }

// Get returns the value for key.
func (m *Map) Get(key *Atomic) (Sequence, bool) {
	e, ok := m.entries[key.MapKey()]
	return e.Value, ok
}

// Contains reports whether key is present.
func (m *Map) Contains(key *Atomic) bool {
	_, ok := m.entries[key.MapKey()]
	return ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []*Atomic {
	keys := make([]*Atomic, len(m.order))
	for i, k := range m.order {
		keys[i] = m.entries[k].Key
	}
	return keys
}

// Entries returns the entries in insertion order.
func (m *Map) Entries() []MapEntry {
	out := make([]MapEntry, len(m.order))
	for i, k := range m.order {
		out[i] = m.entries[k]
	}
	return out
}

// Put returns a copy of m with key bound to value.
func (m *Map) Put(key *Atomic, value Sequence) *Map {
	c := m.clone()
	c.set(MapEntry{Key: key, Value: value})
	return c
}

// Remove returns a copy of m without the given keys.
func (m *Map) Remove(keys ...*Atomic) *Map {
	c := m.clone()
	for _, key := range keys {
		k := key.MapKey()
		if _, ok := c.entries[k]; !ok {
			continue
		}
		delete(c.entries, k)
		c.order = slices.DeleteFunc(c.order, func(o MapKey) bool { return o == k })
	}
	return c
}
