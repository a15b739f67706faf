// SPDX-License-Identifier: MPL-2.0

// Package smallmap provides an insertion-ordered map optimized for the
// zero and one element cases that dominate provisioning descriptions.
//
// A Map starts empty, holds a single entry inline, and is promoted to a
// hash map plus key slice on the second distinct insert. Removing entries
// demotes it again, so a map that drops back to zero entries retains nothing.
package smallmap

import (
	"iter"
	"slices"
)

const (
	stateEmpty state = iota
	stateOne
	stateMany
)

type (
	state uint8

	// Map is an insertion-ordered map. The zero value is an empty map ready to use.
	// Map is not safe for concurrent mutation.
	Map[K comparable, V any] struct {
		state state
		key   K
		value V
		index map[K]V
		keys  []K
	}
)

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	switch m.state {
	case stateOne:
		return 1
	case stateMany:
		return len(m.keys)
	default:
		return 0
	}
}

// Put stores value under key. Replacing an existing key keeps its position.
func (m *Map[K, V]) Put(key K, value V) {
	switch m.state {
	case stateEmpty:
		m.state = stateOne
		m.key = key
		m.value = value
	case stateOne:
		if m.key == key {
			m.value = value
			return
		}
		m.index = map[K]V{m.key: m.value, key: value}
		m.keys = []K{m.key, key}
		m.state = stateMany
		m.resetInline()
	case stateMany:
		if _, ok := m.index[key]; !ok {
			m.keys = append(m.keys, key)
		}
		m.index[key] = value
	}
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	switch m.state {
	case stateOne:
		if m.key == key {
			return m.value, true
		}
	case stateMany:
		v, ok := m.index[key]
		return v, ok
	}
	var zero V
	return zero, false
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	switch m.state {
	case stateOne:
		if m.key != key {
			return false
		}
		m.Clear()
		return true
	case stateMany:
		if _, ok := m.index[key]; !ok {
			return false
		}
		delete(m.index, key)
		m.keys = slices.DeleteFunc(m.keys, func(k K) bool { return k == key })
		if len(m.keys) == 1 {
			last := m.keys[0]
			m.key = last
			m.value = m.index[last]
			m.index = nil
			m.keys = nil
			m.state = stateOne
		}
		return true
	}
	return false
}

// Clear removes every entry and releases the backing storage.
func (m *Map[K, V]) Clear() {
	*m = Map[K, V]{}
}

// Keys returns the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	switch m.state {
	case stateOne:
		return []K{m.key}
	case stateMany:
		return slices.Clone(m.keys)
	}
	return nil
}

// Values returns the values in key insertion order.
func (m *Map[K, V]) Values() []V {
	switch m.state {
	case stateOne:
		return []V{m.value}
	case stateMany:
		out := make([]V, 0, len(m.keys))
		for _, k := range m.keys {
			out = append(out, m.index[k])
		}
		return out
	}
	return nil
}

// All iterates entries in insertion order.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		switch m.state {
		case stateOne:
			yield(m.key, m.value)
		case stateMany:
			for _, k := range m.keys {
				if !yield(k, m.index[k]) {
					return
				}
			}
		}
	}
}

// Clone returns an independent copy. Values are copied shallowly.
func (m *Map[K, V]) Clone() Map[K, V] {
	out := Map[K, V]{state: m.state, key: m.key, value: m.value}
	if m.state == stateMany {
		out.index = make(map[K]V, len(m.index))
		for k, v := range m.index {
			out.index[k] = v
		}
		out.keys = slices.Clone(m.keys)
	}
	return out
}

func (m *Map[K, V]) resetInline() {
	var (
		zeroK K
		zeroV V
	)
	m.key = zeroK
	m.value = zeroV
}
