// SPDX-License-Identifier: MPL-2.0

package smallmap

import (
	"slices"
	"testing"
)

func TestMap_Promotion(t *testing.T) {
	t.Parallel()

	var m Map[string, int]
	if m.Len() != 0 || m.state != stateEmpty {
		t.Fatalf("zero value should be empty, got len %d", m.Len())
	}

	m.Put("a", 1)
	if m.state != stateOne {
		t.Errorf("expected inline state after first put")
	}

	m.Put("a", 10)
	if m.state != stateOne || m.Len() != 1 {
		t.Errorf("replacing the single key must not promote")
	}

	m.Put("b", 2)
	if m.state != stateMany {
		t.Errorf("expected promotion on second distinct key")
	}
	if v, _ := m.Get("a"); v != 10 {
		t.Errorf("Get(a) = %d, want 10", v)
	}

	m.Put("c", 3)
	if got := m.Keys(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Keys() = %v", got)
	}
}

func TestMap_ReplaceKeepsPosition(t *testing.T) {
	t.Parallel()

	var m Map[string, string]
	m.Put("x", "1")
	m.Put("y", "2")
	m.Put("x", "3")

	if got := m.Keys(); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("Keys() = %v, want [x y]", got)
	}
	if got := m.Values(); !slices.Equal(got, []string{"3", "2"}) {
		t.Errorf("Values() = %v, want [3 2]", got)
	}
}

func TestMap_DeleteDemotes(t *testing.T) {
	t.Parallel()

	var m Map[string, int]
	m.Put("a", 1)
	m.Put("b", 2)

	if !m.Delete("a") {
		t.Fatal("Delete(a) should report presence")
	}
	if m.state != stateOne {
		t.Errorf("expected demotion to inline state")
	}
	if v, ok := m.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v", v, ok)
	}

	if m.Delete("missing") {
		t.Error("Delete(missing) should report absence")
	}

	m.Delete("b")
	if m.state != stateEmpty || m.index != nil || m.keys != nil {
		t.Error("removing the last entry must release all storage")
	}
}

func TestMap_AllStopsEarly(t *testing.T) {
	t.Parallel()

	var m Map[int, int]
	for i := range 5 {
		m.Put(i, i*i)
	}

	var seen []int
	for k := range m.All() {
		if k == 2 {
			break
		}
		seen = append(seen, k)
	}
	if !slices.Equal(seen, []int{0, 1}) {
		t.Errorf("seen = %v", seen)
	}
}

func TestMap_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	var m Map[string, int]
	m.Put("a", 1)
	m.Put("b", 2)

	c := m.Clone()
	c.Put("c", 3)
	c.Delete("a")

	if m.Len() != 2 || !m.Has("a") || m.Has("c") {
		t.Errorf("original mutated by clone: keys %v", m.Keys())
	}
}
