// SPDX-License-Identifier: MPL-2.0

// Package paramtype provides the pluggable parameter types used to validate,
// merge and expand feature parameter values.
package paramtype

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/provisio/provisio/pkg/fperr"
)

const (
	// StringName is the default type of an undeclared parameter type.
	StringName = "string"
	// BooleanName parses "true"/"false".
	BooleanName = "boolean"
	// IntName parses base-10 integers.
	IntName = "int"
	// ListName is an ordered collection written as [a,b].
	ListName = "list"
	// SetName is an ordered collection without duplicates written as [a,b].
	SetName = "set"
	// MapName is an ordered key/value collection written as {k=v,k2=v2}.
	MapName = "map"
)

type (
	// Type parses, formats and merges the values of one parameter type.
	Type interface {
		Name() string
		// DefaultValue returns the value used when no layer sets the parameter.
		// false means None.
		DefaultValue() (string, bool)
		Parse(text string) (any, error)
		Format(value any) (string, error)
		IsCollection() bool
		IsMergeable() bool
		// Merge combines an existing value with a new one.
		Merge(prev, next any) (any, error)
		// Elements returns the capability contributions of a parsed value.
		Elements(value any) []string
	}

	// Entry is one element of a map value.
	Entry struct {
		Key   string
		Value string
	}

	scalarType struct {
		name  string
		parse func(string) (any, error)
	}

	listType struct {
		name   string
		unique bool
	}

	mapType struct{}
)

// MergeText applies a new layer value on top of an existing one. Non-mergeable
// types take the new value as is.
func MergeText(t Type, prev, next string) (string, error) {
	if !t.IsMergeable() {
		if _, err := t.Parse(next); err != nil {
			return "", err
		}
		return next, nil
	}
	oldValue, err := t.Parse(prev)
	if err != nil {
		return "", err
	}
	newValue, err := t.Parse(next)
	if err != nil {
		return "", err
	}
	merged, err := t.Merge(oldValue, newValue)
	if err != nil {
		return "", err
	}
	return t.Format(merged)
}

// CapabilityElements expands a parameter value into capability contributions: a
// scalar contributes itself, a collection contributes one element per entry.
// An empty collection contributes nothing when optional and is an error otherwise.
func CapabilityElements(t Type, text string, optional bool) ([]string, error) {
	value, err := t.Parse(text)
	if err != nil {
		return nil, err
	}
	if !t.IsCollection() {
		return []string{text}, nil
	}
	elems := t.Elements(value)
	if len(elems) == 0 && !optional {
		return nil, fperr.Resolutionf("empty %s value cannot satisfy a required capability", t.Name())
	}
	return elems, nil
}

func invalidValue(typeName, text, reason string) error {
	return fperr.Descriptionf("invalid %s value %q: %s", typeName, text, reason)
}

func (s scalarType) Name() string                 { return s.name }
func (s scalarType) DefaultValue() (string, bool) { return "", false }
func (s scalarType) IsCollection() bool           { return false }
func (s scalarType) IsMergeable() bool            { return false }
func (s scalarType) Parse(text string) (any, error) {
	return s.parse(text)
}

func (s scalarType) Format(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("%s: unsupported value type %T", s.name, value)
	}
}

func (s scalarType) Merge(_, next any) (any, error) { return next, nil }

func (s scalarType) Elements(value any) []string {
	text, err := s.Format(value)
	if err != nil {
		return nil
	}
	return []string{text}
}

// String returns the plain string type.
func String() Type {
	return scalarType{name: StringName, parse: func(text string) (any, error) { return text, nil }}
}

// Boolean returns the boolean type.
func Boolean() Type {
	return scalarType{name: BooleanName, parse: func(text string) (any, error) {
		v, err := strconv.ParseBool(text)
		if err != nil {
			return nil, invalidValue(BooleanName, text, "expected true or false")
		}
		return v, nil
	}}
}

// Int returns the integer type.
func Int() Type {
	return scalarType{name: IntName, parse: func(text string) (any, error) {
		v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, invalidValue(IntName, text, "expected an integer")
		}
		return v, nil
	}}
}

// List returns the list type; merging concatenates.
func List() Type { return listType{name: ListName} }

// Set returns the set type; merging is an order-preserving union.
func Set() Type { return listType{name: SetName, unique: true} }

func (l listType) Name() string                 { return l.name }
func (l listType) DefaultValue() (string, bool) { return "", false }
func (l listType) IsCollection() bool           { return true }
func (l listType) IsMergeable() bool            { return true }

func (l listType) Parse(text string) (any, error) {
	inner, err := unwrap(l.name, text, '[', ']')
	if err != nil {
		return nil, err
	}
	var out []string
	if strings.TrimSpace(inner) != "" {
		for elem := range strings.SplitSeq(inner, ",") {
			elem = strings.TrimSpace(elem)
			if elem == "" {
				return nil, invalidValue(l.name, text, "empty element")
			}
			if l.unique && slices.Contains(out, elem) {
				continue
			}
			out = append(out, elem)
		}
	}
	return out, nil
}

func (l listType) Format(value any) (string, error) {
	elems, ok := value.([]string)
	if !ok {
		return "", fmt.Errorf("%s: unsupported value type %T", l.name, value)
	}
	return "[" + strings.Join(elems, ",") + "]", nil
}

func (l listType) Merge(prev, next any) (any, error) {
	oldElems, ok1 := prev.([]string)
	newElems, ok2 := next.([]string)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%s: cannot merge %T with %T", l.name, prev, next)
	}
	out := slices.Clone(oldElems)
	for _, e := range newElems {
		if l.unique && slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (l listType) Elements(value any) []string {
	elems, _ := value.([]string)
	return slices.Clone(elems)
}

// Map returns the map type; merging overrides existing keys in place and appends new ones.
func Map() Type { return mapType{} }

func (mapType) Name() string                 { return MapName }
func (mapType) DefaultValue() (string, bool) { return "", false }
func (mapType) IsCollection() bool           { return true }
func (mapType) IsMergeable() bool            { return true }

func (mapType) Parse(text string) (any, error) {
	inner, err := unwrap(MapName, text, '{', '}')
	if err != nil {
		return nil, err
	}
	var out []Entry
	if strings.TrimSpace(inner) == "" {
		return out, nil
	}
	for pair := range strings.SplitSeq(inner, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, invalidValue(MapName, text, fmt.Sprintf("entry %q is not key=value", pair))
		}
		out = setEntry(out, k, strings.TrimSpace(v))
	}
	return out, nil
}

func (mapType) Format(value any) (string, error) {
	entries, ok := value.([]Entry)
	if !ok {
		return "", fmt.Errorf("%s: unsupported value type %T", MapName, value)
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(e.Value)
	}
	b.WriteByte('}')
	return b.String(), nil
}

func (mapType) Merge(prev, next any) (any, error) {
	oldEntries, ok1 := prev.([]Entry)
	newEntries, ok2 := next.([]Entry)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%s: cannot merge %T with %T", MapName, prev, next)
	}
	out := slices.Clone(oldEntries)
	for _, e := range newEntries {
		out = setEntry(out, e.Key, e.Value)
	}
	return out, nil
}

func (mapType) Elements(value any) []string {
	entries, _ := value.([]Entry)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key)
	}
	return out
}

func setEntry(entries []Entry, key, value string) []Entry {
	for i := range entries {
		if entries[i].Key == key {
			entries[i].Value = value
			return entries
		}
	}
	return append(entries, Entry{Key: key, Value: value})
}

func unwrap(typeName, text string, start, end byte) (string, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 || trimmed[0] != start || trimmed[len(trimmed)-1] != end {
		return "", invalidValue(typeName, text, fmt.Sprintf("expected %c...%c", start, end))
	}
	return trimmed[1 : len(trimmed)-1], nil
}
