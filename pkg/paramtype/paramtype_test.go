// SPDX-License-Identifier: MPL-2.0

package paramtype

import (
	"errors"
	"slices"
	"testing"

	"github.com/provisio/provisio/pkg/fperr"
)

func TestMergeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		typ     Type
		old     string
		new     string
		want    string
		wantErr bool
	}{
		{name: "string last write wins", typ: String(), old: "a", new: "b", want: "b"},
		{name: "int last write wins", typ: Int(), old: "1", new: "2", want: "2"},
		{name: "int rejects garbage", typ: Int(), old: "1", new: "two", wantErr: true},
		{name: "boolean", typ: Boolean(), old: "false", new: "true", want: "true"},
		{name: "list concatenates", typ: List(), old: "[a,b]", new: "[b,c]", want: "[a,b,b,c]"},
		{name: "set unions in order", typ: Set(), old: "[a,b]", new: "[c,a]", want: "[a,b,c]"},
		{name: "list from empty", typ: List(), old: "[]", new: "[x]", want: "[x]"},
		{name: "map overrides keys", typ: Map(), old: "{a=1,b=2}", new: "{b=3,c=4}", want: "{a=1,b=3,c=4}"},
		{name: "list rejects scalar", typ: List(), old: "[a]", new: "b", wantErr: true},
		{name: "map rejects bad entry", typ: Map(), old: "{}", new: "{a}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := MergeText(tt.typ, tt.old, tt.new)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("MergeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCapabilityElements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		typ      Type
		text     string
		optional bool
		want     []string
		wantErr  bool
	}{
		{name: "scalar contributes once", typ: String(), text: "web", want: []string{"web"}},
		{name: "collection multiplies", typ: List(), text: "[a,b,c]", want: []string{"a", "b", "c"}},
		{name: "map contributes keys", typ: Map(), text: "{x=1,y=2}", want: []string{"x", "y"}},
		{name: "empty optional collection", typ: Set(), text: "[]", optional: true, want: nil},
		{name: "empty required collection", typ: Set(), text: "[]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CapabilityElements(tt.typ, tt.text, tt.optional)
			if tt.wantErr {
				if !errors.Is(err, fperr.ErrResolution) {
					t.Fatalf("expected resolution error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("CapabilityElements() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	for _, name := range []string{"", StringName, BooleanName, IntName, ListName, SetName, MapName} {
		if _, err := r.Lookup(name); err != nil {
			t.Errorf("Lookup(%q) unexpected error: %v", name, err)
		}
	}

	if _, err := r.Lookup("uuid"); !errors.Is(err, fperr.ErrDescription) {
		t.Errorf("Lookup(uuid) = %v, want description error", err)
	}

	r.Register(scalarType{name: "uuid", parse: func(s string) (any, error) { return s, nil }})
	if _, err := r.Lookup("uuid"); err != nil {
		t.Errorf("registered type not found: %v", err)
	}
}

func TestTypes_DefaultValueIsNone(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{String(), Boolean(), Int(), List(), Set(), Map()} {
		if _, ok := typ.DefaultValue(); ok {
			t.Errorf("%s default should be None", typ.Name())
		}
	}
}
