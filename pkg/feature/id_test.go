// SPDX-License-Identifier: MPL-2.0

package feature

import (
	"errors"
	"testing"

	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fperr"
)

func TestParseFeatureId(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantString string
		wantErr    bool
	}{
		{name: "spec only", input: "specA", wantString: "specA"},
		{name: "single param", input: "specA:id=1", wantString: "specA:id=1"},
		{name: "keeps insertion order", input: "specA:b=2,a=1", wantString: "specA:b=2,a=1"},
		{name: "duplicate key same value", input: "specA:id=1,id=1", wantString: "specA:id=1"},
		{name: "empty value", input: "specA:id=", wantString: "specA:id="},
		{name: "empty spec", input: ":id=1", wantErr: true},
		{name: "bare comma", input: "specA:id=1,,x=2", wantErr: true},
		{name: "trailing comma", input: "specA:id=1,", wantErr: true},
		{name: "missing equals", input: "specA:id", wantErr: true},
		{name: "empty key", input: "specA:=1", wantErr: true},
		{name: "duplicate key differing value", input: "specA:id=1,id=2", wantErr: true},
		{name: "nothing after colon", input: "specA:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := ParseFeatureId(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFeatureId(%q) expected error, got %s", tt.input, id)
				}
				if !errors.Is(err, fperr.ErrDescription) {
					t.Errorf("expected a description error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFeatureId(%q) unexpected error: %v", tt.input, err)
			}
			if id.String() != tt.wantString {
				t.Errorf("String() = %q, want %q", id.String(), tt.wantString)
			}
		})
	}
}

func TestFeatureId_EqualityIgnoresOrder(t *testing.T) {
	t.Parallel()

	a := MustFeatureId("specA", "x", "1", "y", "2")
	b := MustFeatureId("specA", "y", "2", "x", "1")
	c := MustFeatureId("specA", "x", "1", "y", "3")
	d := MustFeatureId("specB", "x", "1", "y", "2")

	if !a.Equal(b) || a.Key() != b.Key() {
		t.Errorf("ids differing only in parameter order must be equal: %s vs %s", a, b)
	}
	if a.Equal(c) || a.Key() == c.Key() {
		t.Errorf("ids with different values must differ")
	}
	if a.Equal(d) || a.Key() == d.Key() {
		t.Errorf("ids with different specs must differ")
	}
	if a.String() == b.String() {
		t.Errorf("display form should keep insertion order")
	}
}

func TestFeatureId_KeySeparatorsInValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b FeatureId
	}{
		{"comma and equals", MustFeatureId("s", "a", "1,b=2", "b", "3"), MustFeatureId("s", "a", "1", "b", "2,b=3")},
		{"equals in value", MustFeatureId("s", "a", "b=c"), MustFeatureId("s", "a=b", "c")},
		{"quote in value", MustFeatureId("s", "a", `1","b`), MustFeatureId("s", "a", "1", "b", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.a.Equal(tt.b) {
				t.Fatalf("%s and %s should differ", tt.a, tt.b)
			}
			if tt.a.Key() == tt.b.Key() {
				t.Errorf("distinct ids share key %s", tt.a.Key())
			}
		})
	}
}

func TestSpecId_Validate(t *testing.T) {
	t.Parallel()

	for _, bad := range []SpecId{"", " ", "a:b", "a=b", "a,b"} {
		if err := bad.Validate(); !errors.Is(err, ErrInvalidSpecId) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidSpecId", bad, err)
		}
	}
	if err := SpecId("org.test.specA").Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolvedFeatureId_KeyUsesFeaturePackIdentity(t *testing.T) {
	t.Parallel()

	id := MustFeatureId("specA", "id", "1")
	v1 := NewResolvedFeatureId(coords.NewGav("org.test", "fp1", "1.0"), id)
	v2 := NewResolvedFeatureId(coords.NewGav("org.test", "fp1", "2.0"), id)
	other := NewResolvedFeatureId(coords.NewGav("org.test", "fp2", "1.0"), id)

	if v1.Key() != v2.Key() {
		t.Error("key must not depend on the version")
	}
	if v1.Key() == other.Key() {
		t.Error("key must depend on the feature-pack")
	}
	if got := v1.String(); got != "org.test:fp1:1.0#specA:id=1" {
		t.Errorf("String() = %q", got)
	}
	if v1.Spec().Name != "specA" {
		t.Errorf("Spec().Name = %q", v1.Spec().Name)
	}
}
