// SPDX-License-Identifier: MPL-2.0

package feature

import (
	"strings"

	"github.com/provisio/provisio/pkg/fperr"
)

type (
	// ParameterSpec declares one parameter of a feature spec.
	ParameterSpec struct {
		Name string
		// Type names a parameter type from the paramtype registry; empty means string.
		Type string
		// Identity parameters are part of the FeatureId and never change through layers.
		Identity bool
		// Nillable parameters may stay unset; they are omitted from the result.
		Nillable   bool
		Default    string
		HasDefault bool
	}

	// CapabilitySpec is a dot-separated capability name. An element starting
	// with '$' is replaced by the value of the named parameter.
	CapabilitySpec struct {
		Elements []string
		Optional bool
	}

	// FeatureDependencySpec declares that a feature needs another feature in the
	// same config. Include adds the target with spec defaults when it is missing.
	FeatureDependencySpec struct {
		Id      FeatureId
		Origin  string
		Include bool
	}

	// FeatureSpec describes the parameters and relationships of a kind of feature.
	FeatureSpec struct {
		Name     SpecId
		Params   []ParameterSpec
		Provides []CapabilitySpec
		Requires []CapabilitySpec
		Deps     []FeatureDependencySpec
	}
)

// ParseCapability parses "a.b.$param".
func ParseCapability(text string, optional bool) (CapabilitySpec, error) {
	if text == "" {
		return CapabilitySpec{}, fperr.Descriptionf("capability name is empty")
	}
	elements := strings.Split(text, ".")
	for _, e := range elements {
		if e == "" || e == "$" {
			return CapabilitySpec{}, fperr.Descriptionf("capability %q has an empty element", text)
		}
	}
	return CapabilitySpec{Elements: elements, Optional: optional}, nil
}

func (c CapabilitySpec) String() string {
	return strings.Join(c.Elements, ".")
}

// IsStatic reports whether the capability references no parameters.
func (c CapabilitySpec) IsStatic() bool {
	for _, e := range c.Elements {
		if strings.HasPrefix(e, "$") {
			return false
		}
	}
	return true
}

// Param returns the declaration of the named parameter.
func (s *FeatureSpec) Param(name string) (ParameterSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// IdParams returns the identity parameters in declaration order.
func (s *FeatureSpec) IdParams() []ParameterSpec {
	var out []ParameterSpec
	for _, p := range s.Params {
		if p.Identity {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks parameter names and capability references.
func (s *FeatureSpec) Validate() error {
	if err := s.Name.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if strings.TrimSpace(p.Name) == "" {
			return fperr.Descriptionf("feature spec %s declares a parameter without a name", s.Name)
		}
		if seen[p.Name] {
			return fperr.Descriptionf("feature spec %s declares parameter %s more than once", s.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Identity && p.Nillable {
			return fperr.Descriptionf("identity parameter %s of feature spec %s cannot be nillable", p.Name, s.Name)
		}
	}
	for _, caps := range [][]CapabilitySpec{s.Provides, s.Requires} {
		for _, c := range caps {
			for _, e := range c.Elements {
				if ref, ok := strings.CutPrefix(e, "$"); ok && !seen[ref] {
					return fperr.Descriptionf("capability %s of feature spec %s references undeclared parameter %s", c, s.Name, ref)
				}
			}
		}
	}
	return nil
}
