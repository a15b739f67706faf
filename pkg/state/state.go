// SPDX-License-Identifier: MPL-2.0

// Package state holds the result of a provisioning resolution: the packages
// selected per feature-pack and the fully resolved configs in emission order.
package state

import (
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fpconfig"
)

type (
	// ProvisionedState is the outcome of one resolution. Feature-packs follow
	// their dependencies, configs are in emission order.
	ProvisionedState struct {
		FeaturePacks []ProvisionedFeaturePack
		Configs      []ProvisionedConfig
	}

	// ProvisionedFeaturePack lists the packages selected from one feature-pack
	// in package declaration order.
	ProvisionedFeaturePack struct {
		Gav      coords.Gav
		Packages []ProvisionedPackage
	}

	// ProvisionedPackage is a selected package with its resolved parameters.
	ProvisionedPackage struct {
		Name   string
		Params []feature.Param
	}

	// ProvisionedConfig is a resolved config.
	ProvisionedConfig struct {
		Model      string
		Name       string
		Properties []feature.Param
		Features   []ProvisionedFeature
	}

	// ProvisionedFeature is a resolved feature. Params lists the identity
	// parameters first, then the other set parameters in spec declaration order.
	ProvisionedFeature struct {
		Id     feature.ResolvedFeatureId
		Params []feature.Param
	}
)

// FeaturePack returns the entry for ga.
func (s *ProvisionedState) FeaturePack(ga coords.Ga) (*ProvisionedFeaturePack, bool) {
	for i := range s.FeaturePacks {
		if s.FeaturePacks[i].Gav.Ga() == ga {
			return &s.FeaturePacks[i], true
		}
	}
	return nil, false
}

// Config returns the resolved config with the given id.
func (s *ProvisionedState) Config(id fpconfig.ConfigId) (*ProvisionedConfig, bool) {
	for i := range s.Configs {
		if s.Configs[i].Id() == id {
			return &s.Configs[i], true
		}
	}
	return nil, false
}

// PackageNames returns the selected package names in order.
func (fp *ProvisionedFeaturePack) PackageNames() []string {
	out := make([]string, 0, len(fp.Packages))
	for _, p := range fp.Packages {
		out = append(out, p.Name)
	}
	return out
}

// Package returns the selected package with the given name.
func (fp *ProvisionedFeaturePack) Package(name string) (*ProvisionedPackage, bool) {
	for i := range fp.Packages {
		if fp.Packages[i].Name == name {
			return &fp.Packages[i], true
		}
	}
	return nil, false
}

// Id returns the config id.
func (c *ProvisionedConfig) Id() fpconfig.ConfigId {
	return fpconfig.ConfigId{Model: c.Model, Name: c.Name}
}

// Property returns a property value.
func (c *ProvisionedConfig) Property(name string) (string, bool) {
	return lookup(c.Properties, name)
}

// Param returns a resolved parameter value.
func (f *ProvisionedFeature) Param(name string) (string, bool) {
	return lookup(f.Params, name)
}

func lookup(params []feature.Param, name string) (string, bool) {
	for _, p := range params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}
