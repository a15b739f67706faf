// SPDX-License-Identifier: MPL-2.0

package fpspec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fperr"
)

type (
	// FeaturePackSpec is the full description of one feature-pack version.
	FeaturePackSpec struct {
		gav      coords.Gav
		deps     fpconfig.Deps
		packages smallmap.Map[string, *PackageSpec]
		specs    smallmap.Map[feature.SpecId, *feature.FeatureSpec]
		groups   smallmap.Map[string, *feature.FeatureGroupSpec]
		configs  smallmap.Map[fpconfig.ConfigId, *fpconfig.ConfigModel]
		plugins  []string
	}

	// FeaturePackSpecBuilder assembles a FeaturePackSpec. The first error is kept
	// and returned by Build, which also checks cross references.
	FeaturePackSpecBuilder struct {
		spec *FeaturePackSpec
		err  error
	}
)

// NewFeaturePackSpec starts the description of gav.
func NewFeaturePackSpec(gav coords.Gav) *FeaturePackSpecBuilder {
	return &FeaturePackSpecBuilder{spec: &FeaturePackSpec{gav: gav}, err: gav.Validate()}
}

// AddDependency declares a dependency edge under the optional origin alias.
func (b *FeaturePackSpecBuilder) AddDependency(origin string, cfg *fpconfig.FeaturePackConfig) *FeaturePackSpecBuilder {
	if b.err != nil {
		return b
	}
	if cfg.Gav().Ga() == b.spec.gav.Ga() {
		b.err = fperr.Descriptionf("feature-pack %s depends on itself", b.spec.gav)
		return b
	}
	if err := b.spec.deps.Add(origin, cfg); err != nil {
		b.err = fmt.Errorf("feature-pack %s: %w", b.spec.gav, err)
	}
	return b
}

// AddPackage declares a package.
func (b *FeaturePackSpecBuilder) AddPackage(pkg *PackageSpec) *FeaturePackSpecBuilder {
	if b.err != nil {
		return b
	}
	if err := pkg.Validate(); err != nil {
		b.err = fmt.Errorf("feature-pack %s: %w", b.spec.gav, err)
		return b
	}
	if b.spec.packages.Has(pkg.Name) {
		b.err = fperr.Descriptionf("feature-pack %s declares package %s more than once", b.spec.gav, pkg.Name)
		return b
	}
	b.spec.packages.Put(pkg.Name, pkg)
	return b
}

// AddFeatureSpec declares a feature spec.
func (b *FeaturePackSpecBuilder) AddFeatureSpec(spec *feature.FeatureSpec) *FeaturePackSpecBuilder {
	if b.err != nil {
		return b
	}
	if err := spec.Validate(); err != nil {
		b.err = fmt.Errorf("feature-pack %s: %w", b.spec.gav, err)
		return b
	}
	if b.spec.specs.Has(spec.Name) {
		b.err = fperr.Descriptionf("feature-pack %s declares feature spec %s more than once", b.spec.gav, spec.Name)
		return b
	}
	b.spec.specs.Put(spec.Name, spec)
	return b
}

// AddGroup declares a feature group.
func (b *FeaturePackSpecBuilder) AddGroup(group *feature.FeatureGroupSpec) *FeaturePackSpecBuilder {
	if b.err != nil {
		return b
	}
	if b.spec.groups.Has(group.Name) {
		b.err = fperr.Descriptionf("feature-pack %s declares feature group %s more than once", b.spec.gav, group.Name)
		return b
	}
	b.spec.groups.Put(group.Name, group)
	return b
}

// AddConfig declares a config.
func (b *FeaturePackSpecBuilder) AddConfig(model *fpconfig.ConfigModel) *FeaturePackSpecBuilder {
	if b.err != nil {
		return b
	}
	if b.spec.configs.Has(model.Id()) {
		b.err = fperr.Descriptionf("feature-pack %s declares config %s more than once", b.spec.gav, model.Id())
		return b
	}
	b.spec.configs.Put(model.Id(), model)
	return b
}

// AddPlugin names a post-install plugin to run when the feature-pack is installed.
func (b *FeaturePackSpecBuilder) AddPlugin(name string) *FeaturePackSpecBuilder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(name) == "" {
		b.err = fperr.Descriptionf("feature-pack %s names an empty plugin", b.spec.gav)
		return b
	}
	if !slices.Contains(b.spec.plugins, name) {
		b.spec.plugins = append(b.spec.plugins, name)
	}
	return b
}

// Build validates package references and freezes the description.
func (b *FeaturePackSpecBuilder) Build() (*FeaturePackSpec, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := b.spec
	for _, pkg := range s.packages.Values() {
		for _, dep := range pkg.LocalDeps {
			if !s.packages.Has(dep.Name) {
				return nil, fperr.Descriptionf("package %s of feature-pack %s depends on undeclared package %s", pkg.Name, s.gav, dep.Name)
			}
		}
		for _, ext := range pkg.ExternalDeps {
			if ext.Origin == fpconfig.AnyOrigin {
				continue
			}
			if _, ok := s.deps.ByOrigin(ext.Origin); !ok {
				return nil, fperr.Descriptionf("package %s of feature-pack %s references unknown origin %s", pkg.Name, s.gav, ext.Origin)
			}
		}
	}
	return s, nil
}

// Gav returns the feature-pack coordinate.
func (s *FeaturePackSpec) Gav() coords.Gav { return s.gav }

// Deps returns the declared dependency edges.
func (s *FeaturePackSpec) Deps() *fpconfig.Deps { return &s.deps }

// Package returns a declared package.
func (s *FeaturePackSpec) Package(name string) (*PackageSpec, bool) { return s.packages.Get(name) }

// Packages returns the packages in declaration order.
func (s *FeaturePackSpec) Packages() []*PackageSpec { return s.packages.Values() }

// DefaultPackages returns the names of the default packages in declaration order.
func (s *FeaturePackSpec) DefaultPackages() []string {
	var out []string
	for name, pkg := range s.packages.All() {
		if pkg.Default {
			out = append(out, name)
		}
	}
	return out
}

// FeatureSpec returns a declared feature spec.
func (s *FeaturePackSpec) FeatureSpec(name feature.SpecId) (*feature.FeatureSpec, bool) {
	return s.specs.Get(name)
}

// FeatureSpecs returns the feature specs in declaration order.
func (s *FeaturePackSpec) FeatureSpecs() []*feature.FeatureSpec { return s.specs.Values() }

// Group returns a declared feature group.
func (s *FeaturePackSpec) Group(name string) (*feature.FeatureGroupSpec, bool) {
	return s.groups.Get(name)
}

// Groups returns the feature groups in declaration order.
func (s *FeaturePackSpec) Groups() []*feature.FeatureGroupSpec { return s.groups.Values() }

// Configs returns the configs in declaration order.
func (s *FeaturePackSpec) Configs() []*fpconfig.ConfigModel { return s.configs.Values() }

// Plugins returns the plugin names in declaration order.
func (s *FeaturePackSpec) Plugins() []string { return slices.Clone(s.plugins) }
