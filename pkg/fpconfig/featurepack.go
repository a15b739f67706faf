// SPDX-License-Identifier: MPL-2.0

package fpconfig

import (
	"strings"

	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fperr"
)

type (
	// FeaturePackConfig is a dependency edge: the target feature-pack plus the
	// consumer's package and config selection for it.
	FeaturePackConfig struct {
		gav              coords.Gav
		inheritPackages  bool
		includedPackages smallmap.Map[string, struct{}]
		excludedPackages smallmap.Map[string, struct{}]
		inheritConfigs   bool
		includedConfigs  smallmap.Map[ConfigId, struct{}]
		excludedConfigs  smallmap.Map[ConfigId, struct{}]
		includedModels   smallmap.Map[string, struct{}]
		excludedModels   smallmap.Map[string, struct{}]
		definedConfigs   smallmap.Map[ConfigId, *ConfigModel]
	}

	// FeaturePackConfigBuilder assembles a FeaturePackConfig. The first error is
	// kept and returned by Build.
	FeaturePackConfigBuilder struct {
		cfg *FeaturePackConfig
		err error
	}
)

// NewFeaturePackConfig starts an edge to gav that inherits default packages and configs.
func NewFeaturePackConfig(gav coords.Gav) *FeaturePackConfigBuilder {
	return &FeaturePackConfigBuilder{
		cfg: &FeaturePackConfig{gav: gav, inheritPackages: true, inheritConfigs: true},
		err: gav.Validate(),
	}
}

// ForGav returns an edge with default selection.
func ForGav(gav coords.Gav) (*FeaturePackConfig, error) {
	return NewFeaturePackConfig(gav).Build()
}

// SetInheritPackages controls whether default packages are selected.
func (b *FeaturePackConfigBuilder) SetInheritPackages(inherit bool) *FeaturePackConfigBuilder {
	b.cfg.inheritPackages = inherit
	return b
}

// IncludePackage selects a package explicitly.
func (b *FeaturePackConfigBuilder) IncludePackage(name string) *FeaturePackConfigBuilder {
	return b.mark("package", name, &b.cfg.includedPackages, &b.cfg.excludedPackages)
}

// ExcludePackage drops a package.
func (b *FeaturePackConfigBuilder) ExcludePackage(name string) *FeaturePackConfigBuilder {
	return b.mark("package", name, &b.cfg.excludedPackages, &b.cfg.includedPackages)
}

// SetInheritConfigs controls whether the feature-pack's configs are taken by default.
func (b *FeaturePackConfigBuilder) SetInheritConfigs(inherit bool) *FeaturePackConfigBuilder {
	b.cfg.inheritConfigs = inherit
	return b
}

// IncludeConfig selects a config explicitly.
func (b *FeaturePackConfigBuilder) IncludeConfig(id ConfigId) *FeaturePackConfigBuilder {
	return markConfig(b, id, &b.cfg.includedConfigs, &b.cfg.excludedConfigs)
}

// ExcludeConfig drops a config.
func (b *FeaturePackConfigBuilder) ExcludeConfig(id ConfigId) *FeaturePackConfigBuilder {
	return markConfig(b, id, &b.cfg.excludedConfigs, &b.cfg.includedConfigs)
}

// IncludeModel selects every config of a model.
func (b *FeaturePackConfigBuilder) IncludeModel(model string) *FeaturePackConfigBuilder {
	return b.mark("config model", model, &b.cfg.includedModels, &b.cfg.excludedModels)
}

// ExcludeModel drops every config of a model that is not explicitly included.
func (b *FeaturePackConfigBuilder) ExcludeModel(model string) *FeaturePackConfigBuilder {
	return b.mark("config model", model, &b.cfg.excludedModels, &b.cfg.includedModels)
}

// AddConfig defines a config on the edge. It is layered over the target's own configs.
func (b *FeaturePackConfigBuilder) AddConfig(model *ConfigModel) *FeaturePackConfigBuilder {
	if b.err != nil {
		return b
	}
	if b.cfg.definedConfigs.Has(model.Id()) {
		b.err = fperr.Descriptionf("dependency on %s defines config %s more than once", b.cfg.gav, model.Id())
		return b
	}
	b.cfg.definedConfigs.Put(model.Id(), model)
	return b
}

// Build freezes the edge.
func (b *FeaturePackConfigBuilder) Build() (*FeaturePackConfig, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg, nil
}

func (b *FeaturePackConfigBuilder) mark(kind, name string, set, opposite *smallmap.Map[string, struct{}]) *FeaturePackConfigBuilder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(name) == "" {
		b.err = fperr.Descriptionf("dependency on %s: empty %s name", b.cfg.gav, kind)
		return b
	}
	if opposite.Has(name) {
		b.err = fperr.Descriptionf("dependency on %s: contradictory include/exclude of %s %s", b.cfg.gav, kind, name)
		return b
	}
	set.Put(name, struct{}{})
	return b
}

func markConfig(b *FeaturePackConfigBuilder, id ConfigId, set, opposite *smallmap.Map[ConfigId, struct{}]) *FeaturePackConfigBuilder {
	if b.err != nil {
		return b
	}
	if opposite.Has(id) {
		b.err = fperr.Descriptionf("dependency on %s: contradictory include/exclude of config %s", b.cfg.gav, id)
		return b
	}
	set.Put(id, struct{}{})
	return b
}

// Gav returns the target coordinate.
func (c *FeaturePackConfig) Gav() coords.Gav { return c.gav }

// InheritPackages reports whether default packages are selected.
func (c *FeaturePackConfig) InheritPackages() bool { return c.inheritPackages }

// IncludedPackages returns the explicitly selected packages in declaration order.
func (c *FeaturePackConfig) IncludedPackages() []string { return c.includedPackages.Keys() }

// ExcludedPackages returns the dropped packages in declaration order.
func (c *FeaturePackConfig) ExcludedPackages() []string { return c.excludedPackages.Keys() }

// IsPackageExcluded reports whether the edge drops name.
func (c *FeaturePackConfig) IsPackageExcluded(name string) bool { return c.excludedPackages.Has(name) }

// InheritConfigs reports whether the target's configs are taken by default.
func (c *FeaturePackConfig) InheritConfigs() bool { return c.inheritConfigs }

// IncludedConfigs returns the explicitly selected configs.
func (c *FeaturePackConfig) IncludedConfigs() []ConfigId { return c.includedConfigs.Keys() }

// ExcludedConfigs returns the dropped configs.
func (c *FeaturePackConfig) ExcludedConfigs() []ConfigId { return c.excludedConfigs.Keys() }

// IncludedModels returns the explicitly selected models.
func (c *FeaturePackConfig) IncludedModels() []string { return c.includedModels.Keys() }

// ExcludedModels returns the dropped models.
func (c *FeaturePackConfig) ExcludedModels() []string { return c.excludedModels.Keys() }

// IsConfigAccepted decides whether the target's config id is taken through this edge.
func (c *FeaturePackConfig) IsConfigAccepted(id ConfigId) bool {
	if c.includedConfigs.Has(id) {
		return true
	}
	if c.excludedConfigs.Has(id) {
		return false
	}
	if id.Model != "" && c.excludedModels.Has(id.Model) {
		return false
	}
	if c.inheritConfigs {
		return true
	}
	return id.Model != "" && c.includedModels.Has(id.Model)
}

// DefinedConfigs returns the configs defined on the edge in declaration order.
func (c *FeaturePackConfig) DefinedConfigs() []*ConfigModel {
	return c.definedConfigs.Values()
}
