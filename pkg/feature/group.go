// SPDX-License-Identifier: MPL-2.0

package feature

import (
	"slices"
	"strings"

	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/fperr"
)

type (
	// IncludedFeature is an explicit inclusion together with its override body.
	IncludedFeature struct {
		Id     FeatureId
		Config *FeatureConfig
	}

	// Filter holds the include/exclude decisions of one container. Contradictory
	// decisions are rejected when they are recorded.
	Filter struct {
		includedSpecs    smallmap.Map[SpecId, struct{}]
		excludedSpecs    smallmap.Map[SpecId, struct{}]
		includedFeatures smallmap.Map[string, IncludedFeature]
		excludedFeatures smallmap.Map[string, FeatureId]
	}

	// FeatureGroupSpec is a named, reusable list of feature items declared by a feature-pack.
	FeatureGroupSpec struct {
		Name  string
		Items []ConfigItem
	}

	// FeatureGroupConfig references a FeatureGroupSpec and narrows it.
	FeatureGroupConfig struct {
		name            string
		origin          string
		inheritFeatures bool
		filter          Filter
	}

	// FeatureGroupConfigBuilder assembles a FeatureGroupConfig.
	FeatureGroupConfigBuilder struct {
		cfg *FeatureGroupConfig
		err error
	}
)

// IncludeSpec selects every feature of spec.
func (f *Filter) IncludeSpec(spec SpecId) error {
	if f.excludedSpecs.Has(spec) {
		return fperr.Descriptionf("feature spec %s has been explicitly excluded", spec)
	}
	f.includedSpecs.Put(spec, struct{}{})
	return nil
}

// ExcludeSpec drops every feature of spec that is not explicitly included.
func (f *Filter) ExcludeSpec(spec SpecId) error {
	if f.includedSpecs.Has(spec) {
		return fperr.Descriptionf("feature spec %s has been explicitly included", spec)
	}
	f.excludedSpecs.Put(spec, struct{}{})
	return nil
}

// IncludeFeature selects id. The override body may be nil; when present, the
// id parameters are merged into it and must not conflict with its values.
func (f *Filter) IncludeFeature(id FeatureId, override *FeatureConfig) error {
	key := id.Key()
	if f.excludedFeatures.Has(key) {
		return fperr.Descriptionf("feature %s has been explicitly excluded", id)
	}
	if f.includedFeatures.Has(key) {
		return fperr.Descriptionf("feature %s has already been included", id)
	}
	if override == nil {
		override = &FeatureConfig{}
	}
	bound, err := override.withId(id)
	if err != nil {
		return err
	}
	f.includedFeatures.Put(key, IncludedFeature{Id: id, Config: bound})
	return nil
}

// ExcludeFeature drops id.
func (f *Filter) ExcludeFeature(id FeatureId) error {
	key := id.Key()
	if f.includedFeatures.Has(key) {
		return fperr.Descriptionf("feature %s has been explicitly included", id)
	}
	f.excludedFeatures.Put(key, id)
	return nil
}

// IsExcluded reports whether id is excluded explicitly, or through its spec without
// an explicit inclusion of the id.
func (f *Filter) IsExcluded(id FeatureId) bool {
	key := id.Key()
	if f.excludedFeatures.Has(key) {
		return true
	}
	return f.excludedSpecs.Has(id.spec) && !f.includedFeatures.Has(key)
}

// IsIncluded reports whether id is selected explicitly or through its spec.
func (f *Filter) IsIncluded(id FeatureId) bool {
	return f.includedFeatures.Has(id.Key()) || f.includedSpecs.Has(id.spec)
}

// ExcludesFeature reports whether id itself is excluded, ignoring spec exclusions.
func (f *Filter) ExcludesFeature(id FeatureId) bool {
	return f.excludedFeatures.Has(id.Key())
}

// ExcludesSpec reports whether spec is excluded.
func (f *Filter) ExcludesSpec(spec SpecId) bool {
	return f.excludedSpecs.Has(spec)
}

// Override returns the inclusion override body for id.
func (f *Filter) Override(id FeatureId) (*FeatureConfig, bool) {
	inc, ok := f.includedFeatures.Get(id.Key())
	return inc.Config, ok
}

// IncludedFeatures returns the explicit inclusions in declaration order.
func (f *Filter) IncludedFeatures() []IncludedFeature {
	return f.includedFeatures.Values()
}

// IncludedSpecs returns the included specs in declaration order.
func (f *Filter) IncludedSpecs() []SpecId { return f.includedSpecs.Keys() }

// ExcludedSpecs returns the excluded specs in declaration order.
func (f *Filter) ExcludedSpecs() []SpecId { return f.excludedSpecs.Keys() }

// ExcludedFeatures returns the explicit exclusions in declaration order.
func (f *Filter) ExcludedFeatures() []FeatureId { return f.excludedFeatures.Values() }

// IsEmpty reports whether the filter holds no decision.
func (f *Filter) IsEmpty() bool {
	return f.includedSpecs.Len() == 0 && f.excludedSpecs.Len() == 0 &&
		f.includedFeatures.Len() == 0 && f.excludedFeatures.Len() == 0
}

// NewFeatureGroupSpec declares a named group of items.
func NewFeatureGroupSpec(name string, items ...ConfigItem) (*FeatureGroupSpec, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fperr.Descriptionf("feature group name is empty")
	}
	return &FeatureGroupSpec{Name: name, Items: slices.Clone(items)}, nil
}

func (*FeatureGroupConfig) isConfigItem() {}

// NewFeatureGroupConfig starts a reference to the named group.
func NewFeatureGroupConfig(name string) *FeatureGroupConfigBuilder {
	b := &FeatureGroupConfigBuilder{cfg: &FeatureGroupConfig{name: name, inheritFeatures: true}}
	if strings.TrimSpace(name) == "" {
		b.err = fperr.Descriptionf("feature group reference has no name")
	}
	return b
}

// SetOrigin resolves the group through the dependency edge with the given alias.
func (b *FeatureGroupConfigBuilder) SetOrigin(origin string) *FeatureGroupConfigBuilder {
	b.cfg.origin = origin
	return b
}

// SetInheritFeatures controls whether the group's features are taken by default.
func (b *FeatureGroupConfigBuilder) SetInheritFeatures(inherit bool) *FeatureGroupConfigBuilder {
	b.cfg.inheritFeatures = inherit
	return b
}

// IncludeSpec selects every feature of spec.
func (b *FeatureGroupConfigBuilder) IncludeSpec(spec SpecId) *FeatureGroupConfigBuilder {
	return b.apply(func(f *Filter) error { return f.IncludeSpec(spec) })
}

// ExcludeSpec drops the features of spec that are not explicitly included.
func (b *FeatureGroupConfigBuilder) ExcludeSpec(spec SpecId) *FeatureGroupConfigBuilder {
	return b.apply(func(f *Filter) error { return f.ExcludeSpec(spec) })
}

// IncludeFeature selects id with an optional override body.
func (b *FeatureGroupConfigBuilder) IncludeFeature(id FeatureId, override *FeatureConfig) *FeatureGroupConfigBuilder {
	return b.apply(func(f *Filter) error { return f.IncludeFeature(id, override) })
}

// ExcludeFeature drops id.
func (b *FeatureGroupConfigBuilder) ExcludeFeature(id FeatureId) *FeatureGroupConfigBuilder {
	return b.apply(func(f *Filter) error { return f.ExcludeFeature(id) })
}

// Build freezes the group reference.
func (b *FeatureGroupConfigBuilder) Build() (*FeatureGroupConfig, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg, nil
}

func (b *FeatureGroupConfigBuilder) apply(fn func(*Filter) error) *FeatureGroupConfigBuilder {
	if b.err == nil {
		if err := fn(&b.cfg.filter); err != nil {
			b.err = fperr.Descriptionf("feature group %s: %w", b.cfg.name, err)
		}
	}
	return b
}

// Name returns the referenced group name.
func (g *FeatureGroupConfig) Name() string { return g.name }

// Origin returns the dependency alias the group is resolved through.
func (g *FeatureGroupConfig) Origin() string { return g.origin }

// InheritFeatures reports whether the group's features are taken by default.
func (g *FeatureGroupConfig) InheritFeatures() bool { return g.inheritFeatures }

// Filter returns the include/exclude decisions.
func (g *FeatureGroupConfig) Filter() *Filter { return &g.filter }
