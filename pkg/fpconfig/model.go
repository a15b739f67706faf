// SPDX-License-Identifier: MPL-2.0

package fpconfig

import (
	"slices"
	"strings"

	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fperr"
)

// AnyOrigin keys the filter that applies to features from every feature-pack.
const AnyOrigin = ""

type (
	// ConfigId names a config by model and name. An empty string is None; the
	// zero value is the single anonymous config of a feature-pack.
	ConfigId struct {
		Model string
		Name  string
	}

	// ConfigModel is a named bundle of properties and feature declarations, plus
	// include/exclude decisions scoped by origin.
	ConfigModel struct {
		id              ConfigId
		props           smallmap.Map[string, string]
		inheritFeatures bool
		items           []feature.ConfigItem
		filters         smallmap.Map[string, *feature.Filter]
	}

	// ConfigModelBuilder assembles a ConfigModel. The first error is kept and
	// returned by Build.
	ConfigModelBuilder struct {
		cfg *ConfigModel
		err error
	}

	// OriginFilter is the filter registered for one origin.
	OriginFilter struct {
		Origin string
		Filter *feature.Filter
	}
)

// IsAnonymous reports whether id is the (None, None) config.
func (id ConfigId) IsAnonymous() bool { return id.Model == "" && id.Name == "" }

func (id ConfigId) String() string {
	switch {
	case id.IsAnonymous():
		return "anonymous"
	case id.Model == "":
		return id.Name
	case id.Name == "":
		return id.Model + ":"
	default:
		return id.Model + ":" + id.Name
	}
}

// NewConfigModel starts a config with the given model and name.
func NewConfigModel(model, name string) *ConfigModelBuilder {
	return &ConfigModelBuilder{cfg: &ConfigModel{id: ConfigId{Model: model, Name: name}, inheritFeatures: true}}
}

// SetProperty sets a config property.
func (b *ConfigModelBuilder) SetProperty(name, value string) *ConfigModelBuilder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(name) == "" {
		b.err = fperr.Descriptionf("config %s: property name is empty", b.cfg.id)
		return b
	}
	b.cfg.props.Put(name, value)
	return b
}

// SetInheritFeatures controls whether already collected features survive this layer.
func (b *ConfigModelBuilder) SetInheritFeatures(inherit bool) *ConfigModelBuilder {
	b.cfg.inheritFeatures = inherit
	return b
}

// AddFeature declares a feature.
func (b *ConfigModelBuilder) AddFeature(fc *feature.FeatureConfig) *ConfigModelBuilder {
	if b.err != nil {
		return b
	}
	if fc.SpecId() == "" {
		b.err = fperr.Descriptionf("config %s: feature declaration has no spec", b.cfg.id)
		return b
	}
	b.cfg.items = append(b.cfg.items, fc)
	return b
}

// AddGroup references a feature group.
func (b *ConfigModelBuilder) AddGroup(g *feature.FeatureGroupConfig) *ConfigModelBuilder {
	if b.err == nil {
		b.cfg.items = append(b.cfg.items, g)
	}
	return b
}

// IncludeSpec selects every feature of spec from origin.
func (b *ConfigModelBuilder) IncludeSpec(origin string, spec feature.SpecId) *ConfigModelBuilder {
	return b.apply(origin, func(f *feature.Filter) error { return f.IncludeSpec(spec) })
}

// ExcludeSpec drops the features of spec from origin that are not explicitly included.
func (b *ConfigModelBuilder) ExcludeSpec(origin string, spec feature.SpecId) *ConfigModelBuilder {
	return b.apply(origin, func(f *feature.Filter) error { return f.ExcludeSpec(spec) })
}

// IncludeFeature selects id from origin. The override body's own origin, when
// set, takes precedence over the origin argument.
func (b *ConfigModelBuilder) IncludeFeature(origin string, id feature.FeatureId, override *feature.FeatureConfig) *ConfigModelBuilder {
	if override != nil && override.Origin() != "" {
		origin = override.Origin()
	}
	return b.apply(origin, func(f *feature.Filter) error { return f.IncludeFeature(id, override) })
}

// ExcludeFeature drops id from origin.
func (b *ConfigModelBuilder) ExcludeFeature(origin string, id feature.FeatureId) *ConfigModelBuilder {
	return b.apply(origin, func(f *feature.Filter) error { return f.ExcludeFeature(id) })
}

// Build freezes the config.
func (b *ConfigModelBuilder) Build() (*ConfigModel, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg, nil
}

func (b *ConfigModelBuilder) apply(origin string, fn func(*feature.Filter) error) *ConfigModelBuilder {
	if b.err != nil {
		return b
	}
	f, ok := b.cfg.filters.Get(origin)
	if !ok {
		f = &feature.Filter{}
		b.cfg.filters.Put(origin, f)
	}
	if err := fn(f); err != nil {
		b.err = fperr.Descriptionf("config %s: %w", b.cfg.id, err)
	}
	return b
}

// Id returns the config id.
func (c *ConfigModel) Id() ConfigId { return c.id }

// Property returns a property value.
func (c *ConfigModel) Property(name string) (string, bool) { return c.props.Get(name) }

// Properties returns the properties in declaration order.
func (c *ConfigModel) Properties() []feature.Param {
	out := make([]feature.Param, 0, c.props.Len())
	for name, value := range c.props.All() {
		out = append(out, feature.Param{Name: name, Value: value})
	}
	return out
}

// InheritFeatures reports whether already collected features survive this layer.
func (c *ConfigModel) InheritFeatures() bool { return c.inheritFeatures }

// Items returns the declared features and group references.
func (c *ConfigModel) Items() []feature.ConfigItem { return slices.Clone(c.items) }

// Filters returns the filters in declaration order of their origins.
func (c *ConfigModel) Filters() []OriginFilter {
	out := make([]OriginFilter, 0, c.filters.Len())
	for origin, f := range c.filters.All() {
		out = append(out, OriginFilter{Origin: origin, Filter: f})
	}
	return out
}

// HasFilters reports whether the config narrows features.
func (c *ConfigModel) HasFilters() bool { return c.filters.Len() > 0 }
