// SPDX-License-Identifier: MPL-2.0

package feature

import (
	"slices"
	"strings"

	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/fperr"
)

type (
	// ConfigItem is an entry of a feature container: a FeatureConfig or a
	// reference to a feature group.
	ConfigItem interface {
		isConfigItem()
	}

	// FeatureConfig is one feature declaration. It owns its nested items, so a
	// config tree is a plain tree without shared nodes.
	FeatureConfig struct {
		spec      SpecId
		origin    string
		parentRef string
		params    smallmap.Map[string, string]
		deps      smallmap.Map[string, FeatureDependencySpec]
		items     []ConfigItem
	}

	// FeatureConfigBuilder assembles a FeatureConfig. The first error is kept
	// and returned by Build.
	FeatureConfigBuilder struct {
		cfg *FeatureConfig
		err error
	}
)

func (*FeatureConfig) isConfigItem() {}

// NewFeatureConfig starts a feature declaration for spec. An empty spec is allowed
// for override bodies that take their spec from the feature id they are attached to.
func NewFeatureConfig(spec SpecId) *FeatureConfigBuilder {
	b := &FeatureConfigBuilder{cfg: &FeatureConfig{spec: spec}}
	if spec != "" {
		b.err = spec.Validate()
	}
	return b
}

// NewFeatureConfigFor starts a feature declaration with the spec and identity
// parameters of id.
func NewFeatureConfigFor(id FeatureId) *FeatureConfigBuilder {
	b := NewFeatureConfig(id.spec)
	for _, p := range id.Params() {
		b.SetParam(p.Name, p.Value)
	}
	return b
}

// SetOrigin attributes the feature to the dependency edge with the given alias.
func (b *FeatureConfigBuilder) SetOrigin(origin string) *FeatureConfigBuilder {
	b.cfg.origin = origin
	return b
}

// SetParentRef names the parameter that receives the parent's identity value.
func (b *FeatureConfigBuilder) SetParentRef(ref string) *FeatureConfigBuilder {
	b.cfg.parentRef = ref
	return b
}

// SetParam sets a parameter value. A later call for the same name wins.
func (b *FeatureConfigBuilder) SetParam(name, value string) *FeatureConfigBuilder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(name) == "" {
		b.err = fperr.Descriptionf("feature %s: parameter name is empty", b.cfg.spec)
		return b
	}
	b.cfg.params.Put(name, value)
	return b
}

// AddDependency records a dependency on another feature. Two dependencies on the
// same feature id are rejected.
func (b *FeatureConfigBuilder) AddDependency(dep FeatureDependencySpec) *FeatureConfigBuilder {
	if b.err != nil {
		return b
	}
	key := dep.Id.Key()
	if b.cfg.deps.Has(key) {
		b.err = fperr.Descriptionf("feature %s: duplicate dependency on %s", b.cfg.spec, dep.Id)
		return b
	}
	b.cfg.deps.Put(key, dep)
	return b
}

// AddFeature nests a child feature.
func (b *FeatureConfigBuilder) AddFeature(child *FeatureConfig) *FeatureConfigBuilder {
	if b.err == nil && child != nil {
		if child.spec == "" {
			b.err = fperr.Descriptionf("feature %s: nested feature has no spec", b.cfg.spec)
			return b
		}
		b.cfg.items = append(b.cfg.items, child)
	}
	return b
}

// AddGroup nests a feature group reference.
func (b *FeatureConfigBuilder) AddGroup(group *FeatureGroupConfig) *FeatureConfigBuilder {
	if b.err == nil && group != nil {
		b.cfg.items = append(b.cfg.items, group)
	}
	return b
}

// Build freezes the feature declaration.
func (b *FeatureConfigBuilder) Build() (*FeatureConfig, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg, nil
}

// SpecId returns the spec of the feature, empty for detached override bodies.
func (c *FeatureConfig) SpecId() SpecId { return c.spec }

// Origin returns the dependency alias the feature is attributed to.
func (c *FeatureConfig) Origin() string { return c.origin }

// ParentRef returns the parameter receiving the parent's identity value.
func (c *FeatureConfig) ParentRef() string { return c.parentRef }

// Param returns a parameter value set in this body.
func (c *FeatureConfig) Param(name string) (string, bool) { return c.params.Get(name) }

// Params returns the parameters set in this body in insertion order.
func (c *FeatureConfig) Params() []Param {
	out := make([]Param, 0, c.params.Len())
	for name, value := range c.params.All() {
		out = append(out, Param{Name: name, Value: value})
	}
	return out
}

// Deps returns the declared feature dependencies in insertion order.
func (c *FeatureConfig) Deps() []FeatureDependencySpec { return c.deps.Values() }

// Items returns the nested features and groups.
func (c *FeatureConfig) Items() []ConfigItem { return slices.Clone(c.items) }

// withId returns a copy bound to id. The spec must match when set, and id
// parameters must agree with values already present in the body.
func (c *FeatureConfig) withId(id FeatureId) (*FeatureConfig, error) {
	if c.spec != "" && c.spec != id.spec {
		return nil, fperr.Descriptionf("feature config for spec %s cannot override feature %s", c.spec, id)
	}
	out := &FeatureConfig{
		spec:      id.spec,
		origin:    c.origin,
		parentRef: c.parentRef,
		params:    c.params.Clone(),
		deps:      c.deps.Clone(),
		items:     slices.Clone(c.items),
	}
	for name, value := range id.params.All() {
		if prev, ok := out.params.Get(name); ok && prev != value {
			return nil, fperr.Descriptionf("feature %s: parameter %s=%s conflicts with the feature id", id, name, prev)
		}
		out.params.Put(name, value)
	}
	return out, nil
}
