// SPDX-License-Identifier: MPL-2.0

package fpconfig

import (
	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/fperr"
)

type (
	// ProvisioningConfig is the root request: the feature-packs to install and the
	// customization layer applied over their configs.
	ProvisioningConfig struct {
		deps    Deps
		configs smallmap.Map[ConfigId, *ConfigModel]
	}

	// ProvisioningConfigBuilder assembles a ProvisioningConfig.
	ProvisioningConfigBuilder struct {
		cfg *ProvisioningConfig
		err error
	}
)

// NewProvisioningConfig starts an empty request.
func NewProvisioningConfig() *ProvisioningConfigBuilder {
	return &ProvisioningConfigBuilder{cfg: &ProvisioningConfig{}}
}

// AddFeaturePackDep adds a root dependency under the optional origin alias.
func (b *ProvisioningConfigBuilder) AddFeaturePackDep(origin string, cfg *FeaturePackConfig) *ProvisioningConfigBuilder {
	if b.err == nil {
		b.err = b.cfg.deps.Add(origin, cfg)
	}
	return b
}

// RemoveFeaturePackDep drops a root dependency.
func (b *ProvisioningConfigBuilder) RemoveFeaturePackDep(cfg *FeaturePackConfig) *ProvisioningConfigBuilder {
	if b.err == nil {
		b.err = b.cfg.deps.Remove(cfg.Gav())
	}
	return b
}

// AddConfig adds a customization config.
func (b *ProvisioningConfigBuilder) AddConfig(model *ConfigModel) *ProvisioningConfigBuilder {
	if b.err != nil {
		return b
	}
	if b.cfg.configs.Has(model.Id()) {
		b.err = fperr.Descriptionf("provisioning config defines config %s more than once", model.Id())
		return b
	}
	b.cfg.configs.Put(model.Id(), model)
	return b
}

// Build freezes the request.
func (b *ProvisioningConfigBuilder) Build() (*ProvisioningConfig, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cfg, nil
}

// Deps returns the root dependency set.
func (c *ProvisioningConfig) Deps() *Deps { return &c.deps }

// Configs returns the customization configs in declaration order.
func (c *ProvisioningConfig) Configs() []*ConfigModel { return c.configs.Values() }
