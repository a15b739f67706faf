// SPDX-License-Identifier: MPL-2.0

package state

import (
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/feature"
)

// ConfigHandler receives the content of each config in emission order.
// NextFeaturePack and NextSpec are called when the feature-pack or the spec of
// the following features changes.
type ConfigHandler interface {
	Prepare(cfg *ProvisionedConfig) error
	NextFeaturePack(gav coords.Gav) error
	NextSpec(spec feature.ResolvedSpecId) error
	NextFeature(f *ProvisionedFeature) error
	Done() error
}

// VisitConfigs drives handler over every config of s, stopping at the first error.
func VisitConfigs(s *ProvisionedState, handler ConfigHandler) error {
	for i := range s.Configs {
		cfg := &s.Configs[i]
		if err := handler.Prepare(cfg); err != nil {
			return err
		}
		var (
			gav  coords.Gav
			spec feature.ResolvedSpecId
		)
		for j := range cfg.Features {
			f := &cfg.Features[j]
			next := f.Id.Spec()
			if j == 0 || next.FeaturePack != gav {
				gav = next.FeaturePack
				if err := handler.NextFeaturePack(gav); err != nil {
					return err
				}
			}
			if j == 0 || next != spec {
				spec = next
				if err := handler.NextSpec(spec); err != nil {
					return err
				}
			}
			if err := handler.NextFeature(f); err != nil {
				return err
			}
		}
		if err := handler.Done(); err != nil {
			return err
		}
	}
	return nil
}
