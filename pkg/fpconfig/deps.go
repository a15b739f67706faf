// SPDX-License-Identifier: MPL-2.0

package fpconfig

import (
	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fperr"
)

// Deps is the feature-pack dependency set of one container, a feature-pack or
// the root provisioning request. It holds at most one edge per Ga and at most
// one edge per origin alias. The zero value is an empty set.
type Deps struct {
	byGa     smallmap.Map[coords.Ga, *FeaturePackConfig]
	byOrigin smallmap.Map[string, *FeaturePackConfig]
	originOf smallmap.Map[coords.Ga, string]
}

// Add records cfg under the optional origin alias.
func (d *Deps) Add(origin string, cfg *FeaturePackConfig) error {
	ga := cfg.Gav().Ga()
	if d.byGa.Has(ga) {
		return fperr.Descriptionf("feature-pack %s is already declared as a dependency", ga)
	}
	if origin != "" {
		if other, ok := d.byOrigin.Get(origin); ok {
			return fperr.Descriptionf("origin %q is already assigned to feature-pack %s", origin, other.Gav().Ga())
		}
	}
	d.byGa.Put(ga, cfg)
	if origin != "" {
		d.byOrigin.Put(origin, cfg)
		d.originOf.Put(ga, origin)
	}
	return nil
}

// Remove drops the dependency on gav. The stored version must match exactly.
func (d *Deps) Remove(gav coords.Gav) error {
	ga := gav.Ga()
	cfg, ok := d.byGa.Get(ga)
	if !ok {
		return fperr.Descriptionf("feature-pack %s is not a dependency", gav)
	}
	if cfg.Gav().Version != gav.Version {
		return fperr.Descriptionf("feature-pack %s is a dependency in version %s, not %s", ga, cfg.Gav().Version, gav.Version)
	}
	if d.byGa.Len() == 1 {
		d.byGa.Clear()
		d.byOrigin.Clear()
		d.originOf.Clear()
		return nil
	}
	d.byGa.Delete(ga)
	if origin, ok := d.originOf.Get(ga); ok {
		d.originOf.Delete(ga)
		d.byOrigin.Delete(origin)
	}
	return nil
}

// Get returns the edge targeting ga.
func (d *Deps) Get(ga coords.Ga) (*FeaturePackConfig, bool) { return d.byGa.Get(ga) }

// Has reports whether ga is a dependency.
func (d *Deps) Has(ga coords.Ga) bool { return d.byGa.Has(ga) }

// ByOrigin returns the edge registered under the alias.
func (d *Deps) ByOrigin(origin string) (*FeaturePackConfig, bool) { return d.byOrigin.Get(origin) }

// OriginOf returns the alias of the edge targeting ga.
func (d *Deps) OriginOf(ga coords.Ga) (string, bool) { return d.originOf.Get(ga) }

// All returns the edges in declaration order.
func (d *Deps) All() []*FeaturePackConfig { return d.byGa.Values() }

// Origins returns the registered aliases in declaration order.
func (d *Deps) Origins() []string { return d.byOrigin.Keys() }

// Len returns the number of dependencies.
func (d *Deps) Len() int { return d.byGa.Len() }
