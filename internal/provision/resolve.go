// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strings"

	"github.com/provisio/provisio/internal/dag"
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/paramtype"
	"github.com/provisio/provisio/pkg/state"
)

// resolveConfig freezes a merged config: feature dependencies are satisfied,
// parameters resolved, capabilities checked and features ordered.
func (m *merger) resolveConfig(cm *configMerge) (state.ProvisionedConfig, error) {
	if err := cm.advance(phaseResolved); err != nil {
		return state.ProvisionedConfig{}, err
	}

	// Auto-included dependencies are appended and visited by the same loop.
	for i := 0; i < len(cm.features); i++ {
		fs := cm.features[i]
		deps := make([]scopedDep, 0, len(fs.spec.Deps)+len(fs.deps))
		for _, d := range fs.spec.Deps {
			deps = append(deps, scopedDep{dep: d, scope: scope{own: fs.node, owner: fs.node}})
		}
		deps = append(deps, fs.deps...)
		for _, d := range deps {
			target, err := m.resolveDep(cm, fs, d)
			if err != nil {
				return state.ProvisionedConfig{}, err
			}
			if target != fs {
				target.after = append(target.after, fs)
			}
		}
	}

	for _, fs := range cm.features {
		if err := m.resolveParams(fs); err != nil {
			return state.ProvisionedConfig{}, err
		}
	}

	if err := m.checkCapabilities(cm); err != nil {
		return state.ProvisionedConfig{}, err
	}

	ordered, err := orderFeatures(cm)
	if err != nil {
		return state.ProvisionedConfig{}, err
	}

	pc := state.ProvisionedConfig{Model: cm.id.Model, Name: cm.id.Name}
	for name, value := range cm.props.All() {
		pc.Properties = append(pc.Properties, feature.Param{Name: name, Value: value})
	}
	for _, fs := range ordered {
		pc.Features = append(pc.Features, state.ProvisionedFeature{Id: fs.id, Params: fs.params})
	}
	return pc, nil
}

// resolveDep finds the target of a feature dependency, adding it with spec
// defaults when the dependency asks for inclusion.
func (m *merger) resolveDep(cm *configMerge, fs *featureState, d scopedDep) (*featureState, error) {
	id := d.dep.Id
	var target *featureState

	if d.dep.Origin != "" {
		_, n, err := m.layout.byOrigin(d.scope.owner, d.dep.Origin)
		if err != nil {
			return nil, err
		}
		target = cm.byKey[feature.NewResolvedFeatureId(n.gav, id).Key()]
	} else {
		if d.scope.own != nil {
			target = cm.byKey[feature.NewResolvedFeatureId(d.scope.own.gav, id).Key()]
		}
		if target == nil {
			matches := cm.find(id)
			if len(matches) > 1 {
				return nil, fperr.Resolutionf("feature %s depends on %s which is provided by both %s and %s",
					fs.id, id, matches[0].node.gav, matches[1].node.gav)
			}
			if len(matches) == 1 {
				target = matches[0]
			}
		}
	}
	if target != nil {
		return target, nil
	}

	if !d.dep.Include {
		return nil, fperr.Resolutionf("feature %s depends on feature %s which is not in the config", fs.id, id)
	}
	n, spec, err := m.resolveSpec(d.scope, d.dep.Origin, id.Spec())
	if err != nil {
		return nil, err
	}
	if err := checkId(spec, id); err != nil {
		return nil, err
	}
	body, err := feature.NewFeatureConfigFor(id).Build()
	if err != nil {
		return nil, err
	}
	m.p.logger.Debug("including feature dependency", "feature", fs.id, "dependency", id)
	added := cm.add(feature.NewResolvedFeatureId(n.gav, id), n, spec, nil)
	added.addLayer(body, d.scope)
	return added, nil
}

// resolveParams merges the parameter layers of fs: spec defaults, then every
// body in layer order. Identity parameters come from the id.
func (m *merger) resolveParams(fs *featureState) error {
	id := fs.id.FeatureId()
	values := make(map[string]string, len(fs.spec.Params))
	explicit := make(map[string]bool, len(fs.spec.Params))

	for _, layer := range fs.layers {
		for _, param := range layer.Params() {
			ps, ok := fs.spec.Param(param.Name)
			if !ok {
				return fperr.Descriptionf("feature %s sets parameter %s which spec %s does not declare", fs.id, param.Name, fs.spec.Name)
			}
			if ps.Identity {
				if v, _ := id.Param(param.Name); v != param.Value {
					return fperr.Descriptionf("feature %s cannot change identity parameter %s to %s", fs.id, param.Name, param.Value)
				}
				continue
			}
			t, err := m.p.types.Lookup(ps.Type)
			if err != nil {
				return fmt.Errorf("parameter %s of spec %s: %w", ps.Name, fs.spec.Name, err)
			}
			value := param.Value
			if prev, ok := values[ps.Name]; ok && explicit[ps.Name] {
				value, err = paramtype.MergeText(t, prev, value)
			} else {
				_, err = t.Parse(value)
			}
			if err != nil {
				return fmt.Errorf("feature %s parameter %s: %w", fs.id, ps.Name, err)
			}
			values[ps.Name] = value
			explicit[ps.Name] = true
		}
	}

	out := id.Params()
	for _, p := range out {
		values[p.Name] = p.Value
	}
	for _, ps := range fs.spec.Params {
		if ps.Identity {
			continue
		}
		value, ok := values[ps.Name]
		if !ok && ps.HasDefault {
			value, ok = ps.Default, true
		}
		if !ok {
			t, err := m.p.types.Lookup(ps.Type)
			if err != nil {
				return fmt.Errorf("parameter %s of spec %s: %w", ps.Name, fs.spec.Name, err)
			}
			value, ok = t.DefaultValue()
		}
		if !ok {
			if ps.Nillable {
				continue
			}
			return fperr.Descriptionf("feature %s does not set parameter %s which has no default", fs.id, ps.Name)
		}
		values[ps.Name] = value
		out = append(out, feature.Param{Name: ps.Name, Value: value})
	}
	fs.params = out
	fs.values = values
	return nil
}

// checkCapabilities verifies that every required capability is provided by a
// feature of the config, and records providers before requirers.
func (m *merger) checkCapabilities(cm *configMerge) error {
	providers := make(map[string][]*featureState)
	for _, fs := range cm.features {
		for _, c := range fs.spec.Provides {
			names, err := m.expandCapability(fs, c)
			if err != nil {
				return err
			}
			for _, name := range names {
				providers[name] = append(providers[name], fs)
			}
		}
	}
	for _, fs := range cm.features {
		for _, c := range fs.spec.Requires {
			names, err := m.expandCapability(fs, c)
			if err != nil {
				return err
			}
			for _, name := range names {
				provided := providers[name]
				if len(provided) == 0 {
					if c.Optional {
						continue
					}
					return fperr.Resolutionf("feature %s requires capability %s which no feature of config %s provides", fs.id, name, cm.id)
				}
				for _, provider := range provided {
					if provider != fs {
						provider.after = append(provider.after, fs)
					}
				}
			}
		}
	}
	return nil
}

// expandCapability substitutes parameter references. A collection parameter
// contributes one capability per element.
func (m *merger) expandCapability(fs *featureState, c feature.CapabilitySpec) ([]string, error) {
	names := []string{""}
	for _, e := range c.Elements {
		ref, isRef := strings.CutPrefix(e, "$")
		if !isRef {
			names = appendElement(names, []string{e})
			continue
		}
		value, ok := fs.values[ref]
		if !ok {
			if c.Optional {
				return nil, nil
			}
			return nil, fperr.Resolutionf("feature %s: capability %s references parameter %s which is not set", fs.id, c, ref)
		}
		ps, _ := fs.spec.Param(ref)
		t, err := m.p.types.Lookup(ps.Type)
		if err != nil {
			return nil, err
		}
		elems, err := paramtype.CapabilityElements(t, value, c.Optional)
		if err != nil {
			return nil, fmt.Errorf("feature %s capability %s: %w", fs.id, c, err)
		}
		if len(elems) == 0 {
			return nil, nil
		}
		names = appendElement(names, elems)
	}
	return names, nil
}

func appendElement(prefixes, elems []string) []string {
	out := make([]string, 0, len(prefixes)*len(elems))
	for _, prefix := range prefixes {
		for _, e := range elems {
			if prefix == "" {
				out = append(out, e)
			} else {
				out = append(out, prefix+"."+e)
			}
		}
	}
	return out
}

// orderFeatures sorts features so that dependencies, parents and providers
// come first, keeping collection order otherwise.
func orderFeatures(cm *configMerge) ([]*featureState, error) {
	g := dag.New()
	for _, fs := range cm.features {
		g.AddNode(fs.id.Key())
	}
	for _, fs := range cm.features {
		if fs.parent != nil && g.Has(fs.parent.id.Key()) && cm.byKey[fs.parent.id.Key()] == fs.parent {
			g.AddEdge(fs.parent.id.Key(), fs.id.Key())
		}
		for _, next := range fs.after {
			g.AddEdge(fs.id.Key(), next.id.Key())
		}
	}
	keys, err := g.TopologicalSort()
	if err != nil {
		return nil, fperr.Resolutionf("features of config %s depend on each other: %w", cm.id, err)
	}
	out := make([]*featureState, 0, len(keys))
	for _, key := range keys {
		out = append(out, cm.byKey[key])
	}
	return out, nil
}
