// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"

	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/state"
)

const (
	phaseCollecting phase = iota
	phaseOverlaying
	phaseResolved
)

type (
	// phase is the merge state of one config. It only moves forward.
	phase uint8

	// scope is where a layer was declared. Specs and groups without an origin
	// are looked up in own first, then in its dependencies; origins are aliases
	// of owner. A nil feature-pack stands for the provisioning request.
	scope struct {
		own   *fpNode
		owner *fpNode
	}

	featureState struct {
		id     feature.ResolvedFeatureId
		node   *fpNode
		spec   *feature.FeatureSpec
		parent *featureState
		layers []*feature.FeatureConfig
		deps   []scopedDep
		// resolved during phaseResolved
		params []feature.Param
		values map[string]string
		after  []*featureState
	}

	scopedDep struct {
		dep   feature.FeatureDependencySpec
		scope scope
	}

	configMerge struct {
		id       fpconfig.ConfigId
		phase    phase
		props    smallmap.Map[string, string]
		features []*featureState
		byKey    map[string]*featureState
	}

	// boundFilter is a config filter with its origin resolved. A nil target
	// applies to features of every feature-pack.
	boundFilter struct {
		origin string
		target *fpNode
		filter *feature.Filter
	}

	// groupFilter narrows the expansion of one feature group.
	groupFilter struct {
		filter  *feature.Filter
		inherit bool
		used    map[string]bool
	}

	merger struct {
		p       *Provisioner
		layout  *layout
		configs smallmap.Map[fpconfig.ConfigId, *configMerge]
	}
)

func (ph phase) String() string {
	switch ph {
	case phaseCollecting:
		return "collecting"
	case phaseOverlaying:
		return "overlaying"
	default:
		return "resolved"
	}
}

// mergeConfigs layers every contributed config and returns them resolved, in
// emission order.
func (p *Provisioner) mergeConfigs(l *layout, req *fpconfig.ProvisioningConfig) ([]state.ProvisionedConfig, error) {
	m := &merger{p: p, layout: l}

	for _, n := range l.order {
		for _, model := range n.spec.Configs() {
			if !n.acceptsConfig(model.Id()) {
				p.logger.Debug("config not accepted", "featurePack", n.gav, "config", model.Id())
				continue
			}
			if err := m.apply(model, scope{own: n, owner: n}, phaseCollecting); err != nil {
				return nil, fmt.Errorf("config %s of feature-pack %s: %w", model.Id(), n.gav, err)
			}
		}
		for _, e := range n.edges {
			for _, model := range e.cfg.DefinedConfigs() {
				if err := m.apply(model, scope{own: n, owner: e.owner}, phaseCollecting); err != nil {
					return nil, fmt.Errorf("config %s defined on the dependency on %s: %w", model.Id(), n.gav, err)
				}
			}
		}
	}
	for _, model := range req.Configs() {
		if err := m.apply(model, scope{}, phaseOverlaying); err != nil {
			return nil, fmt.Errorf("config %s of the provisioning request: %w", model.Id(), err)
		}
	}

	var out []state.ProvisionedConfig
	for _, cm := range orderConfigs(m.configs.Values()) {
		pc, err := m.resolveConfig(cm)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", cm.id, err)
		}
		out = append(out, pc)
	}
	return out, nil
}

func (n *fpNode) acceptsConfig(id fpconfig.ConfigId) bool {
	for _, e := range n.edges {
		if e.cfg.IsConfigAccepted(id) {
			return true
		}
	}
	return false
}

func (cm *configMerge) advance(to phase) error {
	if to < cm.phase {
		return fperr.Resolutionf("config %s cannot go back from %s to %s", cm.id, cm.phase, to)
	}
	cm.phase = to
	return nil
}

func (cm *configMerge) add(id feature.ResolvedFeatureId, n *fpNode, spec *feature.FeatureSpec, parent *featureState) *featureState {
	fs := &featureState{id: id, node: n, spec: spec, parent: parent}
	cm.features = append(cm.features, fs)
	cm.byKey[id.Key()] = fs
	return fs
}

// find returns the features with the given id across feature-packs.
func (cm *configMerge) find(id feature.FeatureId) []*featureState {
	var out []*featureState
	for _, fs := range cm.features {
		if fs.id.FeatureId().Equal(id) {
			out = append(out, fs)
		}
	}
	return out
}

func (fs *featureState) addLayer(fc *feature.FeatureConfig, sc scope) {
	fs.layers = append(fs.layers, fc)
	for _, d := range fc.Deps() {
		fs.deps = append(fs.deps, scopedDep{dep: d, scope: sc})
	}
}

func (m *merger) config(id fpconfig.ConfigId) *configMerge {
	cm, ok := m.configs.Get(id)
	if !ok {
		cm = &configMerge{id: id, byKey: make(map[string]*featureState)}
		m.configs.Put(id, cm)
	}
	return cm
}

// apply layers one config model onto the merge of its id.
func (m *merger) apply(model *fpconfig.ConfigModel, sc scope, ph phase) error {
	cm := m.config(model.Id())
	if err := cm.advance(ph); err != nil {
		return err
	}
	m.p.logger.Debug("applying config layer", "config", cm.id, "phase", ph, "featurePack", sc.label())

	for _, prop := range model.Properties() {
		cm.props.Put(prop.Name, prop.Value)
	}

	filters := make([]boundFilter, 0, len(model.Filters()))
	for _, of := range model.Filters() {
		bf := boundFilter{origin: of.Origin, filter: of.Filter}
		if of.Origin != fpconfig.AnyOrigin {
			_, target, err := m.layout.byOrigin(sc.owner, of.Origin)
			if err != nil {
				return err
			}
			bf.target = target
		}
		filters = append(filters, bf)
	}

	cm.retain(filters, model.InheritFeatures())

	for _, bf := range filters {
		for _, inc := range bf.filter.IncludedFeatures() {
			if err := m.include(cm, sc, bf, inc); err != nil {
				return err
			}
		}
	}

	for _, item := range model.Items() {
		if err := m.addItem(cm, sc, item, nil, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

// retain drops collected features the layer excludes, or, when the layer does
// not inherit features, every feature it does not include. Filters are
// combined across origins: an explicit inclusion in any applicable filter
// keeps a feature whose spec another applicable filter excludes.
func (cm *configMerge) retain(filters []boundFilter, inherit bool) {
	if inherit && len(filters) == 0 {
		return
	}
	kept := cm.features[:0]
	for _, fs := range cm.features {
		id := fs.id.FeatureId()
		var included, explicit, excluded, specExcluded bool
		for _, bf := range filters {
			if bf.target != nil && bf.target != fs.node {
				continue
			}
			_, ok := bf.filter.Override(id)
			explicit = explicit || ok
			included = included || bf.filter.IsIncluded(id)
			excluded = excluded || bf.filter.ExcludesFeature(id)
			specExcluded = specExcluded || bf.filter.ExcludesSpec(id.Spec())
		}
		if excluded || (specExcluded && !explicit) || (!inherit && !included) {
			delete(cm.byKey, fs.id.Key())
			continue
		}
		kept = append(kept, fs)
	}
	clear(cm.features[len(kept):])
	cm.features = kept
}

// include applies an explicit inclusion: its body becomes a new layer of the
// matching feature, or the feature is added.
func (m *merger) include(cm *configMerge, sc scope, bf boundFilter, inc feature.IncludedFeature) error {
	var existing *featureState
	if bf.target != nil {
		existing = cm.byKey[feature.NewResolvedFeatureId(bf.target.gav, inc.Id).Key()]
	} else {
		matches := cm.find(inc.Id)
		if len(matches) > 1 {
			return fperr.Resolutionf("included feature %s is ambiguous: it is provided by %s and %s",
				inc.Id, matches[0].node.gav, matches[1].node.gav)
		}
		if len(matches) == 1 {
			existing = matches[0]
		}
	}
	if existing != nil {
		existing.addLayer(inc.Config, sc)
		return m.addItems(cm, sc, inc.Config.Items(), existing)
	}

	n, spec, err := m.resolveSpec(sc, bf.origin, inc.Id.Spec())
	if err != nil {
		return err
	}
	if err := checkId(spec, inc.Id); err != nil {
		return err
	}
	fs := cm.add(feature.NewResolvedFeatureId(n.gav, inc.Id), n, spec, nil)
	fs.addLayer(inc.Config, sc)
	return m.addItems(cm, sc, inc.Config.Items(), fs)
}

func (m *merger) addItems(cm *configMerge, sc scope, items []feature.ConfigItem, parent *featureState) error {
	for _, item := range items {
		if err := m.addItem(cm, sc, item, parent, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func (m *merger) addItem(cm *configMerge, sc scope, item feature.ConfigItem, parent *featureState, guard map[string]bool) error {
	switch it := item.(type) {
	case *feature.FeatureConfig:
		return m.addFeature(cm, sc, it, parent, nil, guard)
	case *feature.FeatureGroupConfig:
		return m.addGroup(cm, sc, it, parent, guard)
	default:
		return fperr.Descriptionf("unsupported config item %T", item)
	}
}

func (m *merger) addFeature(cm *configMerge, sc scope, fc *feature.FeatureConfig, parent *featureState, gf *groupFilter, guard map[string]bool) error {
	n, spec, err := m.resolveSpec(sc, fc.Origin(), fc.SpecId())
	if err != nil {
		return err
	}
	id, err := featureIdOf(spec, fc, parent)
	if err != nil {
		return err
	}

	var override *feature.FeatureConfig
	if gf != nil {
		if gf.filter.IsExcluded(id) || (!gf.inherit && !gf.filter.IsIncluded(id)) {
			return nil
		}
		if o, ok := gf.filter.Override(id); ok {
			override = o
			gf.used[id.Key()] = true
		}
	}

	rid := feature.NewResolvedFeatureId(n.gav, id)
	fs, ok := cm.byKey[rid.Key()]
	if !ok {
		fs = cm.add(rid, n, spec, parent)
	}
	fs.addLayer(fc, sc)
	if override != nil {
		fs.addLayer(override, sc)
	}

	for _, child := range fc.Items() {
		if err := m.addItem(cm, sc, child, fs, guard); err != nil {
			return err
		}
	}
	return nil
}

func (m *merger) addGroup(cm *configMerge, sc scope, g *feature.FeatureGroupConfig, parent *featureState, guard map[string]bool) error {
	n, err := m.locate(sc, g.Origin(), "feature group", g.Name(), func(n *fpNode) bool {
		_, ok := n.spec.Group(g.Name())
		return ok
	})
	if err != nil {
		return err
	}
	spec, _ := n.spec.Group(g.Name())

	key := n.gav.Ga().String() + "#" + g.Name()
	if guard[key] {
		return fperr.Descriptionf("feature group %s of %s includes itself", g.Name(), n.gav)
	}
	guard[key] = true
	defer delete(guard, key)

	gsc := scope{own: n, owner: n}
	gf := &groupFilter{filter: g.Filter(), inherit: g.InheritFeatures(), used: make(map[string]bool)}
	for _, item := range spec.Items {
		var err error
		switch it := item.(type) {
		case *feature.FeatureConfig:
			err = m.addFeature(cm, gsc, it, parent, gf, guard)
		case *feature.FeatureGroupConfig:
			err = m.addGroup(cm, gsc, it, parent, guard)
		}
		if err != nil {
			return fmt.Errorf("feature group %s: %w", g.Name(), err)
		}
	}

	// Inclusions of features the group does not declare add them.
	for _, inc := range g.Filter().IncludedFeatures() {
		if gf.used[inc.Id.Key()] {
			continue
		}
		fn, fspec, err := m.resolveSpec(gsc, inc.Config.Origin(), inc.Id.Spec())
		if err != nil {
			return fmt.Errorf("feature group %s: %w", g.Name(), err)
		}
		if err := checkId(fspec, inc.Id); err != nil {
			return err
		}
		rid := feature.NewResolvedFeatureId(fn.gav, inc.Id)
		fs, ok := cm.byKey[rid.Key()]
		if !ok {
			fs = cm.add(rid, fn, fspec, parent)
		}
		fs.addLayer(inc.Config, gsc)
	}
	return nil
}

// resolveSpec finds the feature-pack providing spec for a declaration in sc.
func (m *merger) resolveSpec(sc scope, origin string, name feature.SpecId) (*fpNode, *feature.FeatureSpec, error) {
	n, err := m.locate(sc, origin, "feature spec", string(name), func(n *fpNode) bool {
		_, ok := n.spec.FeatureSpec(name)
		return ok
	})
	if err != nil {
		return nil, nil, err
	}
	spec, _ := n.spec.FeatureSpec(name)
	return n, spec, nil
}

// locate finds the feature-pack declaring a named spec or group. An origin
// selects the feature-pack directly; otherwise sc.own is searched first, then
// its direct dependencies, which must not provide the name more than once.
func (m *merger) locate(sc scope, origin, kind, name string, has func(*fpNode) bool) (*fpNode, error) {
	if origin != fpconfig.AnyOrigin {
		_, n, err := m.layout.byOrigin(sc.owner, origin)
		if err != nil {
			return nil, err
		}
		if !has(n) {
			return nil, fperr.Descriptionf("feature-pack %s (origin %s) is missing %s %s", n.gav, origin, kind, name)
		}
		return n, nil
	}
	if sc.own != nil && has(sc.own) {
		return sc.own, nil
	}
	var found *fpNode
	for _, edge := range m.layout.deps(sc.own).All() {
		n := m.layout.target(edge)
		if !has(n) {
			continue
		}
		if found != nil {
			return nil, fperr.Resolutionf("%s %s is ambiguous: it is provided by %s and %s", kind, name, found.gav, n.gav)
		}
		found = n
	}
	if found == nil {
		return nil, fperr.Descriptionf("%s is missing %s %s", sc.label(), kind, name)
	}
	return found, nil
}

func (sc scope) label() string {
	if sc.own == nil {
		return "the provisioning request"
	}
	return "feature-pack " + sc.own.gav.String()
}

// featureIdOf computes the identity of a declared feature. Identity parameters
// missing from the body are taken from the parent: by name, or through the
// parent reference when the parent has a single identity parameter. The
// reference defaults to the parent's spec name.
func featureIdOf(spec *feature.FeatureSpec, fc *feature.FeatureConfig, parent *featureState) (feature.FeatureId, error) {
	ref := fc.ParentRef()
	if ref == "" && parent != nil {
		ref = string(parent.spec.Name)
	}
	var nameValues []string
	for _, p := range spec.IdParams() {
		v, ok := fc.Param(p.Name)
		if !ok && parent != nil {
			pid := parent.id.FeatureId()
			if v, ok = pid.Param(p.Name); !ok && p.Name == ref && pid.ParamCount() == 1 {
				v, ok = pid.Params()[0].Value, true
			}
		}
		if !ok {
			return feature.FeatureId{}, fperr.Descriptionf("feature of spec %s is missing identity parameter %s", spec.Name, p.Name)
		}
		nameValues = append(nameValues, p.Name, v)
	}
	return feature.NewFeatureId(spec.Name, nameValues...)
}

// checkId verifies that id names exactly the identity parameters of spec.
func checkId(spec *feature.FeatureSpec, id feature.FeatureId) error {
	idParams := spec.IdParams()
	if id.ParamCount() != len(idParams) {
		return fperr.Descriptionf("feature id %s does not match the identity parameters of spec %s", id, spec.Name)
	}
	for _, p := range idParams {
		if _, ok := id.Param(p.Name); !ok {
			return fperr.Descriptionf("feature id %s is missing identity parameter %s", id, p.Name)
		}
	}
	return nil
}
