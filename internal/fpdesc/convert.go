// SPDX-License-Identifier: MPL-2.0

package fpdesc

import (
	"maps"
	"slices"

	"github.com/provisio/provisio/internal/schema"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fpspec"
)

func (d *FeaturePackDoc) toSpec() (*fpspec.FeaturePackSpec, error) {
	gav, err := coords.ParseGav(d.Gav)
	if err != nil {
		return nil, err
	}
	b := fpspec.NewFeaturePackSpec(gav)
	for _, dep := range d.Dependencies {
		origin, cfg, err := dep.toConfig()
		if err != nil {
			return nil, err
		}
		b.AddDependency(origin, cfg)
	}
	for _, p := range d.Packages {
		b.AddPackage(p.toSpec())
	}
	for _, s := range d.Specs {
		spec, err := s.toSpec()
		if err != nil {
			return nil, err
		}
		b.AddFeatureSpec(spec)
	}
	for _, g := range d.Groups {
		group, err := g.toSpec()
		if err != nil {
			return nil, err
		}
		b.AddGroup(group)
	}
	for _, c := range d.Configs {
		model, err := c.toModel()
		if err != nil {
			return nil, err
		}
		b.AddConfig(model)
	}
	for _, name := range d.Plugins {
		b.AddPlugin(name)
	}
	return b.Build()
}

func (d *ProvisioningDoc) toConfig() (*fpconfig.ProvisioningConfig, error) {
	b := fpconfig.NewProvisioningConfig()
	for _, dep := range d.Dependencies {
		origin, cfg, err := dep.toConfig()
		if err != nil {
			return nil, err
		}
		b.AddFeaturePackDep(origin, cfg)
	}
	for _, c := range d.Configs {
		model, err := c.toModel()
		if err != nil {
			return nil, err
		}
		b.AddConfig(model)
	}
	return b.Build()
}

func (d *ConfigSchemaDoc) toSchema() (*schema.Schema, error) {
	b := schema.NewBuilder()
	for _, s := range d.Specs {
		desc := schema.SpecDescription{
			Name:     s.Name,
			Params:   s.Params,
			IdParams: s.IdParams,
		}
		for _, occ := range s.Features {
			desc.Features = append(desc.Features, schema.Occurrence{Spot: occ.Spot, Spec: occ.Spec})
		}
		for _, ref := range s.Refs {
			r := schema.RefSpec{Name: ref.Name, Target: ref.Target}
			for _, p := range ref.Params {
				r.Params = append(r.Params, schema.ParamMapping{Target: p.Target, Source: p.Source})
			}
			desc.Refs = append(desc.Refs, r)
		}
		b.AddSpec(desc)
	}
	for _, occ := range d.Roots {
		b.AddRoot(schema.Occurrence{Spot: occ.Spot, Spec: occ.Spec})
	}
	return b.Build()
}

func (d *DependencyDoc) toConfig() (string, *fpconfig.FeaturePackConfig, error) {
	gav, err := coords.ParseGav(d.Gav)
	if err != nil {
		return "", nil, err
	}
	b := fpconfig.NewFeaturePackConfig(gav)
	if d.InheritPackages != nil {
		b.SetInheritPackages(*d.InheritPackages)
	}
	for _, name := range d.IncludePackages {
		b.IncludePackage(name)
	}
	for _, name := range d.ExcludePackages {
		b.ExcludePackage(name)
	}
	if d.InheritConfigs != nil {
		b.SetInheritConfigs(*d.InheritConfigs)
	}
	for _, ref := range d.IncludeConfigs {
		b.IncludeConfig(fpconfig.ConfigId{Model: ref.Model, Name: ref.Name})
	}
	for _, ref := range d.ExcludeConfigs {
		b.ExcludeConfig(fpconfig.ConfigId{Model: ref.Model, Name: ref.Name})
	}
	for _, model := range d.IncludeModels {
		b.IncludeModel(model)
	}
	for _, model := range d.ExcludeModels {
		b.ExcludeModel(model)
	}
	for _, c := range d.Configs {
		model, err := c.toModel()
		if err != nil {
			return "", nil, err
		}
		b.AddConfig(model)
	}
	cfg, err := b.Build()
	if err != nil {
		return "", nil, err
	}
	return d.Origin, cfg, nil
}

func (p *PackageDoc) toSpec() *fpspec.PackageSpec {
	pkg := &fpspec.PackageSpec{Name: p.Name, Default: p.Default, LocalDeps: toPackageDeps(p.Deps)}
	for _, ext := range p.External {
		pkg.ExternalDeps = append(pkg.ExternalDeps, fpspec.ExternalDependencies{Origin: ext.Origin, Deps: toPackageDeps(ext.Deps)})
	}
	for _, param := range p.Params {
		pkg.Params = append(pkg.Params, fpspec.PackageParam{Name: param.Name, Default: param.Default})
	}
	return pkg
}

func toPackageDeps(docs []PackageDepDoc) []fpspec.PackageDependency {
	var deps []fpspec.PackageDependency
	for _, d := range docs {
		deps = append(deps, fpspec.PackageDependency{Name: d.Name, Optional: d.Optional})
	}
	return deps
}

func (s *SpecDoc) toSpec() (*feature.FeatureSpec, error) {
	spec := &feature.FeatureSpec{Name: feature.SpecId(s.Name)}
	for _, p := range s.Params {
		param := feature.ParameterSpec{Name: p.Name, Type: p.Type, Identity: p.Identity, Nillable: p.Nillable}
		if p.Default != nil {
			param.Default, param.HasDefault = *p.Default, true
		}
		spec.Params = append(spec.Params, param)
	}
	for _, c := range s.Provides {
		capability, err := feature.ParseCapability(c.Name, c.Optional)
		if err != nil {
			return nil, err
		}
		spec.Provides = append(spec.Provides, capability)
	}
	for _, c := range s.Requires {
		capability, err := feature.ParseCapability(c.Name, c.Optional)
		if err != nil {
			return nil, err
		}
		spec.Requires = append(spec.Requires, capability)
	}
	for _, d := range s.Deps {
		dep, err := d.toSpec()
		if err != nil {
			return nil, err
		}
		spec.Deps = append(spec.Deps, dep)
	}
	return spec, nil
}

func (d FeatureDepDoc) toSpec() (feature.FeatureDependencySpec, error) {
	id, err := feature.ParseFeatureId(d.Id)
	if err != nil {
		return feature.FeatureDependencySpec{}, err
	}
	return feature.FeatureDependencySpec{Id: id, Origin: d.Origin, Include: d.Include}, nil
}

func (g *GroupDoc) toSpec() (*feature.FeatureGroupSpec, error) {
	items, err := toItems(g.Features, g.Groups)
	if err != nil {
		return nil, err
	}
	return feature.NewFeatureGroupSpec(g.Name, items...)
}

// toItems converts features followed by group references.
func toItems(features []FeatureDoc, groups []GroupRefDoc) ([]feature.ConfigItem, error) {
	items := make([]feature.ConfigItem, 0, len(features)+len(groups))
	for _, f := range features {
		fc, err := f.toConfig()
		if err != nil {
			return nil, err
		}
		items = append(items, fc)
	}
	for _, g := range groups {
		gc, err := g.toConfig()
		if err != nil {
			return nil, err
		}
		items = append(items, gc)
	}
	return items, nil
}

func (f *FeatureDoc) toConfig() (*feature.FeatureConfig, error) {
	b := feature.NewFeatureConfig(feature.SpecId(f.Spec)).
		SetOrigin(f.Origin).
		SetParentRef(f.ParentRef)
	for _, name := range sortedKeys(f.Params) {
		b.SetParam(name, f.Params[name])
	}
	for _, d := range f.Deps {
		dep, err := d.toSpec()
		if err != nil {
			return nil, err
		}
		b.AddDependency(dep)
	}
	for _, child := range f.Features {
		c, err := child.toConfig()
		if err != nil {
			return nil, err
		}
		b.AddFeature(c)
	}
	for _, g := range f.Groups {
		gc, err := g.toConfig()
		if err != nil {
			return nil, err
		}
		b.AddGroup(gc)
	}
	return b.Build()
}

func (g *GroupRefDoc) toConfig() (*feature.FeatureGroupConfig, error) {
	b := feature.NewFeatureGroupConfig(g.Name).SetOrigin(g.Origin)
	if g.InheritFeatures != nil {
		b.SetInheritFeatures(*g.InheritFeatures)
	}
	for _, spec := range g.IncludeSpecs {
		b.IncludeSpec(feature.SpecId(spec))
	}
	for _, spec := range g.ExcludeSpecs {
		b.ExcludeSpec(feature.SpecId(spec))
	}
	for _, inc := range g.IncludeFeatures {
		id, override, err := inc.toInclusion()
		if err != nil {
			return nil, err
		}
		b.IncludeFeature(id, override)
	}
	for _, text := range g.ExcludeFeatures {
		id, err := feature.ParseFeatureId(text)
		if err != nil {
			return nil, err
		}
		b.ExcludeFeature(id)
	}
	return b.Build()
}

func (c *ConfigDoc) toModel() (*fpconfig.ConfigModel, error) {
	b := fpconfig.NewConfigModel(c.Model, c.Name)
	for _, name := range sortedKeys(c.Props) {
		b.SetProperty(name, c.Props[name])
	}
	if c.InheritFeatures != nil {
		b.SetInheritFeatures(*c.InheritFeatures)
	}
	for _, f := range c.Features {
		fc, err := f.toConfig()
		if err != nil {
			return nil, err
		}
		b.AddFeature(fc)
	}
	for _, g := range c.Groups {
		gc, err := g.toConfig()
		if err != nil {
			return nil, err
		}
		b.AddGroup(gc)
	}
	for _, f := range c.Filters {
		for _, spec := range f.IncludeSpecs {
			b.IncludeSpec(f.Origin, feature.SpecId(spec))
		}
		for _, spec := range f.ExcludeSpecs {
			b.ExcludeSpec(f.Origin, feature.SpecId(spec))
		}
		for _, inc := range f.IncludeFeatures {
			id, override, err := inc.toInclusion()
			if err != nil {
				return nil, err
			}
			b.IncludeFeature(f.Origin, id, override)
		}
		for _, text := range f.ExcludeFeatures {
			id, err := feature.ParseFeatureId(text)
			if err != nil {
				return nil, err
			}
			b.ExcludeFeature(f.Origin, id)
		}
	}
	return b.Build()
}

// toInclusion returns the feature id and, when the inclusion carries
// parameters or an origin, a detached override body.
func (i IncludedFeatureDoc) toInclusion() (feature.FeatureId, *feature.FeatureConfig, error) {
	id, err := feature.ParseFeatureId(i.Id)
	if err != nil {
		return feature.FeatureId{}, nil, err
	}
	if len(i.Params) == 0 && i.Origin == "" {
		return id, nil, nil
	}
	b := feature.NewFeatureConfig("").SetOrigin(i.Origin)
	for _, name := range sortedKeys(i.Params) {
		b.SetParam(name, i.Params[name])
	}
	override, err := b.Build()
	if err != nil {
		return feature.FeatureId{}, nil, err
	}
	return id, override, nil
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
