// SPDX-License-Identifier: MPL-2.0

package fpdesc

type (
	// ConfigRefDoc names a config by model and name.
	ConfigRefDoc struct {
		Model string `json:"model,omitempty"`
		Name  string `json:"name,omitempty"`
	}

	// FeatureDepDoc is a dependency on another feature.
	FeatureDepDoc struct {
		Id      string `json:"id"`
		Origin  string `json:"origin,omitempty"`
		Include bool   `json:"include,omitempty"`
	}

	// IncludedFeatureDoc selects a feature by id, optionally overriding parameters.
	IncludedFeatureDoc struct {
		Id     string            `json:"id"`
		Origin string            `json:"origin,omitempty"`
		Params map[string]string `json:"params,omitempty"`
	}

	// FilterDoc is the include/exclude part shared by group references and
	// origin filters.
	FilterDoc struct {
		IncludeSpecs    []string             `json:"include_specs,omitempty"`
		ExcludeSpecs    []string             `json:"exclude_specs,omitempty"`
		IncludeFeatures []IncludedFeatureDoc `json:"include_features,omitempty"`
		ExcludeFeatures []string             `json:"exclude_features,omitempty"`
	}

	// GroupRefDoc references a feature group.
	GroupRefDoc struct {
		FilterDoc
		Name            string `json:"name"`
		Origin          string `json:"origin,omitempty"`
		InheritFeatures *bool  `json:"inherit_features,omitempty"`
	}

	// FeatureDoc declares a feature.
	FeatureDoc struct {
		Spec      string            `json:"spec"`
		Origin    string            `json:"origin,omitempty"`
		ParentRef string            `json:"parent_ref,omitempty"`
		Params    map[string]string `json:"params,omitempty"`
		Deps      []FeatureDepDoc   `json:"deps,omitempty"`
		Features  []FeatureDoc      `json:"features,omitempty"`
		Groups    []GroupRefDoc     `json:"groups,omitempty"`
	}

	// OriginFilterDoc narrows the features inherited from one origin.
	OriginFilterDoc struct {
		FilterDoc
		Origin string `json:"origin,omitempty"`
	}

	// ConfigDoc declares a config model.
	ConfigDoc struct {
		Model           string            `json:"model,omitempty"`
		Name            string            `json:"name,omitempty"`
		Props           map[string]string `json:"props,omitempty"`
		InheritFeatures *bool             `json:"inherit_features,omitempty"`
		Features        []FeatureDoc      `json:"features,omitempty"`
		Groups          []GroupRefDoc     `json:"groups,omitempty"`
		Filters         []OriginFilterDoc `json:"filters,omitempty"`
	}

	// DependencyDoc is a feature-pack dependency edge.
	DependencyDoc struct {
		Gav             string         `json:"gav"`
		Origin          string         `json:"origin,omitempty"`
		InheritPackages *bool          `json:"inherit_packages,omitempty"`
		IncludePackages []string       `json:"include_packages,omitempty"`
		ExcludePackages []string       `json:"exclude_packages,omitempty"`
		InheritConfigs  *bool          `json:"inherit_configs,omitempty"`
		IncludeConfigs  []ConfigRefDoc `json:"include_configs,omitempty"`
		ExcludeConfigs  []ConfigRefDoc `json:"exclude_configs,omitempty"`
		IncludeModels   []string       `json:"include_models,omitempty"`
		ExcludeModels   []string       `json:"exclude_models,omitempty"`
		Configs         []ConfigDoc    `json:"configs,omitempty"`
	}

	// PackageDepDoc is a package dependency.
	PackageDepDoc struct {
		Name     string `json:"name"`
		Optional bool   `json:"optional,omitempty"`
	}

	// ExternalDepsDoc groups package dependencies on another feature-pack.
	ExternalDepsDoc struct {
		Origin string          `json:"origin,omitempty"`
		Deps   []PackageDepDoc `json:"deps"`
	}

	// PackageParamDoc is a package parameter.
	PackageParamDoc struct {
		Name    string `json:"name"`
		Default string `json:"default,omitempty"`
	}

	// PackageDoc declares a package.
	PackageDoc struct {
		Name     string            `json:"name"`
		Default  bool              `json:"default,omitempty"`
		Deps     []PackageDepDoc   `json:"deps,omitempty"`
		External []ExternalDepsDoc `json:"external,omitempty"`
		Params   []PackageParamDoc `json:"params,omitempty"`
	}

	// ParamDoc declares a feature spec parameter.
	ParamDoc struct {
		Name     string  `json:"name"`
		Type     string  `json:"type,omitempty"`
		Identity bool    `json:"identity,omitempty"`
		Nillable bool    `json:"nillable,omitempty"`
		Default  *string `json:"default,omitempty"`
	}

	// CapabilityDoc names a provided or required capability.
	CapabilityDoc struct {
		Name     string `json:"name"`
		Optional bool   `json:"optional,omitempty"`
	}

	// SpecDoc declares a feature spec.
	SpecDoc struct {
		Name     string          `json:"name"`
		Params   []ParamDoc      `json:"params,omitempty"`
		Provides []CapabilityDoc `json:"provides,omitempty"`
		Requires []CapabilityDoc `json:"requires,omitempty"`
		Deps     []FeatureDepDoc `json:"deps,omitempty"`
	}

	// GroupDoc declares a feature group.
	GroupDoc struct {
		Name     string        `json:"name"`
		Features []FeatureDoc  `json:"features,omitempty"`
		Groups   []GroupRefDoc `json:"groups,omitempty"`
	}

	// FeaturePackDoc is the content of feature-pack.cue.
	FeaturePackDoc struct {
		Gav          string          `json:"gav"`
		Dependencies []DependencyDoc `json:"dependencies,omitempty"`
		Packages     []PackageDoc    `json:"packages,omitempty"`
		Specs        []SpecDoc       `json:"specs,omitempty"`
		Groups       []GroupDoc      `json:"groups,omitempty"`
		Configs      []ConfigDoc     `json:"configs,omitempty"`
		Plugins      []string        `json:"plugins,omitempty"`
	}

	// ProvisioningDoc is the content of provisioning.cue.
	ProvisioningDoc struct {
		Dependencies []DependencyDoc `json:"dependencies,omitempty"`
		Configs      []ConfigDoc     `json:"configs,omitempty"`
	}

	// OccurrenceDoc places a spec in the schema tree.
	OccurrenceDoc struct {
		Spot string `json:"spot,omitempty"`
		Spec string `json:"spec"`
	}

	// RefParamDoc maps a referenced identity parameter to a local parameter.
	RefParamDoc struct {
		Target string `json:"target"`
		Source string `json:"source"`
	}

	// RefDoc is a reference between schema occurrences.
	RefDoc struct {
		Name   string        `json:"name"`
		Target string        `json:"target"`
		Params []RefParamDoc `json:"params,omitempty"`
	}

	// SchemaSpecDoc declares a spec of a config schema.
	SchemaSpecDoc struct {
		Name     string          `json:"name"`
		Params   []string        `json:"params,omitempty"`
		IdParams []string        `json:"id_params,omitempty"`
		Features []OccurrenceDoc `json:"features,omitempty"`
		Refs     []RefDoc        `json:"refs,omitempty"`
	}

	// ConfigSchemaDoc is the content of a config schema file.
	ConfigSchemaDoc struct {
		Specs []SchemaSpecDoc `json:"specs"`
		Roots []OccurrenceDoc `json:"roots"`
	}
)
