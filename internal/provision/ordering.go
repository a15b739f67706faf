// SPDX-License-Identifier: MPL-2.0

package provision

import "slices"

// orderConfigs returns the emission order of configs given in first-encounter
// order: the anonymous config, then the configs without a model most recent
// first, then the model groups most recently encountered first, each group
// most recent first.
func orderConfigs(configs []*configMerge) []*configMerge {
	var (
		anonymous *configMerge
		unnamed   []*configMerge
		models    []string
		byModel   = make(map[string][]*configMerge)
	)
	for _, cm := range configs {
		switch {
		case cm.id.IsAnonymous():
			anonymous = cm
		case cm.id.Model == "":
			unnamed = append(unnamed, cm)
		default:
			if _, ok := byModel[cm.id.Model]; !ok {
				models = append(models, cm.id.Model)
			}
			byModel[cm.id.Model] = append(byModel[cm.id.Model], cm)
		}
	}

	out := make([]*configMerge, 0, len(configs))
	if anonymous != nil {
		out = append(out, anonymous)
	}
	slices.Reverse(unnamed)
	out = append(out, unnamed...)
	slices.Reverse(models)
	for _, model := range models {
		group := byModel[model]
		slices.Reverse(group)
		out = append(out, group...)
	}
	return out
}
