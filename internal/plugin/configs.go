// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/provisio/provisio/internal/provision"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/state"
)

const (
	// ConfigsName is the plugin name feature-packs use to request config rendering.
	ConfigsName = "configs"
	// ConfigsDir is the directory, relative to the installation, receiving the
	// rendered configs.
	ConfigsDir = "configs"

	defaultSegment = "default"
)

type (
	// Configs renders every provisioned config to
	// configs/<model>/<name>.yaml, using "default" for an empty model or name.
	Configs struct{}

	configDoc struct {
		Model        string           `yaml:"model,omitempty"`
		Name         string           `yaml:"name,omitempty"`
		Properties   *yaml.Node       `yaml:"properties,omitempty"`
		FeaturePacks []featurePackDoc `yaml:"feature-packs,omitempty"`
	}

	featurePackDoc struct {
		Gav   string    `yaml:"gav"`
		Specs []specDoc `yaml:"specs"`
	}

	specDoc struct {
		Name     string       `yaml:"name"`
		Features []featureDoc `yaml:"features"`
	}

	featureDoc struct {
		Id     string     `yaml:"id"`
		Params *yaml.Node `yaml:"params,omitempty"`
	}

	// configWriter is the state.ConfigHandler writing one file per config.
	configWriter struct {
		root    string
		written []string

		doc  *configDoc
		fp   *featurePackDoc
		spec *specDoc
	}
)

// NewConfigs returns the config rendering plugin.
func NewConfigs() *Configs { return &Configs{} }

// Name implements provision.Plugin.
func (*Configs) Name() string { return ConfigsName }

// PostInstall implements provision.Plugin.
func (*Configs) PostInstall(ctx context.Context, rt *provision.Runtime) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := &configWriter{root: rt.InstallDir}
	if err := state.VisitConfigs(rt.State, w); err != nil {
		return err
	}
	rt.Logger().Debug("rendered configs", "count", len(w.written))
	return nil
}

// ConfigPath returns the path of the rendered config relative to the
// installation directory.
func ConfigPath(model, name string) string {
	if model == "" {
		model = defaultSegment
	}
	if name == "" {
		name = defaultSegment
	}
	return filepath.Join(ConfigsDir, model, name+".yaml")
}

func (w *configWriter) Prepare(cfg *state.ProvisionedConfig) error {
	w.doc = &configDoc{Model: cfg.Model, Name: cfg.Name, Properties: paramsNode(cfg.Properties)}
	w.fp, w.spec = nil, nil
	return nil
}

func (w *configWriter) NextFeaturePack(gav coords.Gav) error {
	w.doc.FeaturePacks = append(w.doc.FeaturePacks, featurePackDoc{Gav: gav.String()})
	w.fp = &w.doc.FeaturePacks[len(w.doc.FeaturePacks)-1]
	return nil
}

func (w *configWriter) NextSpec(spec feature.ResolvedSpecId) error {
	w.fp.Specs = append(w.fp.Specs, specDoc{Name: string(spec.Name)})
	w.spec = &w.fp.Specs[len(w.fp.Specs)-1]
	return nil
}

func (w *configWriter) NextFeature(f *state.ProvisionedFeature) error {
	w.spec.Features = append(w.spec.Features, featureDoc{
		Id:     f.Id.FeatureId().String(),
		Params: paramsNode(f.Params),
	})
	return nil
}

func (w *configWriter) Done() error {
	data, err := yaml.Marshal(w.doc)
	if err != nil {
		return fmt.Errorf("failed to encode config %s: %w", w.doc.Name, err)
	}
	rel := ConfigPath(w.doc.Model, w.doc.Name)
	path := filepath.Join(w.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", rel, err)
	}
	w.written = append(w.written, rel)
	return nil
}

// paramsNode renders params as a mapping that keeps their order.
func paramsNode(params []feature.Param) *yaml.Node {
	if len(params) == 0 {
		return nil
	}
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range params {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Value},
		)
	}
	return node
}
