// SPDX-License-Identifier: MPL-2.0

package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/feature"
)

const (
	// FormatTOML is the state file format.
	FormatTOML Format = "toml"
	// FormatYAML renders the state as YAML.
	FormatYAML Format = "yaml"
	// FormatJSON renders the state as JSON.
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for an unknown encoding format.
var ErrUnsupportedFormat = errors.New("unsupported state format")

type (
	// Format names an encoding of the provisioned state.
	Format string

	// UnsupportedFormatError reports the rejected format name.
	UnsupportedFormatError struct {
		Value string
	}

	stateDoc struct {
		FeaturePacks []featurePackDoc `toml:"feature_pack,omitempty" yaml:"feature_packs,omitempty" json:"feature_packs,omitempty"`
		Configs      []configDoc      `toml:"config,omitempty" yaml:"configs,omitempty" json:"configs,omitempty"`
	}

	featurePackDoc struct {
		Gav      string       `toml:"gav" yaml:"gav" json:"gav"`
		Packages []packageDoc `toml:"package,omitempty" yaml:"packages,omitempty" json:"packages,omitempty"`
	}

	packageDoc struct {
		Name   string     `toml:"name" yaml:"name" json:"name"`
		Params []paramDoc `toml:"param,omitempty" yaml:"params,omitempty" json:"params,omitempty"`
	}

	configDoc struct {
		Model      string       `toml:"model,omitempty" yaml:"model,omitempty" json:"model,omitempty"`
		Name       string       `toml:"name,omitempty" yaml:"name,omitempty" json:"name,omitempty"`
		Properties []paramDoc   `toml:"property,omitempty" yaml:"properties,omitempty" json:"properties,omitempty"`
		Features   []featureDoc `toml:"feature,omitempty" yaml:"features,omitempty" json:"features,omitempty"`
	}

	featureDoc struct {
		FeaturePack string     `toml:"feature_pack" yaml:"feature_pack" json:"feature_pack"`
		Id          string     `toml:"id" yaml:"id" json:"id"`
		Params      []paramDoc `toml:"param,omitempty" yaml:"params,omitempty" json:"params,omitempty"`
	}

	paramDoc struct {
		Name  string `toml:"name" yaml:"name" json:"name"`
		Value string `toml:"value" yaml:"value" json:"value"`
	}
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatTOML, FormatYAML, FormatJSON} }

// ParseFormat validates a format name.
func ParseFormat(text string) (Format, error) {
	f := Format(text)
	if !slices.Contains(Formats(), f) {
		return "", &UnsupportedFormatError{Value: text}
	}
	return f, nil
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported state format %q (valid: toml, yaml, json)", e.Value)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// Encode writes s to w.
func Encode(w io.Writer, s *ProvisionedState, format Format) error {
	doc := toDoc(s)
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return &UnsupportedFormatError{Value: string(format)}
	}
}

// Decode reads a state written by Encode.
func Decode(r io.Reader, format Format) (*ProvisionedState, error) {
	var doc stateDoc
	var err error
	switch format {
	case FormatTOML:
		err = toml.NewDecoder(r).Decode(&doc)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&doc)
	default:
		return nil, &UnsupportedFormatError{Value: string(format)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s state: %w", format, err)
	}
	return fromDoc(&doc)
}

func toDoc(s *ProvisionedState) *stateDoc {
	doc := &stateDoc{}
	for _, fp := range s.FeaturePacks {
		fd := featurePackDoc{Gav: fp.Gav.String()}
		for _, p := range fp.Packages {
			fd.Packages = append(fd.Packages, packageDoc{Name: p.Name, Params: toParamDocs(p.Params)})
		}
		doc.FeaturePacks = append(doc.FeaturePacks, fd)
	}
	for _, c := range s.Configs {
		cd := configDoc{Model: c.Model, Name: c.Name, Properties: toParamDocs(c.Properties)}
		for _, f := range c.Features {
			cd.Features = append(cd.Features, featureDoc{
				FeaturePack: f.Id.Spec().FeaturePack.String(),
				Id:          f.Id.FeatureId().String(),
				Params:      toParamDocs(f.Params),
			})
		}
		doc.Configs = append(doc.Configs, cd)
	}
	return doc
}

func fromDoc(doc *stateDoc) (*ProvisionedState, error) {
	s := &ProvisionedState{}
	for _, fd := range doc.FeaturePacks {
		gav, err := coords.ParseGav(fd.Gav)
		if err != nil {
			return nil, err
		}
		fp := ProvisionedFeaturePack{Gav: gav}
		for _, pd := range fd.Packages {
			fp.Packages = append(fp.Packages, ProvisionedPackage{Name: pd.Name, Params: fromParamDocs(pd.Params)})
		}
		s.FeaturePacks = append(s.FeaturePacks, fp)
	}
	for _, cd := range doc.Configs {
		c := ProvisionedConfig{Model: cd.Model, Name: cd.Name, Properties: fromParamDocs(cd.Properties)}
		for _, fd := range cd.Features {
			gav, err := coords.ParseGav(fd.FeaturePack)
			if err != nil {
				return nil, err
			}
			id, err := feature.ParseFeatureId(fd.Id)
			if err != nil {
				return nil, err
			}
			c.Features = append(c.Features, ProvisionedFeature{
				Id:     feature.NewResolvedFeatureId(gav, id),
				Params: fromParamDocs(fd.Params),
			})
		}
		s.Configs = append(s.Configs, c)
	}
	return s, nil
}

func toParamDocs(params []feature.Param) []paramDoc {
	if len(params) == 0 {
		return nil
	}
	out := make([]paramDoc, len(params))
	for i, p := range params {
		out[i] = paramDoc(p)
	}
	return out
}

func fromParamDocs(docs []paramDoc) []feature.Param {
	if len(docs) == 0 {
		return nil
	}
	out := make([]feature.Param, len(docs))
	for i, d := range docs {
		out[i] = feature.Param(d)
	}
	return out
}
