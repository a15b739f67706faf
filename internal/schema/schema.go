// SPDX-License-Identifier: MPL-2.0

// Package schema describes the shape of a configuration model: which feature
// specs occur where in the tree, the identity path of each occurrence, and the
// references features may hold to one another.
package schema

import (
	"slices"
	"strconv"
	"strings"

	"github.com/provisio/provisio/pkg/fperr"
)

type (
	// Occurrence places a feature spec in the schema tree. Spot names the
	// position; when empty a name is generated from the spec name.
	Occurrence struct {
		Spot string
		Spec string
	}

	// ParamMapping binds a parameter of the referenced path element to a
	// parameter of the referencing feature.
	ParamMapping struct {
		// Target is an identity parameter of the referenced path element.
		Target string
		// Source is a parameter of the referencing feature.
		Source string
	}

	// RefSpec is a named reference from a feature to the feature at Target.
	RefSpec struct {
		Name   string
		Target string
		Params []ParamMapping
	}

	// SpecDescription declares a feature spec as seen by the schema.
	SpecDescription struct {
		Name     string
		Params   []string
		IdParams []string
		Features []Occurrence
		Refs     []RefSpec
	}

	// PathElement is one step of an identity path.
	PathElement struct {
		Spec     string
		IdParams []string
	}

	// Description is a built occurrence of a spec in the schema tree.
	Description struct {
		Spot     string
		Spec     *SpecDescription
		Path     []PathElement
		Parent   *Description
		Children []*Description
	}

	// Schema is an immutable, validated schema tree.
	Schema struct {
		roots  []*Description
		bySpot map[string]*Description
		order  []*Description
	}

	// Builder accumulates specs and root occurrences. The first error is kept
	// and returned by Build.
	Builder struct {
		specs map[string]*SpecDescription
		roots []Occurrence
		err   error
	}

	builder struct {
		specs  map[string]*SpecDescription
		schema *Schema
		seq    int
	}
)

// NewBuilder returns an empty schema builder.
func NewBuilder() *Builder {
	return &Builder{specs: make(map[string]*SpecDescription)}
}

// AddSpec declares a feature spec.
func (b *Builder) AddSpec(spec SpecDescription) *Builder {
	if b.err != nil {
		return b
	}
	if spec.Name == "" {
		b.err = fperr.Descriptionf("schema feature spec name is empty")
		return b
	}
	if _, ok := b.specs[spec.Name]; ok {
		b.err = fperr.Descriptionf("schema feature spec %s is declared more than once", spec.Name)
		return b
	}
	for _, id := range spec.IdParams {
		if !slices.Contains(spec.Params, id) {
			b.err = fperr.Descriptionf("identity parameter %s of schema feature spec %s is not a declared parameter", id, spec.Name)
			return b
		}
	}
	b.specs[spec.Name] = &spec
	return b
}

// AddRoot adds a root occurrence.
func (b *Builder) AddRoot(occ Occurrence) *Builder {
	if b.err != nil {
		return b
	}
	b.roots = append(b.roots, occ)
	return b
}

// Build expands the occurrence tree from the roots and validates every
// reference.
func (b *Builder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.roots) == 0 {
		return nil, fperr.Descriptionf("the schema does not include root features")
	}

	bld := &builder{
		specs:  b.specs,
		schema: &Schema{bySpot: make(map[string]*Description)},
	}
	for _, occ := range b.roots {
		d, err := bld.build(nil, occ)
		if err != nil {
			return nil, err
		}
		bld.schema.roots = append(bld.schema.roots, d)
	}
	if err := bld.schema.validateRefs(); err != nil {
		return nil, err
	}
	return bld.schema, nil
}

func (bld *builder) build(parent *Description, occ Occurrence) (*Description, error) {
	spec, ok := bld.specs[occ.Spec]
	if !ok {
		if occ.Spot != "" {
			return nil, fperr.Descriptionf("the schema is missing feature spec %s for %s", occ.Spec, occ.Spot)
		}
		return nil, fperr.Descriptionf("the schema is missing feature spec %s", occ.Spec)
	}
	for p := parent; p != nil; p = p.Parent {
		if p.Spec.Name == spec.Name {
			return nil, fperr.Descriptionf("feature spec %s occurs within itself at %s", spec.Name, p.Spot)
		}
	}

	spot := occ.Spot
	if spot == "" {
		bld.seq++
		spot = spec.Name + strconv.Itoa(bld.seq)
	}
	if _, dup := bld.schema.bySpot[spot]; dup {
		return nil, fperr.Descriptionf("schema spot %s is defined more than once", spot)
	}

	d := &Description{Spot: spot, Spec: spec, Parent: parent}
	if parent != nil {
		d.Path = slices.Clone(parent.Path)
	}
	d.Path = append(d.Path, PathElement{Spec: spec.Name, IdParams: spec.IdParams})
	bld.schema.bySpot[spot] = d
	bld.schema.order = append(bld.schema.order, d)

	for _, child := range spec.Features {
		c, err := bld.build(d, child)
		if err != nil {
			return nil, err
		}
		d.Children = append(d.Children, c)
	}
	return d, nil
}

func (s *Schema) validateRefs() error {
	for _, d := range s.order {
		for _, ref := range d.Spec.Refs {
			if err := s.validateRef(d, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Schema) validateRef(d *Description, ref RefSpec) error {
	target, ok := s.bySpot[ref.Target]
	if !ok {
		return fperr.Descriptionf("reference %s of %s targets unknown spot %s", ref.Name, d.Spot, ref.Target)
	}
	available := d.availableParams()
	element := target.Path[len(target.Path)-1]
	for _, m := range ref.Params {
		if !slices.Contains(available, m.Source) {
			return fperr.Descriptionf("reference %s of %s uses parameter %s which %s does not declare", ref.Name, d.Spot, m.Source, d.Spec.Name)
		}
		if !slices.Contains(element.IdParams, m.Target) {
			return fperr.Descriptionf("reference %s of %s maps %s which is not an identity parameter of %s", ref.Name, d.Spot, m.Target, target.Spot)
		}
	}
	for _, id := range element.IdParams {
		if !slices.ContainsFunc(ref.Params, func(m ParamMapping) bool { return m.Target == id }) {
			return fperr.Descriptionf("reference %s of %s is missing path parameter %s of %s", ref.Name, d.Spot, id, target.Spot)
		}
	}
	return nil
}

// availableParams lists the spec's own parameters followed by the identity
// parameters inherited from the parent path.
func (d *Description) availableParams() []string {
	params := slices.Clone(d.Spec.Params)
	for _, el := range d.Path[:len(d.Path)-1] {
		for _, p := range el.IdParams {
			if !slices.Contains(params, p) {
				params = append(params, p)
			}
		}
	}
	return params
}

// Roots returns the root descriptions in declaration order.
func (s *Schema) Roots() []*Description {
	return slices.Clone(s.roots)
}

// Description returns the description at spot.
func (s *Schema) Description(spot string) (*Description, error) {
	d, ok := s.bySpot[spot]
	if !ok {
		return nil, fperr.Descriptionf("feature description not found for spot %s", spot)
	}
	return d, nil
}

// Descriptions returns every description in build order (depth first).
func (s *Schema) Descriptions() []*Description {
	return slices.Clone(s.order)
}

// String renders the path as spec[id,...]/spec[...].
func (d *Description) String() string {
	var out strings.Builder
	for i, el := range d.Path {
		if i > 0 {
			out.WriteByte('/')
		}
		out.WriteString(el.Spec)
		if len(el.IdParams) > 0 {
			out.WriteString("[" + strings.Join(el.IdParams, ",") + "]")
		}
	}
	return out.String()
}
