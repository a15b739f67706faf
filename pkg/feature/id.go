// SPDX-License-Identifier: MPL-2.0

package feature

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/provisio/provisio/internal/smallmap"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fperr"
)

const reservedSpecChars = ":=,"

var (
	// ErrInvalidSpecId is the sentinel error wrapped by InvalidSpecIdError.
	ErrInvalidSpecId = errors.New("invalid feature spec id")
	// ErrInvalidFeatureId is the sentinel error wrapped by InvalidFeatureIdError.
	ErrInvalidFeatureId = errors.New("invalid feature id")
)

type (
	// SpecId is the namespaced name of a feature spec.
	SpecId string

	// InvalidSpecIdError is returned when a SpecId is empty or uses reserved characters.
	InvalidSpecIdError struct {
		Value SpecId
	}

	// Param is one named parameter value.
	Param struct {
		Name  string
		Value string
	}

	// FeatureId identifies a feature instance: its spec plus the values of the
	// spec's identity parameters. Parameters keep insertion order for display,
	// equality ignores it.
	FeatureId struct {
		spec   SpecId
		params smallmap.Map[string, string]
	}

	// InvalidFeatureIdError is returned when a feature id cannot be built or parsed.
	InvalidFeatureIdError struct {
		Value  string
		Reason string
	}

	// ResolvedSpecId is a spec name bound to the feature-pack that declares it.
	ResolvedSpecId struct {
		FeaturePack coords.Gav
		Name        SpecId
	}

	// ResolvedFeatureId is a feature id bound to the feature-pack owning its spec.
	// It is globally unique within one provisioning run.
	ResolvedFeatureId struct {
		spec ResolvedSpecId
		id   FeatureId
	}
)

// Validate rejects empty names and the reserved characters ':', '=' and ','.
func (s SpecId) Validate() error {
	if strings.TrimSpace(string(s)) == "" || strings.ContainsAny(string(s), reservedSpecChars) {
		return &InvalidSpecIdError{Value: s}
	}
	return nil
}

func (s SpecId) String() string { return string(s) }

func (e *InvalidSpecIdError) Error() string {
	return fmt.Sprintf("invalid feature spec id %q (must be non-empty and must not contain %q)", e.Value, reservedSpecChars)
}

// Unwrap returns ErrInvalidSpecId and fperr.ErrDescription for errors.Is() compatibility.
func (e *InvalidSpecIdError) Unwrap() []error {
	return []error{ErrInvalidSpecId, fperr.ErrDescription}
}

func (e *InvalidFeatureIdError) Error() string {
	return fmt.Sprintf("invalid feature id %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidFeatureId and fperr.ErrDescription for errors.Is() compatibility.
func (e *InvalidFeatureIdError) Unwrap() []error {
	return []error{ErrInvalidFeatureId, fperr.ErrDescription}
}

// NewFeatureId builds an id from alternating parameter names and values.
// Repeating a name with the same value is accepted; a differing value is rejected.
func NewFeatureId(spec SpecId, nameValues ...string) (FeatureId, error) {
	if err := spec.Validate(); err != nil {
		return FeatureId{}, err
	}
	if len(nameValues)%2 != 0 {
		return FeatureId{}, &InvalidFeatureIdError{Value: string(spec), Reason: "odd number of parameter names and values"}
	}
	id := FeatureId{spec: spec}
	for i := 0; i < len(nameValues); i += 2 {
		if err := id.setParam(nameValues[i], nameValues[i+1]); err != nil {
			return FeatureId{}, err
		}
	}
	return id, nil
}

// MustFeatureId is like NewFeatureId but panics on error.
func MustFeatureId(spec SpecId, nameValues ...string) FeatureId {
	id, err := NewFeatureId(spec, nameValues...)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseFeatureId parses "spec" or "spec:name=value,name2=value2".
func ParseFeatureId(text string) (FeatureId, error) {
	specText, paramText, hasParams := strings.Cut(text, ":")
	if strings.TrimSpace(specText) == "" {
		return FeatureId{}, &InvalidFeatureIdError{Value: text, Reason: "empty spec name"}
	}
	spec := SpecId(specText)
	if err := spec.Validate(); err != nil {
		return FeatureId{}, err
	}
	id := FeatureId{spec: spec}
	if !hasParams {
		return id, nil
	}
	if paramText == "" {
		return FeatureId{}, &InvalidFeatureIdError{Value: text, Reason: "missing parameters after ':'"}
	}
	for pair := range strings.SplitSeq(paramText, ",") {
		if pair == "" {
			return FeatureId{}, &InvalidFeatureIdError{Value: text, Reason: "empty parameter (bare comma)"}
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return FeatureId{}, &InvalidFeatureIdError{Value: text, Reason: fmt.Sprintf("parameter %q is not a name=value pair", pair)}
		}
		if err := id.setParam(name, value); err != nil {
			var idErr *InvalidFeatureIdError
			if errors.As(err, &idErr) {
				return FeatureId{}, &InvalidFeatureIdError{Value: text, Reason: idErr.Reason}
			}
			return FeatureId{}, err
		}
	}
	return id, nil
}

func (id *FeatureId) setParam(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return &InvalidFeatureIdError{Value: string(id.spec), Reason: "empty parameter name"}
	}
	if prev, ok := id.params.Get(name); ok {
		if prev == value {
			return nil
		}
		return &InvalidFeatureIdError{
			Value:  string(id.spec),
			Reason: fmt.Sprintf("parameter %s set to both %q and %q", name, prev, value),
		}
	}
	id.params.Put(name, value)
	return nil
}

// Spec returns the spec the feature conforms to.
func (id FeatureId) Spec() SpecId { return id.spec }

// IsZero reports whether id was never initialized.
func (id FeatureId) IsZero() bool { return id.spec == "" }

// Param returns the value of an identity parameter.
func (id FeatureId) Param(name string) (string, bool) { return id.params.Get(name) }

// ParamCount returns the number of identity parameters.
func (id FeatureId) ParamCount() int { return id.params.Len() }

// Params returns the identity parameters in insertion order.
func (id FeatureId) Params() []Param {
	out := make([]Param, 0, id.params.Len())
	for name, value := range id.params.All() {
		out = append(out, Param{Name: name, Value: value})
	}
	return out
}

// Key returns a canonical string usable as a map key: two ids have equal keys
// exactly when they are Equal. Names and values are quoted, so separators
// inside a value cannot make distinct ids collide.
func (id FeatureId) Key() string {
	params := id.Params()
	slices.SortFunc(params, func(a, b Param) int { return strings.Compare(a.Name, b.Name) })
	var b strings.Builder
	b.WriteString(strconv.Quote(string(id.spec)))
	for _, p := range params {
		b.WriteByte(',')
		b.WriteString(strconv.Quote(p.Name))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(p.Value))
	}
	return b.String()
}

// Equal reports whether both ids have the same spec and parameter set.
func (id FeatureId) Equal(other FeatureId) bool {
	if id.spec != other.spec || id.params.Len() != other.params.Len() {
		return false
	}
	for name, value := range id.params.All() {
		if v, ok := other.params.Get(name); !ok || v != value {
			return false
		}
	}
	return true
}

// String renders the id in the form accepted by ParseFeatureId, parameters in insertion order.
func (id FeatureId) String() string {
	return formatId(id.spec, id.Params())
}

func formatId(spec SpecId, params []Param) string {
	if len(params) == 0 {
		return string(spec)
	}
	var b strings.Builder
	b.WriteString(string(spec))
	b.WriteByte(':')
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	return b.String()
}

func (r ResolvedSpecId) String() string {
	return r.FeaturePack.String() + "#" + string(r.Name)
}

// NewResolvedFeatureId binds id to the feature-pack owning its spec.
func NewResolvedFeatureId(featurePack coords.Gav, id FeatureId) ResolvedFeatureId {
	return ResolvedFeatureId{
		spec: ResolvedSpecId{FeaturePack: featurePack, Name: id.spec},
		id:   id,
	}
}

// Spec returns the resolved spec id.
func (r ResolvedFeatureId) Spec() ResolvedSpecId { return r.spec }

// FeatureId returns the unresolved id.
func (r ResolvedFeatureId) FeatureId() FeatureId { return r.id }

// Params returns the identity parameters in insertion order.
func (r ResolvedFeatureId) Params() []Param { return r.id.Params() }

// Key is unique per feature-pack identity and feature id.
func (r ResolvedFeatureId) Key() string {
	return r.spec.FeaturePack.Ga().String() + "#" + r.id.Key()
}

func (r ResolvedFeatureId) String() string {
	return r.spec.FeaturePack.String() + "#" + r.id.String()
}
