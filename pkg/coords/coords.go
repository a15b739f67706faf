// SPDX-License-Identifier: MPL-2.0

// Package coords defines feature-pack artifact coordinates.
package coords

import (
	"errors"
	"fmt"
	"strings"

	"github.com/provisio/provisio/pkg/fperr"
)

// ErrInvalidCoordinate is the sentinel error wrapped by InvalidCoordinateError.
var ErrInvalidCoordinate = errors.New("invalid artifact coordinate")

type (
	// Ga identifies a feature-pack independently of its version.
	// A dependency set holds at most one entry per Ga.
	Ga struct {
		Group    string
		Artifact string
	}

	// Gav is a fully qualified feature-pack coordinate.
	Gav struct {
		Group      string
		Artifact   string
		Version    string
		Classifier string
		Extension  string
	}

	// InvalidCoordinateError is returned when a coordinate is malformed.
	// It wraps ErrInvalidCoordinate and fperr.ErrDescription.
	InvalidCoordinateError struct {
		Value  string
		Reason string
	}
)

// NewGav returns a coordinate without classifier or extension.
func NewGav(group, artifact, version string) Gav {
	return Gav{Group: group, Artifact: artifact, Version: version}
}

// ParseGa parses "group:artifact".
func ParseGa(text string) (Ga, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return Ga{}, &InvalidCoordinateError{Value: text, Reason: "expected group:artifact"}
	}
	ga := Ga{Group: parts[0], Artifact: parts[1]}
	if err := ga.validate(text); err != nil {
		return Ga{}, err
	}
	return ga, nil
}

// ParseGav parses "group:artifact:version", "group:artifact:extension:version" or
// "group:artifact:extension:classifier:version".
func ParseGav(text string) (Gav, error) {
	parts := strings.Split(text, ":")
	var gav Gav
	switch len(parts) {
	case 3:
		gav = Gav{Group: parts[0], Artifact: parts[1], Version: parts[2]}
	case 4:
		gav = Gav{Group: parts[0], Artifact: parts[1], Extension: parts[2], Version: parts[3]}
		if gav.Extension == "" {
			return Gav{}, &InvalidCoordinateError{Value: text, Reason: "empty extension"}
		}
	case 5:
		gav = Gav{Group: parts[0], Artifact: parts[1], Extension: parts[2], Classifier: parts[3], Version: parts[4]}
		if gav.Extension == "" || gav.Classifier == "" {
			return Gav{}, &InvalidCoordinateError{Value: text, Reason: "empty extension or classifier"}
		}
	default:
		return Gav{}, &InvalidCoordinateError{Value: text, Reason: "expected group:artifact[:extension[:classifier]]:version"}
	}
	if err := gav.validate(text); err != nil {
		return Gav{}, err
	}
	return gav, nil
}

// String returns "group:artifact".
func (g Ga) String() string {
	return g.Group + ":" + g.Artifact
}

// IsZero reports whether g is the zero coordinate.
func (g Ga) IsZero() bool {
	return g == Ga{}
}

// Validate checks that both segments are set.
func (g Ga) Validate() error {
	return g.validate(g.String())
}

func (g Ga) validate(text string) error {
	if strings.TrimSpace(g.Group) == "" {
		return &InvalidCoordinateError{Value: text, Reason: "empty group"}
	}
	if strings.TrimSpace(g.Artifact) == "" {
		return &InvalidCoordinateError{Value: text, Reason: "empty artifact"}
	}
	return nil
}

// Ga returns the version-independent identity.
func (g Gav) Ga() Ga {
	return Ga{Group: g.Group, Artifact: g.Artifact}
}

// WithVersion returns a copy of g pinned to version.
func (g Gav) WithVersion(version string) Gav {
	g.Version = version
	return g
}

// String renders the coordinate in the form accepted by ParseGav.
func (g Gav) String() string {
	var b strings.Builder
	b.WriteString(g.Group)
	b.WriteByte(':')
	b.WriteString(g.Artifact)
	if g.Extension != "" {
		b.WriteByte(':')
		b.WriteString(g.Extension)
		if g.Classifier != "" {
			b.WriteByte(':')
			b.WriteString(g.Classifier)
		}
	}
	b.WriteByte(':')
	b.WriteString(g.Version)
	return b.String()
}

// Validate checks that group, artifact and version are set.
func (g Gav) Validate() error {
	return g.validate(g.String())
}

func (g Gav) validate(text string) error {
	if err := g.Ga().validate(text); err != nil {
		return err
	}
	if strings.TrimSpace(g.Version) == "" {
		return &InvalidCoordinateError{Value: text, Reason: "empty version"}
	}
	if g.Classifier != "" && g.Extension == "" {
		return &InvalidCoordinateError{Value: text, Reason: "classifier requires an extension"}
	}
	return nil
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid artifact coordinate %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidCoordinate and fperr.ErrDescription for errors.Is() compatibility.
func (e *InvalidCoordinateError) Unwrap() []error {
	return []error{ErrInvalidCoordinate, fperr.ErrDescription}
}
