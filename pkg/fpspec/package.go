// SPDX-License-Identifier: MPL-2.0

package fpspec

import (
	"strings"

	"github.com/provisio/provisio/pkg/fperr"
)

type (
	// PackageDependency names a package the owner needs. Optional dependencies
	// may be excluded by the consumer.
	PackageDependency struct {
		Name     string
		Optional bool
	}

	// ExternalDependencies are package dependencies on the feature-pack reached
	// through Origin. An empty origin searches every direct dependency.
	ExternalDependencies struct {
		Origin string
		Deps   []PackageDependency
	}

	// PackageParam is a package parameter with its default value.
	PackageParam struct {
		Name    string
		Default string
	}

	// PackageSpec is a file-set unit of a feature-pack.
	PackageSpec struct {
		Name string
		// Default packages are selected unless the consumer opts out of inheritance.
		Default      bool
		LocalDeps    []PackageDependency
		ExternalDeps []ExternalDependencies
		Params       []PackageParam
	}
)

// Param returns the declared parameter.
func (p *PackageSpec) Param(name string) (PackageParam, bool) {
	for _, param := range p.Params {
		if param.Name == name {
			return param, true
		}
	}
	return PackageParam{}, false
}

// Validate checks names within the package.
func (p *PackageSpec) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fperr.Descriptionf("package name is empty")
	}
	seen := make(map[string]bool, len(p.LocalDeps))
	for _, dep := range p.LocalDeps {
		if dep.Name == p.Name {
			return fperr.Descriptionf("package %s depends on itself", p.Name)
		}
		if seen[dep.Name] {
			return fperr.Descriptionf("package %s declares dependency %s more than once", p.Name, dep.Name)
		}
		seen[dep.Name] = true
	}
	params := make(map[string]bool, len(p.Params))
	for _, param := range p.Params {
		if strings.TrimSpace(param.Name) == "" {
			return fperr.Descriptionf("package %s declares a parameter without a name", p.Name)
		}
		if params[param.Name] {
			return fperr.Descriptionf("package %s declares parameter %s more than once", p.Name, param.Name)
		}
		params[param.Name] = true
	}
	return nil
}
