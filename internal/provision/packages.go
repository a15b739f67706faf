// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/fpspec"
	"github.com/provisio/provisio/pkg/state"
)

type (
	// closure accumulates the packages selected per feature-pack across every edge.
	closure struct {
		layout   *layout
		selected map[*fpNode]map[string]bool
		visited  map[visitKey]bool
		p        *Provisioner
	}

	visitKey struct {
		edge *fpconfig.FeaturePackConfig
		pkg  string
	}
)

// resolvePackages computes the packages selected in every feature-pack by all
// of its edges. Each feature-pack's packages are in declaration order.
func (p *Provisioner) resolvePackages(l *layout) (map[*fpNode][]*fpspec.PackageSpec, error) {
	c := &closure{
		layout:   l,
		selected: make(map[*fpNode]map[string]bool),
		visited:  make(map[visitKey]bool),
		p:        p,
	}
	for _, n := range l.listing {
		for _, e := range n.edges {
			if err := c.seed(n, e.cfg); err != nil {
				return nil, err
			}
		}
	}

	out := make(map[*fpNode][]*fpspec.PackageSpec, len(l.listing))
	for _, n := range l.listing {
		for _, pkg := range n.spec.Packages() {
			if c.selected[n][pkg.Name] {
				out[n] = append(out[n], pkg)
			}
		}
		if len(out[n]) == 0 && len(n.spec.Packages()) > 0 {
			p.logger.Warn("no package selected", "featurePack", n.gav)
		}
	}
	return out, nil
}

// seed selects the starting packages of one edge and follows their dependencies.
func (c *closure) seed(n *fpNode, edge *fpconfig.FeaturePackConfig) error {
	var seeds []string
	for _, name := range edge.IncludedPackages() {
		if _, ok := n.spec.Package(name); !ok {
			return fperr.Descriptionf("dependency on %s includes package %s which the feature-pack does not declare", n.gav, name)
		}
		seeds = append(seeds, name)
	}
	if edge.InheritPackages() {
		for _, name := range n.spec.DefaultPackages() {
			if !edge.IsPackageExcluded(name) {
				seeds = append(seeds, name)
			}
		}
	}
	for _, name := range seeds {
		if err := c.visit(n, edge, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *closure) visit(n *fpNode, edge *fpconfig.FeaturePackConfig, name string) error {
	key := visitKey{edge: edge, pkg: name}
	if c.visited[key] {
		return nil
	}
	c.visited[key] = true

	pkg, _ := n.spec.Package(name)
	if c.selected[n] == nil {
		c.selected[n] = make(map[string]bool)
	}
	c.selected[n][name] = true

	for _, dep := range pkg.LocalDeps {
		if edge.IsPackageExcluded(dep.Name) {
			if dep.Optional {
				continue
			}
			return fperr.Descriptionf("package %s of feature-pack %s requires package %s which is excluded", name, n.gav, dep.Name)
		}
		if err := c.visit(n, edge, dep.Name); err != nil {
			return err
		}
	}

	for _, ext := range pkg.ExternalDeps {
		for _, dep := range ext.Deps {
			if err := c.visitExternal(n, pkg, ext.Origin, dep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *closure) visitExternal(n *fpNode, pkg *fpspec.PackageSpec, origin string, dep fpspec.PackageDependency) error {
	edge, target, err := c.externalTarget(n, origin, dep.Name)
	if err != nil {
		return err
	}
	if target == nil {
		if dep.Optional {
			c.p.logger.Warn("skipping optional package dependency",
				"featurePack", n.gav, "package", pkg.Name, "dependency", dep.Name, "origin", origin)
			return nil
		}
		return fperr.Resolutionf("package %s of feature-pack %s depends on package %s which no dependency%s provides",
			pkg.Name, n.gav, dep.Name, originSuffix(origin))
	}
	if edge.IsPackageExcluded(dep.Name) {
		if dep.Optional {
			return nil
		}
		return fperr.Descriptionf("package %s of feature-pack %s requires package %s of %s which is excluded",
			pkg.Name, n.gav, dep.Name, target.gav)
	}
	return c.visit(target, edge, dep.Name)
}

// externalTarget finds the dependency of n providing name. A nil node means
// the package was not found.
func (c *closure) externalTarget(n *fpNode, origin, name string) (*fpconfig.FeaturePackConfig, *fpNode, error) {
	if origin != fpconfig.AnyOrigin {
		edge, target, err := c.layout.byOrigin(n, origin)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := target.spec.Package(name); !ok {
			return edge, nil, nil
		}
		return edge, target, nil
	}

	var (
		foundEdge *fpconfig.FeaturePackConfig
		found     *fpNode
	)
	for _, edge := range n.spec.Deps().All() {
		target := c.layout.target(edge)
		if _, ok := target.spec.Package(name); !ok {
			continue
		}
		if found != nil {
			return nil, nil, fperr.Resolutionf("package %s required by feature-pack %s is provided by both %s and %s",
				name, n.gav, found.gav, target.gav)
		}
		foundEdge, found = edge, target
	}
	return foundEdge, found, nil
}

func originSuffix(origin string) string {
	if origin == fpconfig.AnyOrigin {
		return ""
	}
	return " with origin " + origin
}

// packageParams resolves declared package parameters through the parameter hook.
func (p *Provisioner) packageParams(n *fpNode, pkgs []*fpspec.PackageSpec) []state.ProvisionedPackage {
	out := make([]state.ProvisionedPackage, 0, len(pkgs))
	for _, pkg := range pkgs {
		pp := state.ProvisionedPackage{Name: pkg.Name}
		for _, param := range pkg.Params {
			value := param.Default
			if p.params != nil {
				if v, ok := p.params.PackageParam(n.gav, pkg.Name, param.Name); ok {
					value = v
				}
			}
			pp.Params = append(pp.Params, feature.Param{Name: param.Name, Value: value})
		}
		out = append(out, pp)
	}
	return out
}
