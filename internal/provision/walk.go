// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"

	"github.com/provisio/provisio/internal/dag"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/fpspec"
)

type (
	// fpNode is a feature-pack reached by the walk.
	fpNode struct {
		gav   coords.Gav
		spec  *fpspec.FeaturePackSpec
		dir   string
		edges []edgeRef
	}

	// edgeRef is a dependency edge together with the feature-pack declaring it.
	// A nil owner is the provisioning request.
	edgeRef struct {
		owner *fpNode
		cfg   *fpconfig.FeaturePackConfig
	}

	layout struct {
		root  *fpconfig.Deps
		nodes map[coords.Ga]*fpNode
		// listing is the discovery order. order puts every feature-pack after its
		// dependencies and drives layering, the state listing and installation.
		listing []*fpNode
		order   []*fpNode
	}
)

// walk loads every feature-pack reachable from the request, breadth-first.
func (p *Provisioner) walk(ctx context.Context, cfg *fpconfig.ProvisioningConfig) (*layout, error) {
	l := &layout{root: cfg.Deps(), nodes: make(map[coords.Ga]*fpNode)}
	graph := dag.New()

	queue := make([]edgeRef, 0, cfg.Deps().Len())
	for _, e := range cfg.Deps().All() {
		queue = append(queue, edgeRef{cfg: e})
	}

	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		gav := e.cfg.Gav()
		ga := gav.Ga()
		n, seen := l.nodes[ga]
		switch {
		case !seen:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			src, err := p.loader.Load(ctx, gav)
			if err != nil {
				return nil, err
			}
			if src.Spec.Gav() != gav {
				return nil, fperr.Descriptionf("feature-pack %s is described as %s", gav, src.Spec.Gav())
			}
			n = &fpNode{gav: gav, spec: src.Spec, dir: src.Dir}
			l.nodes[ga] = n
			l.listing = append(l.listing, n)
			graph.AddNode(ga.String())
			for _, dep := range src.Spec.Deps().All() {
				queue = append(queue, edgeRef{owner: n, cfg: dep})
			}
			p.logger.Debug("loaded feature-pack", "gav", gav, "dir", src.Dir)
		case n.gav != gav:
			if !l.root.Has(ga) {
				owner := "the provisioning request"
				if e.owner != nil {
					owner = e.owner.gav.String()
				}
				return nil, fperr.Resolutionf("feature-pack %s is required as %s by %s but %s was already selected", ga, gav.Version, owner, n.gav.Version)
			}
			p.logger.Debug("feature-pack version pinned by the provisioning request", "ga", ga, "pinned", n.gav.Version, "requested", gav.Version)
		}

		n.edges = append(n.edges, e)
		if e.owner != nil {
			graph.AddEdge(ga.String(), e.owner.gav.Ga().String())
		}
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, fperr.Resolutionf("feature-pack dependencies are cyclic: %w", err)
	}
	byKey := make(map[string]*fpNode, len(l.listing))
	for _, n := range l.listing {
		byKey[n.gav.Ga().String()] = n
	}
	for _, key := range order {
		l.order = append(l.order, byKey[key])
	}
	return l, nil
}

// deps returns the alias scope of owner; nil is the provisioning request.
func (l *layout) deps(owner *fpNode) *fpconfig.Deps {
	if owner == nil {
		return l.root
	}
	return owner.spec.Deps()
}

// target returns the feature-pack an edge resolved to.
func (l *layout) target(cfg *fpconfig.FeaturePackConfig) *fpNode {
	return l.nodes[cfg.Gav().Ga()]
}

// byOrigin resolves an origin alias of owner to its edge and feature-pack.
func (l *layout) byOrigin(owner *fpNode, origin string) (*fpconfig.FeaturePackConfig, *fpNode, error) {
	edge, ok := l.deps(owner).ByOrigin(origin)
	if !ok {
		if owner == nil {
			return nil, nil, fperr.Resolutionf("the provisioning request has no dependency with origin %s", origin)
		}
		return nil, nil, fperr.Resolutionf("feature-pack %s has no dependency with origin %s", owner.gav, origin)
	}
	return edge, l.target(edge), nil
}
