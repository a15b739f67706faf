// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fpspec"
	"github.com/provisio/provisio/pkg/paramtype"
	"github.com/provisio/provisio/pkg/state"
)

type (
	// ParameterResolver overrides the declared default of a package parameter at
	// install time. It is consulted only for parameters the package declares.
	ParameterResolver interface {
		PackageParam(gav coords.Gav, pkg, param string) (string, bool)
	}

	// ParameterResolverFunc adapts a function to ParameterResolver.
	ParameterResolverFunc func(gav coords.Gav, pkg, param string) (string, bool)

	// Provisioner resolves and installs provisioning requests. A Provisioner keeps
	// no state between runs and may be used for several requests.
	Provisioner struct {
		loader    Loader
		logger    *log.Logger
		types     *paramtype.Registry
		params    ParameterResolver
		plugins   []Plugin
		stateFile string
		workers   int
	}

	// Option configures a Provisioner.
	Option func(*Provisioner)
)

// DefaultStateFile is the state file location relative to the install directory.
const DefaultStateFile = ".provisio/state.toml"

// PackageParam implements ParameterResolver.
func (f ParameterResolverFunc) PackageParam(gav coords.Gav, pkg, param string) (string, bool) {
	return f(gav, pkg, param)
}

// New creates a Provisioner that loads feature-packs through loader.
func New(loader Loader, opts ...Option) *Provisioner {
	p := &Provisioner{
		loader: loader,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "provision",
		}),
		types:     paramtype.DefaultRegistry(),
		stateFile: DefaultStateFile,
		workers:   4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Provisioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRegistry sets the parameter type registry.
func WithRegistry(r *paramtype.Registry) Option {
	return func(p *Provisioner) {
		if r != nil {
			p.types = r
		}
	}
}

// WithParameterResolver installs the package parameter hook.
func WithParameterResolver(r ParameterResolver) Option {
	return func(p *Provisioner) {
		p.params = r
	}
}

// WithPlugins registers post-install plugins. They run in registration order.
func WithPlugins(plugins ...Plugin) Option {
	return func(p *Provisioner) {
		p.plugins = append(p.plugins, plugins...)
	}
}

// WithStateFile sets the state file path relative to the install directory.
func WithStateFile(path string) Option {
	return func(p *Provisioner) {
		if path != "" {
			p.stateFile = path
		}
	}
}

// WithParallelism bounds the number of feature-packs staged at once.
func WithParallelism(n int) Option {
	return func(p *Provisioner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// Resolve computes the provisioned state of cfg. Nothing is returned on failure.
func (p *Provisioner) Resolve(ctx context.Context, cfg *fpconfig.ProvisioningConfig) (*state.ProvisionedState, error) {
	res, err := p.resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return res.state, nil
}

// resolution is the outcome of one run together with the loaded feature-packs.
type resolution struct {
	layout   *layout
	selected map[*fpNode][]*fpspec.PackageSpec
	state    *state.ProvisionedState
}

func (p *Provisioner) resolve(ctx context.Context, cfg *fpconfig.ProvisioningConfig) (*resolution, error) {
	l, err := p.walk(ctx, cfg)
	if err != nil {
		return nil, err
	}

	selected, err := p.resolvePackages(l)
	if err != nil {
		return nil, err
	}
	st := &state.ProvisionedState{}
	for _, n := range l.order {
		st.FeaturePacks = append(st.FeaturePacks, state.ProvisionedFeaturePack{
			Gav:      n.gav,
			Packages: p.packageParams(n, selected[n]),
		})
	}

	configs, err := p.mergeConfigs(l, cfg)
	if err != nil {
		return nil, err
	}
	st.Configs = configs

	p.logger.Debug("resolved provisioning request",
		"featurePacks", len(st.FeaturePacks), "configs", len(st.Configs))
	return &resolution{layout: l, selected: selected, state: st}, nil
}
