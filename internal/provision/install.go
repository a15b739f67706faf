// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/provisio/provisio/internal/fpdesc"
	"github.com/provisio/provisio/internal/fsutil"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/fpspec"
	"github.com/provisio/provisio/pkg/state"
)

type (
	// Plugin materializes what the file copy cannot, after the content is installed.
	Plugin interface {
		Name() string
		PostInstall(ctx context.Context, rt *Runtime) error
	}

	// Runtime is what plugins see of an installation. Configs in State are in
	// emission order and their features fully resolved.
	Runtime struct {
		State      *state.ProvisionedState
		InstallDir string
		StagingDir string

		featurePacks []RuntimeFeaturePack
		logger       *log.Logger
	}

	// RuntimeFeaturePack is an installed feature-pack with its content directory.
	RuntimeFeaturePack struct {
		Spec     *fpspec.FeaturePackSpec
		Dir      string
		Packages []string
	}
)

// FeaturePacks returns the installed feature-packs, dependencies first.
func (rt *Runtime) FeaturePacks() []RuntimeFeaturePack { return slices.Clone(rt.featurePacks) }

// FeaturePack returns the installed feature-pack with the given identity.
func (rt *Runtime) FeaturePack(ga coords.Ga) (RuntimeFeaturePack, bool) {
	for _, fp := range rt.featurePacks {
		if fp.Spec.Gav().Ga() == ga {
			return fp, true
		}
	}
	return RuntimeFeaturePack{}, false
}

// Logger returns the provisioner's logger.
func (rt *Runtime) Logger() *log.Logger { return rt.logger }

// PackageContent returns the content directory of a package. It is empty when
// the feature-pack has no content.
func (fp RuntimeFeaturePack) PackageContent(name string) string {
	if fp.Dir == "" {
		return ""
	}
	return fpdesc.PackageContentDir(fp.Dir, name)
}

// PluginDir returns the plugins directory of the feature-pack.
func (fp RuntimeFeaturePack) PluginDir() string {
	if fp.Dir == "" {
		return ""
	}
	return filepath.Join(fp.Dir, fpdesc.PluginsDir)
}

// Install resolves cfg and materializes it into dir: package content, the
// state file and the output of the requested plugins.
func (p *Provisioner) Install(ctx context.Context, cfg *fpconfig.ProvisioningConfig, dir string) (*state.ProvisionedState, error) {
	res, err := p.resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}
	plugins, err := p.requestedPlugins(res.layout)
	if err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp("", "provisio-staging-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }() // Best-effort cleanup of temporary files

	stages, err := p.stage(ctx, res, staging)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create install directory: %w", err)
	}
	for _, stage := range stages {
		if err := fsutil.CopyDir(stage, dir); err != nil {
			return nil, fmt.Errorf("failed to install staged content: %w", err)
		}
	}

	if err := p.writeState(res.state, dir); err != nil {
		return nil, err
	}

	rt := &Runtime{State: res.state, InstallDir: dir, StagingDir: staging, logger: p.logger}
	for _, n := range res.layout.order {
		rfp := RuntimeFeaturePack{Spec: n.spec, Dir: n.dir}
		for _, pkg := range res.selected[n] {
			rfp.Packages = append(rfp.Packages, pkg.Name)
		}
		rt.featurePacks = append(rt.featurePacks, rfp)
	}
	for _, plugin := range plugins {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.logger.Debug("running plugin", "plugin", plugin.Name())
		if err := plugin.PostInstall(ctx, rt); err != nil {
			return nil, fmt.Errorf("plugin %s failed: %w", plugin.Name(), err)
		}
	}

	if hash, err := fsutil.DirHash(dir); err == nil {
		p.logger.Info("installation complete", "dir", dir, "featurePacks", len(res.state.FeaturePacks), "hash", hash[:12])
	}
	return res.state, nil
}

// requestedPlugins returns the registered plugins named by any feature-pack,
// in registration order.
func (p *Provisioner) requestedPlugins(l *layout) ([]Plugin, error) {
	requested := make(map[string]bool)
	for _, n := range l.order {
		for _, name := range n.spec.Plugins() {
			if !slices.ContainsFunc(p.plugins, func(pl Plugin) bool { return pl.Name() == name }) {
				return nil, fperr.Resolutionf("feature-pack %s requires plugin %s which is not registered", n.gav, name)
			}
			requested[name] = true
		}
	}
	var out []Plugin
	for _, pl := range p.plugins {
		if requested[pl.Name()] {
			out = append(out, pl)
		}
	}
	return out, nil
}

// stage copies the selected package content of every feature-pack into its own
// directory under staging. The returned directories list dependencies first,
// so merging them in order lets a feature-pack overwrite its dependencies.
func (p *Provisioner) stage(ctx context.Context, res *resolution, staging string) ([]string, error) {
	stages := make([]string, len(res.layout.order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, n := range res.layout.order {
		stageDir := filepath.Join(staging, fmt.Sprintf("%03d-%s", i, n.gav.Artifact))
		stages[i] = stageDir
		pkgs := res.selected[n]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := os.MkdirAll(stageDir, 0o755); err != nil {
				return err
			}
			if n.dir == "" {
				if len(pkgs) > 0 {
					p.logger.Warn("feature-pack has no content", "featurePack", n.gav)
				}
				return nil
			}
			for _, pkg := range pkgs {
				content := fpdesc.PackageContentDir(n.dir, pkg.Name)
				ok, err := fsutil.IsDir(content)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				if err := fsutil.CopyDir(content, stageDir); err != nil {
					return fmt.Errorf("failed to stage package %s of %s: %w", pkg.Name, n.gav, err)
				}
			}
			p.logger.Debug("staged feature-pack", "featurePack", n.gav, "packages", len(pkgs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stages, nil
}

func (p *Provisioner) writeState(st *state.ProvisionedState, dir string) (err error) {
	path := filepath.Join(dir, filepath.FromSlash(p.stateFile))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close state file: %w", closeErr)
		}
	}()
	if err := state.Encode(f, st, state.FormatTOML); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
