// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/provisio/provisio/internal/provision"
	"github.com/provisio/provisio/pkg/fperr"
)

const (
	// ScriptsName is the plugin name feature-packs use to request their
	// post-install script.
	ScriptsName = "scripts"
	// PostInstallScript is the script run from a feature-pack's plugins directory.
	PostInstallScript = "post-install.sh"

	// EnvHome carries the installation directory.
	EnvHome = "PROVISIO_HOME"
	// EnvFeaturePack carries the coordinate of the feature-pack owning the script.
	EnvFeaturePack = "PROVISIO_FEATURE_PACK"
	// EnvPluginDir carries the plugins directory of that feature-pack.
	EnvPluginDir = "PROVISIO_PLUGIN_DIR"
)

type (
	// Scripts runs plugins/post-install.sh of every feature-pack that requests
	// it, dependencies first, with an embedded POSIX shell interpreter.
	// Scripts run in the installation directory.
	Scripts struct {
		stdout  io.Writer
		stderr  io.Writer
		environ func() []string
	}

	// ScriptsOption configures Scripts.
	ScriptsOption func(*Scripts)
)

// NewScripts returns the post-install script plugin.
func NewScripts(opts ...ScriptsOption) *Scripts {
	s := &Scripts{stdout: os.Stdout, stderr: os.Stderr, environ: os.Environ}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithOutput redirects script output.
func WithOutput(stdout, stderr io.Writer) ScriptsOption {
	return func(s *Scripts) {
		s.stdout, s.stderr = stdout, stderr
	}
}

// WithEnviron replaces the inherited environment.
func WithEnviron(environ func() []string) ScriptsOption {
	return func(s *Scripts) {
		s.environ = environ
	}
}

// Name implements provision.Plugin.
func (*Scripts) Name() string { return ScriptsName }

// PostInstall implements provision.Plugin.
func (s *Scripts) PostInstall(ctx context.Context, rt *provision.Runtime) error {
	for _, fp := range rt.FeaturePacks() {
		if !slices.Contains(fp.Spec.Plugins(), ScriptsName) || fp.Dir == "" {
			continue
		}
		script := filepath.Join(fp.PluginDir(), PostInstallScript)
		data, err := os.ReadFile(script)
		if errors.Is(err, os.ErrNotExist) {
			rt.Logger().Warn("feature-pack requests scripts but has no post-install script", "featurePack", fp.Spec.Gav())
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", script, err)
		}

		rt.Logger().Debug("running post-install script", "featurePack", fp.Spec.Gav(), "script", script)
		env := slices.Concat(s.environ(), []string{
			EnvHome + "=" + rt.InstallDir,
			EnvFeaturePack + "=" + fp.Spec.Gav().String(),
			EnvPluginDir + "=" + fp.PluginDir(),
		})
		if err := s.run(ctx, string(data), script, rt.InstallDir, env); err != nil {
			return fmt.Errorf("post-install script of %s: %w", fp.Spec.Gav(), err)
		}
	}
	return nil
}

func (s *Scripts) run(ctx context.Context, script, name, dir string, env []string) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), name)
	if err != nil {
		return fperr.Descriptionf("failed to parse script: %w", err)
	}
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, s.stdout, s.stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}
	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return fmt.Errorf("exited with status %d", status)
		}
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}
