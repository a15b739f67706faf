// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/provisio/provisio/internal/provision"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/fpspec"
)

type renderedConfig struct {
	Model        string            `yaml:"model"`
	Name         string            `yaml:"name"`
	Properties   map[string]string `yaml:"properties"`
	FeaturePacks []struct {
		Gav   string `yaml:"gav"`
		Specs []struct {
			Name     string `yaml:"name"`
			Features []struct {
				Id     string            `yaml:"id"`
				Params map[string]string `yaml:"params"`
			} `yaml:"features"`
		} `yaml:"specs"`
	} `yaml:"feature-packs"`
}

// install provisions a single feature-pack app requesting plugins, with an
// optional post-install script, and returns the installation directory.
func install(t *testing.T, script string, plugins []string, registered ...provision.Plugin) (string, error) {
	t.Helper()

	gav := coords.NewGav("org.test", "app", "1.0")
	fc, err := feature.NewFeatureConfig("server").SetParam("name", "web").Build()
	if err != nil {
		t.Fatal(err)
	}
	model, err := fpconfig.NewConfigModel("standalone", "").SetProperty("env", "prod").AddFeature(fc).Build()
	if err != nil {
		t.Fatal(err)
	}
	b := fpspec.NewFeaturePackSpec(gav).
		AddFeatureSpec(&feature.FeatureSpec{
			Name: "server",
			Params: []feature.ParameterSpec{
				{Name: "name", Identity: true},
				{Name: "port", Default: "8080", HasDefault: true},
			},
		}).
		AddConfig(model)
	for _, name := range plugins {
		b.AddPlugin(name)
	}
	spec, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	fpDir := t.TempDir()
	if script != "" {
		path := filepath.Join(fpDir, "plugins", PostInstallScript)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	loader := provision.NewMemoryLoader()
	loader.Add(spec, fpDir)

	edge, err := fpconfig.ForGav(gav)
	if err != nil {
		t.Fatal(err)
	}
	req, err := fpconfig.NewProvisioningConfig().AddFeaturePackDep("", edge).Build()
	if err != nil {
		t.Fatal(err)
	}

	p := provision.New(loader, provision.WithLogger(log.New(io.Discard)), provision.WithPlugins(registered...))
	dir := t.TempDir()
	_, err = p.Install(context.Background(), req, dir)
	return dir, err
}

func TestConfigs(t *testing.T) {
	t.Parallel()

	dir, err := install(t, "", []string{ConfigsName}, NewConfigs())
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ConfigPath("standalone", "")))
	if err != nil {
		t.Fatalf("rendered config not found: %v", err)
	}
	var got renderedConfig
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("rendered config is not YAML: %v\n%s", err, data)
	}
	if got.Model != "standalone" || got.Name != "" || got.Properties["env"] != "prod" {
		t.Errorf("config header = %+v", got)
	}
	if len(got.FeaturePacks) != 1 || got.FeaturePacks[0].Gav != "org.test:app:1.0" {
		t.Fatalf("feature-packs = %+v", got.FeaturePacks)
	}
	specs := got.FeaturePacks[0].Specs
	if len(specs) != 1 || specs[0].Name != "server" || len(specs[0].Features) != 1 {
		t.Fatalf("specs = %+v", specs)
	}
	f := specs[0].Features[0]
	if f.Id != "server:name=web" || f.Params["name"] != "web" || f.Params["port"] != "8080" {
		t.Errorf("feature = %+v", f)
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model, name string
		want        string
	}{
		{"", "", "configs/default/default.yaml"},
		{"standalone", "", "configs/standalone/default.yaml"},
		{"", "ha", "configs/default/ha.yaml"},
		{"domain", "ha", "configs/domain/ha.yaml"},
	}
	for _, tt := range tests {
		if got := filepath.ToSlash(ConfigPath(tt.model, tt.name)); got != tt.want {
			t.Errorf("ConfigPath(%q, %q) = %q, want %q", tt.model, tt.name, got, tt.want)
		}
	}
}

func TestScripts(t *testing.T) {
	t.Parallel()

	script := `
echo "installed $PROVISIO_FEATURE_PACK"
printf '%s' "$PROVISIO_FEATURE_PACK" > marker.txt
test -n "$PROVISIO_PLUGIN_DIR"
`
	var stdout bytes.Buffer
	plugin := NewScripts(WithOutput(&stdout, io.Discard), WithEnviron(func() []string { return nil }))
	dir, err := install(t, script, []string{ScriptsName}, plugin)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	marker, err := os.ReadFile(filepath.Join(dir, "marker.txt"))
	if err != nil {
		t.Fatalf("script did not run in the installation directory: %v", err)
	}
	if string(marker) != "org.test:app:1.0" {
		t.Errorf("marker = %q", marker)
	}
	if got := stdout.String(); got != "installed org.test:app:1.0\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestScripts_Errors(t *testing.T) {
	t.Parallel()

	quiet := func() *Scripts {
		return NewScripts(WithOutput(io.Discard, io.Discard), WithEnviron(func() []string { return nil }))
	}

	t.Run("non-zero exit", func(t *testing.T) {
		t.Parallel()

		_, err := install(t, "exit 3\n", []string{ScriptsName}, quiet())
		if err == nil || !strings.Contains(err.Error(), "exited with status 3") {
			t.Errorf("error = %v, want exit status 3", err)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		_, err := install(t, "if then fi (\n", []string{ScriptsName}, quiet())
		if !fperr.IsDescription(err) {
			t.Errorf("error = %v, want description error", err)
		}
	})

	t.Run("missing script is skipped", func(t *testing.T) {
		t.Parallel()

		if _, err := install(t, "", []string{ScriptsName}, quiet()); err != nil {
			t.Errorf("Install() error = %v", err)
		}
	})

	t.Run("unregistered plugin", func(t *testing.T) {
		t.Parallel()

		_, err := install(t, "", []string{ScriptsName}, NewConfigs())
		if !fperr.IsResolution(err) {
			t.Errorf("error = %v, want resolution error", err)
		}
	})
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	plugins := Defaults()
	if len(plugins) != 2 || plugins[0].Name() != ConfigsName || plugins[1].Name() != ScriptsName {
		t.Errorf("Defaults() = %v", plugins)
	}
}
