// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/provisio/provisio/pkg/feature"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/fpspec"
	"github.com/provisio/provisio/pkg/state"
)

var testConfigId = fpconfig.ConfigId{Model: "model1", Name: "config1"}

// layeredSpec declares an identity parameter, a parameter with a default and two
// optional ones.
func layeredSpec(name feature.SpecId) *feature.FeatureSpec {
	return &feature.FeatureSpec{Name: name, Params: []feature.ParameterSpec{
		{Name: "id", Identity: true},
		{Name: "p1", Default: "feature spec", HasDefault: true},
		{Name: "p2", Nillable: true},
		{Name: "p3", Nillable: true},
	}}
}

func featureCfg(t *testing.T, spec feature.SpecId, nameValues ...string) *feature.FeatureConfig {
	t.Helper()
	b := feature.NewFeatureConfig(spec)
	for i := 0; i+1 < len(nameValues); i += 2 {
		b.SetParam(nameValues[i], nameValues[i+1])
	}
	fc, err := b.Build()
	if err != nil {
		t.Fatalf("building feature config: %v", err)
	}
	return fc
}

func buildModel(t *testing.T, b *fpconfig.ConfigModelBuilder) *fpconfig.ConfigModel {
	t.Helper()
	m, err := b.Build()
	if err != nil {
		t.Fatalf("building config: %v", err)
	}
	return m
}

func configOf(t *testing.T, st *state.ProvisionedState, id fpconfig.ConfigId) *state.ProvisionedConfig {
	t.Helper()
	c, ok := st.Config(id)
	if !ok {
		t.Fatalf("config %s not provisioned", id)
	}
	return c
}

// featureKeys renders features as "artifact/featureId" in emission order.
func featureKeys(c *state.ProvisionedConfig) []string {
	out := make([]string, 0, len(c.Features))
	for _, f := range c.Features {
		out = append(out, f.Id.Spec().FeaturePack.Artifact+"/"+f.Id.FeatureId().String())
	}
	return out
}

func TestResolve_CustomizeConfig(t *testing.T) {
	t.Parallel()

	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddFeatureSpec(layeredSpec("specA")).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			AddFeature(featureCfg(t, "specA", "id", "1", "p2", "fp spec")).
			AddFeature(featureCfg(t, "specA", "id", "2", "p2", "fp spec")))))
	fp2 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp2")).
		AddFeatureSpec(layeredSpec("specB")).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			AddFeature(featureCfg(t, "specB", "id", "1", "p2", "fp spec")).
			AddFeature(featureCfg(t, "specB", "id", "2", "p2", "fp spec")))))

	custom := func() *feature.FeatureConfig { return featureCfg(t, "", "p3", "custom") }
	root := buildModel(t, fpconfig.NewConfigModel("model1", "config1").
		IncludeFeature("fp2", feature.MustFeatureId("specB", "id", "1"), custom()).
		ExcludeFeature("fp2", feature.MustFeatureId("specB", "id", "2")).
		IncludeFeature("fp1", feature.MustFeatureId("specA", "id", "2"), custom()).
		ExcludeFeature("fp1", feature.MustFeatureId("specA", "id", "1")))

	st := mustResolve(t, request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil), edge(t, "fp2", nil)}, root),
		[]*fpspec.FeaturePackSpec{fp1, fp2})

	c := configOf(t, st, testConfigId)
	if got, want := featureKeys(c), []string{"fp1/specA:id=2", "fp2/specB:id=1"}; !slices.Equal(got, want) {
		t.Fatalf("features = %v, want %v", got, want)
	}
	wantParams := [][]feature.Param{
		{{Name: "id", Value: "2"}, {Name: "p1", Value: "feature spec"}, {Name: "p2", Value: "fp spec"}, {Name: "p3", Value: "custom"}},
		{{Name: "id", Value: "1"}, {Name: "p1", Value: "feature spec"}, {Name: "p2", Value: "fp spec"}, {Name: "p3", Value: "custom"}},
	}
	for i, f := range c.Features {
		if !slices.Equal(f.Params, wantParams[i]) {
			t.Errorf("feature %s params = %v, want %v", f.Id, f.Params, wantParams[i])
		}
	}
}

func TestResolve_ExclusionByOrigin(t *testing.T) {
	t.Parallel()

	withSpecB := func(artifact string, ids ...string) *fpspec.FeaturePackSpec {
		b := fpconfig.NewConfigModel("model1", "config1")
		for _, id := range ids {
			b.AddFeature(featureCfg(t, "specB", "id", id))
		}
		return buildSpec(t, fpspec.NewFeaturePackSpec(testGav(artifact)).
			AddFeatureSpec(layeredSpec("specB")).
			AddConfig(buildModel(t, b)))
	}
	specs := []*fpspec.FeaturePackSpec{withSpecB("fp1", "2"), withSpecB("fp2", "1", "2")}
	edges := func() []*fpconfig.FeaturePackConfig {
		return []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil), edge(t, "fp2", nil)}
	}

	t.Run("origin scoped", func(t *testing.T) {
		t.Parallel()

		root := buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			ExcludeFeature("fp2", feature.MustFeatureId("specB", "id", "2")))
		st := mustResolve(t, request(t, edges(), root), specs)
		got := featureKeys(configOf(t, st, testConfigId))
		if want := []string{"fp1/specB:id=2", "fp2/specB:id=1"}; !slices.Equal(got, want) {
			t.Errorf("features = %v, want %v", got, want)
		}
	})

	t.Run("without origin", func(t *testing.T) {
		t.Parallel()

		root := buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			ExcludeFeature("", feature.MustFeatureId("specB", "id", "2")))
		st := mustResolve(t, request(t, edges(), root), specs)
		got := featureKeys(configOf(t, st, testConfigId))
		if want := []string{"fp2/specB:id=1"}; !slices.Equal(got, want) {
			t.Errorf("features = %v, want %v", got, want)
		}
	})

	t.Run("ambiguous inclusion", func(t *testing.T) {
		t.Parallel()

		root := buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			IncludeFeature("", feature.MustFeatureId("specB", "id", "2"), nil))
		_, err := resolve(t, request(t, edges(), root), specs)
		if !errors.Is(err, fperr.ErrResolution) {
			t.Errorf("error = %v, want resolution error", err)
		}
	})

	t.Run("inheritance off keeps inclusions", func(t *testing.T) {
		t.Parallel()

		root := buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			SetInheritFeatures(false).
			IncludeFeature("fp2", feature.MustFeatureId("specB", "id", "1"), nil))
		st := mustResolve(t, request(t, edges(), root), specs)
		got := featureKeys(configOf(t, st, testConfigId))
		if want := []string{"fp2/specB:id=1"}; !slices.Equal(got, want) {
			t.Errorf("features = %v, want %v", got, want)
		}
	})
}

func TestResolve_FeatureInclusionOverridesSpecExclusion(t *testing.T) {
	t.Parallel()

	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddFeatureSpec(layeredSpec("specB")).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			AddFeature(featureCfg(t, "specB", "id", "2", "p2", "fp spec")))))
	fp2 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp2")).
		AddFeatureSpec(layeredSpec("specB")).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			AddFeature(featureCfg(t, "specB", "id", "1", "p2", "fp spec")).
			AddFeature(featureCfg(t, "specB", "id", "2", "p2", "fp spec")))))

	root := buildModel(t, fpconfig.NewConfigModel("model1", "config1").
		ExcludeSpec("", "specB").
		IncludeFeature("fp2", feature.MustFeatureId("specB", "id", "1"), featureCfg(t, "", "p3", "custom")))

	st := mustResolve(t, request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil), edge(t, "fp2", nil)}, root),
		[]*fpspec.FeaturePackSpec{fp1, fp2})

	c := configOf(t, st, testConfigId)
	if got, want := featureKeys(c), []string{"fp2/specB:id=1"}; !slices.Equal(got, want) {
		t.Fatalf("features = %v, want %v", got, want)
	}
	want := []feature.Param{{Name: "id", Value: "1"}, {Name: "p1", Value: "feature spec"}, {Name: "p2", Value: "fp spec"}, {Name: "p3", Value: "custom"}}
	if got := c.Features[0].Params; !slices.Equal(got, want) {
		t.Errorf("params = %v, want %v", got, want)
	}
}

func TestResolve_PropertyPrecedence(t *testing.T) {
	t.Parallel()

	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			SetProperty("prop1", "fp1").SetProperty("prop2", "fp1").SetProperty("prop3", "fp1"))))
	fp2 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp2")).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			SetProperty("prop2", "fp2").SetProperty("prop3", "fp2"))))
	root := buildModel(t, fpconfig.NewConfigModel("model1", "config1").SetProperty("prop3", "custom"))

	st := mustResolve(t, request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil), edge(t, "fp2", nil)}, root),
		[]*fpspec.FeaturePackSpec{fp1, fp2})

	want := []feature.Param{{Name: "prop1", Value: "fp1"}, {Name: "prop2", Value: "fp2"}, {Name: "prop3", Value: "custom"}}
	if got := configOf(t, st, testConfigId).Properties; !slices.Equal(got, want) {
		t.Errorf("properties = %v, want %v", got, want)
	}
}

func TestResolve_DependencyLayering(t *testing.T) {
	t.Parallel()

	// fp1 depends on fp2, so fp2 is layered first and fp1 overrides it.
	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddDependency("", edge(t, "fp2", nil)).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").SetProperty("p", "fp1"))))
	fp2 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp2")).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").SetProperty("p", "fp2"))))

	st := mustResolve(t, request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)}), []*fpspec.FeaturePackSpec{fp1, fp2})
	if got, _ := configOf(t, st, testConfigId).Property("p"); got != "fp1" {
		t.Errorf("property p = %q, want fp1", got)
	}
}

func TestResolve_ConfigSelection(t *testing.T) {
	t.Parallel()

	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").SetProperty("a", "1"))).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model2", "config1"))))
	specs := []*fpspec.FeaturePackSpec{fp1}

	t.Run("excluded config", func(t *testing.T) {
		t.Parallel()

		cfg := request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", func(b *fpconfig.FeaturePackConfigBuilder) {
			b.ExcludeConfig(testConfigId)
		})})
		st := mustResolve(t, cfg, specs)
		if _, ok := st.Config(testConfigId); ok {
			t.Error("excluded config was provisioned")
		}
		if _, ok := st.Config(fpconfig.ConfigId{Model: "model2", Name: "config1"}); !ok {
			t.Error("model2:config1 missing")
		}
	})

	t.Run("model selection", func(t *testing.T) {
		t.Parallel()

		cfg := request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", func(b *fpconfig.FeaturePackConfigBuilder) {
			b.SetInheritConfigs(false).IncludeModel("model2")
		})})
		st := mustResolve(t, cfg, specs)
		if len(st.Configs) != 1 || st.Configs[0].Id() != (fpconfig.ConfigId{Model: "model2", Name: "config1"}) {
			t.Errorf("configs = %+v, want model2:config1 only", st.Configs)
		}
	})

	t.Run("config defined on the edge", func(t *testing.T) {
		t.Parallel()

		cfg := request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", func(b *fpconfig.FeaturePackConfigBuilder) {
			b.AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").SetProperty("a", "edge")))
		})})
		st := mustResolve(t, cfg, specs)
		if got, _ := configOf(t, st, testConfigId).Property("a"); got != "edge" {
			t.Errorf("property a = %q, want edge", got)
		}
	})
}

func TestResolve_ConfigOrder(t *testing.T) {
	t.Parallel()

	ids := []fpconfig.ConfigId{
		{},
		{Name: "A"},
		{Model: "m1", Name: "c1"},
		{Model: "m1", Name: "c2"},
		{Model: "m2", Name: "c1"},
		{Model: "m2", Name: "c2"},
		{Name: "B"},
	}
	b := fpspec.NewFeaturePackSpec(testGav("fp1"))
	for _, id := range ids {
		b.AddConfig(buildModel(t, fpconfig.NewConfigModel(id.Model, id.Name)))
	}
	st := mustResolve(t, request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)}), []*fpspec.FeaturePackSpec{buildSpec(t, b)})

	var got []string
	for i := range st.Configs {
		got = append(got, st.Configs[i].Id().String())
	}
	want := []string{"anonymous", "B", "A", "m2:c2", "m2:c1", "m1:c2", "m1:c1"}
	if !slices.Equal(got, want) {
		t.Errorf("config order = %v, want %v", got, want)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddFeatureSpec(layeredSpec("specA")).
		AddPackage(&fpspec.PackageSpec{Name: "main", Default: true}).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			SetProperty("a", "1").
			AddFeature(featureCfg(t, "specA", "id", "1")).
			AddFeature(featureCfg(t, "specA", "id", "2", "p3", "x")))))
	cfg := request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)})

	first := mustResolve(t, cfg, []*fpspec.FeaturePackSpec{fp1})
	second := mustResolve(t, cfg, []*fpspec.FeaturePackSpec{fp1})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two runs differ:\n%+v\n%+v", first, second)
	}
}

func TestResolve_FeatureParams(t *testing.T) {
	t.Parallel()

	specs := func(fc *feature.FeatureConfig, extra ...feature.ParameterSpec) []*fpspec.FeaturePackSpec {
		spec := layeredSpec("specA")
		spec.Params = append(spec.Params, extra...)
		return []*fpspec.FeaturePackSpec{buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
			AddFeatureSpec(spec).
			AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").AddFeature(fc))))}
	}
	cfg := func() *fpconfig.ProvisioningConfig {
		return request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)})
	}

	t.Run("undeclared parameter", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(t, cfg(), specs(featureCfg(t, "specA", "id", "1", "bogus", "x")))
		if !errors.Is(err, fperr.ErrDescription) {
			t.Errorf("error = %v, want description error", err)
		}
	})

	t.Run("required parameter unset", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(t, cfg(), specs(featureCfg(t, "specA", "id", "1"), feature.ParameterSpec{Name: "required"}))
		if !errors.Is(err, fperr.ErrDescription) {
			t.Errorf("error = %v, want description error", err)
		}
	})

	t.Run("missing identity", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(t, cfg(), specs(featureCfg(t, "specA", "p2", "x")))
		if !errors.Is(err, fperr.ErrDescription) {
			t.Errorf("error = %v, want description error", err)
		}
	})

	t.Run("invalid typed value", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(t, cfg(), specs(featureCfg(t, "specA", "id", "1", "n", "ten"), feature.ParameterSpec{Name: "n", Type: "int", Nillable: true}))
		if !errors.Is(err, fperr.ErrDescription) {
			t.Errorf("error = %v, want description error", err)
		}
	})

	t.Run("unknown spec", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(t, cfg(), specs(featureCfg(t, "specZ", "id", "1")))
		if !errors.Is(err, fperr.ErrDescription) {
			t.Errorf("error = %v, want description error", err)
		}
	})
}

func TestResolve_MergeableParams(t *testing.T) {
	t.Parallel()

	spec := &feature.FeatureSpec{Name: "server", Params: []feature.ParameterSpec{
		{Name: "name", Identity: true},
		{Name: "ports", Type: "list", Default: "[80]", HasDefault: true},
	}}
	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddFeatureSpec(spec).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").
			AddFeature(featureCfg(t, "server", "name", "web", "ports", "[8080]")).
			AddFeature(featureCfg(t, "server", "name", "admin")))))
	root := buildModel(t, fpconfig.NewConfigModel("model1", "config1").
		IncludeFeature("", feature.MustFeatureId("server", "name", "web"), featureCfg(t, "", "ports", "[8443,8080]")))

	st := mustResolve(t, request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)}, root), []*fpspec.FeaturePackSpec{fp1})
	c := configOf(t, st, testConfigId)

	tests := []struct {
		feature int
		want    string
	}{
		{0, "[8080,8443,8080]"},
		{1, "[80]"},
	}
	for _, tt := range tests {
		if got, _ := c.Features[tt.feature].Param("ports"); got != tt.want {
			t.Errorf("%s ports = %q, want %q", c.Features[tt.feature].Id, got, tt.want)
		}
	}
}

func TestResolve_NestedFeatures(t *testing.T) {
	t.Parallel()

	child := featureCfg(t, "resource", "name", "file")
	parent, err := feature.NewFeatureConfig("subsystem").SetParam("name", "logging").AddFeature(child).Build()
	if err != nil {
		t.Fatal(err)
	}
	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddFeatureSpec(&feature.FeatureSpec{Name: "subsystem", Params: []feature.ParameterSpec{{Name: "name", Identity: true}}}).
		AddFeatureSpec(&feature.FeatureSpec{Name: "resource", Params: []feature.ParameterSpec{
			{Name: "subsystem", Identity: true},
			{Name: "name", Identity: true},
		}}).
		AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").AddFeature(parent))))

	st := mustResolve(t, request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)}), []*fpspec.FeaturePackSpec{fp1})
	got := featureKeys(configOf(t, st, testConfigId))
	want := []string{"fp1/subsystem:name=logging", "fp1/resource:subsystem=logging,name=file"}
	if !slices.Equal(got, want) {
		t.Errorf("features = %v, want %v", got, want)
	}
}

func TestResolve_FeatureDependencies(t *testing.T) {
	t.Parallel()

	dbId := feature.MustFeatureId("db", "name", "main")
	specs := func(include bool) []*fpspec.FeaturePackSpec {
		return []*fpspec.FeaturePackSpec{buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
			AddFeatureSpec(&feature.FeatureSpec{Name: "app", Deps: []feature.FeatureDependencySpec{{Id: dbId, Include: include}}}).
			AddFeatureSpec(&feature.FeatureSpec{Name: "db", Params: []feature.ParameterSpec{
				{Name: "name", Identity: true},
				{Name: "url", Default: "jdbc:h2:mem", HasDefault: true},
			}}).
			AddConfig(buildModel(t, fpconfig.NewConfigModel("model1", "config1").AddFeature(featureCfg(t, "app")))))}
	}
	cfg := func() *fpconfig.ProvisioningConfig {
		return request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)})
	}

	t.Run("included dependency", func(t *testing.T) {
		t.Parallel()

		st := mustResolve(t, cfg(), specs(true))
		c := configOf(t, st, testConfigId)
		if got, want := featureKeys(c), []string{"fp1/db:name=main", "fp1/app"}; !slices.Equal(got, want) {
			t.Fatalf("features = %v, want %v", got, want)
		}
		if got, _ := c.Features[0].Param("url"); got != "jdbc:h2:mem" {
			t.Errorf("url = %q, want the spec default", got)
		}
	})

	t.Run("missing dependency", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(t, cfg(), specs(false))
		if !errors.Is(err, fperr.ErrResolution) {
			t.Errorf("error = %v, want resolution error", err)
		}
	})
}

func TestResolve_Capabilities(t *testing.T) {
	t.Parallel()

	mustCap := func(text string, optional bool) feature.CapabilitySpec {
		c, err := feature.ParseCapability(text, optional)
		if err != nil {
			t.Fatal(err)
		}
		return c
	}
	server := &feature.FeatureSpec{
		Name:     "server",
		Params:   []feature.ParameterSpec{{Name: "name", Identity: true}, {Name: "ports", Type: "list"}},
		Provides: []feature.CapabilitySpec{mustCap("port.$ports", false)},
	}
	client := &feature.FeatureSpec{
		Name:     "client",
		Params:   []feature.ParameterSpec{{Name: "name", Identity: true}, {Name: "port"}},
		Requires: []feature.CapabilitySpec{mustCap("port.$port", false)},
	}
	optional := &feature.FeatureSpec{
		Name:     "probe",
		Params:   []feature.ParameterSpec{{Name: "name", Identity: true}},
		Requires: []feature.CapabilitySpec{mustCap("metrics", true)},
	}
	balancer := &feature.FeatureSpec{
		Name:     "balancer",
		Params:   []feature.ParameterSpec{{Name: "name", Identity: true}, {Name: "ports", Type: "list"}},
		Requires: []feature.CapabilitySpec{mustCap("port.$ports", false)},
	}
	specs := func(features ...*feature.FeatureConfig) []*fpspec.FeaturePackSpec {
		b := fpconfig.NewConfigModel("model1", "config1")
		for _, f := range features {
			b.AddFeature(f)
		}
		return []*fpspec.FeaturePackSpec{buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
			AddFeatureSpec(server).AddFeatureSpec(client).AddFeatureSpec(optional).AddFeatureSpec(balancer).
			AddConfig(buildModel(t, b)))}
	}
	cfg := func() *fpconfig.ProvisioningConfig {
		return request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)})
	}

	t.Run("providers come first", func(t *testing.T) {
		t.Parallel()

		st := mustResolve(t, cfg(), specs(
			featureCfg(t, "client", "name", "c", "port", "8443"),
			featureCfg(t, "probe", "name", "p"),
			featureCfg(t, "server", "name", "s", "ports", "[8080,8443]"),
		))
		got := featureKeys(configOf(t, st, testConfigId))
		want := []string{"fp1/probe:name=p", "fp1/server:name=s", "fp1/client:name=c"}
		if !slices.Equal(got, want) {
			t.Errorf("features = %v, want %v", got, want)
		}
	})

	tests := []struct {
		name     string
		features []*feature.FeatureConfig
	}{
		{"unprovided capability", []*feature.FeatureConfig{
			featureCfg(t, "client", "name", "c", "port", "9999"),
			featureCfg(t, "server", "name", "s", "ports", "[8080]"),
		}},
		{"empty required collection", []*feature.FeatureConfig{
			featureCfg(t, "balancer", "name", "b", "ports", "[]"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := resolve(t, cfg(), specs(tt.features...))
			if !errors.Is(err, fperr.ErrResolution) {
				t.Errorf("error = %v, want resolution error", err)
			}
		})
	}
}

func TestResolve_FeatureGroups(t *testing.T) {
	t.Parallel()

	group, err := feature.NewFeatureGroupSpec("basics",
		featureCfg(t, "specA", "id", "1"),
		featureCfg(t, "specA", "id", "2"),
		featureCfg(t, "specA", "id", "3"),
	)
	if err != nil {
		t.Fatal(err)
	}
	loopRef, err := feature.NewFeatureGroupConfig("loop").Build()
	if err != nil {
		t.Fatal(err)
	}
	loop, err := feature.NewFeatureGroupSpec("loop", loopRef)
	if err != nil {
		t.Fatal(err)
	}
	fp1 := buildSpec(t, fpspec.NewFeaturePackSpec(testGav("fp1")).
		AddFeatureSpec(layeredSpec("specA")).
		AddGroup(group).
		AddGroup(loop))
	specs := []*fpspec.FeaturePackSpec{fp1}

	withGroup := func(b *feature.FeatureGroupConfigBuilder) *fpconfig.ProvisioningConfig {
		g, err := b.SetOrigin("fp1").Build()
		if err != nil {
			t.Fatal(err)
		}
		return request(t, []*fpconfig.FeaturePackConfig{edge(t, "fp1", nil)},
			buildModel(t, fpconfig.NewConfigModel("model1", "config1").AddGroup(g)))
	}

	t.Run("filtered expansion", func(t *testing.T) {
		t.Parallel()

		cfg := withGroup(feature.NewFeatureGroupConfig("basics").
			ExcludeFeature(feature.MustFeatureId("specA", "id", "2")).
			IncludeFeature(feature.MustFeatureId("specA", "id", "3"), featureCfg(t, "", "p3", "custom")).
			IncludeFeature(feature.MustFeatureId("specA", "id", "4"), nil))
		c := configOf(t, mustResolve(t, cfg, specs), testConfigId)
		if got, want := featureKeys(c), []string{"fp1/specA:id=1", "fp1/specA:id=3", "fp1/specA:id=4"}; !slices.Equal(got, want) {
			t.Fatalf("features = %v, want %v", got, want)
		}
		if got, _ := c.Features[1].Param("p3"); got != "custom" {
			t.Errorf("p3 = %q, want custom", got)
		}
	})

	t.Run("inheritance off", func(t *testing.T) {
		t.Parallel()

		cfg := withGroup(feature.NewFeatureGroupConfig("basics").
			SetInheritFeatures(false).
			IncludeFeature(feature.MustFeatureId("specA", "id", "2"), nil))
		c := configOf(t, mustResolve(t, cfg, specs), testConfigId)
		if got, want := featureKeys(c), []string{"fp1/specA:id=2"}; !slices.Equal(got, want) {
			t.Errorf("features = %v, want %v", got, want)
		}
	})

	t.Run("self inclusion", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(t, withGroup(feature.NewFeatureGroupConfig("loop")), specs)
		if !errors.Is(err, fperr.ErrDescription) {
			t.Errorf("error = %v, want description error", err)
		}
	})

	t.Run("unknown group", func(t *testing.T) {
		t.Parallel()

		_, err := resolve(t, withGroup(feature.NewFeatureGroupConfig("nope")), specs)
		if !errors.Is(err, fperr.ErrDescription) {
			t.Errorf("error = %v, want description error", err)
		}
	})
}
