// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provisio/provisio/internal/artifact"
	"github.com/provisio/provisio/internal/fpdesc"
	"github.com/provisio/provisio/internal/issue"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/fpspec"
)

func newFeaturePackCommand(app *App, flags *rootFlags) *cobra.Command {
	fpCmd := &cobra.Command{
		Use:   "fp",
		Short: "Manage feature-packs in the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	fpCmd.AddCommand(&cobra.Command{
		Use:   "install <group:artifact:version> <dir>",
		Short: "Store a feature-pack directory, replacing any stored copy",
		Args:  cobra.ExactArgs(2),
		RunE: app.run(flags, func(ctx context.Context, s *session, args []string) error {
			return storeFeaturePack(ctx, app, s, "install", args)
		}),
	})

	fpCmd.AddCommand(&cobra.Command{
		Use:   "deploy <group:artifact:version> <dir>",
		Short: "Store a feature-pack directory, refusing to overwrite a stored copy",
		Args:  cobra.ExactArgs(2),
		RunE: app.run(flags, func(ctx context.Context, s *session, args []string) error {
			return storeFeaturePack(ctx, app, s, "deploy", args)
		}),
	})

	var prefix string
	versions := &cobra.Command{
		Use:   "versions <group:artifact>",
		Short: "Print the highest stored version of a feature-pack",
		Long: `Print the highest stored version of a feature-pack.

With --prefix, only versions whose leading dot-separated segments equal the
prefix are considered: --prefix 1.2 matches 1.2.9 but not 1.20.0.`,
		Args: cobra.ExactArgs(1),
		RunE: app.run(flags, func(ctx context.Context, s *session, args []string) error {
			ga, err := coords.ParseGa(args[0])
			if err != nil {
				return err
			}
			version, err := s.repo.HighestVersion(ctx, ga, prefix)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, version)
			return nil
		}),
	}
	versions.Flags().StringVar(&prefix, "prefix", "", "version prefix to match")
	fpCmd.AddCommand(versions)

	fpCmd.AddCommand(&cobra.Command{
		Use:   "validate <dir>",
		Short: "Check a feature-pack directory and summarize its descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: app.run(flags, func(_ context.Context, _ *session, args []string) error {
			spec, err := loadFeaturePackDir(args[0])
			if err != nil {
				return err
			}
			printFeaturePack(app, spec)
			return nil
		}),
	})

	return fpCmd
}

// storeFeaturePack validates the directory before handing it to the repository,
// so a stored artifact always carries a descriptor matching its coordinates.
func storeFeaturePack(ctx context.Context, app *App, s *session, op string, args []string) error {
	gav, err := coords.ParseGav(args[0])
	if err != nil {
		return err
	}
	spec, err := loadFeaturePackDir(args[1])
	if err != nil {
		return err
	}
	if spec.Gav() != gav {
		return fperr.Descriptionf("%s describes feature-pack %s, not %s", args[1], spec.Gav(), gav)
	}

	store := s.repo.Install
	if op == "deploy" {
		store = s.repo.Deploy
	}
	if err := store(ctx, gav, args[1]); err != nil {
		if errors.Is(err, artifact.ErrExists) {
			return issue.NewErrorContext().
				WithOperation(op+" feature-pack").
				WithResource(args[1]).
				WithSuggestions(
					"Use 'provisio fp install' to replace the stored copy",
					"Publish the changed feature-pack under a new version",
				).
				Wrap(err).
				BuildError()
		}
		return err
	}
	s.logger.Debug("stored feature-pack", "op", op, "gav", gav, "dir", args[1])
	fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), op+"ed", KeyStyle.Render(gav.String()))
	return nil
}

func loadFeaturePackDir(dir string) (*fpspec.FeaturePackSpec, error) {
	spec, err := fpdesc.LoadFeaturePack(dir)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load feature-pack").
			WithResource(dir).
			WithSuggestion("Check that the directory holds a " + fpdesc.FeaturePackFile + " matching the #FeaturePack schema").
			Wrap(err).
			BuildError()
	}
	return spec, nil
}

func printFeaturePack(app *App, spec *fpspec.FeaturePackSpec) {
	fmt.Fprintln(app.stdout, TitleStyle.Render(spec.Gav().String()))
	for _, dep := range spec.Deps().All() {
		fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("dependency"), KeyStyle.Render(dep.Gav().String()))
	}
	for _, pkg := range spec.Packages() {
		marker := ""
		if pkg.Default {
			marker = SubtitleStyle.Render(" (default)")
		}
		fmt.Fprintf(app.stdout, "  %s %s%s\n", SubtitleStyle.Render("package"), pkg.Name, marker)
	}
	for _, fs := range spec.FeatureSpecs() {
		fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("spec"), fs.Name)
	}
	for _, g := range spec.Groups() {
		fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("group"), g.Name)
	}
	for _, cfg := range spec.Configs() {
		fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("config"), cfg.Id())
	}
	for _, name := range spec.Plugins() {
		fmt.Fprintf(app.stdout, "  %s %s\n", SubtitleStyle.Render("plugin"), name)
	}
}
