// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provisio/provisio/internal/fpdesc"
	"github.com/provisio/provisio/internal/issue"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/state"
)

func newProvisionCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "provision <provisioning.cue> <install-dir>",
		Short: "Resolve a provisioning request and install it",
		Long: `Resolve a provisioning request and install it.

The installation directory receives the content of every selected package,
the state file and whatever the requested plugins produce. It is written only
once the whole request resolved and every package staged.`,
		Args: cobra.ExactArgs(2),
		RunE: app.run(flags, func(ctx context.Context, s *session, args []string) error {
			req, err := loadRequest(args[0])
			if err != nil {
				return err
			}
			st, err := app.provisioner(s).Install(ctx, req, args[1])
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("install").
					WithResource(args[1]).
					WithSuggestion("Run 'provisio resolve " + args[0] + "' to check the request without installing").
					Wrap(err).
					BuildError()
			}
			fmt.Fprintf(app.stdout, "%s installed %d feature-pack(s) and %d config(s) into %s\n",
				SuccessStyle.Render("✓"), len(st.FeaturePacks), len(st.Configs), KeyStyle.Render(args[1]))
			return nil
		}),
	}
}

func newResolveCommand(app *App, flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "resolve <provisioning.cue>",
		Short: "Print the provisioned state of a request without installing",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&format, "format", "o", "", "output format: toml, yaml or json (default from config)")

	cmd.RunE = app.run(flags, func(ctx context.Context, s *session, args []string) error {
		out := s.cfg.Output.Format
		if format != "" {
			parsed, err := state.ParseFormat(format)
			if err != nil {
				return err
			}
			out = parsed
		}
		req, err := loadRequest(args[0])
		if err != nil {
			return err
		}
		st, err := app.provisioner(s).Resolve(ctx, req)
		if err != nil {
			return issue.WrapWithContext(err, "resolve provisioning", args[0])
		}
		return state.Encode(app.stdout, st, out)
	})
	return cmd
}

func loadRequest(path string) (*fpconfig.ProvisioningConfig, error) {
	req, err := fpdesc.LoadProvisioning(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load provisioning request").
			WithResource(path).
			WithSuggestion("Check that the file exists and matches the #Provisioning schema").
			Wrap(err).
			BuildError()
	}
	return req, nil
}
