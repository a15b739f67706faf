// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provisio/provisio/internal/config"
	"github.com/provisio/provisio/internal/issue"
)

// newConfigCommand creates the `provisio config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage provisio configuration",
		Long: `Manage provisio configuration.

Configuration is stored in:
  - Linux: ~/.config/provisio/config.cue
  - macOS: ~/Library/Application Support/provisio/config.cue
  - Windows: %APPDATA%\provisio\config.cue

PROVISIO_* environment variables override file values, for example
PROVISIO_LOG_LEVEL=debug or PROVISIO_INSTALL_PARALLELISM=8.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var defaults bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			if defaults {
				fmt.Fprint(app.stdout, config.GenerateCUE(config.DefaultConfig()))
				return nil
			}
			return app.run(flags, func(_ context.Context, s *session, _ []string) error {
				return showConfig(app, s.cfg)
			})(cmd, args)
		},
	}
	show.Flags().BoolVar(&defaults, "defaults", false, "show the default configuration instead")
	cfgCmd.AddCommand(show)

	var dir string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig(dir)
			if err != nil {
				return issue.WrapWithOperation(err, "create configuration file")
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s %s already exists\n", WarningStyle.Render("!"), KeyStyle.Render(path))
				return nil
			}
			fmt.Fprintf(app.stdout, "%s created %s\n", SuccessStyle.Render("✓"), KeyStyle.Render(path))
			return nil
		},
	}
	initCmd.Flags().StringVar(&dir, "dir", "", "directory to create config.cue in (default is the user config directory)")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(app *App, cfg *config.Config) error {
	source := SubtitleStyle.Render("(using defaults)")
	if cfg.Source != "" {
		source = cfg.Source
	}
	root, err := cfg.RepositoryRoot()
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "// %s: %s\n// %s: %s\n", "config file", source, "repository", root)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}
