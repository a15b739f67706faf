// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for provisio.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the provisio command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "provisio",
		Short: "Provision installations from feature-packs",
		Long: TitleStyle.Render("provisio") + SubtitleStyle.Render(" - feature-pack provisioning") + `

provisio resolves a provisioning request against a graph of feature-packs,
selects their packages, merges their configs and installs the result.

Feature-packs and requests are described in CUE: a feature-pack directory
holds feature-pack.cue, packages/<name>/content/ and plugins/.

` + SubtitleStyle.Render("Examples:") + `
  provisio fp install org.example:web:1.0.0 ./web   Store a feature-pack in the repository
  provisio resolve provisioning.cue                  Print the resolved state
  provisio provision provisioning.cue ./server       Install into ./server
  provisio config show                               Show current configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/provisio/config.cue)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flags.repository, "repository", "", "feature-pack repository directory")

	rootCmd.AddCommand(
		newProvisionCommand(app, flags),
		newResolveCommand(app, flags),
		newFeaturePackCommand(app, flags),
		newSchemaCommand(app, flags),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(displayError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

// displayError prints err with its suggestions, and with the full chain when
// the failing command ran verbose.
func displayError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	verbose := errors.As(err, &exitErr) && exitErr.Verbose
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
}
