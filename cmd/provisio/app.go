// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/provisio/provisio/internal/artifact"
	"github.com/provisio/provisio/internal/config"
	"github.com/provisio/provisio/internal/issue"
	"github.com/provisio/provisio/internal/plugin"
	"github.com/provisio/provisio/internal/provision"
	"github.com/provisio/provisio/pkg/fperr"
)

// Exit codes by failure kind.
const (
	ExitFailure     = 1
	ExitDescription = 2
	ExitResolution  = 3
	ExitArtifact    = 4
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: every Cobra handler receives the App and builds its session from it.
	App struct {
		Config  ConfigProvider
		Plugins PluginFactory
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Plugins PluginFactory
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// PluginFactory returns the post-install plugins for one run, writing script
	// output to stdout and stderr.
	PluginFactory func(stdout, stderr io.Writer) []provision.Plugin

	// rootFlags are the persistent flags shared by every command.
	rootFlags struct {
		configPath string
		verbose    bool
		logLevel   string
		repository string
	}

	// session is the per-invocation state derived from configuration and flags.
	session struct {
		cfg     *config.Config
		logger  *log.Logger
		repo    artifact.Repository
		verbose bool
	}

	// runFunc is a command body running with a loaded session.
	runFunc func(ctx context.Context, s *session, args []string) error
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Plugins == nil {
		deps.Plugins = func(stdout, stderr io.Writer) []provision.Plugin {
			return plugin.Defaults(plugin.WithOutput(stdout, stderr))
		}
	}
	return &App{
		Config:  deps.Config,
		Plugins: deps.Plugins,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// session loads the configuration and applies flag overrides.
func (a *App) session(ctx context.Context, flags *rootFlags) (*session, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, err
	}
	if flags.repository != "" {
		cfg.RepositoryDir = flags.repository
	}
	if flags.logLevel != "" {
		level := config.LogLevel(flags.logLevel)
		if valid, errs := level.IsValid(); !valid {
			return nil, errs[0]
		}
		cfg.LogLevel = level
	}

	root, err := cfg.RepositoryRoot()
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Level:  cfg.LogLevel.Level(),
		Prefix: config.AppName,
	})
	logger.Debug("configuration loaded", "source", cfg.Source, "repository", root)

	return &session{
		cfg:     cfg,
		logger:  logger,
		repo:    artifact.NewCachingRepository(artifact.NewLocalRepository(root)),
		verbose: flags.verbose || cfg.UI.Verbose,
	}, nil
}

// provisioner builds a Provisioner loading feature-packs from the session repository.
func (a *App) provisioner(s *session) *provision.Provisioner {
	return provision.New(
		provision.NewRepositoryLoader(s.repo),
		provision.WithLogger(s.logger),
		provision.WithPlugins(a.Plugins(a.stdout, a.stderr)...),
		provision.WithStateFile(s.cfg.Install.StateFile),
		provision.WithParallelism(s.cfg.Install.Parallelism),
	)
}

// run adapts a session-aware command body to cobra.
func (a *App) run(flags *rootFlags, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := a.session(cmd.Context(), flags)
		if err != nil {
			return a.fail(err, flags.verbose)
		}
		if err := fn(cmd.Context(), s, args); err != nil {
			return a.fail(err, s.verbose)
		}
		return nil
	}
}

// fail renders the issue guide for err in verbose mode and attaches the exit
// code of its kind.
func (a *App) fail(err error, verbose bool) error {
	if verbose {
		a.renderIssue(err)
	}
	return &ExitError{Code: exitCodeFor(err), Err: err, Verbose: verbose}
}

func (a *App) renderIssue(err error) {
	var entry *issue.Issue
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if id := ae.IssueId(); id != 0 {
			entry = issue.Get(id)
		}
	} else {
		entry = issue.ForError(err)
	}
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render("")
	if renderErr != nil {
		fmt.Fprintln(a.stderr, WarningStyle.Render("failed to render issue guide: ")+renderErr.Error())
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

func exitCodeFor(err error) int {
	switch {
	case fperr.IsDescription(err):
		return ExitDescription
	case fperr.IsResolution(err):
		return ExitResolution
	case fperr.IsArtifact(err):
		return ExitArtifact
	default:
		return ExitFailure
	}
}

// verboseHint points at the issue guide when an error carries no suggestion.
const verboseHint = "Rerun with --verbose for a guide to this failure"

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		msg := ae.Format(verbose)
		if !verbose && !ae.HasSuggestions() && ae.IssueId() != 0 {
			msg += "\n\n  • " + verboseHint
		}
		return msg
	}
	return err.Error()
}
