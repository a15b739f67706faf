// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/provisio/provisio/internal/artifact"
	"github.com/provisio/provisio/pkg/state"
)

const (
	// LogLevelDebug logs resolution steps.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs installation milestones.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs skipped plugins and other recoverable surprises.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// DefaultParallelism bounds concurrent package staging.
	DefaultParallelism = 4
	// DefaultStateFile is the state file location relative to an installation.
	DefaultStateFile = ".provisio/state.toml"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidParallelism is returned when install.parallelism is below one.
	ErrInvalidParallelism = errors.New("invalid parallelism")
	// ErrInvalidStateFile is returned when install.state_file is blank or absolute.
	ErrInvalidStateFile = errors.New("invalid state file")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of emitted log records.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidParallelismError is returned for a non-positive parallelism.
	InvalidParallelismError struct {
		Value int
	}

	// InvalidStateFileError is returned for a state file path that does not
	// stay inside the installation directory.
	InvalidStateFileError struct {
		Value string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig and each field error for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// RepositoryDir is the local feature-pack repository. Empty means
		// artifact.DefaultRoot.
		RepositoryDir string `json:"repository_dir" mapstructure:"repository_dir"`
		// LogLevel is the minimum level logged by the CLI.
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
		// Output configures how resolved state is printed.
		Output OutputConfig `json:"output" mapstructure:"output"`
		// Install configures installations.
		Install InstallConfig `json:"install" mapstructure:"install"`
		// UI configures terminal rendering.
		UI UIConfig `json:"ui" mapstructure:"ui"`

		// Source is the file the configuration was read from, empty for defaults.
		Source string `json:"-" mapstructure:"-"`
	}

	// OutputConfig configures state output.
	OutputConfig struct {
		// Format is the encoding used by "provisio resolve".
		Format state.Format `json:"format" mapstructure:"format"`
	}

	// InstallConfig configures installations.
	InstallConfig struct {
		// Parallelism bounds how many packages are staged at once.
		Parallelism int `json:"parallelism" mapstructure:"parallelism"`
		// StateFile is written relative to the installation directory.
		StateFile string `json:"state_file" mapstructure:"state_file"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose prints issue guides with failures.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Level converts the LogLevel to a charmbracelet/log level, falling back to info.
func (l LogLevel) Level() log.Level {
	level, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (e *InvalidParallelismError) Error() string {
	return fmt.Sprintf("invalid install.parallelism %d (must be at least 1)", e.Value)
}

func (e *InvalidParallelismError) Unwrap() error { return ErrInvalidParallelism }

func (e *InvalidStateFileError) Error() string {
	return fmt.Sprintf("invalid install.state_file %q (must be a relative path)", e.Value)
}

func (e *InvalidStateFileError) Unwrap() error { return ErrInvalidStateFile }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the config sentinel and each field's sentinel.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// IsValid returns whether the InstallConfig is valid.
func (c InstallConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Parallelism < 1 {
		errs = append(errs, &InvalidParallelismError{Value: c.Parallelism})
	}
	if s := strings.TrimSpace(c.StateFile); s == "" || strings.HasPrefix(s, "/") || strings.HasPrefix(s, "..") {
		errs = append(errs, &InvalidStateFileError{Value: c.StateFile})
	}
	if len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// IsValid returns whether the Config is valid, and a list containing a single
// InvalidConfigError if it is not.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if _, err := state.ParseFormat(string(c.Output.Format)); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.Install.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// RepositoryRoot returns RepositoryDir, or the default repository when unset.
func (c *Config) RepositoryRoot() (string, error) {
	if c.RepositoryDir != "" {
		return c.RepositoryDir, nil
	}
	return artifact.DefaultRoot()
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel: LogLevelInfo,
		Output: OutputConfig{
			Format: state.FormatTOML,
		},
		Install: InstallConfig{
			Parallelism: DefaultParallelism,
			StateFile:   DefaultStateFile,
		},
	}
}
