// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/provisio/provisio/internal/issue"
	"github.com/provisio/provisio/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "provisio"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. PROVISIO_LOG_LEVEL or
	// PROVISIO_INSTALL_PARALLELISM.
	EnvPrefix = "PROVISIO"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the provisio configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	return configDirWith(runtime.GOOS, os.Getenv)
}

func configDirWith(goos string, getenv func(string) string) (string, error) {
	var configDir string

	switch goos {
	case "windows":
		configDir = getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading. Precedence, lowest
// first: defaults, the CUE file, PROVISIO_* environment variables.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("repository_dir", defaults.RepositoryDir)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("install.parallelism", defaults.Install.Parallelism)
	v.SetDefault("install.state_file", defaults.Install.StateFile)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'provisio config show --defaults' to see the default configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = resolvedPath

	// Environment overrides bypass the CUE schema.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check the PROVISIO_* environment variables").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, nil
}

// resolveConfigPath returns the file to load: the explicit path, else the
// user config directory, else ./config.cue. No file at all is not an error.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'provisio config init' to create a configuration file").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(cuePath) {
		return cuePath, nil
	}
	if localCuePath := ConfigFileName + "." + ConfigFileExt; fileExists(localCuePath) {
		return localCuePath, nil
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Note: This uses manual CUE parsing instead of cueutil.ParseAndDecode because
// the config decodes to map[string]any for Viper, every field is optional,
// and the result is merged rather than returned.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to dir, or to ConfigDir
// when dir is empty. An existing file is left untouched and reported with
// created set to false.
func CreateDefaultConfig(dir string) (path string, created bool, err error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(cfgPath) {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// provisio configuration file.\n")
	fmt.Fprintf(&sb, "// Every field may be overridden with %s_<FIELD>, e.g. %s_INSTALL_PARALLELISM.\n\n", EnvPrefix, EnvPrefix)

	if cfg.RepositoryDir != "" {
		fmt.Fprintf(&sb, "repository_dir: %q\n", cfg.RepositoryDir)
	} else {
		sb.WriteString("// repository_dir: \"~/.provisio/repository\"\n")
	}
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	sb.WriteString("\noutput: {\n")
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Output.Format)
	sb.WriteString("}\n")

	sb.WriteString("\ninstall: {\n")
	fmt.Fprintf(&sb, "\tparallelism: %d\n", cfg.Install.Parallelism)
	fmt.Fprintf(&sb, "\tstate_file: %q\n", cfg.Install.StateFile)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
