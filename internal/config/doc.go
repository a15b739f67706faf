// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/provisio/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/provisio/config.cue on macOS, %APPDATA%\provisio\config.cue
// on Windows), falling back to ./config.cue. It selects the local feature-pack repository,
// the log level, the state output format and installation settings. PROVISIO_* environment
// variables override file values.
//
// Configuration validation is performed against a CUE schema (config_schema.cue) to ensure
// type safety and provide clear error messages for invalid configurations.
package config
