// SPDX-License-Identifier: MPL-2.0

// Package plugin provides the post-install plugins shipped with provisio.
// Feature-packs request them by name in their descriptor.
package plugin

import "github.com/provisio/provisio/internal/provision"

// Defaults returns the built-in plugins in the order they run.
func Defaults(opts ...ScriptsOption) []provision.Plugin {
	return []provision.Plugin{NewConfigs(), NewScripts(opts...)}
}
