// SPDX-License-Identifier: MPL-2.0

// Package fpspec describes what a feature-pack provides: its packages, feature
// specs, feature groups, configs and the dependencies it declares itself.
package fpspec
