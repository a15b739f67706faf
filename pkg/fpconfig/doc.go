// SPDX-License-Identifier: MPL-2.0

// Package fpconfig holds the provisioning description: dependency edges between
// feature-packs, the dependency set of a container, config models and the root
// provisioning request.
package fpconfig
