// SPDX-License-Identifier: MPL-2.0

// Package provision resolves a provisioning request into a ProvisionedState and
// installs it.
//
// Resolution walks the feature-pack dependency graph breadth-first from the
// request, computes the package set of every feature-pack from the edges that
// reference it, merges the configs contributed by feature-packs and by the
// request, and orders the result:
//
//	p := provision.New(loader, provision.WithLogger(logger))
//	st, err := p.Resolve(ctx, request)
//	// st.FeaturePacks list dependencies first, st.Configs are in emission order
//
// Install stages the selected package content of every feature-pack in
// parallel, merges the staged trees into the target directory, writes the
// state file and runs the post-install plugins the feature-packs ask for.
package provision
