// SPDX-License-Identifier: MPL-2.0

// Package feature defines feature identity, feature specs and the feature
// configuration tree: feature declarations, group references and the
// include/exclude filters that narrow them.
//
// Values are assembled through builders that record the first error and are
// treated as frozen once built. Contradictory include/exclude decisions are
// description errors raised at the moment they are recorded.
package feature
