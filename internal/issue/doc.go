// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation steps. Each kind of provisioning failure maps onto an Issue, a
// Markdown guide rendered with glamour when the CLI runs with --verbose.
package issue
