// SPDX-License-Identifier: MPL-2.0

// Package fperr defines the error kinds reported while provisioning.
//
// Description errors flag malformed or self-contradictory input and are raised as early
// as the conflict can be seen. Resolution errors flag an input that is well formed but
// cannot be satisfied by the feature-pack graph. Artifact errors flag repository I/O
// and are kept apart so callers can special-case storage and network failures.
package fperr

import (
	"errors"
	"fmt"
)

var (
	// ErrDescription is the sentinel matched by every DescriptionError.
	ErrDescription = errors.New("invalid provisioning description")
	// ErrResolution is the sentinel matched by every ResolutionError.
	ErrResolution = errors.New("provisioning resolution failed")
	// ErrArtifact is the sentinel matched by every ArtifactError.
	ErrArtifact = errors.New("artifact repository failure")
)

type (
	// DescriptionError reports malformed or contradictory input.
	DescriptionError struct {
		Msg   string
		Cause error
	}

	// ResolutionError reports an unsatisfiable provisioning graph.
	ResolutionError struct {
		Msg   string
		Cause error
	}

	// ArtifactError reports a repository operation failure.
	ArtifactError struct {
		// Op is the repository operation, e.g. "resolve" or "deploy".
		Op string
		// Coords is the artifact the operation was about.
		Coords string
		Err    error
	}
)

// Descriptionf returns a DescriptionError with a formatted message.
// A %w verb in format records the wrapped error as the cause.
func Descriptionf(format string, args ...any) error {
	wrapped := fmt.Errorf(format, args...)
	return &DescriptionError{Msg: wrapped.Error(), Cause: errors.Unwrap(wrapped)}
}

// Resolutionf returns a ResolutionError with a formatted message.
// A %w verb in format records the wrapped error as the cause.
func Resolutionf(format string, args ...any) error {
	wrapped := fmt.Errorf(format, args...)
	return &ResolutionError{Msg: wrapped.Error(), Cause: errors.Unwrap(wrapped)}
}

func (e *DescriptionError) Error() string { return e.Msg }

// Unwrap exposes the sentinel and the optional cause.
func (e *DescriptionError) Unwrap() []error { return withCause(ErrDescription, e.Cause) }

func (e *ResolutionError) Error() string { return e.Msg }

// Unwrap exposes the sentinel and the optional cause.
func (e *ResolutionError) Unwrap() []error { return withCause(ErrResolution, e.Cause) }

func (e *ArtifactError) Error() string {
	if e.Coords == "" {
		return fmt.Sprintf("artifact %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("artifact %s %s failed: %v", e.Op, e.Coords, e.Err)
}

// Unwrap exposes the sentinel and the underlying error.
func (e *ArtifactError) Unwrap() []error { return withCause(ErrArtifact, e.Err) }

// IsDescription reports whether err is a description error.
func IsDescription(err error) bool { return errors.Is(err, ErrDescription) }

// IsResolution reports whether err is a resolution error.
func IsResolution(err error) bool { return errors.Is(err, ErrResolution) }

// IsArtifact reports whether err is an artifact error.
func IsArtifact(err error) bool { return errors.Is(err, ErrArtifact) }

func withCause(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
