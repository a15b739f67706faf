// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"

	"github.com/provisio/provisio/internal/issue"
	"github.com/provisio/provisio/pkg/fperr"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })

		Version = "dev"
		if got, want := getVersionString(), "dev (built from source)"; got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"description", fperr.Descriptionf("bad descriptor"), ExitDescription},
		{"resolution", fperr.Resolutionf("no such origin"), ExitResolution},
		{"artifact", &fperr.ArtifactError{Op: "resolve", Coords: "g:a:1", Err: errors.New("boom")}, ExitArtifact},
		{"wrapped in actionable error", issue.WrapWithContext(fperr.Resolutionf("cyclic"), "resolve", "p.cue"), ExitResolution},
		{"other", errors.New("plain"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDisplayError(t *testing.T) {
	t.Parallel()

	cause := fperr.Resolutionf("feature-pack org.example:web:1.0.0 has no dependency with origin base")
	err := issue.NewErrorContext().
		WithOperation("install").
		WithResource("./server").
		WithSuggestion("Run 'provisio resolve' first").
		Wrap(cause).
		BuildError()

	var quiet bytes.Buffer
	displayError(&quiet, fang.Styles{}, &ExitError{Code: ExitResolution, Err: err})
	out := quiet.String()
	for _, want := range []string{"Error:", "failed to install", "./server", "Run 'provisio resolve' first"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Error chain:") {
		t.Errorf("non-verbose output shows the error chain:\n%s", out)
	}

	var verbose bytes.Buffer
	displayError(&verbose, fang.Styles{}, &ExitError{Code: ExitResolution, Err: err, Verbose: true})
	if !strings.Contains(verbose.String(), "Error chain:") {
		t.Errorf("verbose output missing the error chain:\n%s", verbose.String())
	}
}

func TestFormatErrorForDisplay_VerboseHint(t *testing.T) {
	t.Parallel()

	cause := fperr.Resolutionf("feature-pack org.example:web:1.0.0 has no dependency with origin base")
	tests := []struct {
		name     string
		err      error
		verbose  bool
		wantHint bool
	}{
		{"catalogued failure", issue.WrapWithOperation(cause, "resolve provisioning"), false, true},
		{"verbose run", issue.WrapWithOperation(cause, "resolve provisioning"), true, false},
		{"suggestions present", issue.NewErrorContext().WithOperation("resolve provisioning").
			WithSuggestions("Add the origin to the dependencies").Wrap(cause).BuildError(), false, false},
		{"uncatalogued cause", issue.WrapWithOperation(errors.New("boom"), "install"), false, false},
		{"plain error", cause, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatErrorForDisplay(tt.err, tt.verbose)
			if strings.Contains(got, verboseHint) != tt.wantHint {
				t.Errorf("formatErrorForDisplay() = %q, want hint %v", got, tt.wantHint)
			}
		})
	}
}
