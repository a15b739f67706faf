// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/provisio/provisio/pkg/fperr"
)

func TestActionableError_Message(t *testing.T) {
	t.Parallel()

	missing := errors.New("no such file or directory")
	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"bare operation", &ActionableError{Operation: "resolve provisioning"}, "failed to resolve provisioning"},
		{"resource", &ActionableError{Operation: "stage feature-pack", Resource: "org.example:web:1.0.0"},
			"failed to stage feature-pack: org.example:web:1.0.0"},
		{"cause", WrapWithOperation(missing, "read state"), "failed to read state: no such file or directory"},
		{"resource and cause", WrapWithContext(missing, "load feature-pack", "./web"),
			"failed to load feature-pack: ./web: no such file or directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_KeepsCauseKind(t *testing.T) {
	t.Parallel()

	cause := fperr.Resolutionf("feature-pack org.example:web:1.0.0 has no dependency with origin base")

	withOp := WrapWithOperation(cause, "resolve provisioning")
	if withOp.Resource != "" || !errors.Is(withOp, cause) || !fperr.IsResolution(withOp) {
		t.Errorf("WrapWithOperation() = %+v", withOp)
	}
	withCtx := WrapWithContext(cause, "resolve provisioning", "provisioning.cue")
	if withCtx.Resource != "provisioning.cue" || !errors.Is(withCtx, fperr.ErrResolution) {
		t.Errorf("WrapWithContext() = %+v", withCtx)
	}
	if (&ActionableError{Operation: "install"}).Unwrap() != nil {
		t.Error("an error without a cause should unwrap to nil")
	}
	if WrapWithOperation(nil, "resolve") != nil || WrapWithContext(nil, "resolve", "p.cue") != nil {
		t.Error("wrapping a nil error should return nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "suggestions listed as bullets",
			err: NewErrorContext().
				WithOperation("deploy feature-pack").
				WithResource("./web").
				WithSuggestions("Use 'provisio fp install' to replace the stored copy", "Publish a new version").
				Build(),
			contains: []string{"failed to deploy feature-pack: ./web", "• Use 'provisio fp install'", "• Publish a new version"},
		},
		{
			name:     "chain hidden by default",
			err:      WrapWithOperation(errors.New("unexpected token"), "parse provisioning.cue"),
			contains: []string{"failed to parse provisioning.cue: unexpected token"},
			excludes: []string{"Error chain:"},
		},
		{
			name:     "chain shown when verbose",
			err:      WrapWithOperation(WrapWithContext(errors.New("permission denied"), "copy content", "bin/web.sh"), "install"),
			verbose:  true,
			contains: []string{"Error chain:", "1. failed to copy content: bin/web.sh: permission denied", "2. permission denied"},
		},
		{
			name:     "chain follows the cause of a kind error",
			err:      WrapWithOperation(fperr.Descriptionf("reading feature-pack.cue: %w", errors.New("no such file")), "load feature-pack"),
			verbose:  true,
			contains: []string{"1. reading feature-pack.cue: no such file", "2. no such file"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() contains %q:\n%s", s, got)
				}
			}
		})
	}
}

func TestErrorContext(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("./web").Build() != nil || NewErrorContext().BuildError() != nil {
		t.Error("a context without an operation should build nil")
	}

	ctx := NewErrorContext().
		WithOperation("store feature-pack").
		WithResource("./web").
		WithSuggestion("Check the directory permissions")
	first := ctx.Wrap(errors.New("already deployed")).Build()
	second := ctx.WithSuggestions("Retry with 'provisio fp install'").Wrap(errors.New("permission denied")).Build()

	if first.Cause.Error() == second.Cause.Error() {
		t.Error("a reused context should carry each cause")
	}
	if first.Operation != second.Operation || first.Resource != "./web" {
		t.Errorf("a reused context should keep operation and resource: %+v", second)
	}
	if !first.HasSuggestions() || len(second.Suggestions) != 2 {
		t.Errorf("suggestions = %q then %q", first.Suggestions, second.Suggestions)
	}
	if (&ActionableError{Operation: "install"}).HasSuggestions() {
		t.Error("an error without suggestions reports some")
	}

	var ae *ActionableError
	if err := ctx.BuildError(); !errors.As(err, &ae) {
		t.Errorf("BuildError() = %T, want *ActionableError", err)
	}
}

func TestActionableError_IssueId(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want Id
	}{
		{"explicit", NewErrorContext().WithOperation("load configuration").WithIssue(ConfigLoadFailedId).
			Wrap(fperr.Descriptionf("bad field")).Build(), ConfigLoadFailedId},
		{"derived from cause", NewErrorContext().WithOperation("resolve provisioning").
			Wrap(fmt.Errorf("loading: %w", fperr.Resolutionf("ambiguous package"))).Build(), ResolutionFailedId},
		{"unknown cause", WrapWithOperation(errors.New("boom"), "install"), 0},
		{"no cause", &ActionableError{Operation: "install"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.IssueId(); got != tt.want {
				t.Errorf("IssueId() = %d, want %d", got, tt.want)
			}
		})
	}
}
