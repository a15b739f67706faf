// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"

	"github.com/provisio/provisio/pkg/fperr"
)

// ValidationError reports a document that does not satisfy its schema. It
// matches fperr.ErrDescription.
type ValidationError struct {
	// FilePath is the document being decoded.
	FilePath string
	// Problems are the individual violations, each prefixed with its JSON path
	// (e.g. "features[0].params.id: incomplete value string").
	Problems []string
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return e.FilePath + ": invalid document"
	case 1:
		return fmt.Sprintf("%s: %s", e.FilePath, e.Problems[0])
	default:
		return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(e.Problems, "\n  "))
	}
}

// Unwrap returns fperr.ErrDescription.
func (e *ValidationError) Unwrap() error { return fperr.ErrDescription }

// FormatError converts a CUE error into a *ValidationError with one problem per
// CUE error, each in the form <json-path>: <message>. A non-CUE error is
// wrapped with the file path.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	var cueErr cueerrors.Error
	if !errors.As(err, &cueErr) {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	cueErrors := cueerrors.Errors(err)

	problems := make([]string, 0, len(cueErrors))
	for _, e := range cueErrors {
		pathStr := formatPath(cueerrors.Path(e))
		msg := e.Error()

		// CUE sometimes repeats the path in the message.
		if pathStr != "" && strings.HasPrefix(msg, pathStr) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, pathStr), ":"))
		}
		if pathStr != "" {
			msg = pathStr + ": " + msg
		}
		if !slices.Contains(problems, msg) {
			problems = append(problems, msg)
		}
	}
	return &ValidationError{FilePath: filePath, Problems: problems}
}

// formatPath renders a CUE error path such as ["features", "0", "spec"] as
// "features[0].spec".
func formatPath(path []string) string {
	var result strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			result.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			result.WriteByte('.')
		}
		result.WriteString(part)
	}
	return result.String()
}

func isIndex(part string) bool {
	if part == "" {
		return false
	}
	for _, c := range part {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects data larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return &ValidationError{
			FilePath: filename,
			Problems: []string{fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", len(data), maxSize)},
		}
	}
	return nil
}
