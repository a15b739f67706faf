// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that fail the test on error,
// reducing boilerplate around fixture files and feature-pack directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/provisio/provisio/internal/fpdesc"
)

// MustWriteFile writes content to path, creating parent directories.
// The test fails immediately if either step fails.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustReadFile returns the content of path.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// FeaturePackDir creates a feature-pack directory in a fresh temp dir.
// files maps slash-separated paths relative to the directory to their content,
// for example "packages/core/content/lib/core.jar".
func FeaturePackDir(t testing.TB, descriptor string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	MustWriteFile(t, filepath.Join(dir, fpdesc.FeaturePackFile), descriptor)
	for name, content := range files {
		MustWriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return dir
}
