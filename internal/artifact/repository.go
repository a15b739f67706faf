// SPDX-License-Identifier: MPL-2.0

// Package artifact stores and resolves feature-pack content by coordinate.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/provisio/provisio/internal/fsutil"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fperr"
)

const (
	// RepositoryPathEnv overrides the default repository location.
	RepositoryPathEnv = "PROVISIO_REPOSITORY"

	// DefaultRepositoryDir is the repository directory within ~/.provisio.
	DefaultRepositoryDir = "repository"
)

var (
	// ErrNotFound is wrapped when a repository has no artifact for a coordinate.
	ErrNotFound = errors.New("artifact not found")
	// ErrExists is wrapped when a deploy would overwrite a stored artifact.
	ErrExists = errors.New("artifact already exists")
)

type (
	// Repository resolves feature-pack coordinates to content directories.
	// Every error returned is an *fperr.ArtifactError.
	Repository interface {
		// Resolve returns the directory holding the content of gav.
		Resolve(ctx context.Context, gav coords.Gav) (string, error)
		// Install stores the content of dir as gav, replacing any stored copy.
		Install(ctx context.Context, gav coords.Gav, dir string) error
		// Deploy stores the content of dir as gav and refuses to overwrite.
		Deploy(ctx context.Context, gav coords.Gav, dir string) error
		// HighestVersion returns the highest stored version of ga whose leading
		// dot-separated segments equal prefix. An empty prefix matches any version.
		HighestVersion(ctx context.Context, ga coords.Ga, prefix string) (string, error)
	}

	// LocalRepository is a directory tree laid out as
	// root/<group with dots as slashes>/<artifact>/<version>.
	LocalRepository struct {
		root string
	}
)

// DefaultRoot returns the default repository directory.
// It checks PROVISIO_REPOSITORY first, then falls back to ~/.provisio/repository.
func DefaultRoot() (string, error) {
	return DefaultRootWith(os.Getenv)
}

// DefaultRootWith is DefaultRoot with an injectable environment lookup.
func DefaultRootWith(getenv func(string) string) (string, error) {
	if envPath := getenv(RepositoryPathEnv); envPath != "" {
		return envPath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".provisio", DefaultRepositoryDir), nil
}

// NewLocalRepository returns a repository rooted at root. The directory is
// created on the first write.
func NewLocalRepository(root string) *LocalRepository {
	return &LocalRepository{root: root}
}

// Root returns the repository directory.
func (r *LocalRepository) Root() string { return r.root }

// Path returns where gav is stored, whether or not it exists.
func (r *LocalRepository) Path(gav coords.Gav) string {
	return filepath.Join(r.gaPath(gav.Ga()), gav.Version)
}

func (r *LocalRepository) gaPath(ga coords.Ga) string {
	return filepath.Join(r.root, filepath.FromSlash(strings.ReplaceAll(ga.Group, ".", "/")), ga.Artifact)
}

// Resolve implements Repository.
func (r *LocalRepository) Resolve(ctx context.Context, gav coords.Gav) (string, error) {
	if err := check(ctx, "resolve", gav); err != nil {
		return "", err
	}
	path := r.Path(gav)
	ok, err := fsutil.IsDir(path)
	if err != nil {
		return "", opError("resolve", gav, err)
	}
	if !ok {
		return "", opError("resolve", gav, ErrNotFound)
	}
	return path, nil
}

// Install implements Repository.
func (r *LocalRepository) Install(ctx context.Context, gav coords.Gav, dir string) error {
	if err := check(ctx, "install", gav); err != nil {
		return err
	}
	return r.store("install", gav, dir)
}

// Deploy implements Repository.
func (r *LocalRepository) Deploy(ctx context.Context, gav coords.Gav, dir string) error {
	if err := check(ctx, "deploy", gav); err != nil {
		return err
	}
	exists, err := fsutil.IsDir(r.Path(gav))
	if err != nil {
		return opError("deploy", gav, err)
	}
	if exists {
		return opError("deploy", gav, ErrExists)
	}
	return r.store("deploy", gav, dir)
}

// store copies dir next to the target and swaps it in, so a failed copy leaves
// the stored artifact untouched.
func (r *LocalRepository) store(op string, gav coords.Gav, dir string) error {
	ok, err := fsutil.IsDir(dir)
	if err != nil {
		return opError(op, gav, err)
	}
	if !ok {
		return opError(op, gav, fmt.Errorf("%s is not a directory", dir))
	}

	target := r.Path(gav)
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return opError(op, gav, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+gav.Version+"-*")
	if err != nil {
		return opError(op, gav, err)
	}
	defer func() { _ = os.RemoveAll(tmp) }() // Best-effort cleanup; a no-op after the rename

	if err := fsutil.CopyDir(dir, tmp); err != nil {
		return opError(op, gav, err)
	}
	if err := os.RemoveAll(target); err != nil {
		return opError(op, gav, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return opError(op, gav, err)
	}
	return nil
}

// HighestVersion implements Repository. Versions that are not semantic
// versions are ignored.
func (r *LocalRepository) HighestVersion(ctx context.Context, ga coords.Ga, prefix string) (string, error) {
	coordsText := ga.String()
	if err := ctx.Err(); err != nil {
		return "", &fperr.ArtifactError{Op: "versions", Coords: coordsText, Err: err}
	}
	if err := ga.Validate(); err != nil {
		return "", &fperr.ArtifactError{Op: "versions", Coords: coordsText, Err: err}
	}

	entries, err := os.ReadDir(r.gaPath(ga))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = ErrNotFound
		}
		return "", &fperr.ArtifactError{Op: "versions", Coords: coordsText, Err: err}
	}

	var best string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		v := e.Name()
		if !semver.IsValid("v"+v) || !MatchesPrefix(v, prefix) {
			continue
		}
		if best == "" || semver.Compare("v"+v, "v"+best) > 0 {
			best = v
		}
	}
	if best == "" {
		return "", &fperr.ArtifactError{Op: "versions", Coords: coordsText, Err: ErrNotFound}
	}
	return best, nil
}

// MatchesPrefix reports whether the leading dot-separated segments of version
// equal prefix. "1.2" matches "1.2" and "1.2.3" but not "1.20".
func MatchesPrefix(version, prefix string) bool {
	if prefix == "" || version == prefix {
		return true
	}
	return strings.HasPrefix(version, prefix+".")
}

func check(ctx context.Context, op string, gav coords.Gav) error {
	if err := ctx.Err(); err != nil {
		return opError(op, gav, err)
	}
	if err := gav.Validate(); err != nil {
		return opError(op, gav, err)
	}
	return nil
}

func opError(op string, gav coords.Gav, err error) error {
	return &fperr.ArtifactError{Op: op, Coords: gav.String(), Err: err}
}
