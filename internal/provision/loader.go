// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"sync"

	"github.com/provisio/provisio/internal/artifact"
	"github.com/provisio/provisio/internal/fpdesc"
	"github.com/provisio/provisio/pkg/coords"
	"github.com/provisio/provisio/pkg/fperr"
	"github.com/provisio/provisio/pkg/fpspec"
)

type (
	// Source is a loaded feature-pack: its description and, when it has content,
	// the directory holding packages/ and plugins/.
	Source struct {
		Spec *fpspec.FeaturePackSpec
		Dir  string
	}

	// Loader provides feature-pack descriptions by coordinate.
	Loader interface {
		Load(ctx context.Context, gav coords.Gav) (*Source, error)
	}

	// MemoryLoader serves feature-packs registered in memory.
	MemoryLoader struct {
		mu      sync.RWMutex
		sources map[coords.Gav]*Source
	}

	// RepositoryLoader resolves feature-packs from an artifact repository and
	// reads their feature-pack.cue descriptor.
	RepositoryLoader struct {
		repo artifact.Repository
	}
)

// NewMemoryLoader creates a loader serving the given specs without content.
func NewMemoryLoader(specs ...*fpspec.FeaturePackSpec) *MemoryLoader {
	m := &MemoryLoader{sources: make(map[coords.Gav]*Source, len(specs))}
	for _, s := range specs {
		m.Add(s, "")
	}
	return m
}

// Add registers spec with its content directory.
func (m *MemoryLoader) Add(spec *fpspec.FeaturePackSpec, dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[spec.Gav()] = &Source{Spec: spec, Dir: dir}
}

// Load implements Loader.
func (m *MemoryLoader) Load(_ context.Context, gav coords.Gav) (*Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[gav]
	if !ok {
		return nil, fperr.Resolutionf("unknown feature-pack %s", gav)
	}
	return src, nil
}

// NewRepositoryLoader creates a loader backed by repo.
func NewRepositoryLoader(repo artifact.Repository) *RepositoryLoader {
	return &RepositoryLoader{repo: repo}
}

// Load implements Loader.
func (r *RepositoryLoader) Load(ctx context.Context, gav coords.Gav) (*Source, error) {
	dir, err := r.repo.Resolve(ctx, gav)
	if err != nil {
		return nil, err
	}
	spec, err := fpdesc.LoadFeaturePack(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load feature-pack %s: %w", gav, err)
	}
	return &Source{Spec: spec, Dir: dir}, nil
}
