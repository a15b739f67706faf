// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/provisio/provisio/pkg/coords"
)

// CachingRepository remembers resolved directories and collapses concurrent
// resolutions of the same coordinate into one call to the wrapped repository.
// Writes through the cache invalidate the written coordinate.
type CachingRepository struct {
	inner Repository
	group singleflight.Group

	mu    sync.RWMutex
	cache map[coords.Gav]string
}

// NewCachingRepository wraps inner.
func NewCachingRepository(inner Repository) *CachingRepository {
	return &CachingRepository{inner: inner, cache: make(map[coords.Gav]string)}
}

// Resolve implements Repository.
func (c *CachingRepository) Resolve(ctx context.Context, gav coords.Gav) (string, error) {
	c.mu.RLock()
	dir, ok := c.cache[gav]
	c.mu.RUnlock()
	if ok {
		return dir, nil
	}

	v, err, _ := c.group.Do(gav.String(), func() (any, error) {
		dir, err := c.inner.Resolve(ctx, gav)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.cache[gav] = dir
		c.mu.Unlock()
		return dir, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Install implements Repository.
func (c *CachingRepository) Install(ctx context.Context, gav coords.Gav, dir string) error {
	defer c.forget(gav)
	return c.inner.Install(ctx, gav, dir)
}

// Deploy implements Repository.
func (c *CachingRepository) Deploy(ctx context.Context, gav coords.Gav, dir string) error {
	defer c.forget(gav)
	return c.inner.Deploy(ctx, gav, dir)
}

// HighestVersion implements Repository. Version lookups are not cached.
func (c *CachingRepository) HighestVersion(ctx context.Context, ga coords.Ga, prefix string) (string, error) {
	return c.inner.HighestVersion(ctx, ga, prefix)
}

func (c *CachingRepository) forget(gav coords.Gav) {
	c.mu.Lock()
	delete(c.cache, gav)
	c.mu.Unlock()
}
