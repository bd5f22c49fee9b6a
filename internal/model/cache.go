package model

import (
	"sync"

	"github.com/i474232898/pm25-forecast/internal/logger"
)

// Cache holds the most recently loaded artifact. It loads lazily on first
// use and reloads only when asked for a different path or after Invalidate.
type Cache struct {
	mu       sync.Mutex
	path     string
	artifact *Artifact
	load     func(string) (*Artifact, error)
}

// NewCache creates an empty cache backed by Load.
func NewCache() *Cache {
	return &Cache{load: Load}
}

var shared = NewCache()

// Shared returns the process-wide cache.
func Shared() *Cache {
	return shared
}

// Get returns the artifact at path, loading it if the cache is empty or
// holds a different path. Failed loads are not cached.
func (c *Cache) Get(path string) (*Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.artifact != nil && c.path == path {
		return c.artifact, nil
	}

	a, err := c.load(path)
	if err != nil {
		return nil, err
	}
	if c.path != "" && c.path != path {
		logger.Infof("model cache: artifact path changed from %s to %s", c.path, path)
	}
	c.path, c.artifact = path, a
	logger.Infof("model cache: loaded artifact %s from %s", a.ID, path)
	return a, nil
}

// Invalidate drops the cached artifact so the next Get reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifact = nil
}
