package texture

import (
	"image"
	"sync"
)

// Cache is a concurrency-safe texture cache keyed by file path. Failed
// loads are cached too so a missing file is only reported once.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheEntry
	maxSize int
}

type cacheEntry struct {
	img *image.NRGBA
	err error
}

// NewCache creates a cache that downscales textures larger than maxSize.
// A maxSize of 0 keeps original sizes.
func NewCache(maxSize int) *Cache {
	return &Cache{
		items:   make(map[string]*cacheEntry),
		maxSize: maxSize,
	}
}

// Get loads and caches the texture at path.
func (c *Cache) Get(path string) (*image.NRGBA, error) {
	// Fast path: read lock
	c.mu.RLock()
	if entry, ok := c.items[path]; ok {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	img, err := Load(path)
	if err == nil {
		img = Downscale(img, c.maxSize)
	}

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.items[path]; ok {
		return entry.img, entry.err
	}
	c.items[path] = &cacheEntry{img: img, err: err}
	return img, err
}

// LoadAll loads paths concurrently. The result is index-aligned with paths;
// entries that failed are nil and their errors are returned in errs at the
// same index.
func (c *Cache) LoadAll(paths []string) (imgs []*image.NRGBA, errs []error) {
	imgs = make([]*image.NRGBA, len(paths))
	errs = make([]error, len(paths))

	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			imgs[i], errs[i] = c.Get(p)
		}()
	}
	wg.Wait()
	return imgs, errs
}

// Len returns the number of cached paths, including failures.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge drops every cached texture.
func (c *Cache) Purge() {
	c.mu.Lock()
	clear(c.items)
	c.mu.Unlock()
}
