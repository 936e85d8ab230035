package index

import (
	"os"
	"time"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/stubgen/internal/parsers"
)

// DefaultCacheCapacity bounds the number of parsed files kept in memory.
const DefaultCacheCapacity = 10_000

type cacheEntry struct {
	modTime time.Time
	size    int64
	symbols *parsers.FileSymbols
}

// ParseCache memoizes parsed files between runs of a long-lived process
// (watch mode). Entries are keyed by path and are only reused while the
// file's modification time and size are unchanged.
type ParseCache struct {
	cache otter.Cache[string, cacheEntry]
}

// NewParseCache creates a cache holding at most capacity files.
func NewParseCache(capacity int) (*ParseCache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	cache, err := otter.MustBuilder[string, cacheEntry](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, err
	}
	return &ParseCache{cache: cache}, nil
}

// Get returns the cached symbols for path if the file is unchanged on disk.
func (c *ParseCache) Get(path string, info os.FileInfo) (*parsers.FileSymbols, bool) {
	if c == nil {
		return nil, false
	}
	entry, ok := c.cache.Get(path)
	if !ok {
		return nil, false
	}
	if !entry.modTime.Equal(info.ModTime()) || entry.size != info.Size() {
		c.cache.Delete(path)
		return nil, false
	}
	return entry.symbols, true
}

// Put stores the parse result for path.
func (c *ParseCache) Put(path string, info os.FileInfo, symbols *parsers.FileSymbols) {
	if c == nil {
		return
	}
	c.cache.Set(path, cacheEntry{
		modTime: info.ModTime(),
		size:    info.Size(),
		symbols: symbols,
	})
}

// Invalidate drops the entries for the given paths.
func (c *ParseCache) Invalidate(paths ...string) {
	if c == nil {
		return
	}
	for _, p := range paths {
		c.cache.Delete(p)
	}
}

// Hits returns the number of cache hits so far.
func (c *ParseCache) Hits() int64 {
	if c == nil {
		return 0
	}
	return c.cache.Stats().Hits()
}

// Len returns the number of cached files.
func (c *ParseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Size()
}

// Close releases the cache.
func (c *ParseCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
