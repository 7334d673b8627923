package scanner

import (
	"sync"
	"time"
)

type cacheEntry struct {
	fingerprint time.Time
	checkedAt   time.Time
}

// FileCache tracks per-file modification fingerprints so unchanged
// files are not re-extracted on subsequent scans. An entry is evidence
// that a file was already scanned only while its stored fingerprint
// still equals the file's current mtime.
type FileCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewFileCache creates an empty cache.
func NewFileCache() *FileCache {
	return &FileCache{entries: make(map[string]cacheEntry)}
}

// ShouldSkip reports whether the file was already scanned and its
// fingerprint is unchanged. Any mismatch forces re-extraction.
func (c *FileCache) ShouldSkip(path string, fingerprint time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	return ok && entry.fingerprint.Equal(fingerprint)
}

// Record stores the file's fingerprint after a successful extraction.
func (c *FileCache) Record(path string, fingerprint time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = cacheEntry{
		fingerprint: fingerprint,
		checkedAt:   time.Now(),
	}
}

// Invalidate removes the entry unconditionally. Idempotent.
func (c *FileCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Clear drops all entries.
func (c *FileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
