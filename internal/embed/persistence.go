package embed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadCacheSnapshot reads a previously-flushed embedding cache from path
// under the same exclusive FileLock that FlushCacheSnapshot takes (so a concurrent flush from another codewell
// process can't be read mid-write) and seeds c with its entries. A
// missing file is not an error — there's simply nothing to warm from yet.
func LoadCacheSnapshot(c *CachedEmbedder, path string) error {
	lock := NewFileLock(filepath.Dir(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("embed: lock cache snapshot: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("embed: read cache snapshot: %w", err)
	}

	var entries map[string][]float32
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("embed: decode cache snapshot: %w", err)
	}

	for key, vec := range entries {
		c.cache.Add(key, vec)
	}
	return nil
}

// FlushCacheSnapshot writes the cache's current contents to path under an
// exclusive FileLock, via a temp-file-then-rename so a reader never
// observes a partial write.
func FlushCacheSnapshot(c *CachedEmbedder, path string) error {
	lock := NewFileLock(filepath.Dir(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("embed: lock cache snapshot: %w", err)
	}
	defer lock.Unlock()

	entries := make(map[string][]float32, len(c.cache.Keys()))
	for _, key := range c.cache.Keys() {
		if vec, ok := c.cache.Peek(key); ok {
			entries[key] = vec
		}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("embed: encode cache snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("embed: create cache snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".embed-cache-*.tmp")
	if err != nil {
		return fmt.Errorf("embed: create temp cache snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("embed: write cache snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("embed: sync cache snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("embed: close cache snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("embed: rename cache snapshot: %w", err)
	}

	return nil
}
