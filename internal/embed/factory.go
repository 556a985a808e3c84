package embed

import "path/filepath"

// NewDefaultEmbedder builds the module's default embedder: a deterministic,
// dependency-free StaticEmbedder (spec §4.F) wrapped with an LRU cache.
// cacheSize <= 0 uses DefaultEmbeddingCacheSize.
func NewDefaultEmbedder(cacheSize int) *CachedEmbedder {
	return NewCachedEmbedder(NewStaticEmbedder(StaticDimensions), cacheSize)
}

// CacheSnapshotPath returns the conventional on-disk location for a
// project's persisted embedding cache, inside its state directory.
func CacheSnapshotPath(stateDir string) string {
	return filepath.Join(stateDir, "embedding-cache.json")
}
