package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	codewellerrors "github.com/codewell/codewell/internal/errors"
)

// SemanticCache is the legacy/optional last-analysis snapshot. It predates
// the store's projections table and is kept only for tools that read it
// directly; the store is the source of truth for anything it also covers.
type SemanticCache struct {
	GeneratedAt time.Time         `json:"generated_at"`
	FileCount   int               `json:"file_count"`
	ChunkCount  int               `json:"chunk_count"`
	Purposes    map[string]int    `json:"purposes,omitempty"`
	Domains     map[string]int    `json:"domains,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// LoadSemanticCache reads the snapshot if present. A missing file returns
// (nil, nil): the cache is optional.
func LoadSemanticCache(projectRoot string) (*SemanticCache, error) {
	path := SemanticCachePath(projectRoot)
	if !fileExists(path) {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, codewellerrors.ConfigError(fmt.Sprintf("failed to read %s", path), err)
	}

	var sc SemanticCache
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, codewellerrors.ConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return &sc, nil
}

// Save atomically writes the snapshot.
func (s *SemanticCache) Save(projectRoot string) error {
	if err := EnsureStateDir(projectRoot); err != nil {
		return codewellerrors.IOError("failed to create state directory", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return codewellerrors.InternalError("failed to marshal semantic cache", err)
	}

	path := SemanticCachePath(projectRoot)
	if err := writeFileAtomic(path, data); err != nil {
		return codewellerrors.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
