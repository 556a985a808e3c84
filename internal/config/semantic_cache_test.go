package config

import "testing"

func TestLoadSemanticCache_MissingFileReturnsNil(t *testing.T) {
	dir := t.TempDir()

	sc, err := LoadSemanticCache(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc != nil {
		t.Errorf("expected nil for missing cache, got %+v", sc)
	}
}

func TestSemanticCache_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	sc := &SemanticCache{
		FileCount:  12,
		ChunkCount: 48,
		Purposes:   map[string]int{"api-handler": 3},
	}
	if err := sc.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadSemanticCache(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.FileCount != 12 || loaded.ChunkCount != 48 {
		t.Errorf("unexpected counts: %+v", loaded)
	}
	if loaded.Purposes["api-handler"] != 3 {
		t.Errorf("unexpected purposes: %v", loaded.Purposes)
	}
}
