package config

import (
	"encoding/json"
	"fmt"
	"os"

	codewellerrors "github.com/codewell/codewell/internal/errors"
)

// HiddenFiles holds the global and per-bundle hidden file lists, the user's
// own hide patterns, and any system ignore patterns the user has disabled.
type HiddenFiles struct {
	Global                 []string            `json:"global"`
	PerBundle              map[string][]string `json:"per_bundle"`
	UserPatterns           []string            `json:"user_patterns"`
	DisabledSystemPatterns []string            `json:"disabled_system_patterns"`
}

// NewHiddenFiles returns an empty hidden-files manifest.
func NewHiddenFiles() *HiddenFiles {
	return &HiddenFiles{PerBundle: make(map[string][]string)}
}

// LoadHiddenFiles reads the hidden-files manifest for a project. A missing
// file is not an error; it returns a fresh empty manifest.
func LoadHiddenFiles(projectRoot string) (*HiddenFiles, error) {
	path := HiddenFilesPath(projectRoot)
	if !fileExists(path) {
		return NewHiddenFiles(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, codewellerrors.ConfigError(fmt.Sprintf("failed to read %s", path), err)
	}

	var hf HiddenFiles
	if err := json.Unmarshal(data, &hf); err != nil {
		return nil, codewellerrors.ConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	if hf.PerBundle == nil {
		hf.PerBundle = make(map[string][]string)
	}
	return &hf, nil
}

// Save atomically writes the hidden-files manifest.
func (h *HiddenFiles) Save(projectRoot string) error {
	if err := EnsureStateDir(projectRoot); err != nil {
		return codewellerrors.IOError("failed to create state directory", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return codewellerrors.InternalError("failed to marshal hidden-files manifest", err)
	}

	path := HiddenFilesPath(projectRoot)
	if err := writeFileAtomic(path, data); err != nil {
		return codewellerrors.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// Hide adds a global hide pattern if not already present.
func (h *HiddenFiles) Hide(pattern string) {
	for _, p := range h.Global {
		if p == pattern {
			return
		}
	}
	h.Global = append(h.Global, pattern)
}

// Unhide removes a global hide pattern. Reports whether it was present.
func (h *HiddenFiles) Unhide(pattern string) bool {
	for i, p := range h.Global {
		if p == pattern {
			h.Global = append(h.Global[:i], h.Global[i+1:]...)
			return true
		}
	}
	return false
}

// HideForBundle adds a hide pattern scoped to one bundle.
func (h *HiddenFiles) HideForBundle(bundle, pattern string) {
	if h.PerBundle == nil {
		h.PerBundle = make(map[string][]string)
	}
	for _, p := range h.PerBundle[bundle] {
		if p == pattern {
			return
		}
	}
	h.PerBundle[bundle] = append(h.PerBundle[bundle], pattern)
}
