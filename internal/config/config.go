// Package config manages codewell's on-disk state under the hidden project
// subdirectory (.codewell/): bundle definitions, hidden-file manifests, and
// the legacy semantic-cache snapshot, plus the project-root ignore and
// tool-discovery manifests.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	codewellerrors "github.com/codewell/codewell/internal/errors"
)

// Config is the bundle-definitions file (config.json): manual bundle names
// mapped to the glob patterns that resolve them.
type Config struct {
	Bundles map[string][]string `json:"bundles"`
}

// NewConfig returns an empty configuration with no manual bundles defined.
func NewConfig() *Config {
	return &Config{Bundles: make(map[string][]string)}
}

// Load reads the bundle-definitions config for a project. A missing file is
// not an error; it returns a fresh empty Config.
func Load(projectRoot string) (*Config, error) {
	path := ConfigPath(projectRoot)
	if !fileExists(path) {
		return NewConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, codewellerrors.ConfigError(fmt.Sprintf("failed to read config %s", path), err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, codewellerrors.ConfigError(fmt.Sprintf("failed to parse config %s", path), err)
	}
	if cfg.Bundles == nil {
		cfg.Bundles = make(map[string][]string)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every manual bundle name is non-empty and has at
// least one pattern.
func (c *Config) Validate() error {
	for name, patterns := range c.Bundles {
		if name == "" {
			return codewellerrors.ValidationError("bundle name must not be empty", nil)
		}
		if len(patterns) == 0 {
			return codewellerrors.ValidationError(fmt.Sprintf("bundle %q must declare at least one pattern", name), nil)
		}
	}
	return nil
}

// Save atomically writes the config to config.json, backing up any existing
// file first.
func (c *Config) Save(projectRoot string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := EnsureStateDir(projectRoot); err != nil {
		return codewellerrors.IOError("failed to create state directory", err)
	}

	path := ConfigPath(projectRoot)
	if fileExists(path) {
		if _, err := backupFile(path); err != nil {
			return codewellerrors.IOError("failed to back up existing config", err)
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return codewellerrors.InternalError("failed to marshal config", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return codewellerrors.IOError(fmt.Sprintf("failed to write config %s", path), err)
	}
	return nil
}

// SetBundle defines or replaces a manual bundle's pattern list.
func (c *Config) SetBundle(name string, patterns []string) {
	if c.Bundles == nil {
		c.Bundles = make(map[string][]string)
	}
	c.Bundles[name] = patterns
}

// RemoveBundle deletes a manual bundle definition. Reports whether it existed.
func (c *Config) RemoveBundle(name string) bool {
	if _, ok := c.Bundles[name]; !ok {
		return false
	}
	delete(c.Bundles, name)
	return true
}
