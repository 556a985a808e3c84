package config

import (
	"os"
	"path/filepath"
)

// StateDirName is the hidden project subdirectory holding the store and
// generated state. File events under this directory are suppressed by the
// walker to avoid feedback loops (see internal/walker).
const StateDirName = ".codewell"

// IgnoreManifestName is the project-root ignore manifest: one pattern per
// line, '#' begins a comment.
const IgnoreManifestName = ".codewellignore"

// ToolManifestName is the project-root tool-discovery manifest naming the
// command to spawn the tool server with, working directory set to the
// project.
const ToolManifestName = ".codewell-tool.json"

// StateDir returns the hidden state directory for a project root.
func StateDir(projectRoot string) string {
	return filepath.Join(projectRoot, StateDirName)
}

// BundlesDBPath returns the path to the embedded relational store.
func BundlesDBPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), "bundles.db")
}

// ConfigPath returns the path to the bundle-definitions config file.
func ConfigPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), "config.json")
}

// HiddenFilesPath returns the path to the hidden-files manifest.
func HiddenFilesPath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), "hidden-files.json")
}

// SemanticCachePath returns the path to the legacy/optional analysis
// snapshot.
func SemanticCachePath(projectRoot string) string {
	return filepath.Join(StateDir(projectRoot), "semantic-cache.json")
}

// IgnoreManifestPath returns the path to the project-root ignore manifest.
func IgnoreManifestPath(projectRoot string) string {
	return filepath.Join(projectRoot, IgnoreManifestName)
}

// ToolManifestPath returns the path to the project-root tool-discovery
// manifest.
func ToolManifestPath(projectRoot string) string {
	return filepath.Join(projectRoot, ToolManifestName)
}

// EnsureStateDir creates the hidden state directory if it doesn't exist.
func EnsureStateDir(projectRoot string) error {
	return os.MkdirAll(StateDir(projectRoot), 0o755)
}

// FindProjectRoot finds the project root by walking up from startDir looking
// for a .git directory or an existing state directory.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if dirExists(StateDir(currentDir)) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
