package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	codewellerrors "github.com/codewell/codewell/internal/errors"
)

// DefaultIgnoreManifest is the starter ignore manifest written by `init`.
// One pattern per line; '#' begins a comment.
const DefaultIgnoreManifest = `# codewell ignore patterns
node_modules/
.git/
vendor/
__pycache__/
dist/
build/
*.min.js
*.min.css
` + StateDirName + `/
`

// ToolManifest names the command to spawn the tool server with, working
// directory set to the project. Consumed by AI-agent desktop clients for
// tool discovery.
type ToolManifest struct {
	Command   string            `json:"command"`
	Args      []string          `json:"args"`
	Cwd       string            `json:"cwd"`
	Env       map[string]string `json:"env,omitempty"`
	Transport string            `json:"transport"`
}

// WriteDefaultIgnoreManifest writes the starter ignore manifest to the
// project root, unless one already exists.
func WriteDefaultIgnoreManifest(projectRoot string) error {
	path := IgnoreManifestPath(projectRoot)
	if fileExists(path) {
		return nil
	}
	if err := os.WriteFile(path, []byte(DefaultIgnoreManifest), 0o644); err != nil {
		return codewellerrors.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// LoadIgnoreManifest reads the project's .codewellignore and returns its
// patterns, skipping blank lines and '#' comments. Returns an empty slice,
// not an error, when no manifest exists yet.
func LoadIgnoreManifest(projectRoot string) ([]string, error) {
	path := IgnoreManifestPath(projectRoot)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, codewellerrors.IOError(fmt.Sprintf("failed to read %s", path), err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, codewellerrors.IOError(fmt.Sprintf("failed to read %s", path), err)
	}
	return patterns, nil
}

// WriteToolManifest writes the tool-discovery manifest naming the current
// executable as the command to spawn for the `mcp` subcommand.
func WriteToolManifest(projectRoot string) error {
	exe, err := os.Executable()
	if err != nil {
		exe = "codewell"
	} else if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	manifest := ToolManifest{
		Command:   exe,
		Args:      []string{"mcp"},
		Cwd:       projectRoot,
		Transport: "stdio",
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return codewellerrors.InternalError("failed to marshal tool manifest", err)
	}

	path := ToolManifestPath(projectRoot)
	if err := writeFileAtomic(path, data); err != nil {
		return codewellerrors.IOError(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
