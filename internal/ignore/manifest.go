package ignore

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	codewellerrors "github.com/codewell/codewell/internal/errors"
)

// LoadManifest reads one pattern per line from a project's ignore manifest
// (.codewellignore). Blank lines and lines starting with '#' are skipped.
// A missing file is not an error; it yields an empty pattern list.
func LoadManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, codewellerrors.IOError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer func() { _ = f.Close() }()

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
