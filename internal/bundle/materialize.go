package bundle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codewell/codewell/internal/chunk"
	"github.com/codewell/codewell/internal/fanout"
)

// entryPointNames are conventional entry-file basenames recognized for the
// overview's entry-points summary when a file has no chunk literally named
// "main".
var entryPointNames = map[string]struct{}{
	"main.go":     {},
	"main.py":     {},
	"__main__.py": {},
	"index.js":    {},
	"index.ts":    {},
	"index.tsx":   {},
	"app.py":      {},
}

// Materialize renders a bundle's artifact: an XML-ish tree of named
// elements with attributes and CDATA-wrapped file bodies (spec §4.H/§6).
// Grounded on the teacher's internal/mcp/format.go idiom of building
// deterministic output with a strings.Builder over structured data; the
// wire shape itself is custom, so the writer is hand-built rather than
// driven by encoding/xml's marshaler. Bundle-sync-* and bundle-updated
// events are published around the regeneration (spec §4.K).
func (m *manager) Materialize(ctx context.Context, name string) ([]byte, error) {
	m.publishSync(fanout.KindBundleSyncStarted, name, "")

	artifact, files, err := m.materialize(ctx, name)
	if err != nil {
		m.publishSync(fanout.KindBundleSyncFailed, name, err.Error())
		return nil, err
	}

	m.publishSync(fanout.KindBundleSyncCompleted, name, "")
	if m.fanout != nil {
		m.fanout.Publish(fanout.Event{
			Kind: fanout.KindBundleUpdated,
			BundleUpdated: &fanout.BundleUpdated{
				Name:      name,
				FileCount: len(files),
				SizeBytes: int64(len(artifact)),
			},
		})
	}
	return artifact, nil
}

func (m *manager) materialize(ctx context.Context, name string) ([]byte, []string, error) {
	files, err := m.Resolve(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	meta := discoverProjectMeta(m.projectRoot)
	groups, entries, err := m.buildGroups(ctx, files)
	if err != nil {
		return nil, nil, err
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(&b, "<bundle name=%s generated=%s>\n",
		quoteAttr(name), quoteAttr(time.Now().UTC().Format(time.RFC3339)))

	fmt.Fprintf(&b, "  <project name=%s version=%s description=%s/>\n",
		quoteAttr(meta.Name), quoteAttr(meta.Version), quoteAttr(meta.Description))

	writeOverview(&b, groups, entries)

	b.WriteString("  <files>\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "    <group category=%s>\n", quoteAttr(g.category))
		for _, file := range g.files {
			if err := writeFileElement(&b, ctx, m, file); err != nil {
				return nil, nil, err
			}
		}
		b.WriteString("    </group>\n")
	}
	b.WriteString("  </files>\n")
	b.WriteString("</bundle>\n")

	artifact := []byte(b.String())

	if err := m.markRegenerated(ctx, name, int64(len(artifact))); err != nil {
		return nil, nil, err
	}
	return artifact, files, nil
}

// publishSync broadcasts a bundle-sync-* event; a no-op when no fanout is
// configured (e.g. tests that construct a manager without one).
func (m *manager) publishSync(kind fanout.Kind, name, errMsg string) {
	if m.fanout == nil {
		return
	}
	m.fanout.Publish(fanout.Event{
		Kind:       kind,
		BundleSync: &fanout.BundleSync{Name: name, Error: errMsg},
	})
}

// fileGroup is one category's worth of files for the <files><group> wrapper.
type fileGroup struct {
	category string
	files    []string
}

// buildGroups buckets files by their dominant chunk purpose (the same
// classification signal internal/bundle already groups smart bundles by,
// see smartDefinitions) and returns both the grouping and the subset
// recognized as entry points, for the overview element.
func (m *manager) buildGroups(ctx context.Context, files []string) ([]fileGroup, []string, error) {
	byCategory := make(map[string][]string)
	var entries []string

	for _, file := range files {
		chunks, err := m.store.ChunksByFile(ctx, file)
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: load chunks for %q: %w", file, err)
		}
		category := dominantPurpose(chunks)
		byCategory[category] = append(byCategory[category], file)
		if isEntryPoint(file, chunks) {
			entries = append(entries, file)
		}
	}

	var groups []fileGroup
	for category, names := range byCategory {
		sort.Strings(names)
		groups = append(groups, fileGroup{category: category, files: names})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].category < groups[j].category })
	sort.Strings(entries)
	return groups, entries, nil
}

// dominantPurpose returns the most common non-empty Purpose across chunks,
// breaking ties alphabetically for deterministic output, or "unclassified"
// when none of the chunks carry a purpose.
func dominantPurpose(chunks []*chunk.Chunk) string {
	counts := make(map[string]int)
	for _, c := range chunks {
		if c.Purpose != "" {
			counts[c.Purpose]++
		}
	}
	best := ""
	for purpose, n := range counts {
		if n > counts[best] || (n == counts[best] && (best == "" || purpose < best)) {
			best = purpose
		}
	}
	if best == "" {
		return "unclassified"
	}
	return best
}

// isEntryPoint flags a file as a program entry point when it has a chunk
// literally named "main" or its basename matches a conventional entry-file
// name (main.go, index.js, ...).
func isEntryPoint(file string, chunks []*chunk.Chunk) bool {
	if _, ok := entryPointNames[filepath.Base(file)]; ok {
		return true
	}
	for _, c := range chunks {
		if strings.EqualFold(c.Name, "main") {
			return true
		}
	}
	return false
}

// writeOverview renders the <overview> child summarizing file types (by
// extension) and entry points, per spec §6.
func writeOverview(b *strings.Builder, groups []fileGroup, entries []string) {
	counts := make(map[string]int)
	for _, g := range groups {
		for _, file := range g.files {
			ext := filepath.Ext(file)
			if ext == "" {
				ext = "none"
			}
			counts[ext]++
		}
	}
	var exts []string
	for ext := range counts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	b.WriteString("  <overview>\n")
	for _, ext := range exts {
		fmt.Fprintf(b, "    <filetype ext=%s count=\"%d\"/>\n", quoteAttr(ext), counts[ext])
	}
	for _, entry := range entries {
		fmt.Fprintf(b, "    <entrypoint path=%s/>\n", quoteAttr(entry))
	}
	b.WriteString("  </overview>\n")
}

func writeFileElement(b *strings.Builder, ctx context.Context, m *manager, file string) error {
	chunks, err := m.store.ChunksByFile(ctx, file)
	if err != nil {
		return fmt.Errorf("bundle: load chunks for %q: %w", file, err)
	}
	fullPath := filepath.Join(m.projectRoot, file)
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return fmt.Errorf("bundle: read %q: %w", file, err)
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return fmt.Errorf("bundle: stat %q: %w", file, err)
	}

	fmt.Fprintf(b, "      <file path=%s ext=%s>\n", quoteAttr(file), quoteAttr(filepath.Ext(file)))
	fmt.Fprintf(b, "        <meta size=\"%d\" modified=%s lines=\"%d\"/>\n",
		info.Size(), quoteAttr(info.ModTime().UTC().Format(time.RFC3339)), countLines(content))
	b.WriteString("        <chunks>\n")
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartLine < chunks[j].StartLine })
	for _, c := range chunks {
		fmt.Fprintf(b, "          <chunk name=%s purpose=%s complexity=%s/>\n",
			quoteAttr(c.Name), quoteAttr(c.Purpose), quoteAttr(string(c.Complexity.Level)))
	}
	b.WriteString("        </chunks>\n")
	b.WriteString("        <content><![CDATA[")
	b.WriteString(escapeCDATA(string(content)))
	b.WriteString("]]></content>\n")
	b.WriteString("      </file>\n")
	return nil
}

// countLines counts a file's line count the way a line-oriented editor
// would: a trailing newline doesn't start a new blank line, and empty
// content has zero lines.
func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// markRegenerated clears a manual bundle's dirty flag and records its size
// and timestamp; a smart bundle has no persisted row to update.
func (m *manager) markRegenerated(ctx context.Context, name string, size int64) error {
	if strings.HasPrefix(name, smartBundlePrefix) {
		return nil
	}
	manual, err := m.manualBundles(ctx)
	if err != nil {
		return err
	}
	rec, ok := manual[name]
	if !ok {
		return nil
	}
	rec.SizeBytes = size
	rec.Dirty = false
	rec.GeneratedAt = time.Now().UTC()
	return m.store.UpsertBundle(ctx, rec)
}

// quoteAttr renders an XML attribute value, escaping all five characters
// the XML character set rules require entities for (spec §6): & < > " '.
func quoteAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return "\"" + s + "\""
}

// escapeCDATA splits any "]]>" sequence in content so it can't prematurely
// close the CDATA section.
func escapeCDATA(content string) string {
	return strings.ReplaceAll(content, "]]>", "]]]]><![CDATA[>")
}

// projectMeta is a materialized bundle's project-identity header.
type projectMeta struct {
	Name        string
	Version     string
	Description string
}

// discoverProjectMeta looks for a go.mod or package.json at root and
// extracts a name/version/description from whichever is found; all are
// best-effort and an undiscoverable project yields the root's directory
// name with nothing else, per spec §3 ("version if discoverable"). go.mod
// has no description concept, so that field is only ever populated from
// package.json.
func discoverProjectMeta(root string) projectMeta {
	if meta, ok := fromGoMod(root); ok {
		return meta
	}
	if meta, ok := fromPackageJSON(root); ok {
		return meta
	}
	return projectMeta{Name: filepath.Base(root)}
}

func fromGoMod(root string) (projectMeta, bool) {
	f, err := os.Open(filepath.Join(root, "go.mod"))
	if err != nil {
		return projectMeta{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			return projectMeta{Name: strings.TrimSpace(strings.TrimPrefix(line, "module "))}, true
		}
	}
	return projectMeta{}, false
}

func fromPackageJSON(root string) (projectMeta, bool) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return projectMeta{}, false
	}
	var pkg struct {
		Name        string `json:"name"`
		Version     string `json:"version"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Name == "" {
		return projectMeta{}, false
	}
	return projectMeta{Name: pkg.Name, Version: pkg.Version, Description: pkg.Description}, true
}
