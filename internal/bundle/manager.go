package bundle

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/codewell/codewell/internal/chunk"
	"github.com/codewell/codewell/internal/fanout"
	"github.com/codewell/codewell/internal/store"
)

// manager is the default Manager, grounded on the teacher's discipline of
// deriving views over the store rather than persisting derived state (see
// internal/index/coordinator.go's scanner/store/search-engine separation):
// a smart bundle's membership is recomputed from the chunks table on every
// call, never cached.
type manager struct {
	store       store.Store
	projectRoot string
	fanout      fanout.Fanout // nil is valid: sync/update events are then skipped
}

// New builds a bundle manager over a store and the project's root path
// (needed to read a file's raw content when materializing). fan may be nil,
// in which case Materialize never publishes bundle-sync-*/bundle-updated
// events (useful for tests with no live-update subscriber).
func New(s store.Store, projectRoot string, fan fanout.Fanout) Manager {
	return &manager{store: s, projectRoot: projectRoot, fanout: fan}
}

// ensureMaster creates the master bundle if the store doesn't have one yet
// (spec §3's invariant: "master" is always a manual bundle matching
// everything).
func (m *manager) ensureMaster(ctx context.Context, manual map[string]*store.BundleRecord) error {
	if _, ok := manual[MasterBundleName]; ok {
		return nil
	}
	rec := &store.BundleRecord{
		Name:        MasterBundleName,
		Patterns:    []string{"**"},
		Dirty:       true,
		GeneratedAt: time.Time{},
	}
	if err := m.store.UpsertBundle(ctx, rec); err != nil {
		return fmt.Errorf("bundle: create master bundle: %w", err)
	}
	manual[MasterBundleName] = rec
	return nil
}

func (m *manager) manualBundles(ctx context.Context) (map[string]*store.BundleRecord, error) {
	records, err := m.store.AllBundles(ctx)
	if err != nil {
		return nil, fmt.Errorf("bundle: list manual bundles: %w", err)
	}
	byName := make(map[string]*store.BundleRecord, len(records)+1)
	for _, r := range records {
		byName[r.Name] = r
	}
	if err := m.ensureMaster(ctx, byName); err != nil {
		return nil, err
	}
	return byName, nil
}

// fileChunks returns every file currently represented in the chunks table,
// keyed by path, along with that file's chunks. The map is unordered;
// callers sort where they need a stable order.
func (m *manager) fileChunks(ctx context.Context) (map[string][]*chunk.Chunk, error) {
	all, err := m.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("bundle: list chunks: %w", err)
	}
	byFile := make(map[string][]*chunk.Chunk)
	for _, c := range all {
		byFile[c.File] = append(byFile[c.File], c)
	}
	return byFile, nil
}

func (m *manager) List(ctx context.Context) ([]Summary, error) {
	manual, err := m.manualBundles(ctx)
	if err != nil {
		return nil, err
	}
	byFile, err := m.fileChunks(ctx)
	if err != nil {
		return nil, err
	}

	var summaries []Summary
	for _, rec := range manual {
		files := matchManual(rec.Patterns, byFile)
		summaries = append(summaries, Summary{
			Name:        rec.Name,
			Manual:      true,
			Patterns:    rec.Patterns,
			FileCount:   len(files),
			SizeBytes:   rec.SizeBytes,
			Dirty:       rec.Dirty,
			GeneratedAt: rec.GeneratedAt,
		})
	}

	for _, def := range smartDefinitions(byFile) {
		files := def.resolve(byFile)
		if len(files) == 0 {
			continue // a smart bundle with zero resolved files is omitted (spec §4.H)
		}
		summaries = append(summaries, Summary{Name: def.name, Manual: false, FileCount: len(files)})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

func (m *manager) Resolve(ctx context.Context, name string) ([]string, error) {
	byFile, err := m.fileChunks(ctx)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(name, smartBundlePrefix) {
		for _, def := range smartDefinitions(byFile) {
			if def.name == name {
				return def.resolve(byFile), nil
			}
		}
		return nil, fmt.Errorf("bundle: unknown smart bundle %q", name)
	}

	manual, err := m.manualBundles(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := manual[name]
	if !ok {
		return nil, fmt.Errorf("bundle: unknown bundle %q", name)
	}
	return matchManual(rec.Patterns, byFile), nil
}

func (m *manager) NotifyFileChanged(ctx context.Context, path string) error {
	manual, err := m.manualBundles(ctx)
	if err != nil {
		return err
	}
	for _, rec := range manual {
		if !matchesAny(rec.Patterns, path) || rec.Dirty {
			continue
		}
		rec.Dirty = true
		if err := m.store.UpsertBundle(ctx, rec); err != nil {
			return fmt.Errorf("bundle: mark %q dirty: %w", rec.Name, err)
		}
	}
	return nil
}

// matchManual intersects the indexed file set with patterns (any pattern
// match includes the file), sorted for deterministic output.
func matchManual(patterns []string, byFile map[string][]*chunk.Chunk) []string {
	var files []string
	for file := range byFile {
		if matchesAny(patterns, file) {
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if matchGlob(p, path) {
			return true
		}
	}
	return false
}

// smartDef is one discovered smart-bundle definition (spec §4.H): either a
// purpose selector or a syntax-kind selector.
type smartDef struct {
	name    string
	purpose string // set for purpose-selector bundles
	kind    string // set for kind-selector bundles
}

func (d smartDef) resolve(byFile map[string][]*chunk.Chunk) []string {
	var files []string
	for file, chunks := range byFile {
		for _, c := range chunks {
			if d.purpose != "" && c.Purpose == d.purpose {
				files = append(files, file)
				break
			}
			if d.kind != "" && string(c.SyntaxKind) == d.kind {
				files = append(files, file)
				break
			}
		}
	}
	sort.Strings(files)
	return files
}

// smartDefinitions discovers every distinct non-empty purpose and syntax
// kind across the indexed chunks (spec §4.H).
func smartDefinitions(byFile map[string][]*chunk.Chunk) []smartDef {
	purposes := map[string]struct{}{}
	kinds := map[string]struct{}{}
	for _, chunks := range byFile {
		for _, c := range chunks {
			if c.Purpose != "" {
				purposes[c.Purpose] = struct{}{}
			}
			if c.SyntaxKind != "" {
				kinds[string(c.SyntaxKind)] = struct{}{}
			}
		}
	}

	var defs []smartDef
	for p := range purposes {
		defs = append(defs, smartDef{name: smartBundlePrefix + slugify(p), purpose: p})
	}
	for k := range kinds {
		defs = append(defs, smartDef{name: smartBundleKindPrefix + slugify(k), kind: k})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].name < defs[j].name })
	return defs
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases s and collapses any run of non-alphanumeric characters
// into a single hyphen, trimming leading/trailing hyphens.
func slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}
