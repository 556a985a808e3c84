package bundle

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewell/codewell/internal/fanout"
	"github.com/codewell/codewell/internal/store"
)

// normalizeTimestamps masks the generated="..."/modified="..." attributes so
// byte-stability assertions aren't sensitive to the wall clock tick between
// two successive Materialize calls in the same test.
var timestampAttr = regexp.MustCompile(`(generated|modified)="[^"]*"`)

func normalizeTimestamps(s string) string {
	return timestampAttr.ReplaceAllString(s, `$1="STAMP"`)
}

func TestManager_Materialize_ProducesStableBytesForIdenticalInput(t *testing.T) {
	mgr, s, root := newTestManager(t)
	ctx := context.Background()

	writeProjectFile(t, root, "auth/login.go", "package auth\n\nfunc Login() {}\n")
	seedBundleChunk(t, ctx, s, "auth/login.go", "Login", "authentication", "function")

	first, err := mgr.Materialize(ctx, MasterBundleName)
	require.NoError(t, err)
	second, err := mgr.Materialize(ctx, MasterBundleName)
	require.NoError(t, err)
	assert.Equal(t, normalizeTimestamps(string(first)), normalizeTimestamps(string(second)))
}

func TestManager_Materialize_RootCarriesNameAndGenerated(t *testing.T) {
	mgr, s, root := newTestManager(t)
	ctx := context.Background()

	writeProjectFile(t, root, "auth/login.go", "package auth\n\nfunc Login() {}\n")
	seedBundleChunk(t, ctx, s, "auth/login.go", "Login", "authentication", "function")

	artifact, err := mgr.Materialize(ctx, MasterBundleName)
	require.NoError(t, err)

	out := string(artifact)
	assert.Contains(t, out, `<bundle name="master" generated="`)
	_, err = time.Parse(time.RFC3339, extractAttr(t, out, "generated"))
	assert.NoError(t, err)
}

func TestManager_Materialize_ProjectChildCarriesNameVersionDescription(t *testing.T) {
	mgr, s, root := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"),
		[]byte(`{"name":"widgets","version":"1.2.3","description":"a widget factory"}`), 0644))
	writeProjectFile(t, root, "auth/login.go", "package auth\n\nfunc Login() {}\n")
	seedBundleChunk(t, ctx, s, "auth/login.go", "Login", "authentication", "function")

	artifact, err := mgr.Materialize(ctx, MasterBundleName)
	require.NoError(t, err)

	out := string(artifact)
	assert.Contains(t, out, `<project name="widgets" version="1.2.3" description="a widget factory"/>`)
}

func TestManager_Materialize_IncludesOverviewWithFileTypesAndEntryPoints(t *testing.T) {
	mgr, s, root := newTestManager(t)
	ctx := context.Background()

	writeProjectFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeProjectFile(t, root, "auth/login.go", "package auth\n\nfunc Login() {}\n")
	seedBundleChunk(t, ctx, s, "main.go", "main", "utility-function", "function")
	seedBundleChunk(t, ctx, s, "auth/login.go", "Login", "authentication", "function")

	artifact, err := mgr.Materialize(ctx, MasterBundleName)
	require.NoError(t, err)

	out := string(artifact)
	assert.Contains(t, out, "<overview>")
	assert.Contains(t, out, `<filetype ext=".go" count="2"/>`)
	assert.Contains(t, out, `<entrypoint path="main.go"/>`)
	assert.NotContains(t, out, `<entrypoint path="auth/login.go"/>`)
}

func TestManager_Materialize_GroupsFilesByDominantPurpose(t *testing.T) {
	mgr, s, root := newTestManager(t)
	ctx := context.Background()

	writeProjectFile(t, root, "auth/login.go", "package auth\n\nfunc Login() {}\n")
	writeProjectFile(t, root, "ui/widget.go", "package ui\n\nfunc Render() {}\n")
	seedBundleChunk(t, ctx, s, "auth/login.go", "Login", "authentication", "function")
	seedBundleChunk(t, ctx, s, "ui/widget.go", "Render", "ui-component", "function")

	artifact, err := mgr.Materialize(ctx, MasterBundleName)
	require.NoError(t, err)

	out := string(artifact)
	assert.Contains(t, out, `<group category="authentication">`)
	assert.Contains(t, out, `<group category="ui-component">`)
}

func TestManager_Materialize_FileElementCarriesExtAndMeta(t *testing.T) {
	mgr, s, root := newTestManager(t)
	ctx := context.Background()

	writeProjectFile(t, root, "auth/login.go", "package auth\n\nfunc Login() {}\n")
	seedBundleChunk(t, ctx, s, "auth/login.go", "Login", "authentication", "function")

	artifact, err := mgr.Materialize(ctx, MasterBundleName)
	require.NoError(t, err)

	out := string(artifact)
	assert.Contains(t, out, `<file path="auth/login.go" ext=".go">`)
	assert.Regexp(t, `<meta size="\d+" modified="[^"]+" lines="\d+"/>`, out)
	assert.Contains(t, out, `name="Login"`)
	assert.Contains(t, out, `purpose="authentication"`)
	assert.Contains(t, out, "func Login() {}")
}

func TestManager_Materialize_ClearsDirtyFlagAndUpdatesSize(t *testing.T) {
	mgr, s, root := newTestManager(t)
	ctx := context.Background()

	writeProjectFile(t, root, "auth/login.go", "package auth\n")
	seedBundleChunk(t, ctx, s, "auth/login.go", "Login", "authentication", "function")
	require.NoError(t, s.UpsertBundle(ctx, &store.BundleRecord{Name: "auth-only", Patterns: []string{"auth/**"}, Dirty: true}))

	artifact, err := mgr.Materialize(ctx, "auth-only")
	require.NoError(t, err)

	summaries, err := mgr.List(ctx)
	require.NoError(t, err)
	var found bool
	for _, s := range summaries {
		if s.Name == "auth-only" {
			found = true
			assert.False(t, s.Dirty)
			assert.Equal(t, int64(len(artifact)), s.SizeBytes)
		}
	}
	assert.True(t, found)
}

func TestManager_Materialize_PublishesBundleSyncAndUpdatedEvents(t *testing.T) {
	root := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(root, ".codewell", "codewell.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fan := fanout.New()
	mgr := New(s, root, fan)
	ctx := context.Background()

	writeProjectFile(t, root, "auth/login.go", "package auth\n\nfunc Login() {}\n")
	seedBundleChunk(t, ctx, s, "auth/login.go", "Login", "authentication", "function")

	events, cancel := fan.Subscribe(8)
	defer cancel()
	<-events // the subscribe-time status snapshot

	_, err = mgr.Materialize(ctx, MasterBundleName)
	require.NoError(t, err)

	var kinds []fanout.Kind
	for i := 0; i < 3; i++ {
		select {
		case evt := <-events:
			kinds = append(kinds, evt.Kind)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d, got %v so far", i, kinds)
		}
	}
	assert.Equal(t, []fanout.Kind{
		fanout.KindBundleSyncStarted,
		fanout.KindBundleSyncCompleted,
		fanout.KindBundleUpdated,
	}, kinds)
}

func TestQuoteAttr_EscapesAllFiveXMLEntities(t *testing.T) {
	got := quoteAttr(`& < > " '`)
	assert.Equal(t, `"&amp; &lt; &gt; &quot; &apos;"`, got)
}

func TestDiscoverProjectMeta_ReadsGoModModuleName(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/widgets\n\ngo 1.25\n"), 0644))

	meta := discoverProjectMeta(root)
	assert.Equal(t, "example.com/widgets", meta.Name)
}

func TestDiscoverProjectMeta_ReadsPackageJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"name":"widgets","version":"1.2.3","description":"a widget factory"}`), 0644))

	meta := discoverProjectMeta(root)
	assert.Equal(t, "widgets", meta.Name)
	assert.Equal(t, "1.2.3", meta.Version)
	assert.Equal(t, "a widget factory", meta.Description)
}

func TestDiscoverProjectMeta_FallsBackToDirectoryName(t *testing.T) {
	root := t.TempDir()
	meta := discoverProjectMeta(root)
	assert.Equal(t, filepath.Base(root), meta.Name)
}

// extractAttr pulls a single attribute's value out of s for assertions that
// need the literal value rather than just a substring match.
func extractAttr(t *testing.T, s, attr string) string {
	t.Helper()
	re := regexp.MustCompile(attr + `="([^"]*)"`)
	m := re.FindStringSubmatch(s)
	require.NotEmpty(t, m, "attribute %q not found in %q", attr, s)
	return m[1]
}
