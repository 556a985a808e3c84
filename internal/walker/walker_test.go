package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewell/codewell/internal/ignore"
)

func collectPaths(t *testing.T, results <-chan ScanResult) []string {
	t.Helper()
	var paths []string
	for r := range results {
		require.NoError(t, r.Error)
		paths = append(paths, r.File.Path)
	}
	sort.Strings(paths)
	return paths
}

func TestWalker_Enumerate_PrunesIgnoredDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "react"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "react", "index.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644))

	matcher := ignore.NewMatcher(nil, nil, nil)
	w := New()
	results, err := w.Enumerate(context.Background(), ScanOptions{RootDir: dir, Matcher: matcher})
	require.NoError(t, err)

	paths := collectPaths(t, results)
	require.Equal(t, []string{"main.go"}, paths)
}

func TestWalker_Enumerate_SkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), big, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.txt"), []byte("hi"), 0o644))

	matcher := ignore.NewMatcher(nil, nil, nil)
	w := New()
	results, err := w.Enumerate(context.Background(), ScanOptions{RootDir: dir, Matcher: matcher, MaxFileSize: 10})
	require.NoError(t, err)

	paths := collectPaths(t, results)
	require.Equal(t, []string{"small.txt"}, paths)
}

func TestWalker_Enumerate_DetectsGeneratedFiles(t *testing.T) {
	dir := t.TempDir()
	content := "// Code generated by protoc. DO NOT EDIT.\npackage pb\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gen.pb.go"), []byte(content), 0o644))

	matcher := ignore.NewMatcher(nil, nil, nil)
	w := New()
	results, err := w.Enumerate(context.Background(), ScanOptions{RootDir: dir, Matcher: matcher})
	require.NoError(t, err)

	var found bool
	for r := range results {
		require.NoError(t, r.Error)
		if r.File.Path == "gen.pb.go" {
			found = true
			require.True(t, r.File.IsGenerated)
		}
	}
	require.True(t, found)
}

func TestWalker_Enumerate_RequiresMatcher(t *testing.T) {
	w := New()
	_, err := w.Enumerate(context.Background(), ScanOptions{RootDir: t.TempDir()})
	require.Error(t, err)
}
