package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DispatchesByExtension(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	goChunks, err := r.Chunk(context.Background(), &FileInput{
		Path:     "main.go",
		Content:  []byte("package main\n\nfunc Run() {\n\tprintln(1)\n}\n"),
		Language: "go",
	})
	require.NoError(t, err)
	require.Len(t, goChunks, 1)
	assert.Equal(t, SyntaxKindFunction, goChunks[0].SyntaxKind)

	mdChunks, err := r.Chunk(context.Background(), &FileInput{
		Path:    "README.md",
		Content: []byte("# Title\n\nbody\n"),
	})
	require.NoError(t, err)
	require.Len(t, mdChunks, 1)
	assert.Equal(t, SyntaxKindHeading, mdChunks[0].SyntaxKind)

	jsonChunks, err := r.Chunk(context.Background(), &FileInput{
		Path:    "config.json",
		Content: []byte("{\n  \"a\": {\n    \"b\": 1\n  }\n}\n"),
	})
	require.NoError(t, err)
	require.Len(t, jsonChunks, 1)
	assert.Equal(t, SyntaxKindObjectPair, jsonChunks[0].SyntaxKind)
}

func TestRegistry_UnmatchedExtension_ReturnsNoChunksNoError(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	chunks, err := r.Chunk(context.Background(), &FileInput{Path: "image.png", Content: []byte{0x89, 0x50}})
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestRegistry_SupportedExtensions_IncludesEveryChunker(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	exts := r.SupportedExtensions()
	assert.Contains(t, exts, ".go")
	assert.Contains(t, exts, ".md")
	assert.Contains(t, exts, ".json")
	assert.Contains(t, exts, ".rs")
	assert.Contains(t, exts, ".toml")
}
