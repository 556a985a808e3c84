package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLexicalIndex(t *testing.T) LexicalIndex {
	t.Helper()
	idx, err := NewBleveLexicalIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveLexicalIndex_SearchMatchesDecomposedName(t *testing.T) {
	idx := newTestLexicalIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "chunk-1", "getUserById", "data-retrieval"))
	require.NoError(t, idx.Index(ctx, "chunk-2", "renderWidget", "ui-component"))

	matches, err := idx.Search(ctx, "user", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chunk-1", matches[0].ChunkID)
}

func TestBleveLexicalIndex_SearchMatchesPurpose(t *testing.T) {
	idx := newTestLexicalIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "chunk-1", "getUserById", "data-retrieval"))
	require.NoError(t, idx.Index(ctx, "chunk-2", "renderWidget", "ui-component"))

	matches, err := idx.Search(ctx, "component", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chunk-2", matches[0].ChunkID)
}

func TestBleveLexicalIndex_Search_EmptyQuery_ReturnsNoMatches(t *testing.T) {
	idx := newTestLexicalIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, "chunk-1", "getUserById", "data-retrieval"))

	matches, err := idx.Search(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBleveLexicalIndex_Delete_RemovesFromSearch(t *testing.T) {
	idx := newTestLexicalIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "chunk-1", "getUserById", "data-retrieval"))
	require.NoError(t, idx.Delete(ctx, []string{"chunk-1"}))

	matches, err := idx.Search(ctx, "user", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBleveLexicalIndex_Index_ReplacesExistingEntry(t *testing.T) {
	idx := newTestLexicalIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "chunk-1", "getUserById", "data-retrieval"))
	require.NoError(t, idx.Index(ctx, "chunk-1", "deleteUserById", "data-deletion"))

	matches, err := idx.Search(ctx, "retrieval", 10)
	require.NoError(t, err)
	assert.Empty(t, matches, "old purpose should no longer match after reindexing")

	matches, err = idx.Search(ctx, "deletion", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chunk-1", matches[0].ChunkID)
}
