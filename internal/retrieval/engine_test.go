package retrieval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewell/codewell/internal/chunk"
	"github.com/codewell/codewell/internal/embed"
	"github.com/codewell/codewell/internal/store"
)

func newTestEngine(t *testing.T) (Engine, store.Store, embed.Embedder) {
	t.Helper()
	embedder := embed.NewStaticEmbedder(embed.StaticDimensions)
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "codewell.db"), embedder.Dimensions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s, embedder), s, embedder
}

func seedChunk(t *testing.T, ctx context.Context, s store.Store, embedder embed.Embedder, id, name, file, kind string, domainTags []string, code string) {
	t.Helper()
	c := &chunk.Chunk{
		ID:          id,
		Name:        name,
		File:        file,
		StartLine:   1,
		EndLine:     5,
		SyntaxKind:  chunk.SyntaxKind(kind),
		Language:    "go",
		ContentType: chunk.ContentTypeCode,
		Code:        code,
		Purpose:     name,
		DomainTags:  domainTags,
	}
	require.NoError(t, s.UpsertChunks(ctx, []*chunk.Chunk{c}))

	vec, err := embedder.Embed(ctx, name+" "+c.Purpose+" "+c.Code)
	require.NoError(t, err)
	require.NoError(t, s.UpsertEmbedding(ctx, id, vec, embedder.ModelName()))
}

func TestEngine_Search_RanksMostSimilarFirst(t *testing.T) {
	eng, s, embedder := newTestEngine(t)
	ctx := context.Background()

	seedChunk(t, ctx, s, embedder, "a", "authenticateUser", "auth.go", "function", []string{"auth"}, "func authenticateUser(token string) error { return checkToken(token) }")
	seedChunk(t, ctx, s, embedder, "b", "renderWidget", "ui.go", "function", []string{"ui"}, "func renderWidget() { draw() }")

	results, err := eng.Search(ctx, "authenticate user token", 10, -1)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].Chunk.ID)
}

func TestEngine_Search_DropsBelowThreshold(t *testing.T) {
	eng, s, embedder := newTestEngine(t)
	ctx := context.Background()

	seedChunk(t, ctx, s, embedder, "a", "authenticateUser", "auth.go", "function", []string{"auth"}, "func authenticateUser(token string) error { return checkToken(token) }")

	results, err := eng.Search(ctx, "authenticate user token", 10, 1.1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_Search_TruncatesToK(t *testing.T) {
	eng, s, embedder := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		seedChunk(t, ctx, s, embedder, id, "handler"+id, "h.go", "function", nil, "func handler"+id+"() {}")
	}

	results, err := eng.Search(ctx, "handler", 2, -1)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestEngine_SearchByKind_FiltersBeforeRanking(t *testing.T) {
	eng, s, embedder := newTestEngine(t)
	ctx := context.Background()

	seedChunk(t, ctx, s, embedder, "a", "Widget", "ui.go", "struct", nil, "type Widget struct{}")
	seedChunk(t, ctx, s, embedder, "b", "renderWidget", "ui.go", "function", nil, "func renderWidget() {}")

	results, err := eng.SearchByKind(ctx, "struct", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Chunk.ID)
}

func TestEngine_SearchByDomain_FiltersBeforeRanking(t *testing.T) {
	eng, s, embedder := newTestEngine(t)
	ctx := context.Background()

	seedChunk(t, ctx, s, embedder, "a", "authenticateUser", "auth.go", "function", []string{"auth"}, "func authenticateUser() {}")
	seedChunk(t, ctx, s, embedder, "b", "renderWidget", "ui.go", "function", []string{"ui"}, "func renderWidget() {}")

	results, err := eng.SearchByDomain(ctx, "ui", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Chunk.ID)
}

func TestEngine_Search_NoEmbeddings_ReturnsEmpty(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	results, err := eng.Search(ctx, "anything", 10, -1)
	require.NoError(t, err)
	assert.Empty(t, results)
}
