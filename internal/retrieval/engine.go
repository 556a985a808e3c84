package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/codewell/codewell/internal/chunk"
	"github.com/codewell/codewell/internal/embed"
	"github.com/codewell/codewell/internal/store"
)

// DefaultStreamBatchSize is the recommended embedding batch size (spec
// §4.G): large enough to amortize store round-trips, small enough to keep
// a single batch's latency bounded and let single-threaded runtimes yield
// control between batches.
const DefaultStreamBatchSize = 100

// engine is the default Engine, grounded on the teacher's
// internal/search/engine.go for the batched-streaming, cosine-similarity
// search idiom (stripped of BM25 fusion, reranking, and query
// decomposition — spec §4.G's retrieval engine is vector-similarity-only).
type engine struct {
	store    store.Store
	embedder embed.Embedder
	layout   *cachedProjection
}

// New builds the retrieval engine over a store and embedder.
func New(s store.Store, embedder embed.Embedder) Engine {
	return &engine{store: s, embedder: embedder, layout: newCachedProjection()}
}

func (e *engine) Search(ctx context.Context, query string, k int, threshold float32) ([]Result, error) {
	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	return e.rankAgainst(ctx, queryVec, k, threshold, nil)
}

func (e *engine) SearchByKind(ctx context.Context, kind string, k int) ([]Result, error) {
	filter := func(c *chunk.Chunk) bool { return string(c.SyntaxKind) == kind }
	return e.searchFiltered(ctx, kind, k, filter)
}

func (e *engine) SearchByDomain(ctx context.Context, tag string, k int) ([]Result, error) {
	filter := func(c *chunk.Chunk) bool {
		for _, t := range c.DomainTags {
			if t == tag {
				return true
			}
		}
		return false
	}
	return e.searchFiltered(ctx, tag, k, filter)
}

// searchFiltered filters chunks by metadata first, then ranks the filtered
// set by similarity to queryText (spec §4.G: "filter by metadata first,
// then rank within the filter by similarity to the tag string").
func (e *engine) searchFiltered(ctx context.Context, queryText string, k int, keep func(*chunk.Chunk) bool) ([]Result, error) {
	all, err := e.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieval: list chunks: %w", err)
	}

	var allowed map[string]*chunk.Chunk
	allowed = make(map[string]*chunk.Chunk)
	for _, c := range all {
		if keep(c) {
			allowed[c.ID] = c
		}
	}
	if len(allowed) == 0 {
		return nil, nil
	}

	queryVec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed filter query: %w", err)
	}
	return e.rankAgainst(ctx, queryVec, k, 0, allowed)
}

// rankAgainst streams persisted embeddings in batches, scoring each against
// queryVec by cosine similarity (a dot product, since both sides are
// L2-normalized by internal/embed), dropping anything below threshold and
// anything not in allowed (nil allowed means no metadata filter).
func (e *engine) rankAgainst(ctx context.Context, queryVec []float32, k int, threshold float32, allowed map[string]*chunk.Chunk) ([]Result, error) {
	type scored struct {
		id    string
		score float32
	}
	var candidates []scored

	err := e.store.StreamEmbeddings(ctx, DefaultStreamBatchSize, func(batch []store.EmbeddingRow) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for _, row := range batch {
			if allowed != nil {
				if _, ok := allowed[row.ChunkID]; !ok {
					continue
				}
			}
			score := dot(queryVec, row.Vector)
			if score < threshold {
				continue
			}
			candidates = append(candidates, scored{id: row.ChunkID, score: score})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: stream embeddings: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	chunksByID, err := e.chunksByID(ctx, ids, allowed)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		ch, ok := chunksByID[c.id]
		if !ok {
			continue
		}
		results = append(results, Result{Chunk: ch, Similarity: c.score})
	}
	return results, nil
}

// chunksByID resolves chunk rows for ids, reusing allowed when available to
// avoid a redundant store round-trip.
func (e *engine) chunksByID(ctx context.Context, ids []string, allowed map[string]*chunk.Chunk) (map[string]*chunk.Chunk, error) {
	if allowed != nil {
		return allowed, nil
	}
	all, err := e.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieval: list chunks: %w", err)
	}
	byID := make(map[string]*chunk.Chunk, len(ids))
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, c := range all {
		if _, ok := want[c.ID]; ok {
			byID[c.ID] = c
		}
	}
	return byID, nil
}

// dot computes the dot product of two equal-length vectors; a length
// mismatch (a stale embedding from a dimension change) scores zero rather
// than panicking.
func dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
