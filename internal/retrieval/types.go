// Package retrieval implements the read-only query surface over a project's
// store: similarity search, metadata-filtered search, and a cached 2-D
// projection of every embedded chunk.
package retrieval

import (
	"context"

	"github.com/codewell/codewell/internal/chunk"
)

// Result pairs a chunk with its similarity score against a query.
type Result struct {
	Chunk      *chunk.Chunk
	Similarity float32
}

// Point is one chunk's 2-D projection coordinate.
type Point struct {
	ChunkID string
	X       float64
	Y       float64
}

// Engine is the retrieval engine's operations (spec §4.G): all of them are
// read-only against the store.
type Engine interface {
	// Search embeds query, streams persisted embeddings in batches, scores
	// each by cosine similarity, drops anything below threshold, and
	// returns the top k by descending similarity.
	Search(ctx context.Context, query string, k int, threshold float32) ([]Result, error)

	// SearchByKind filters to chunks of the given syntax kind, then ranks
	// the filtered set by similarity to kind (used as the query string).
	SearchByKind(ctx context.Context, kind string, k int) ([]Result, error)

	// SearchByDomain filters to chunks tagged with tag, then ranks the
	// filtered set by similarity to tag (used as the query string).
	SearchByDomain(ctx context.Context, tag string, k int) ([]Result, error)

	// Projection returns 2-D coordinates for every embedded chunk, reusing
	// the cached layout when the embedding count hasn't changed.
	Projection(ctx context.Context) ([]Point, error)
}
