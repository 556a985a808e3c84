// Package store provides the embedded relational store (SQLite metadata +
// bleve lexical index + coder/hnsw ANN accelerator) that persists chunks,
// embeddings, bundles, projections, and sessions for a single project root.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/codewell/codewell/internal/chunk"
)

// State keys for the key-value state table.
const (
	// StateKeyIndexDimension stores the embedding dimension used for the index.
	StateKeyIndexDimension = "index_embedding_dimension"
	// StateKeyIndexModel stores the embedding model name used for the index.
	StateKeyIndexModel = "index_embedding_model"

	// StateKeyCheckpointStage stores current indexing stage: "scanning"|"chunking"|"embedding"|"indexing"|"complete".
	StateKeyCheckpointStage = "checkpoint_stage"
	// StateKeyCheckpointTotal stores total number of chunks to process.
	StateKeyCheckpointTotal = "checkpoint_total"
	// StateKeyCheckpointEmbedded stores count of chunks that have been embedded.
	StateKeyCheckpointEmbedded = "checkpoint_embedded"
	// StateKeyCheckpointTimestamp stores when checkpoint was last updated.
	StateKeyCheckpointTimestamp = "checkpoint_timestamp"
	// StateKeyCheckpointEmbedderModel stores the embedder model used for this checkpoint.
	StateKeyCheckpointEmbedderModel = "checkpoint_embedder_model"
)

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// EmbeddingRow pairs a chunk ID with its persisted embedding, as streamed by
// StreamEmbeddings for batched similarity search.
type EmbeddingRow struct {
	ChunkID string
	Vector  []float32
	Model   string
}

// BundleRecord is a bundle's persisted row (spec §3 Bundle entity, manual
// variant only — smart bundles are never stored, they're derived on demand
// by internal/bundle from the chunks table).
type BundleRecord struct {
	Name         string
	Patterns     []string
	Files        []string
	SizeBytes    int64
	Dirty        bool
	GeneratedAt  time.Time
}

// ProjectionRow is a chunk's 2-D projection coordinate.
type ProjectionRow struct {
	ChunkID string
	X       float64
	Y       float64
}

// Turn is one entry in a session's append-only conversation log.
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
	Metadata  map[string]string
}

// SessionRecord is a session's persisted identity row.
type SessionRecord struct {
	ID        string
	CreatedAt time.Time
}

// ArtifactRecord is a cached summary of a discovered Artifact (OpenAPI
// description, navigation manifest, etc.), keyed by its path relative to
// the project root.
type ArtifactRecord struct {
	Path      string
	Kind      string // "openapi", "navigation", etc.
	Summary   string // normalized JSON summary, regardless of source format
	UpdatedAt time.Time
}

// Store is the embedded persistence layer: chunks, embeddings, bundles,
// projections, and sessions, plus a state key-value table and an artifacts
// cache. Matches spec §4.C's table of required operations exactly.
type Store interface {
	// Chunk operations.
	UpsertChunks(ctx context.Context, chunks []*chunk.Chunk) error
	ChunksByFile(ctx context.Context, file string) ([]*chunk.Chunk, error)
	AllChunks(ctx context.Context) ([]*chunk.Chunk, error)
	SearchChunks(ctx context.Context, substring string, limit int) ([]*chunk.Chunk, error)
	DeleteChunksByFile(ctx context.Context, file string) error

	// Embedding operations.
	UpsertEmbedding(ctx context.Context, chunkID string, vector []float32, model string) error
	GetEmbedding(ctx context.Context, chunkID string) ([]float32, bool, error)
	CountEmbeddings(ctx context.Context) (int, error)
	StreamEmbeddings(ctx context.Context, batchSize int, fn func(batch []EmbeddingRow) error) error

	// Bundle operations.
	UpsertBundle(ctx context.Context, b *BundleRecord) error
	AllBundles(ctx context.Context) ([]*BundleRecord, error)

	// Projection operations.
	ReplaceProjections(ctx context.Context, rows []ProjectionRow, embeddingCount int) error
	AllProjections(ctx context.Context) ([]ProjectionRow, error)
	ProjectionEmbeddingCount(ctx context.Context) (int, error)

	// Session operations.
	CreateSession(ctx context.Context, id string) error
	AppendTurn(ctx context.Context, sessionID string, turn Turn) error
	SessionLog(ctx context.Context, sessionID string) ([]Turn, error)
	ListSessions(ctx context.Context) ([]SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error

	// State key-value operations.
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error

	// Artifact cache operations.
	UpsertArtifact(ctx context.Context, a *ArtifactRecord) error
	GetArtifact(ctx context.Context, path string) (*ArtifactRecord, bool, error)

	// Query executes a read-only SELECT against the store, rejecting any
	// other statement kind.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	Close() error
}

// Rows is a minimal cursor over a read-only query's result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Close() error
	Err() error
}

// VectorResult represents a single vector search result.
type VectorResult struct {
	ID       string  // Chunk ID
	Distance float32 // Lower is more similar (0-2 for cosine)
	Score    float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension.
	Dimensions int

	// Quantization names a vector precision: "f32", "f16", "i8" (default:
	// "f16"). HNSWStore does not read it and always stores float32 vectors.
	Quantization string

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean) (default: "cos").
	Metric string

	// M is HNSW max connections per layer (default: 32).
	M int

	// EfConstruction is HNSW build-time search width (default: 128).
	// HNSWStore does not pass it to the graph.
	EfConstruction int

	// EfSearch is HNSW query-time search width (default: 64).
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Quantization:   "f16",
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides an in-memory ANN accelerator over chunk embeddings
// (coder/hnsw), rebuilt from the SQLite embeddings table at store-open time
// and kept incrementally updated. The embeddings table remains the source
// of truth.
type VectorStore interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds k nearest neighbors to query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns all vector IDs in the store (for consistency checks).
	AllIDs() []string

	// Contains checks if ID exists.
	Contains(id string) bool

	// Count returns number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run a full reindex)", e.Expected, e.Got)
}

// LexicalMatch is one result of a name/purpose substring query.
type LexicalMatch struct {
	ChunkID string
	Name    string
	Purpose string
}

// LexicalIndex backs the chunks table's "search by name/purpose
// (substring)" operation with a bleve in-memory index kept in sync with
// the chunks table (indexed on upsert/delete, right after the SQLite write
// and under the same store lock).
type LexicalIndex interface {
	// Index adds or replaces the name/purpose entry for a chunk.
	Index(ctx context.Context, chunkID, name, purpose string) error

	// Search returns chunk IDs whose name or purpose contains substr.
	Search(ctx context.Context, substr string, limit int) ([]LexicalMatch, error)

	// Delete removes a chunk's entry from the index.
	Delete(ctx context.Context, chunkIDs []string) error

	Close() error
}
