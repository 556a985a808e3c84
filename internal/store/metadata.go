package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	"github.com/codewell/codewell/internal/chunk"
)

// sqliteStore implements Store over an embedded SQLite database, grounded
// on the teacher's SQLite FTS5 index opening idiom (WAL mode, busy_timeout,
// single-writer connection pool, prepared statements inside transactions).
// A bleveLexicalIndex and an HNSWStore are kept in sync alongside the
// SQLite writes: SQLite remains the source of truth, the two in-memory
// indexes accelerate search.
type sqliteStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	lexical  LexicalIndex
	vectors  VectorStore
	closed   bool
}

var _ Store = (*sqliteStore)(nil)

// NewSQLiteStore opens (creating if necessary) a metadata store at path.
// dimension configures the in-memory HNSW accelerator rebuilt from any
// already-persisted embeddings of that length; embeddings of a different
// length are skipped when rebuilding (a dimension change is the
// orchestrator's job to detect and trigger a reindex for, not the store's).
func NewSQLiteStore(path string, dimension int) (*sqliteStore, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// Single writer to prevent lock contention, matching the store's
	// single-writer concurrency discipline.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: set pragma %q: %w", pragma, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	lexical, err := NewBleveLexicalIndex()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init lexical index: %w", err)
	}

	vectors, err := NewHNSWStore(DefaultVectorStoreConfig(dimension))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init vector accelerator: %w", err)
	}

	s := &sqliteStore{db: db, lexical: lexical, vectors: vectors}
	if err := s.rehydrate(context.Background(), dimension); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: rehydrate in-memory indexes: %w", err)
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	file             TEXT NOT NULL,
	start_line       INTEGER NOT NULL,
	end_line         INTEGER NOT NULL,
	syntax_kind      TEXT NOT NULL,
	language         TEXT NOT NULL,
	content_type     TEXT NOT NULL,
	code             TEXT NOT NULL,
	exported         INTEGER NOT NULL DEFAULT 0,
	async            INTEGER NOT NULL DEFAULT 0,
	imports_json     TEXT NOT NULL DEFAULT '[]',
	purpose          TEXT NOT NULL DEFAULT '',
	domain_tags_json TEXT NOT NULL DEFAULT '[]',
	pattern_tags_json TEXT NOT NULL DEFAULT '[]',
	complexity_score INTEGER NOT NULL DEFAULT 0,
	complexity_level TEXT NOT NULL DEFAULT 'low',
	bundles_json     TEXT NOT NULL DEFAULT '[]',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file);

CREATE TABLE IF NOT EXISTS embeddings (
	chunk_id   TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
	vector     BLOB NOT NULL,
	model      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bundles (
	name         TEXT PRIMARY KEY,
	patterns_json TEXT NOT NULL DEFAULT '[]',
	files_json    TEXT NOT NULL DEFAULT '[]',
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	dirty         INTEGER NOT NULL DEFAULT 1,
	generated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projections (
	chunk_id TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
	x        REAL NOT NULL,
	y        REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS projections_meta (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	embedding_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_turns (
	session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	role          TEXT NOT NULL,
	content       TEXT NOT NULL,
	timestamp     TEXT NOT NULL,
	metadata_json TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (session_id, seq)
);

CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	path       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	summary    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

func initSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// rehydrate rebuilds the in-memory lexical and vector accelerators from
// the SQLite tables that remain the source of truth.
func (s *sqliteStore) rehydrate(ctx context.Context, dimension int) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, purpose FROM chunks`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id, name, purpose string
		if err := rows.Scan(&id, &name, &purpose); err != nil {
			return err
		}
		if err := s.lexical.Index(ctx, id, name, purpose); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if dimension <= 0 {
		return nil
	}
	embRows, err := s.db.QueryContext(ctx, `SELECT chunk_id, vector FROM embeddings`)
	if err != nil {
		return err
	}
	defer embRows.Close()
	var ids []string
	var vectors [][]float32
	for embRows.Next() {
		var id string
		var blob []byte
		if err := embRows.Scan(&id, &blob); err != nil {
			return err
		}
		vec := decodeVector(blob)
		if len(vec) != dimension {
			continue
		}
		ids = append(ids, id)
		vectors = append(vectors, vec)
	}
	if err := embRows.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.vectors.Add(ctx, ids, vectors)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		bits := math.Float32bits(f)
		buf[4*i] = byte(bits)
		buf[4*i+1] = byte(bits >> 8)
		buf[4*i+2] = byte(bits >> 16)
		buf[4*i+3] = byte(bits >> 24)
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(buf[4*i]) | uint32(buf[4*i+1])<<8 | uint32(buf[4*i+2])<<16 | uint32(buf[4*i+3])<<24
		v[i] = math.Float32frombits(bits)
	}
	return v
}

func marshalJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func unmarshalJSONStrings(data string) []string {
	var out []string
	_ = json.Unmarshal([]byte(data), &out)
	return out
}

// UpsertChunks writes chunks transactionally and reindexes each into the
// lexical index; a deleted-then-reinserted chunk under the same ID sees
// its lexical entry replaced, not duplicated.
func (s *sqliteStore) UpsertChunks(ctx context.Context, chunks []*chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin upsert chunks: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (
			id, name, file, start_line, end_line, syntax_kind, language,
			content_type, code, exported, async, imports_json, purpose,
			domain_tags_json, pattern_tags_json, complexity_score,
			complexity_level, bundles_json, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, file=excluded.file, start_line=excluded.start_line,
			end_line=excluded.end_line, syntax_kind=excluded.syntax_kind,
			language=excluded.language, content_type=excluded.content_type,
			code=excluded.code, exported=excluded.exported, async=excluded.async,
			imports_json=excluded.imports_json, purpose=excluded.purpose,
			domain_tags_json=excluded.domain_tags_json,
			pattern_tags_json=excluded.pattern_tags_json,
			complexity_score=excluded.complexity_score,
			complexity_level=excluded.complexity_level,
			bundles_json=excluded.bundles_json, updated_at=excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("store: prepare upsert chunks: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		created := c.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := stmt.ExecContext(ctx,
			c.ID, c.Name, c.File, c.StartLine, c.EndLine, string(c.SyntaxKind),
			c.Language, string(c.ContentType), c.Code, boolToInt(c.Exported),
			boolToInt(c.Async), marshalJSON(c.ImportsReferenced), c.Purpose,
			marshalJSON(c.DomainTags), marshalJSON(c.PatternTags),
			c.Complexity.Score, string(c.Complexity.Level), marshalJSON(c.Bundles),
			created.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("store: upsert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit upsert chunks: %w", err)
	}

	for _, c := range chunks {
		if err := s.lexical.Index(ctx, c.ID, c.Name, c.Purpose); err != nil {
			return fmt.Errorf("store: reindex chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const chunkColumns = `
	c.id, c.name, c.file, c.start_line, c.end_line, c.syntax_kind, c.language,
	c.content_type, c.code, c.exported, c.async, c.imports_json, c.purpose,
	c.domain_tags_json, c.pattern_tags_json, c.complexity_score,
	c.complexity_level, c.bundles_json, c.created_at, c.updated_at,
	e.vector
`

func scanChunk(row interface {
	Scan(dest ...any) error
}) (*chunk.Chunk, error) {
	var c chunk.Chunk
	var syntaxKind, contentType, complexityLevel string
	var exported, async int
	var importsJSON, domainJSON, patternJSON, bundlesJSON string
	var createdAt, updatedAt string
	var vector []byte

	err := row.Scan(
		&c.ID, &c.Name, &c.File, &c.StartLine, &c.EndLine, &syntaxKind, &c.Language,
		&contentType, &c.Code, &exported, &async, &importsJSON, &c.Purpose,
		&domainJSON, &patternJSON, &c.Complexity.Score, &complexityLevel,
		&bundlesJSON, &createdAt, &updatedAt, &vector,
	)
	if err != nil {
		return nil, err
	}

	c.SyntaxKind = chunk.SyntaxKind(syntaxKind)
	c.ContentType = chunk.ContentType(contentType)
	c.Exported = exported != 0
	c.Async = async != 0
	c.ImportsReferenced = unmarshalJSONStrings(importsJSON)
	c.DomainTags = unmarshalJSONStrings(domainJSON)
	c.PatternTags = unmarshalJSONStrings(patternJSON)
	c.Complexity.Level = chunk.ComplexityLevel(complexityLevel)
	c.Bundles = unmarshalJSONStrings(bundlesJSON)
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if vector != nil {
		c.Embedding = decodeVector(vector)
	}
	return &c, nil
}

func (s *sqliteStore) ChunksByFile(ctx context.Context, file string) ([]*chunk.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE c.file = ? ORDER BY c.start_line`, file)
	if err != nil {
		return nil, fmt.Errorf("store: query chunks by file: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *sqliteStore) AllChunks(ctx context.Context) ([]*chunk.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c LEFT JOIN embeddings e ON e.chunk_id = c.id
		ORDER BY c.file, c.start_line`)
	if err != nil {
		return nil, fmt.Errorf("store: query all chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]*chunk.Chunk, error) {
	var result []*chunk.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *sqliteStore) SearchChunks(ctx context.Context, substring string, limit int) ([]*chunk.Chunk, error) {
	s.mu.RLock()
	matches, err := s.lexical.Search(ctx, substring, limit)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("store: lexical search: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ChunkID
	}
	return s.GetChunks(ctx, ids)
}

// GetChunks batch-retrieves chunks by ID, preserving no particular order
// beyond the underlying query's.
func (s *sqliteStore) GetChunks(ctx context.Context, ids []string) ([]*chunk.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT ` + chunkColumns + `
		FROM chunks c LEFT JOIN embeddings e ON e.chunk_id = c.id
		WHERE c.id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *sqliteStore) DeleteChunksByFile(ctx context.Context, file string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chunks WHERE file = ?`, file)
	if err != nil {
		return fmt.Errorf("store: query chunk ids for delete: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE file = ?`, file); err != nil {
		return fmt.Errorf("store: delete chunks by file: %w", err)
	}

	if err := s.lexical.Delete(ctx, ids); err != nil {
		return fmt.Errorf("store: delete lexical entries: %w", err)
	}
	if err := s.vectors.Delete(ctx, ids); err != nil {
		return fmt.Errorf("store: delete vector entries: %w", err)
	}
	return nil
}

// UpsertEmbedding stores a chunk's embedding and updates the HNSW
// accelerator in step.
func (s *sqliteStore) UpsertEmbedding(ctx context.Context, chunkID string, vector []float32, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, model, updated_at)
		VALUES (?,?,?,?)
		ON CONFLICT(chunk_id) DO UPDATE SET vector=excluded.vector, model=excluded.model, updated_at=excluded.updated_at
	`, chunkID, encodeVector(vector), model, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: upsert embedding %s: %w", chunkID, err)
	}

	return s.vectors.Add(ctx, []string{chunkID}, [][]float32{vector})
}

func (s *sqliteStore) GetEmbedding(ctx context.Context, chunkID string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE chunk_id = ?`, chunkID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get embedding: %w", err)
	}
	return decodeVector(blob), true, nil
}

func (s *sqliteStore) CountEmbeddings(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: count embeddings: %w", err)
	}
	return count, nil
}

// StreamEmbeddings yields embeddings in batches so callers (the retrieval
// engine) can bound memory and yield control between batches.
func (s *sqliteStore) StreamEmbeddings(ctx context.Context, batchSize int, fn func(batch []EmbeddingRow) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, vector, model FROM embeddings`)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("store: stream embeddings: %w", err)
	}
	defer rows.Close()

	batch := make([]EmbeddingRow, 0, batchSize)
	for rows.Next() {
		var id, model string
		var blob []byte
		if err := rows.Scan(&id, &blob, &model); err != nil {
			return fmt.Errorf("store: scan embedding: %w", err)
		}
		batch = append(batch, EmbeddingRow{ChunkID: id, Vector: decodeVector(blob), Model: model})
		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (s *sqliteStore) UpsertBundle(ctx context.Context, b *BundleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bundles (name, patterns_json, files_json, size_bytes, dirty, generated_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET
			patterns_json=excluded.patterns_json, files_json=excluded.files_json,
			size_bytes=excluded.size_bytes, dirty=excluded.dirty, generated_at=excluded.generated_at
	`, b.Name, marshalJSON(b.Patterns), marshalJSON(b.Files), b.SizeBytes,
		boolToInt(b.Dirty), b.GeneratedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: upsert bundle %s: %w", b.Name, err)
	}
	return nil
}

func (s *sqliteStore) AllBundles(ctx context.Context) ([]*BundleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, patterns_json, files_json, size_bytes, dirty, generated_at FROM bundles`)
	if err != nil {
		return nil, fmt.Errorf("store: list bundles: %w", err)
	}
	defer rows.Close()

	var result []*BundleRecord
	for rows.Next() {
		var b BundleRecord
		var patternsJSON, filesJSON, generatedAt string
		var dirty int
		if err := rows.Scan(&b.Name, &patternsJSON, &filesJSON, &b.SizeBytes, &dirty, &generatedAt); err != nil {
			return nil, fmt.Errorf("store: scan bundle: %w", err)
		}
		b.Patterns = unmarshalJSONStrings(patternsJSON)
		b.Files = unmarshalJSONStrings(filesJSON)
		b.Dirty = dirty != 0
		b.GeneratedAt, _ = time.Parse(time.RFC3339Nano, generatedAt)
		result = append(result, &b)
	}
	return result, rows.Err()
}

// ReplaceProjections atomically replaces the projections table and
// records the embedding count it was computed against.
func (s *sqliteStore) ReplaceProjections(ctx context.Context, rowsIn []ProjectionRow, embeddingCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin replace projections: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM projections`); err != nil {
		return fmt.Errorf("store: clear projections: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO projections (chunk_id, x, y) VALUES (?,?,?)`)
	if err != nil {
		return fmt.Errorf("store: prepare projection insert: %w", err)
	}
	defer stmt.Close()
	for _, row := range rowsIn {
		if _, err := stmt.ExecContext(ctx, row.ChunkID, row.X, row.Y); err != nil {
			return fmt.Errorf("store: insert projection %s: %w", row.ChunkID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projections_meta (id, embedding_count) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET embedding_count=excluded.embedding_count
	`, embeddingCount)
	if err != nil {
		return fmt.Errorf("store: update projections meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit replace projections: %w", err)
	}
	return nil
}

func (s *sqliteStore) AllProjections(ctx context.Context) ([]ProjectionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, x, y FROM projections`)
	if err != nil {
		return nil, fmt.Errorf("store: list projections: %w", err)
	}
	defer rows.Close()

	var result []ProjectionRow
	for rows.Next() {
		var row ProjectionRow
		if err := rows.Scan(&row.ChunkID, &row.X, &row.Y); err != nil {
			return nil, fmt.Errorf("store: scan projection: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *sqliteStore) ProjectionEmbeddingCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT embedding_count FROM projections_meta WHERE id = 1`).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read projection embedding count: %w", err)
	}
	return count, nil
}

func (s *sqliteStore) CreateSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at) VALUES (?,?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: create session %s: %w", id, err)
	}
	return nil
}

func (s *sqliteStore) AppendTurn(ctx context.Context, sessionID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}

	var nextSeq int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM session_turns WHERE session_id = ?`, sessionID,
	).Scan(&nextSeq)
	if err != nil {
		return fmt.Errorf("store: compute next turn seq: %w", err)
	}

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_turns (session_id, seq, role, content, timestamp, metadata_json)
		VALUES (?,?,?,?,?,?)
	`, sessionID, nextSeq, turn.Role, turn.Content, ts.Format(time.RFC3339Nano), marshalJSON(turn.Metadata))
	if err != nil {
		return fmt.Errorf("store: append turn to session %s: %w", sessionID, err)
	}
	return nil
}

func (s *sqliteStore) SessionLog(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, timestamp, metadata_json FROM session_turns
		WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: read session log: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var ts, metaJSON string
		if err := rows.Scan(&t.Role, &t.Content, &ts, &metaJSON); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		t.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		_ = json.Unmarshal([]byte(metaJSON), &t.Metadata)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *sqliteStore) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *sqliteStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete session %s: %w", id, err)
	}
	return nil
}

func (s *sqliteStore) GetState(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get state %s: %w", key, err)
	}
	return value, true, nil
}

func (s *sqliteStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value) VALUES (?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: set state %s: %w", key, err)
	}
	return nil
}

func (s *sqliteStore) UpsertArtifact(ctx context.Context, a *ArtifactRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (path, kind, summary, updated_at) VALUES (?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET kind=excluded.kind, summary=excluded.summary, updated_at=excluded.updated_at
	`, a.Path, a.Kind, a.Summary, a.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: upsert artifact %s: %w", a.Path, err)
	}
	return nil
}

func (s *sqliteStore) GetArtifact(ctx context.Context, path string) (*ArtifactRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a ArtifactRecord
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT path, kind, summary, updated_at FROM artifacts WHERE path = ?`, path,
	).Scan(&a.Path, &a.Kind, &a.Summary, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get artifact %s: %w", path, err)
	}
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &a, true, nil
}

// Query executes a read-only SELECT, rejecting anything else.
func (s *sqliteStore) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	trimmed := strings.TrimSpace(strings.ToUpper(query))
	if !strings.HasPrefix(trimmed, "SELECT") {
		return nil, fmt.Errorf("store: query must be a SELECT statement")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	return rows, nil
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := s.lexical.Close(); err != nil {
		firstErr = err
	}
	if err := s.vectors.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
