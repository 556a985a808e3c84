package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/codewell/codewell/internal/store"
)

// layoutIterations bounds the force-directed layout's step budget, giving
// the spec's "convergence within a bounded step budget" a concrete value.
const layoutIterations = 300

// cachedProjection holds the in-memory mirror of the store's persisted
// projection cache, avoiding a recompute when nothing has changed since
// the last call in this process.
type cachedProjection struct {
	mu             sync.Mutex
	embeddingCount int
	points         []Point
	valid          bool
}

func newCachedProjection() *cachedProjection {
	return &cachedProjection{}
}

// Projection returns 2-D coordinates for every embedded chunk (spec §4.G).
// No pack library implements UMAP/t-SNE, so this is a from-scratch,
// dependency-free force-directed layout over cosine distance: attractive
// springs pull similar chunks together, a uniform repulsion keeps the
// layout from collapsing, run for a fixed iteration count so the result is
// deterministic given identical input.
func (e *engine) Projection(ctx context.Context) ([]Point, error) {
	currentCount, err := e.store.CountEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieval: count embeddings: %w", err)
	}

	e.layout.mu.Lock()
	if e.layout.valid && e.layout.embeddingCount == currentCount {
		points := e.layout.points
		e.layout.mu.Unlock()
		return points, nil
	}
	e.layout.mu.Unlock()

	if cached, ok, err := e.loadPersistedProjection(ctx, currentCount); err == nil && ok {
		e.layout.mu.Lock()
		e.layout.points, e.layout.embeddingCount, e.layout.valid = cached, currentCount, true
		e.layout.mu.Unlock()
		return cached, nil
	}

	var ids []string
	var vectors [][]float32
	err = e.store.StreamEmbeddings(ctx, DefaultStreamBatchSize, func(batch []store.EmbeddingRow) error {
		for _, row := range batch {
			ids = append(ids, row.ChunkID)
			vectors = append(vectors, row.Vector)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: stream embeddings for projection: %w", err)
	}

	points := forceDirectedLayout(ids, vectors)

	if err := e.store.ReplaceProjections(ctx, toRows(points), len(ids)); err != nil {
		return nil, fmt.Errorf("retrieval: persist projection: %w", err)
	}

	e.layout.mu.Lock()
	e.layout.points, e.layout.embeddingCount, e.layout.valid = points, len(ids), true
	e.layout.mu.Unlock()

	return points, nil
}

// loadPersistedProjection returns the store's persisted projection if its
// recorded embedding count still matches currentCount (spec §4.G's
// count-based cache-validity rule), so a fresh process reuses another
// process's layout instead of recomputing.
func (e *engine) loadPersistedProjection(ctx context.Context, currentCount int) ([]Point, bool, error) {
	recordedCount, err := e.store.ProjectionEmbeddingCount(ctx)
	if err != nil {
		return nil, false, err
	}
	if recordedCount != currentCount || currentCount == 0 {
		return nil, false, nil
	}
	rows, err := e.store.AllProjections(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(rows) != currentCount {
		return nil, false, nil
	}
	points := make([]Point, len(rows))
	for i, row := range rows {
		points[i] = Point{ChunkID: row.ChunkID, X: row.X, Y: row.Y}
	}
	return points, true, nil
}

func toRows(points []Point) []store.ProjectionRow {
	rows := make([]store.ProjectionRow, len(points))
	for i, p := range points {
		rows[i] = store.ProjectionRow{ChunkID: p.ChunkID, X: p.X, Y: p.Y}
	}
	return rows
}

// forceDirectedLayout lays out vectors in 2-D by cosine distance. Fewer
// than two embeddings yields degenerate (0,0) coordinates for each (spec
// §4.G). Chunk IDs are sorted first so the initial layout, and therefore
// the converged one, is deterministic across runs.
func forceDirectedLayout(ids []string, vectors [][]float32) []Point {
	if len(ids) < 2 {
		points := make([]Point, len(ids))
		for i, id := range ids {
			points[i] = Point{ChunkID: id}
		}
		return points
	}

	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return ids[order[i]] < ids[order[j]] })

	n := len(ids)
	x := make([]float64, n)
	y := make([]float64, n)
	for rank, idx := range order {
		angle := 2 * math.Pi * float64(rank) / float64(n)
		x[idx] = math.Cos(angle)
		y[idx] = math.Sin(angle)
	}

	dist := make([][]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dist[i][j] = cosineDistance(vectors[i], vectors[j])
		}
	}

	const repulsion = 0.01
	learningRate := 0.1
	for step := 0; step < layoutIterations; step++ {
		fx := make([]float64, n)
		fy := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				dx := x[i] - x[j]
				dy := y[i] - y[j]
				d := math.Sqrt(dx*dx + dy*dy)
				if d < 1e-9 {
					d = 1e-9
				}
				target := dist[i][j]
				delta := d - target
				fx[i] -= (delta / d) * dx
				fy[i] -= (delta / d) * dy
				fx[i] += repulsion * dx / (d * d)
				fy[i] += repulsion * dy / (d * d)
			}
		}
		for i := 0; i < n; i++ {
			x[i] += learningRate * fx[i]
			y[i] += learningRate * fy[i]
		}
		learningRate *= 0.995
	}

	points := make([]Point, n)
	for i, id := range ids {
		points[i] = Point{ChunkID: id, X: x[i], Y: y[i]}
	}
	return points
}

// cosineDistance converts cosine similarity into a [0,2] distance; inputs
// are already L2-normalized by internal/embed, so similarity reduces to a
// dot product.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return 1 - sum
}
