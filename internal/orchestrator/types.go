// Package orchestrator wires the ignore engine, walker, chunker, classifier,
// embedder, and store into the single pipeline that drives a project's index
// from an initial scan through live file-change reactions (spec §4.I).
package orchestrator

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/codewell/codewell/internal/bundle"
	"github.com/codewell/codewell/internal/chunk"
	"github.com/codewell/codewell/internal/classify"
	"github.com/codewell/codewell/internal/embed"
	"github.com/codewell/codewell/internal/fanout"
	"github.com/codewell/codewell/internal/ignore"
	"github.com/codewell/codewell/internal/store"
	"github.com/codewell/codewell/internal/walker"
)

// FileState is a file's position in the per-file state machine spec §4.I
// defines:
//
//	Unknown --enumerate--> Indexed(clean)
//	Indexed(clean) --change event--> Indexed(dirty)
//	Indexed(dirty) --reparse+embed+commit--> Indexed(clean)
//	Indexed(clean) --delete event--> Gone
type FileState int

const (
	StateUnknown FileState = iota
	StateIndexedClean
	StateIndexedDirty
	StateGone
)

func (s FileState) String() string {
	switch s {
	case StateIndexedClean:
		return "indexed-clean"
	case StateIndexedDirty:
		return "indexed-dirty"
	case StateGone:
		return "gone"
	default:
		return "unknown"
	}
}

// ReparseDebounce is the orchestrator-layer debounce window (spec §4.I step
// 1), applied on top of the walker's own 250ms watcher-layer coalescing.
const ReparseDebounce = 1 * time.Second

// DefaultEmbedBatchSize batches chunks submitted to the embedder's
// EmbedBatch call, mirroring the teacher's embeddingBatchSize idiom
// (internal/index/runner.go).
const DefaultEmbedBatchSize = 32

// EmbedConcurrency returns the default bounded embedder concurrency: the
// number of logical CPUs, floored at 1 and capped at 8 (spec §4.I).
func EmbedConcurrency() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// Config wires every collaborator the orchestrator drives.
type Config struct {
	RootPath string
	DataDir  string

	Matcher    *ignore.Matcher
	Chunker    chunk.Chunker // typically *chunk.Registry, dispatching by extension
	Classifier *classify.Classifier
	Embedder embed.Embedder
	Store    store.Store
	Bundles  bundle.Manager
	Fanout   fanout.Fanout

	MaxFileSize      int64
	EmbedConcurrency int // 0 = EmbedConcurrency()
	EmbedBatchSize   int // 0 = DefaultEmbedBatchSize
	Logger           *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.EmbedConcurrency <= 0 {
		c.EmbedConcurrency = EmbedConcurrency()
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = walker.DefaultMaxFileSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Orchestrator drives a project's index from initial scan through ongoing
// file-event reactions.
type Orchestrator interface {
	// InitialScan loads persisted chunks; if none exist, performs a full
	// enumerate -> parse -> classify -> persist pass.
	InitialScan(ctx context.Context) error

	// FillMissingEmbeddings submits every chunk lacking an embedding to the
	// embedder, bounded by the configured concurrency budget.
	FillMissingEmbeddings(ctx context.Context) error

	// HandleEvents applies a batch of (already watcher-layer-debounced)
	// file events to the index. It never returns an error for a single
	// failed event; failures are logged and processing continues (spec's
	// graceful-degradation discipline, grounded on the teacher's
	// Coordinator.HandleEvents).
	HandleEvents(ctx context.Context, events []walker.FileEvent)

	// Watch runs the orchestrator's own 1-second debounce stage over raw
	// watcher events until ctx is cancelled, calling HandleEvents for each
	// coalesced batch.
	Watch(ctx context.Context, rawEvents <-chan []walker.FileEvent)

	// State returns the current state-machine bucket for a relative path.
	State(path string) FileState
}
