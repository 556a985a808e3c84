package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/codewell/codewell/internal/chunk"
	"github.com/codewell/codewell/internal/fanout"
	"github.com/codewell/codewell/internal/walker"
)

// orchestrator is the default Orchestrator. Its dispatch shape (a switch
// over watcher.Operation feeding indexFile/removeFile) is grounded on the
// teacher's Coordinator.handleEvent (internal/index/coordinator.go); bounded
// embedder concurrency is grounded on vvoland-cagent's pkg/rag/embed
// embedBatchOptimized (errgroup.SetLimit over fixed-size batches).
type orchestrator struct {
	cfg Config

	mu     sync.Mutex
	states map[string]FileState

	debouncer *walker.Debouncer
}

// New returns an Orchestrator wired from cfg.
func New(cfg Config) Orchestrator {
	cfg = cfg.withDefaults()
	return &orchestrator{
		cfg:       cfg,
		states:    make(map[string]FileState),
		debouncer: walker.NewDebouncer(ReparseDebounce),
	}
}

func (o *orchestrator) State(path string) FileState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[path]
}

func (o *orchestrator) setState(path string, s FileState) {
	o.mu.Lock()
	o.states[path] = s
	o.mu.Unlock()
}

// InitialScan loads persisted chunks; if none exist, performs a full
// enumerate -> parse -> classify -> persist pass (spec §4.I startup rule).
func (o *orchestrator) InitialScan(ctx context.Context) error {
	existing, err := o.cfg.Store.AllChunks(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: load persisted chunks: %w", err)
	}
	if len(existing) > 0 {
		for _, c := range existing {
			o.setState(c.File, StateIndexedClean)
		}
		o.cfg.Logger.Info("initial scan skipped: index already populated", slog.Int("chunks", len(existing)))
		return nil
	}

	w := walker.New()
	results, err := w.Enumerate(ctx, walker.ScanOptions{
		RootDir:     o.cfg.RootPath,
		Matcher:     o.cfg.Matcher,
		MaxFileSize: o.cfg.MaxFileSize,
	})
	if err != nil {
		return fmt.Errorf("orchestrator: enumerate project: %w", err)
	}

	o.publishStatus("scanning", 0, 0, 0, 0, "")

	var indexed int
	for res := range results {
		if res.Error != nil {
			o.cfg.Logger.Warn("enumerate error", slog.String("error", res.Error.Error()))
			continue
		}
		if _, err := o.indexFile(ctx, res.File.Path); err != nil {
			o.cfg.Logger.Warn("initial index failed", slog.String("path", res.File.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
	}
	o.cfg.Logger.Info("initial scan complete", slog.Int("files_indexed", indexed))
	o.publishStatus("scanned", indexed, indexed, 0, 0, "")
	return nil
}

// publishStatus broadcasts a status-snapshot event, a no-op when no fanout
// is configured.
func (o *orchestrator) publishStatus(stage string, filesTotal, filesProcessed, chunksTotal, chunksEmbedded int, errMsg string) {
	if o.cfg.Fanout == nil {
		return
	}
	o.cfg.Fanout.UpdateStatus(fanout.StatusSnapshot{
		Stage:          stage,
		FilesTotal:     filesTotal,
		FilesProcessed: filesProcessed,
		ChunksTotal:    chunksTotal,
		ChunksEmbedded: chunksEmbedded,
		ErrorMessage:   errMsg,
	})
}

// FillMissingEmbeddings scans for chunks without embeddings and submits them
// to the embedder with bounded concurrency (spec §4.I background-fill rule).
func (o *orchestrator) FillMissingEmbeddings(ctx context.Context) error {
	all, err := o.cfg.Store.AllChunks(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: list chunks: %w", err)
	}

	var pending []*chunk.Chunk
	for _, c := range all {
		if len(c.Embedding) == 0 {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	o.publishStatus("embedding", 0, 0, len(pending), 0, "")

	batchSize := o.cfg.EmbedBatchSize
	type batch struct {
		chunks []*chunk.Chunk
	}
	var batches []batch
	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batches = append(batches, batch{chunks: pending[start:end]})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.EmbedConcurrency)

	var embedded int64
	for _, b := range batches {
		b := b
		g.Go(func() error {
			if err := o.embedChunks(gctx, b.chunks); err != nil {
				return err
			}
			n := atomic.AddInt64(&embedded, int64(len(b.chunks)))
			o.publishStatus("embedding", 0, 0, len(pending), int(n), "")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.publishStatus("embedding-failed", 0, 0, len(pending), int(atomic.LoadInt64(&embedded)), err.Error())
		return err
	}
	o.publishStatus("ready", 0, 0, len(pending), len(pending), "")
	return nil
}

// embedChunks submits chunks to the embedder in one batch and persists the
// resulting vectors, shared by FillMissingEmbeddings' startup sweep and
// indexFile's live-reindex path (spec §4.I step 5).
func (o *orchestrator) embedChunks(ctx context.Context, chunks []*chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Code
	}
	vectors, err := o.cfg.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	model := o.cfg.Embedder.ModelName()
	for i, c := range chunks {
		if err := o.cfg.Store.UpsertEmbedding(ctx, c.ID, vectors[i], model); err != nil {
			return fmt.Errorf("persist embedding for %s: %w", c.ID, err)
		}
	}
	return nil
}

// Watch runs the orchestrator-layer 1-second debounce stage over raw
// watcher events until ctx is cancelled (spec §4.I step 1).
func (o *orchestrator) Watch(ctx context.Context, rawEvents <-chan []walker.FileEvent) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				o.debouncer.Stop()
				return
			case batch, ok := <-rawEvents:
				if !ok {
					o.debouncer.Stop()
					return
				}
				for _, evt := range batch {
					o.debouncer.Add(evt)
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case coalesced, ok := <-o.debouncer.Output():
			if !ok {
				return
			}
			o.HandleEvents(ctx, coalesced)
		}
	}
}

// HandleEvents applies a batch of events to the index, logging and
// continuing past individual failures (graceful degradation, grounded on
// Coordinator.HandleEvents).
func (o *orchestrator) HandleEvents(ctx context.Context, events []walker.FileEvent) {
	for _, evt := range events {
		if err := o.handleEvent(ctx, evt); err != nil {
			o.cfg.Logger.Warn("failed to process file event",
				slog.String("path", evt.Path),
				slog.String("operation", evt.Operation.String()),
				slog.String("error", err.Error()))
		}
	}
}

func (o *orchestrator) handleEvent(ctx context.Context, evt walker.FileEvent) error {
	if evt.IsDir {
		return nil
	}

	switch evt.Operation {
	case walker.OpCreate, walker.OpModify:
		return o.reindex(ctx, evt.Path)
	case walker.OpDelete:
		return o.removeFile(ctx, evt.Path)
	case walker.OpRename:
		return nil
	case walker.OpIgnoreManifestChange:
		return nil
	default:
		return nil
	}
}

// reindex runs spec §4.I steps 2-6 for a single changed file.
func (o *orchestrator) reindex(ctx context.Context, relPath string) error {
	o.setState(relPath, StateIndexedDirty)

	if o.cfg.Bundles != nil {
		if err := o.cfg.Bundles.NotifyFileChanged(ctx, relPath); err != nil {
			o.cfg.Logger.Warn("bundle dirty-marking failed", slog.String("path", relPath), slog.String("error", err.Error()))
		}
	}

	chunks, err := o.indexFile(ctx, relPath)
	if err != nil {
		return err
	}

	// Spec §4.I step 5: enqueue embedding generation for the new chunks
	// before the file is marked clean, rather than leaving them to a
	// future FillMissingEmbeddings sweep that never runs again for the
	// rest of this process's life once Watch starts.
	if err := o.embedChunks(ctx, chunks); err != nil {
		return fmt.Errorf("embed %s: %w", relPath, err)
	}

	if o.cfg.Fanout != nil {
		o.cfg.Fanout.Publish(fanout.Event{
			Kind:        fanout.KindFileChanged,
			FileChanged: &fanout.FileChanged{Path: relPath, Operation: "modified"},
		})
	}
	return nil
}

// indexFile reads, chunks, and classifies relPath, then replaces its chunks
// in the store in a delete-then-insert sequence (spec §4.I: "deleting any
// pre-existing chunks for that file first"), returning the freshly
// persisted chunks so callers on the live-event path can embed them.
func (o *orchestrator) indexFile(ctx context.Context, relPath string) ([]*chunk.Chunk, error) {
	absPath := filepath.Join(o.cfg.RootPath, relPath)
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}

	chunks, err := o.cfg.Chunker.Chunk(ctx, &chunk.FileInput{
		Path:     relPath,
		Content:  content,
		Language: walker.DetectLanguage(relPath),
	})
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", relPath, err)
	}

	for _, c := range chunks {
		purpose, domainTags, patternTags := o.cfg.Classifier.Classify(c, relPath)
		c.Purpose = purpose
		c.DomainTags = domainTags
		c.PatternTags = patternTags
	}

	if err := o.cfg.Store.DeleteChunksByFile(ctx, relPath); err != nil {
		return nil, fmt.Errorf("delete existing chunks for %s: %w", relPath, err)
	}
	if len(chunks) > 0 {
		if err := o.cfg.Store.UpsertChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("persist chunks for %s: %w", relPath, err)
		}
	}

	o.setState(relPath, StateIndexedClean)
	return chunks, nil
}

func (o *orchestrator) removeFile(ctx context.Context, relPath string) error {
	if err := o.cfg.Store.DeleteChunksByFile(ctx, relPath); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", relPath, err)
	}
	o.setState(relPath, StateGone)

	if o.cfg.Bundles != nil {
		if err := o.cfg.Bundles.NotifyFileChanged(ctx, relPath); err != nil {
			o.cfg.Logger.Warn("bundle dirty-marking failed", slog.String("path", relPath), slog.String("error", err.Error()))
		}
	}
	if o.cfg.Fanout != nil {
		o.cfg.Fanout.Publish(fanout.Event{
			Kind:        fanout.KindFileChanged,
			FileChanged: &fanout.FileChanged{Path: relPath, Operation: "deleted"},
		})
	}
	return nil
}
