package walker

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codewell/codewell/internal/config"
	"github.com/codewell/codewell/internal/ignore"
)

// ReloadMatcherFunc rebuilds the effective ignore matcher, called whenever
// the project's ignore manifest changes on disk.
type ReloadMatcherFunc func() (*ignore.Matcher, error)

// Watcher watches a project root for file changes, using fsnotify as the
// primary mechanism with polling as a fallback. Events are debounced and
// filtered against the ignore engine; paths inside the project's state
// directory are always suppressed.
type Watcher struct {
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *pollingWatcher
	useFsnotify    bool
	debouncer      *Debouncer
	matcher        *ignore.Matcher
	reloadMatcher  ReloadMatcherFunc
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	rootPath       string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

// NewWatcher creates a watcher with the given options and initial matcher.
// reloadMatcher, if non-nil, is invoked to rebuild the effective matcher
// whenever the ignore manifest changes; pass nil if patterns never change.
func NewWatcher(opts Options, matcher *ignore.Matcher, reloadMatcher ReloadMatcherFunc) (*Watcher, error) {
	opts = opts.withDefaults()

	w := &Watcher{
		debouncer:     NewDebouncer(opts.DebounceWindow),
		matcher:       matcher,
		reloadMatcher: reloadMatcher,
		events:        make(chan []FileEvent, opts.EventBufferSize),
		errors:        make(chan error, 10),
		stopCh:        make(chan struct{}),
		opts:          opts,
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		w.fsWatcher = fsw
		w.useFsnotify = true
	} else {
		w.useFsnotify = false
		w.pollWatcher = newPollingWatcher(opts.PollInterval)
	}

	return w, nil
}

// Start begins watching the given directory.
func (w *Watcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.rootPath = absPath

	go w.forwardDebouncedEvents(ctx)

	if w.useFsnotify {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

func (w *Watcher) startFsnotify(ctx context.Context) error {
	if err := w.addRecursive(w.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case event, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.handlePolledEvent(event)
			case err, ok := <-w.pollWatcher.Errors():
				if !ok {
					return
				}
				w.emitError(err)
			}
		}
	}()

	return w.pollWatcher.Start(ctx, w.rootPath)
}

func (w *Watcher) handlePolledEvent(event FileEvent) {
	if w.shouldIgnore(event.Path, event.IsDir) {
		return
	}
	if filepath.Base(event.Path) == config.IgnoreManifestName {
		w.handleIgnoreManifestChange(event.Path)
		return
	}
	w.debouncer.Add(event)
}

func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}
	relPath = filepath.ToSlash(relPath)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.shouldIgnore(relPath, isDir) {
		return
	}

	if filepath.Base(event.Name) == config.IgnoreManifestName {
		w.handleIgnoreManifestChange(relPath)
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = w.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: relPath, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

func (w *Watcher) handleIgnoreManifestChange(relPath string) {
	if w.reloadMatcher != nil {
		if m, err := w.reloadMatcher(); err == nil {
			w.mu.Lock()
			w.matcher = m
			w.mu.Unlock()
		} else {
			slog.Warn("failed to reload ignore matcher", slog.String("error", err.Error()))
		}
	}
	w.debouncer.Add(FileEvent{Path: relPath, Operation: OpIgnoreManifestChange, IsDir: false, Timestamp: time.Now()})
}

func (w *Watcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			w.emitEvents(events)
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(w.rootPath, path)
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return w.fsWatcher.Add(path)
		}
		if w.shouldIgnoreDir(relPath) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) shouldIgnoreDir(relPath string) bool {
	if strings.HasPrefix(relPath, config.StateDirName+"/") || relPath == config.StateDirName {
		return true
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.matcher.Match(relPath, true)
}

// shouldIgnore reports whether a path (file or directory) should be
// suppressed from the event stream: state-directory paths always are, plus
// whatever the current ignore matcher excludes.
func (w *Watcher) shouldIgnore(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" {
		return true
	}
	if strings.HasPrefix(relPath, config.StateDirName+"/") || relPath == config.StateDirName {
		return true
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.matcher.Match(relPath, isDir)
}

func (w *Watcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case w.events <- events:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(events)), slog.Uint64("total_dropped_batches", count))
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases OS handles. Safe to call multiple
// times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)

	w.debouncer.Stop()

	if w.useFsnotify && w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of batched, debounced file events.
func (w *Watcher) Events() <-chan []FileEvent { return w.events }

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// DroppedBatches returns the count of event batches dropped due to a full
// output buffer.
func (w *Watcher) DroppedBatches() uint64 { return w.droppedBatches.Load() }
