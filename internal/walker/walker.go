package walker

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/codewell/codewell/internal/ignore"
)

// DefaultMaxFileSize is the default maximum file size considered for
// indexing (10MB); larger files are skipped.
const DefaultMaxFileSize = 10 * 1024 * 1024

// ScanOptions configures Enumerate.
type ScanOptions struct {
	// RootDir is the project root directory to scan.
	RootDir string

	// Matcher decides which paths are excluded. Required.
	Matcher *ignore.Matcher

	// Workers sizes the result channel buffer at Workers*10 (0 = NumCPU).
	// The tree is walked on a single goroutine.
	Workers int

	// MaxFileSize caps file size in bytes (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// FollowSymlinks includes symbolic links in the results (default:
	// false); symlinked directories are not descended into.
	FollowSymlinks bool
}

// ScanResult is one item produced on Enumerate's result channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// Walker discovers indexable files under a project root.
type Walker struct{}

// New creates a new Walker.
func New() *Walker {
	return &Walker{}
}

// Enumerate returns a channel streaming every non-ignored file under the
// project root. The channel is closed when enumeration completes or ctx is
// cancelled. Ignored directories are pruned without descending into them.
func (w *Walker) Enumerate(ctx context.Context, opts ScanOptions) (<-chan ScanResult, error) {
	if opts.Matcher == nil {
		return nil, fmt.Errorf("walker: ScanOptions.Matcher is required")
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute root path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan ScanResult, workers*10)

	go func() {
		defer close(results)
		w.enumerate(ctx, absRoot, opts.Matcher, maxFileSize, opts.FollowSymlinks, results)
	}()

	return results, nil
}

func (w *Walker) enumerate(ctx context.Context, absRoot string, matcher *ignore.Matcher, maxFileSize int64, followSymlinks bool, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if matcher.Match(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !followSymlinks {
			return nil
		}

		if matcher.Match(relPath, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() > maxFileSize {
			return nil
		}
		if isBinaryFile(path) {
			return nil
		}

		language := DetectLanguage(relPath)
		fileInfo := &FileInfo{
			Path:        relPath,
			AbsPath:     path,
			Size:        fi.Size(),
			ModTime:     fi.ModTime(),
			ContentType: DetectContentType(language),
			Language:    language,
			IsGenerated: isGeneratedFile(path),
		}

		select {
		case results <- ScanResult{File: fileInfo}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// isBinaryFile reports whether a file looks binary by checking its first
// 512 bytes for a NUL byte.
func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.Contains(buf[:n], []byte{0})
}

// generatedFileMarkers are content markers that indicate a file was
// auto-generated and should be flagged as such rather than excluded.
var generatedFileMarkers = []string{
	"// Code generated",
	"// DO NOT EDIT",
	"/* DO NOT EDIT",
	"# Generated by",
	"<!-- AUTO-GENERATED -->",
	"// Generated by",
	"/* Generated by",
}

func isGeneratedFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	content := string(buf[:n])

	for _, marker := range generatedFileMarkers {
		if bytes.Contains([]byte(content), []byte(marker)) {
			return true
		}
	}
	return false
}
