package chunk

import (
	"context"
	"strings"
)

// Registry dispatches a file to the chunker that handles its extension.
type Registry struct {
	code     *CodeChunker
	json     *JSONChunker
	markdown *MarkdownChunker
	byExt    map[string]Chunker
}

// NewRegistry builds the default chunker registry.
func NewRegistry() *Registry {
	r := &Registry{
		code:     NewCodeChunker(),
		json:     NewJSONChunker(),
		markdown: NewMarkdownChunker(),
	}
	r.byExt = make(map[string]Chunker)
	for _, ext := range r.code.SupportedExtensions() {
		r.byExt[ext] = r.code
	}
	for _, ext := range r.json.SupportedExtensions() {
		r.byExt[ext] = r.json
	}
	for _, ext := range r.markdown.SupportedExtensions() {
		r.byExt[ext] = r.markdown
	}
	return r
}

// Close releases every chunker's resources.
func (r *Registry) Close() {
	r.code.Close()
	r.json.Close()
	r.markdown.Close()
}

// Chunk dispatches file to its chunker by extension. Files with no matching
// chunker produce no chunks (not an error) — the walker already decides
// which files are eligible for indexing.
func (r *Registry) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	ext := extensionOf(file.Path)
	chunker, ok := r.byExt[ext]
	if !ok {
		return nil, nil
	}
	return chunker.Chunk(ctx, file)
}

// SupportedExtensions returns every extension any chunker in the registry handles.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

func extensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx == -1 {
		return ""
	}
	return strings.ToLower(path[idx:])
}
