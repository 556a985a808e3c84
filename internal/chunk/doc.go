// Package chunk parses source files into semantically-named spans.
//
// A Registry dispatches each file to one of three chunkers by extension:
// CodeChunker (tree-sitter, one chunk per declaration) for Go, JS/JSX,
// TS/TSX, Python, Rust, CSS/SCSS, HTML, SQL, and TOML; JSONChunker
// (encoding/json token streaming) for JSON; and MarkdownChunker (regex)
// for Markdown/MDX. Chunkers never persist their output and never halt a
// batch on a single file's parse failure — they log and skip it.
package chunk
