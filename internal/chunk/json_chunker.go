package chunk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// JSONChunker chunks a JSON document into its top-level object pairs or
// array items, per the spec's JSON chunking row. It uses encoding/json's
// token-by-token decoding rather than tree-sitter: no pack library parses
// JSON with byte offsets the way encoding/json.Decoder does natively (see
// DESIGN.md).
type JSONChunker struct {
	options CodeChunkerOptions
}

// NewJSONChunker creates a JSON chunker with default options.
func NewJSONChunker() *JSONChunker {
	return &JSONChunker{options: CodeChunkerOptions{MinSpanLines: MinSpanLines}}
}

// Close is a no-op; JSONChunker is stateless.
func (c *JSONChunker) Close() {}

// SupportedExtensions returns the extensions this chunker handles.
func (c *JSONChunker) SupportedExtensions() []string {
	return []string{".json"}
}

// Chunk splits a JSON file into one chunk per top-level pair or array item.
func (c *JSONChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := file.Content
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}

	spans, err := jsonTopLevelSpans(content)
	if err != nil {
		slog.Warn("chunk: failed to parse JSON, skipping file", slog.String("path", file.Path), slog.String("error", err.Error()))
		return nil, nil
	}

	now := time.Now()
	chunks := make([]*Chunk, 0, len(spans))
	for _, s := range spans {
		if s.endLine-s.startLine+1 < c.options.MinSpanLines {
			continue
		}
		code := string(content[s.start:s.end])
		chunks = append(chunks, &Chunk{
			ID:          chunkID(file.Path, s.name, s.startLine),
			Name:        s.name,
			File:        file.Path,
			StartLine:   s.startLine,
			EndLine:     s.endLine,
			SyntaxKind:  s.kind,
			Language:    "json",
			ContentType: ContentTypeConfig,
			Code:        code,
			Complexity:  ScoreComplexity(code),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return chunks, nil
}

type jsonSpan struct {
	name               string
	kind               SyntaxKind
	start, end         int
	startLine, endLine int
}

// jsonTopLevelSpans decodes the document's top-level object or array and
// returns the byte span, name, and line range of each member. Decode is
// used per-member (rather than a bare Token() walk) because it's the
// idiomatic way to let encoding/json skip an arbitrarily nested value while
// still reporting exact end offsets via Decoder.InputOffset.
func jsonTopLevelSpans(content []byte) ([]jsonSpan, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("chunk: JSON document is not an object or array")
	}

	var spans []jsonSpan
	index := 0
	for dec.More() {
		memberStart := trimSeparators(content, int(dec.InputOffset()))

		var name string
		switch delim {
		case '{':
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			name, _ = keyTok.(string)
		case '[':
			name = "item_" + strconv.Itoa(index)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		memberEnd := int(dec.InputOffset())

		kind := SyntaxKindArrayItem
		if delim == '{' {
			kind = SyntaxKindObjectPair
		}

		spans = append(spans, jsonSpan{
			name:      name,
			kind:      kind,
			start:     memberStart,
			end:       memberEnd,
			startLine: lineAt(content, memberStart),
			endLine:   lineAt(content, memberEnd-1),
		})
		index++
	}
	return spans, nil
}

// trimSeparators advances past whitespace and a leading comma so a member's
// start offset points at its key or value, not at trailing punctuation from
// the previous member.
func trimSeparators(content []byte, offset int) int {
	for offset < len(content) {
		switch content[offset] {
		case ' ', '\t', '\n', '\r', ',':
			offset++
		default:
			return offset
		}
	}
	return offset
}

func lineAt(content []byte, offset int) int {
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	return 1 + strings.Count(string(content[:offset]), "\n")
}
