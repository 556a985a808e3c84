package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// codeTokenizerName is the name of the code-aware tokenizer registered below.
	codeTokenizerName = "code_tokenizer"

	// codeStopFilterName is the name of the stop-word filter registered below.
	codeStopFilterName = "code_stop"

	// codeAnalyzerName is the name of the analyzer combining the two.
	codeAnalyzerName = "code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(codeStopFilterName, codeStopFilterConstructor)
}

// bleveLexicalIndex backs the chunks table's "search by name/purpose
// (substring)" operation with an in-memory bleve index kept in sync with
// the chunks table: upserts/deletes happen right after the metadata write,
// under the same store lock (see metadata.go).
//
// "Substring" is implemented as a match query over code-aware tokenized
// name/purpose fields (camelCase/snake_case split, stop words filtered),
// the same tokenization the teacher used for its BM25 content field —
// so a query like "user" matches a chunk named "getUserById" by matching
// its decomposed "user" token, without requiring a separate n-gram index.
type bleveLexicalIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// lexicalDoc is the bleve document shape: name and purpose indexed as
// separate fields so a match can be attributed back to LexicalMatch.
type lexicalDoc struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
}

// NewBleveLexicalIndex creates an in-memory lexical index for chunk
// name/purpose substring search.
func NewBleveLexicalIndex() (LexicalIndex, error) {
	indexMapping, err := newCodeIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("store: build lexical index mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("store: create lexical index: %w", err)
	}
	return &bleveLexicalIndex{index: idx}, nil
}

func newCodeIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(codeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = codeAnalyzerName
	return indexMapping, nil
}

func (b *bleveLexicalIndex) Index(_ context.Context, chunkID, name, purpose string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Index(chunkID, lexicalDoc{Name: name, Purpose: purpose})
}

func (b *bleveLexicalIndex) Search(ctx context.Context, substr string, limit int) ([]LexicalMatch, error) {
	if strings.TrimSpace(substr) == "" {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	nameQuery := bleve.NewMatchQuery(substr)
	nameQuery.SetField("name")
	purposeQuery := bleve.NewMatchQuery(substr)
	purposeQuery.SetField("purpose")

	query := bleve.NewDisjunctionQuery(nameQuery, purposeQuery)
	req := bleve.NewSearchRequest(query)
	req.Size = limit
	req.Fields = []string{"name", "purpose"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("store: lexical search: %w", err)
	}

	matches := make([]LexicalMatch, 0, len(result.Hits))
	for _, hit := range result.Hits {
		match := LexicalMatch{ChunkID: hit.ID}
		if name, ok := hit.Fields["name"].(string); ok {
			match.Name = name
		}
		if purpose, ok := hit.Fields["purpose"].(string); ok {
			match.Purpose = purpose
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (b *bleveLexicalIndex) Delete(_ context.Context, chunkIDs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

func (b *bleveLexicalIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

func codeTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

// codeTokenizer implements analysis.Tokenizer using TokenizeCode's
// camelCase/snake_case-aware splitting.
type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func codeStopFilterConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{stopWords: BuildStopWordMap(DefaultCodeStopWords)}, nil
}

// codeStopFilter implements analysis.TokenFilter dropping programming
// keyword stop words from the token stream.
type codeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// DefaultCodeStopWords contains programming keywords to filter out of the
// lexical index's tokenization.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}
