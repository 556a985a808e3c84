package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder generates deterministic, dependency-free embeddings via
// feature hashing: each token is hashed into a small signed vector, and the
// chunk's embedding is the mean of its tokens' vectors, L2-normalized. No
// network, no model file, no warmup — grounded on the teacher's
// StaticEmbedder tokenizer, generalized from its weighted-sum scheme to
// the spec's literal mean-pooling contract.
type StaticEmbedder struct {
	mu           sync.RWMutex
	closed       bool
	dimension    int
	maxInputSize int
}

// hashesPerToken is how many independent hash buckets each token
// contributes to, spreading a single token's signal across the vector
// instead of a single index (reduces hash-collision noise).
const hashesPerToken = 4

// programmingStopWords contains common programming language keywords to filter out.
var programmingStopWords = map[string]bool{
	"func": true, "function": true, "def": true, "class": true,
	"return": true, "import": true, "const": true, "var": true,
	"let": true, "int": true, "string": true, "bool": true,
	"void": true, "true": true, "false": true, "nil": true,
	"null": true, "this": true, "self": true, "new": true,
}

// tokenRegex matches alphanumeric sequences.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewStaticEmbedder creates a static embedder with dimension dims (falls
// back to StaticDimensions when dims <= 0) and the default input
// truncation boundary.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = StaticDimensions
	}
	return &StaticEmbedder{dimension: dims, maxInputSize: MaxInputBytes}
}

// Embed generates an embedding for a single text: truncate, tokenize, mean
// pool per-token hash vectors, L2-normalize.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dimension), nil
	}

	truncated := truncateUTF8(trimmed, e.maxInputSize)
	return normalizeVector(e.meanPool(truncated)), nil
}

// meanPool tokenizes text and averages each surviving token's hash vector.
func (e *StaticEmbedder) meanPool(text string) []float32 {
	tokens := filterStopWords(tokenize(text))
	if len(tokens) == 0 {
		// No word-like tokens (e.g. pure punctuation/symbols): fall back to
		// the whole normalized string as a single pseudo-token so the
		// input still produces a non-zero vector.
		tokens = []string{normalizeForNgrams(text)}
	}

	sum := make([]float32, e.dimension)
	for _, token := range tokens {
		addTokenVector(sum, token, e.dimension)
	}

	mean := make([]float32, e.dimension)
	count := float32(len(tokens))
	for i, v := range sum {
		mean[i] = v / count
	}
	return mean
}

// addTokenVector accumulates one token's signed hash vector into sum.
func addTokenVector(sum []float32, token string, dimension int) {
	for seed := 0; seed < hashesPerToken; seed++ {
		idx, sign := hashIndexAndSign(token, seed, dimension)
		sum[idx] += sign
	}
}

// hashIndexAndSign derives a bucket index and a +1/-1 sign for token under
// seed, so repeated hashing of the same token spreads across distinct
// buckets instead of reinforcing one.
func hashIndexAndSign(token string, seed, size int) (int, float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte{byte(seed)})
	_, _ = h.Write([]byte(token))
	sum := h.Sum64()

	sign := float32(1)
	if sum&1 == 1 {
		sign = -1
	}
	return int((sum >> 1) % uint64(size)), sign
}

// tokenize splits text into tokens (code-aware): alphanumeric runs, each
// further split on camelCase/snake_case boundaries.
func tokenize(text string) []string {
	var tokens []string

	words := tokenRegex.FindAllString(text, -1)
	for _, word := range words {
		for _, t := range splitCodeToken(word) {
			lower := strings.ToLower(t)
			if lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// splitCodeToken splits camelCase and snake_case identifiers.
func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

// splitCamelCase splits camelCase identifiers.
func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// filterStopWords removes programming stop words.
func filterStopWords(tokens []string) []string {
	var filtered []string
	for _, t := range tokens {
		if !programmingStopWords[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// normalizeForNgrams lowercases text and keeps only letters/digits — used
// as the meanPool fallback token when a chunk has no word-like tokens at all.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}

	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int {
	return e.dimension
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return "static"
}

// Available checks if the embedder is ready (always true until closed).
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
