// Package toolserver exposes codewell's retrieval, bundle, and file-access
// operations over JSON-RPC 2.0 (spec §4.J), speaking the Model Context
// Protocol via github.com/modelcontextprotocol/go-sdk/mcp. Grounded on the
// teacher's internal/mcp package: the Server wraps an *mcp.Server the same
// way, keeps a plain testable dispatch method alongside the SDK-typed tool
// handlers, and reuses its JSON-RPC error-code mapping idiom.
package toolserver

import (
	"context"
	"log/slog"

	"github.com/codewell/codewell/internal/bundle"
	"github.com/codewell/codewell/internal/retrieval"
	"github.com/codewell/codewell/internal/store"
)

// Config wires the collaborators the tool server answers requests from.
type Config struct {
	RootPath  string
	Store     store.Store
	Retrieval retrieval.Engine
	Bundles   bundle.Manager
	Logger    *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// DiscoverOutput is agent/discover's result: an architectural overview.
type DiscoverOutput struct {
	TotalChunks     int              `json:"total_chunks"`
	Bundles         []BundleOverview `json:"bundles"`
	NotablePurposes []PurposeCount   `json:"notable_purposes"`
}

// BundleOverview is one bundle's entry in agent/discover's output.
type BundleOverview struct {
	Name      string `json:"name"`
	FileCount int    `json:"file_count"`
	Manual    bool   `json:"manual"`
}

// PurposeCount pairs a classification purpose tag with its chunk count.
type PurposeCount struct {
	Purpose string `json:"purpose"`
	Count   int    `json:"count"`
}

// QueryInput is agent/query's parameters.
type QueryInput struct {
	Query     string  `json:"query" jsonschema:"the semantic search query to run"`
	Limit     int     `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	Threshold float32 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity, default 0"`
}

// QueryOutput is agent/query's result.
type QueryOutput struct {
	Results []QueryResult `json:"results"`
}

// QueryResult is one matched chunk with its similarity score.
type QueryResult struct {
	File       string  `json:"file"`
	Line       int     `json:"line"`
	Name       string  `json:"name"`
	Similarity float32 `json:"similarity"`
	Purpose    string  `json:"purpose"`
}

// InvestigateInput is agent/investigate's parameters.
type InvestigateInput struct {
	Description string `json:"description" jsonschema:"a natural-language description of the feature to integrate"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of semantic matches to consider, default 20"`
}

// InvestigateOutput is agent/investigate's result: candidate integration
// points grouped by file and by purpose, plus purposes with no matches.
type InvestigateOutput struct {
	ByFile    []FileGroup    `json:"by_file"`
	ByPurpose []PurposeGroup `json:"by_purpose"`
	Gaps      []string       `json:"gaps"`
}

// FileGroup is every matched chunk found in a single file.
type FileGroup struct {
	File    string        `json:"file"`
	Matches []QueryResult `json:"matches"`
}

// PurposeGroup is every matched chunk sharing a single purpose tag.
type PurposeGroup struct {
	Purpose string        `json:"purpose"`
	Matches []QueryResult `json:"matches"`
}

// ListBundlesOutput is list_bundles's result.
type ListBundlesOutput struct {
	Bundles []BundleInfo `json:"bundles"`
}

// BundleInfo is one bundle's listing entry.
type BundleInfo struct {
	Name        string `json:"name"`
	Manual      bool   `json:"manual"`
	FileCount   int    `json:"file_count"`
	SizeBytes   int64  `json:"size_bytes"`
	Dirty       bool   `json:"dirty"`
	GeneratedAt string `json:"generated_at,omitempty"`
}

// ReadFileInput is read_file's parameters.
type ReadFileInput struct {
	Path string `json:"path" jsonschema:"file path relative to the project root"`
}

// ReadFileOutput is read_file's result.
type ReadFileOutput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ToolServer is the plain, SDK-independent dispatch surface every required
// tool (spec §4.J) implements; exercised directly by tests and wrapped by
// the SDK-typed handlers registered with the MCP server.
type ToolServer interface {
	Discover(ctx context.Context) (DiscoverOutput, error)
	Query(ctx context.Context, in QueryInput) (QueryOutput, error)
	Investigate(ctx context.Context, in InvestigateInput) (InvestigateOutput, error)
	ListBundles(ctx context.Context) (ListBundlesOutput, error)
	ReadFile(ctx context.Context, in ReadFileInput) (ReadFileOutput, error)

	// Serve blocks, speaking JSON-RPC 2.0 over stdio until ctx is
	// cancelled (spec §4.J transport requirement).
	Serve(ctx context.Context) error
}
