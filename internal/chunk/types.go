package chunk

import (
	"context"
	"time"
)

// ContentType represents the type of content a chunk was extracted from.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeConfig   ContentType = "config"
	ContentTypeText     ContentType = "text"
)

// ComplexityLevel buckets a chunk's complexity score.
type ComplexityLevel string

const (
	ComplexityLow    ComplexityLevel = "low"
	ComplexityMedium ComplexityLevel = "medium"
	ComplexityHigh   ComplexityLevel = "high"
)

// Complexity is a chunk's branch/loop/error-handling/short-circuit score,
// bucketed per the chunker's component-level rule.
type Complexity struct {
	Score int
	Level ComplexityLevel
}

// BucketComplexity applies the <5 low, <15 medium, else high rule.
func BucketComplexity(score int) ComplexityLevel {
	switch {
	case score < 5:
		return ComplexityLow
	case score < 15:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}

// SyntaxKind is the kind of declaration a chunk was extracted from.
type SyntaxKind string

const (
	SyntaxKindFunction   SyntaxKind = "function"
	SyntaxKindMethod     SyntaxKind = "method"
	SyntaxKindArrow      SyntaxKind = "arrow"
	SyntaxKindClass      SyntaxKind = "class"
	SyntaxKindStruct     SyntaxKind = "struct"
	SyntaxKindEnum       SyntaxKind = "enum"
	SyntaxKindTrait      SyntaxKind = "trait"
	SyntaxKindTypeAlias  SyntaxKind = "type-alias"
	SyntaxKindInterface  SyntaxKind = "interface"
	SyntaxKindConstant   SyntaxKind = "constant"
	SyntaxKindVariable   SyntaxKind = "variable"
	SyntaxKindRuleSet    SyntaxKind = "rule-set"
	SyntaxKindAtRule     SyntaxKind = "at-rule"
	SyntaxKindElement    SyntaxKind = "element"
	SyntaxKindScriptStyle SyntaxKind = "script-style"
	SyntaxKindStatement  SyntaxKind = "statement"
	SyntaxKindObjectPair SyntaxKind = "object-pair"
	SyntaxKindArrayItem  SyntaxKind = "array-item"
	SyntaxKindTable      SyntaxKind = "table"
	SyntaxKindTableArray SyntaxKind = "table-array"
	SyntaxKindPair       SyntaxKind = "pair"
	SyntaxKindHeading    SyntaxKind = "heading"
	SyntaxKindCodeBlock  SyntaxKind = "code-block"
	SyntaxKindList       SyntaxKind = "list"
	SyntaxKindBlockQuote SyntaxKind = "block-quote"
	SyntaxKindThematicBreak SyntaxKind = "thematic-break"
)

// Chunk is a named, bounded span of source extracted from a file's syntax tree.
//
// ID is stable across runs as long as (File, Name, StartLine) are unchanged:
// `<file>:<name>:<start-line>`. Classification (Purpose/DomainTags/PatternTags)
// and Embedding are populated by later pipeline stages, not by the chunker.
type Chunk struct {
	ID          string
	Name        string
	File        string // relative to project root
	StartLine   int    // 1-indexed
	EndLine     int    // inclusive
	SyntaxKind  SyntaxKind
	Language    string
	ContentType ContentType
	Code        string // verbatim source span
	Exported    bool
	Async       bool

	// ImportsReferenced lists, in source order, the imports/uses that
	// reference an identifier appearing in Code.
	ImportsReferenced []string

	// Classification, filled in by internal/classify.
	Purpose     string
	DomainTags  []string
	PatternTags []string
	Complexity  Complexity

	// Embedding, filled in by internal/embed.
	Embedding []float32

	// Bundles this chunk's file belongs to, excluding the catch-all.
	Bundles []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileInput is input for the Chunker interface.
type FileInput struct {
	Path     string // relative path
	Content  []byte
	Language string
}

// Chunker splits a file into semantic chunks. Chunkers emit chunks; they
// never persist them.
type Chunker interface {
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)
	SupportedExtensions() []string
}

// Tree represents a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node represents a node in the AST.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point represents a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig holds the tree-sitter node type tables for a supported
// language: which node types denote each SyntaxKind the chunker extracts.
type LanguageConfig struct {
	Name       string
	Extensions []string

	FunctionTypes  []string
	MethodTypes    []string
	ClassTypes     []string
	InterfaceTypes []string
	TypeDefTypes   []string
	StructTypes    []string
	EnumTypes      []string
	TraitTypes     []string
	ImplTypes      []string // container nodes to descend into for methods (e.g. Rust impl_item)
	ConstantTypes  []string
	VariableTypes  []string

	// CSS/SCSS
	RuleSetTypes []string
	AtRuleTypes  []string

	// HTML
	ElementTypes     []string
	ScriptStyleTypes []string

	// TOML
	TableTypes      []string
	TableArrayTypes []string
	PairTypes       []string

	// Export/visibility marker node types or field names, used by export
	// detection. Interpreted per-language in export.go.
	ExportMarkers []string

	NameField string
}
