package chunk

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// MinSpanLines is the minimum span, in lines, a chunk candidate must cover
// to survive. Chunks below this are dropped per the component spec.
const MinSpanLines = 2

// CodeChunkerOptions configures the code chunker.
type CodeChunkerOptions struct {
	MinSpanLines int
}

// CodeChunker implements AST-aware, declaration-level code chunking using
// tree-sitter. One chunk is emitted per extracted declaration; chunks are
// never split or merged by size (the spec's chunking rules are purely
// syntactic, not token-budget driven).
type CodeChunker struct {
	parser   *Parser
	registry *LanguageRegistry
	options  CodeChunkerOptions
}

// NewCodeChunker creates a code chunker with default options.
func NewCodeChunker() *CodeChunker {
	return NewCodeChunkerWithOptions(CodeChunkerOptions{})
}

// NewCodeChunkerWithOptions creates a code chunker with custom options.
func NewCodeChunkerWithOptions(opts CodeChunkerOptions) *CodeChunker {
	if opts.MinSpanLines == 0 {
		opts.MinSpanLines = MinSpanLines
	}
	registry := DefaultRegistry()
	return &CodeChunker{
		parser:   NewParserWithRegistry(registry),
		registry: registry,
		options:  opts,
	}
}

// Close releases chunker resources.
func (c *CodeChunker) Close() {
	if c.parser != nil {
		c.parser.Close()
	}
}

// SupportedExtensions returns file extensions this chunker handles.
func (c *CodeChunker) SupportedExtensions() []string {
	return c.registry.SupportedExtensions()
}

// chunkCandidate is one declaration found in the tree, before it becomes a Chunk.
type chunkCandidate struct {
	node      *Node
	name      string
	kind      SyntaxKind
	async     bool
	ancestors []string
}

// Chunk parses file and emits one chunk per extracted declaration. A parse
// failure is logged and the file is skipped; it never halts the batch.
func (c *CodeChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if len(file.Content) == 0 {
		return nil, nil
	}

	if _, supported := c.registry.GetByName(file.Language); !supported {
		return nil, nil
	}

	tree, err := c.parser.Parse(ctx, file.Content, file.Language)
	if err != nil {
		slog.Warn("chunk: parse failed, skipping file",
			slog.String("path", file.Path), slog.String("language", file.Language), slog.String("error", err.Error()))
		return nil, nil
	}

	candidates := collectChunkCandidates(tree, file.Language)
	bindings := extractImportBindings(tree, file.Language)

	now := time.Now()
	chunks := make([]*Chunk, 0, len(candidates))
	for _, cand := range candidates {
		lines := int(cand.node.EndPoint.Row) - int(cand.node.StartPoint.Row) + 1
		if lines < c.options.MinSpanLines {
			continue
		}

		code := cand.node.GetContent(tree.Source)
		startLine := int(cand.node.StartPoint.Row) + 1
		name := cand.name
		if name == "" {
			name = "anonymous"
		}

		chunks = append(chunks, &Chunk{
			ID:                chunkID(file.Path, name, startLine),
			Name:              name,
			File:              file.Path,
			StartLine:         startLine,
			EndLine:           int(cand.node.EndPoint.Row) + 1,
			SyntaxKind:        cand.kind,
			Language:          file.Language,
			ContentType:       ContentTypeCode,
			Code:              code,
			Exported:          isExported(cand.node, tree.Source, cand.name, file.Language, cand.ancestors),
			Async:             cand.async,
			ImportsReferenced: importsReferenced(code, bindings),
			Complexity:        ScoreComplexity(code),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	return chunks, nil
}

// collectChunkCandidates dispatches to the per-language AST walk. Each
// walk is responsible for telling functions/methods apart where the
// grammar uses the same node type for both (Rust impl bodies, Python
// class bodies).
func collectChunkCandidates(tree *Tree, language string) []chunkCandidate {
	switch language {
	case "go":
		return collectGoChunks(tree)
	case "typescript", "tsx", "javascript", "jsx":
		return collectJSChunks(tree, language)
	case "python":
		return collectPythonChunks(tree)
	case "rust":
		return collectRustChunks(tree)
	case "css", "scss":
		return collectCSSChunks(tree)
	case "html":
		return collectHTMLChunks(tree)
	case "sql":
		return collectSQLChunks(tree)
	case "toml":
		return collectTOMLChunks(tree)
	default:
		return nil
	}
}

func identifierChild(n *Node, source []byte, types ...string) string {
	for _, child := range n.Children {
		for _, t := range types {
			if child.Type == t {
				return child.GetContent(source)
			}
		}
	}
	return ""
}

func collectGoChunks(tree *Tree) []chunkCandidate {
	config, _ := tree.langConfig()
	var out []chunkCandidate
	tree.Root.WalkAncestry(func(n *Node, ancestors []string) {
		switch {
		case containsType(config.FunctionTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "identifier"), kind: SyntaxKindFunction, ancestors: ancestors})
		case containsType(config.MethodTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "field_identifier"), kind: SyntaxKindMethod, ancestors: ancestors})
		case containsType(config.TypeDefTypes, n.Type):
			for _, spec := range n.FindChildrenByType("type_spec") {
				out = append(out, chunkCandidate{node: n, name: identifierChild(spec, tree.Source, "type_identifier"), kind: SyntaxKindTypeAlias, ancestors: ancestors})
			}
		case containsType(config.ConstantTypes, n.Type):
			for _, spec := range n.FindChildrenByType("const_spec") {
				out = append(out, chunkCandidate{node: n, name: identifierChild(spec, tree.Source, "identifier"), kind: SyntaxKindConstant, ancestors: ancestors})
			}
		case containsType(config.VariableTypes, n.Type):
			for _, spec := range n.FindChildrenByType("var_spec") {
				out = append(out, chunkCandidate{node: n, name: identifierChild(spec, tree.Source, "identifier"), kind: SyntaxKindVariable, ancestors: ancestors})
			}
		}
	})
	return out
}

// collectJSChunks implements the spec's JS/JSX/TS/TSX row: function
// declarations, method definitions, arrow functions, interfaces, and type
// aliases. Arrow functions are extracted only from variable declarators and
// take the declarator's name, falling back to "anonymous"; arrow functions
// that are object-literal values or assignment right-hand sides are not
// extracted.
func collectJSChunks(tree *Tree, language string) []chunkCandidate {
	config, _ := tree.langConfig()
	var out []chunkCandidate
	tree.Root.WalkAncestry(func(n *Node, ancestors []string) {
		switch {
		case containsType(config.FunctionTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "identifier"), kind: SyntaxKindFunction, async: hasAsyncKeyword(n, tree.Source), ancestors: ancestors})
		case containsType(config.MethodTypes, n.Type):
			name := identifierChild(n, tree.Source, "property_identifier", "identifier")
			out = append(out, chunkCandidate{node: n, name: name, kind: SyntaxKindMethod, async: hasAsyncKeyword(n, tree.Source), ancestors: ancestors})
		case containsType(config.InterfaceTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "type_identifier"), kind: SyntaxKindInterface, ancestors: ancestors})
		case containsType(config.TypeDefTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "type_identifier"), kind: SyntaxKindTypeAlias, ancestors: ancestors})
		case n.Type == "lexical_declaration" || n.Type == "variable_declaration":
			out = append(out, jsArrowCandidates(n, tree.Source, ancestors)...)
		}
	})
	return out
}

func hasAsyncKeyword(n *Node, source []byte) bool {
	content := n.GetContent(source)
	if idx := strings.IndexAny(content, "({"); idx > 0 {
		content = content[:idx]
	}
	return strings.Contains(content, "async")
}

// jsArrowCandidates finds `const x = () => {}` / `const x = function(){}`
// style declarations. A variable_declaration can bind several declarators;
// only function-valued ones become chunks.
func jsArrowCandidates(n *Node, source []byte, ancestors []string) []chunkCandidate {
	var out []chunkCandidate
	for _, declarator := range n.FindChildrenByType("variable_declarator") {
		var name string
		var fn *Node
		for _, child := range declarator.Children {
			switch child.Type {
			case "identifier":
				name = child.GetContent(source)
			case "arrow_function", "function", "function_expression":
				fn = child
			}
		}
		if fn == nil {
			continue
		}
		if name == "" {
			name = "anonymous"
		}
		out = append(out, chunkCandidate{node: n, name: name, kind: SyntaxKindArrow, async: hasAsyncKeyword(fn, source), ancestors: ancestors})
	}
	return out
}

// collectPythonChunks is a supplement beyond the spec's table (Python isn't
// named there) — see DESIGN.md. function_definition is reclassified Method
// when a class_definition appears in its ancestry.
func collectPythonChunks(tree *Tree) []chunkCandidate {
	var out []chunkCandidate
	tree.Root.WalkAncestry(func(n *Node, ancestors []string) {
		switch n.Type {
		case "function_definition":
			kind := SyntaxKindFunction
			if ancestryContains(ancestors, []string{"class_definition"}) {
				kind = SyntaxKindMethod
			}
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "identifier"), kind: kind, async: hasAsyncKeyword(n, tree.Source), ancestors: ancestors})
		case "class_definition":
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "identifier"), kind: SyntaxKindClass, ancestors: ancestors})
		case "assignment":
			if !ancestryContains(ancestors, []string{"function_definition", "class_definition"}) {
				out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "identifier"), kind: SyntaxKindVariable, ancestors: ancestors})
			}
		}
	})
	return out
}

// collectRustChunks implements the spec's Rust row. function_item nested
// inside impl_item is reclassified Method.
func collectRustChunks(tree *Tree) []chunkCandidate {
	var out []chunkCandidate
	tree.Root.WalkAncestry(func(n *Node, ancestors []string) {
		switch n.Type {
		case "function_item":
			kind := SyntaxKindFunction
			if ancestryContains(ancestors, []string{"impl_item"}) {
				kind = SyntaxKindMethod
			}
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "identifier"), kind: kind, ancestors: ancestors})
		case "struct_item":
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "type_identifier"), kind: SyntaxKindStruct, ancestors: ancestors})
		case "enum_item":
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "type_identifier"), kind: SyntaxKindEnum, ancestors: ancestors})
		case "trait_item":
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "type_identifier"), kind: SyntaxKindTrait, ancestors: ancestors})
		case "type_item":
			out = append(out, chunkCandidate{node: n, name: identifierChild(n, tree.Source, "type_identifier"), kind: SyntaxKindTypeAlias, ancestors: ancestors})
		}
	})
	return out
}

// collectCSSChunks implements the spec's CSS/SCSS row: rule sets and
// at-rules, named by their selector / prelude text.
func collectCSSChunks(tree *Tree) []chunkCandidate {
	config, _ := tree.langConfig()
	var out []chunkCandidate
	tree.Root.WalkAncestry(func(n *Node, ancestors []string) {
		switch {
		case containsType(config.RuleSetTypes, n.Type):
			name := ""
			if sel := n.FindChildByType("selectors"); sel != nil {
				name = strings.TrimSpace(sel.GetContent(tree.Source))
			}
			out = append(out, chunkCandidate{node: n, name: name, kind: SyntaxKindRuleSet, ancestors: ancestors})
		case containsType(config.AtRuleTypes, n.Type):
			name := firstLine(n.GetContent(tree.Source))
			out = append(out, chunkCandidate{node: n, name: name, kind: SyntaxKindAtRule, ancestors: ancestors})
		}
	})
	return out
}

// collectHTMLChunks implements the spec's HTML row: top-level elements and
// script/style blocks, named by tag.
func collectHTMLChunks(tree *Tree) []chunkCandidate {
	config, _ := tree.langConfig()
	var out []chunkCandidate
	for _, n := range tree.Root.Children {
		switch {
		case containsType(config.ElementTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: htmlTagName(n, tree.Source), kind: SyntaxKindElement})
		case containsType(config.ScriptStyleTypes, n.Type):
			tag := "style"
			if n.Type == "script_element" {
				tag = "script"
			}
			out = append(out, chunkCandidate{node: n, name: tag, kind: SyntaxKindScriptStyle})
		}
	}
	return out
}

func htmlTagName(n *Node, source []byte) string {
	if start := n.FindChildByType("start_tag"); start != nil {
		if tag := start.FindChildByType("tag_name"); tag != nil {
			return tag.GetContent(source)
		}
	}
	if tag := n.FindChildByType("tag_name"); tag != nil {
		return tag.GetContent(source)
	}
	return ""
}

// collectSQLChunks implements the spec's SQL row: every top-level statement,
// named by its first keyword uppercased. The grammar's exact statement node
// names aren't depended on here (see languages.go); any direct child of the
// parsed document that isn't pure punctuation is a statement.
func collectSQLChunks(tree *Tree) []chunkCandidate {
	var out []chunkCandidate
	for _, n := range tree.Root.Children {
		text := strings.TrimSpace(n.GetContent(tree.Source))
		if text == "" || text == ";" {
			continue
		}
		out = append(out, chunkCandidate{node: n, name: strings.ToUpper(firstWord(text)), kind: SyntaxKindStatement})
	}
	return out
}

// collectTOMLChunks implements the spec's TOML row: tables, table arrays,
// and top-level pairs, named by key.
func collectTOMLChunks(tree *Tree) []chunkCandidate {
	config, _ := tree.langConfig()
	var out []chunkCandidate
	for _, n := range tree.Root.Children {
		switch {
		case containsType(config.TableTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: tomlKeyText(n, tree.Source), kind: SyntaxKindTable})
		case containsType(config.TableArrayTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: tomlKeyText(n, tree.Source), kind: SyntaxKindTableArray})
		case containsType(config.PairTypes, n.Type):
			out = append(out, chunkCandidate{node: n, name: tomlKeyText(n, tree.Source), kind: SyntaxKindPair})
		}
	}
	return out
}

func tomlKeyText(n *Node, source []byte) string {
	if key := n.FindChildByType("bare_key"); key != nil {
		return key.GetContent(source)
	}
	if key := n.FindChildByType("quoted_key"); key != nil {
		return strings.Trim(key.GetContent(source), `"`)
	}
	if key := n.FindChildByType("key"); key != nil {
		return strings.TrimSpace(key.GetContent(source))
	}
	return ""
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// langConfig is a small convenience to look a Tree's own language back up
// in the default registry without threading the registry through every
// collector function.
func (t *Tree) langConfig() (*LanguageConfig, bool) {
	return DefaultRegistry().GetByName(t.Language)
}

// chunkID builds the spec's stable chunk identifier.
func chunkID(file, name string, startLine int) string {
	return file + ":" + name + ":" + strconv.Itoa(startLine)
}
