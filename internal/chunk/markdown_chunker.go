package chunk

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// MarkdownChunker extracts the spec's Markdown syntax kinds — headings,
// fenced code blocks, lists, block quotes, thematic breaks — without
// tree-sitter, grounded on the teacher's own regex-based markdown chunker.
type MarkdownChunker struct {
	options CodeChunkerOptions
}

var (
	headerPattern       = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	frontmatterPattern  = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n*`)
	fencedCodeBlockPattern = regexp.MustCompile("(?ms)^```([^\n]*)\n.*?\n```\\s*$")
	thematicBreakPattern   = regexp.MustCompile(`(?m)^ {0,3}(?:-{3,}|\*{3,}|_{3,})\s*$`)
	blockQuoteLinePattern  = regexp.MustCompile(`^\s{0,3}>`)
	listLinePattern        = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+\S`)
)

// NewMarkdownChunker creates a markdown chunker with default options.
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{options: CodeChunkerOptions{MinSpanLines: 1}}
}

// Close releases chunker resources. MarkdownChunker is stateless.
func (c *MarkdownChunker) Close() {}

// SupportedExtensions returns file extensions this chunker handles.
func (c *MarkdownChunker) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".mdx"}
}

// Chunk splits a markdown file into heading sections plus the fenced code
// blocks, lists, block quotes, and thematic breaks found anywhere in it.
func (c *MarkdownChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	body := content
	bodyLineOffset := 0
	if m := frontmatterPattern.FindString(content); m != "" {
		body = content[len(m):]
		bodyLineOffset = strings.Count(m, "\n")
	}

	now := time.Now()
	var chunks []*Chunk

	for _, sec := range parseHeadingSections(body) {
		chunks = append(chunks, c.newChunk(file, sec.name, SyntaxKindHeading, bodyLineOffset+sec.startLine, bodyLineOffset+sec.endLine, sec.content, now))
	}

	for _, b := range findFencedCodeBlocks(body) {
		chunks = append(chunks, c.newChunk(file, b.name, SyntaxKindCodeBlock, bodyLineOffset+b.startLine, bodyLineOffset+b.endLine, b.content, now))
	}
	for _, b := range findLineRuns(body, listLinePattern, "list") {
		chunks = append(chunks, c.newChunk(file, b.name, SyntaxKindList, bodyLineOffset+b.startLine, bodyLineOffset+b.endLine, b.content, now))
	}
	for _, b := range findLineRuns(body, blockQuoteLinePattern, "block-quote") {
		chunks = append(chunks, c.newChunk(file, b.name, SyntaxKindBlockQuote, bodyLineOffset+b.startLine, bodyLineOffset+b.endLine, b.content, now))
	}
	for _, loc := range thematicBreakPattern.FindAllStringIndex(body, -1) {
		line := 1 + strings.Count(body[:loc[0]], "\n")
		chunks = append(chunks, c.newChunk(file, "thematic-break", SyntaxKindThematicBreak, bodyLineOffset+line, bodyLineOffset+line, strings.TrimSpace(body[loc[0]:loc[1]]), now))
	}

	filtered := chunks[:0]
	for _, ch := range chunks {
		if ch.EndLine-ch.StartLine+1 >= c.options.MinSpanLines {
			filtered = append(filtered, ch)
		}
	}
	return filtered, nil
}

func (c *MarkdownChunker) newChunk(file *FileInput, name string, kind SyntaxKind, startLine, endLine int, code string, now time.Time) *Chunk {
	return &Chunk{
		ID:          chunkID(file.Path, name, startLine),
		Name:        name,
		File:        file.Path,
		StartLine:   startLine,
		EndLine:     endLine,
		SyntaxKind:  kind,
		Language:    "markdown",
		ContentType: ContentTypeMarkdown,
		Code:        code,
		Complexity:  ScoreComplexity(code),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type headingSection struct {
	name               string
	content            string
	startLine, endLine int
}

// parseHeadingSections splits content at each heading; a section runs from
// its heading line to the line before the next heading (of any level).
func parseHeadingSections(content string) []headingSection {
	lines := strings.Split(content, "\n")
	var sections []headingSection
	var current *headingSection
	var builder strings.Builder

	flush := func(endLine int) {
		if current == nil {
			return
		}
		current.content = strings.TrimRight(builder.String(), "\n")
		current.endLine = endLine
		sections = append(sections, *current)
		builder.Reset()
	}

	for i, line := range lines {
		lineNo := i + 1
		if match := headerPattern.FindStringSubmatch(line); match != nil {
			flush(lineNo - 1)
			current = &headingSection{name: strings.TrimSpace(match[2]), startLine: lineNo}
		}
		if current != nil {
			builder.WriteString(line)
			builder.WriteString("\n")
		}
	}
	flush(len(lines))

	return sections
}

type textBlock struct {
	name               string
	content            string
	startLine, endLine int
}

func findFencedCodeBlocks(content string) []textBlock {
	var blocks []textBlock
	for _, loc := range fencedCodeBlockPattern.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[0], loc[1]
		lang := strings.TrimSpace(content[loc[2]:loc[3]])
		name := "code-block"
		if lang != "" {
			name = lang
		}
		blocks = append(blocks, textBlock{
			name:      name,
			content:   content[start:end],
			startLine: 1 + strings.Count(content[:start], "\n"),
			endLine:   1 + strings.Count(content[:end], "\n"),
		})
	}
	return blocks
}

// findLineRuns groups maximal runs of consecutive lines matching pattern
// into single blocks, skipping lines already inside a fenced code block.
func findLineRuns(content string, pattern *regexp.Regexp, label string) []textBlock {
	excluded := fencedLineRanges(content)
	lines := strings.Split(content, "\n")

	var blocks []textBlock
	var runStart int = -1
	var runLines []string

	flush := func(endLine int) {
		if runStart == -1 {
			return
		}
		blocks = append(blocks, textBlock{
			name:      label,
			content:   strings.Join(runLines, "\n"),
			startLine: runStart,
			endLine:   endLine,
		})
		runStart = -1
		runLines = nil
	}

	for i, line := range lines {
		lineNo := i + 1
		if excluded[lineNo] || !pattern.MatchString(line) {
			flush(lineNo - 1)
			continue
		}
		if runStart == -1 {
			runStart = lineNo
		}
		runLines = append(runLines, line)
	}
	flush(len(lines))

	return blocks
}

// fencedLineRanges returns the set of 1-indexed lines inside any fenced
// code block, so list/quote scanning doesn't pick up "- item" style lines
// inside a code sample.
func fencedLineRanges(content string) map[int]bool {
	excluded := make(map[int]bool)
	for _, loc := range fencedCodeBlockPattern.FindAllStringIndex(content, -1) {
		start := 1 + strings.Count(content[:loc[0]], "\n")
		end := 1 + strings.Count(content[:loc[1]], "\n")
		for l := start; l <= end; l++ {
			excluded[l] = true
		}
	}
	return excluded
}
