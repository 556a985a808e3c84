package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunker_SplitsHeadingSections(t *testing.T) {
	c := NewMarkdownChunker()
	defer c.Close()

	src := `# Title

Intro paragraph.

## Usage

Run it like this.

## Configuration

Set these options.
`
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "README.md", Content: []byte(src)})
	require.NoError(t, err)

	var headings []string
	for _, ch := range chunks {
		if ch.SyntaxKind == SyntaxKindHeading {
			headings = append(headings, ch.Name)
		}
	}
	assert.Equal(t, []string{"Title", "Usage", "Configuration"}, headings)
}

func TestMarkdownChunker_SkipsFrontmatterButOffsetsLines(t *testing.T) {
	c := NewMarkdownChunker()
	defer c.Close()

	src := "---\ntitle: doc\n---\n# Heading\n\nbody\n"
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "doc.md", Content: []byte(src)})
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Heading", chunks[0].Name)
	assert.Equal(t, 4, chunks[0].StartLine)
}

func TestMarkdownChunker_ExtractsFencedCodeBlockByLanguage(t *testing.T) {
	c := NewMarkdownChunker()
	defer c.Close()

	src := "# Example\n\n```go\nfunc main() {}\n```\n"
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "example.md", Content: []byte(src)})
	require.NoError(t, err)

	var code *Chunk
	for _, ch := range chunks {
		if ch.SyntaxKind == SyntaxKindCodeBlock {
			code = ch
		}
	}
	require.NotNil(t, code)
	assert.Equal(t, "go", code.Name)
}

func TestMarkdownChunker_ExtractsListsAndBlockQuotesAndThematicBreaks(t *testing.T) {
	c := NewMarkdownChunker()
	defer c.Close()

	src := `# Notes

- first item
- second item

> quoted line
> another quoted line

---
`
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "notes.md", Content: []byte(src)})
	require.NoError(t, err)

	var kinds []SyntaxKind
	for _, ch := range chunks {
		kinds = append(kinds, ch.SyntaxKind)
	}
	assert.Contains(t, kinds, SyntaxKindList)
	assert.Contains(t, kinds, SyntaxKindBlockQuote)
	assert.Contains(t, kinds, SyntaxKindThematicBreak)
}

func TestMarkdownChunker_IgnoresListMarkersInsideFencedCode(t *testing.T) {
	c := NewMarkdownChunker()
	defer c.Close()

	src := "# Demo\n\n```\n- not a list\n- still code\n```\n"
	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "demo.md", Content: []byte(src)})
	require.NoError(t, err)

	for _, ch := range chunks {
		assert.NotEqual(t, SyntaxKindList, ch.SyntaxKind)
	}
}

func TestMarkdownChunker_EmptyFile_ReturnsNoChunks(t *testing.T) {
	c := NewMarkdownChunker()
	defer c.Close()

	chunks, err := c.Chunk(context.Background(), &FileInput{Path: "empty.md", Content: []byte("   \n\n  ")})
	require.NoError(t, err)
	assert.Nil(t, chunks)
}
