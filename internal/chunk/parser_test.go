package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ParseGo_ReturnsFunctionDeclarations(t *testing.T) {
	source := []byte(`package main

func hello() {
	println("hello")
}

func goodbye() {
	println("bye")
}
`)
	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, "go", tree.Language)

	assert.Len(t, tree.Root.FindAllByType("function_declaration"), 2)
}

func TestParser_ParseTypeScript_ReturnsInterfaceAndFunction(t *testing.T) {
	source := []byte(`interface User {
	name: string;
}

function greet(user: User): string {
	return "hi " + user.name;
}

const add = (a: number, b: number): number => a + b;
`)
	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "typescript")
	require.NoError(t, err)
	assert.Len(t, tree.Root.FindAllByType("interface_declaration"), 1)
	assert.Len(t, tree.Root.FindAllByType("function_declaration"), 1)
}

func TestParser_Parse_UnsupportedLanguage_ReturnsError(t *testing.T) {
	parser := NewParser()
	defer parser.Close()

	_, err := parser.Parse(context.Background(), []byte("whatever"), "cobol")
	assert.Error(t, err)
}

func TestNode_WalkAncestry_ReportsParentChain(t *testing.T) {
	source := []byte(`fn outer() { struct Inner {} }`)
	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "rust")
	require.NoError(t, err)

	var sawFunctionAncestor bool
	tree.Root.WalkAncestry(func(n *Node, ancestors []string) {
		if n.Type == "struct_item" && ancestryContains(ancestors, []string{"function_item"}) {
			sawFunctionAncestor = true
		}
	})
	assert.True(t, sawFunctionAncestor)
}

func TestNode_GetContent_ReturnsExactSpan(t *testing.T) {
	source := []byte("package main\n\nfunc hi() {}\n")
	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")
	require.NoError(t, err)

	fn := tree.Root.FindAllByType("function_declaration")
	require.Len(t, fn, 1)
	assert.Contains(t, fn[0].GetContent(source), "func hi()")
}
