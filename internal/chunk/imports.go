package chunk

import (
	"regexp"
	"strings"
)

// importBinding is one name introduced into file scope by an import/use
// declaration, paired with the verbatim source text of that declaration.
type importBinding struct {
	name string
	text string
}

// extractImportBindings walks the file's top-level import/use declarations
// in source order and returns the names they bind.
func extractImportBindings(tree *Tree, language string) []importBinding {
	var bindings []importBinding

	switch language {
	case "go":
		for _, node := range tree.Root.Children {
			if node.Type != "import_declaration" {
				continue
			}
			text := node.GetContent(tree.Source)
			for _, spec := range node.FindAllByType("import_spec") {
				bindings = append(bindings, importBinding{name: goImportBindingName(spec, tree.Source), text: text})
			}
		}

	case "typescript", "tsx", "javascript", "jsx":
		for _, node := range tree.Root.Children {
			if node.Type != "import_statement" {
				continue
			}
			text := node.GetContent(tree.Source)
			for _, name := range jsImportBindingNames(node, tree.Source) {
				bindings = append(bindings, importBinding{name: name, text: text})
			}
		}

	case "python":
		for _, node := range tree.Root.Children {
			if node.Type != "import_statement" && node.Type != "import_from_statement" {
				continue
			}
			text := node.GetContent(tree.Source)
			for _, name := range pythonImportBindingNames(node, tree.Source) {
				bindings = append(bindings, importBinding{name: name, text: text})
			}
		}

	case "rust":
		for _, node := range tree.Root.Children {
			if node.Type != "use_declaration" {
				continue
			}
			text := node.GetContent(tree.Source)
			for _, child := range node.FindAllByType("identifier") {
				bindings = append(bindings, importBinding{name: child.GetContent(tree.Source), text: text})
			}
		}
	}

	return bindings
}

func goImportBindingName(spec *Node, source []byte) string {
	for _, child := range spec.Children {
		if child.Type == "package_identifier" {
			return child.GetContent(source)
		}
	}
	for _, child := range spec.Children {
		if child.Type == "interpreted_string_literal" {
			path := strings.Trim(child.GetContent(source), `"`)
			parts := strings.Split(path, "/")
			return parts[len(parts)-1]
		}
	}
	return ""
}

func jsImportBindingNames(importStmt *Node, source []byte) []string {
	var names []string
	for _, child := range importStmt.Children {
		switch child.Type {
		case "identifier":
			names = append(names, child.GetContent(source))
		case "namespace_import":
			for _, gc := range child.FindAllByType("identifier") {
				names = append(names, gc.GetContent(source))
			}
		case "named_imports":
			for _, spec := range child.FindChildrenByType("import_specifier") {
				ids := spec.FindChildrenByType("identifier")
				if len(ids) == 0 {
					continue
				}
				// Last identifier is the local binding (alias if "as" present).
				names = append(names, ids[len(ids)-1].GetContent(source))
			}
		}
	}
	return names
}

func pythonImportBindingNames(node *Node, source []byte) []string {
	var names []string
	for _, aliased := range node.FindAllByType("aliased_import") {
		ids := aliased.FindChildrenByType("identifier")
		if len(ids) > 0 {
			names = append(names, ids[len(ids)-1].GetContent(source))
		}
	}
	if len(names) > 0 {
		return names
	}
	for _, dotted := range node.FindAllByType("dotted_name") {
		ids := dotted.FindChildrenByType("identifier")
		if len(ids) > 0 {
			names = append(names, ids[0].GetContent(source))
		}
	}
	for _, id := range node.FindChildrenByType("identifier") {
		names = append(names, id.GetContent(source))
	}
	return names
}

// importsReferenced returns, in the order bindings were declared, the
// verbatim import text for every binding whose name appears as a
// word-bounded identifier inside code.
func importsReferenced(code string, bindings []importBinding) []string {
	var result []string
	seen := make(map[string]bool)
	for _, b := range bindings {
		if b.name == "" || seen[b.text] {
			continue
		}
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(b.name) + `\b`)
		if pattern.MatchString(code) {
			result = append(result, b.text)
			seen[b.text] = true
		}
	}
	return result
}
