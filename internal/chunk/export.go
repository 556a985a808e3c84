package chunk

import "strings"

// isExported reports whether a node's declaration is visible outside its
// file/module, per the language's visibility convention.
func isExported(n *Node, source []byte, name string, language string, ancestors []string) bool {
	switch language {
	case "go":
		// Go's export marker is capitalization, not a syntax node.
		return name != "" && name[0] >= 'A' && name[0] <= 'Z'

	case "typescript", "tsx", "javascript", "jsx":
		return ancestryContains(ancestors, []string{"export_statement"})

	case "python":
		// Convention: a leading underscore marks a non-public symbol.
		return name != "" && !strings.HasPrefix(name, "_")

	case "rust":
		for _, child := range n.Children {
			if child.Type == "visibility_modifier" {
				return true
			}
		}
		return false

	default:
		return false
	}
}
