package chunk

// WalkAncestry traverses the tree depth-first, calling fn for every node
// together with the node types of its ancestors (root-to-parent order).
// Used where a node's classification depends on its containing node, e.g.
// a Rust function_item nested in an impl_item is a method, not a function.
func (n *Node) WalkAncestry(fn func(node *Node, ancestors []string)) {
	var walk func(node *Node, ancestors []string)
	walk = func(node *Node, ancestors []string) {
		fn(node, ancestors)
		childAncestors := make([]string, len(ancestors)+1)
		copy(childAncestors, ancestors)
		childAncestors[len(ancestors)] = node.Type
		for _, child := range node.Children {
			walk(child, childAncestors)
		}
	}
	walk(n, nil)
}

func containsType(types []string, t string) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

func ancestryContains(ancestors []string, types []string) bool {
	for _, a := range ancestors {
		if containsType(types, a) {
			return true
		}
	}
	return false
}
