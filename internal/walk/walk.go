// Package walk provides iterative pre-order traversal over parent/children
// relations expressed as identifiers.
package walk

// PreOrder visits every node reachable from roots in pre-order: a node is
// visited before its descendants, and a child's whole subtree before the
// next sibling. children returns the ordered direct children of a node.
//
// Each identifier is visited at most once, so cyclic input terminates.
// The walk uses an explicit stack and stops early when visit returns false.
// It reports whether the walk ran to completion.
func PreOrder[ID comparable](roots []ID, children func(ID) []ID, visit func(ID) bool) bool {
	seen := make(map[ID]struct{})
	stack := make([]ID, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if !visit(id) {
			return false
		}

		kids := children(id)
		for i := len(kids) - 1; i >= 0; i-- {
			if _, ok := seen[kids[i]]; !ok {
				stack = append(stack, kids[i])
			}
		}
	}
	return true
}

// Subtree returns the identifiers of root and all its descendants in
// pre-order, root first.
func Subtree[ID comparable](root ID, children func(ID) []ID) []ID {
	var out []ID
	PreOrder([]ID{root}, children, func(id ID) bool {
		out = append(out, id)
		return true
	})
	return out
}
