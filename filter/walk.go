package filter

import "sort"

// Walk visits expr and its descendants in pre-order. Returning false from
// fn skips the children of the current node.
func Walk(expr Expression, fn func(Expression) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	if l, ok := expr.(*Logical); ok {
		for _, child := range l.children {
			Walk(child, fn)
		}
	}
}

// Paths returns the sorted, distinct attribute paths referenced by expr.
func Paths(expr Expression) []string {
	seen := make(map[string]bool)
	Walk(expr, func(e Expression) bool {
		if c, ok := e.(*Comparison); ok {
			seen[c.path] = true
		}
		return true
	})
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
