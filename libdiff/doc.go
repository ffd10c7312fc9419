// Package libdiff computes structural differences between two trees.
//
// Object fields are aligned by name and sequence elements by value, each
// with a diff over the sequence of names or value summaries; aligned pairs
// are compared recursively. The result is a flat list of changes keyed by
// tree path:
//
//	for _, c := range libdiff.Diff(a.Tree, b.Tree) {
//		fmt.Println(c)
//	}
package libdiff
