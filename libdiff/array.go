package libdiff

import (
	"github.com/signadot/tony-format/go-blocktree/ir"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// diffArray aligns the elements by their summaries and recurses into
// aligned pairs. A delete directly followed by an insert at the same
// position is reported as a replace. Paths of deleted elements use their
// index in from; all others use their index in to.
func diffArray(path string, from, to *ir.Node, res *[]Change) {
	m := map[string]rune{}
	fromRunes := mapValues(m, from)
	toRunes := mapValues(m, to)
	diffCfg := diffpatch.New()
	diffs := diffCfg.DiffMainRunes(fromRunes, toRunes, false)

	fi, ti := 0, 0
	var pending []int
	for i := range diffs {
		d := &diffs[i]
		n := len([]rune(d.Text))
		switch d.Type {
		case diffpatch.DiffDelete:
			for range n {
				pending = append(pending, fi)
				fi++
			}
		case diffpatch.DiffEqual:
			flushDeletes(path, from, pending, res)
			pending = nil
			for range n {
				diff(ir.JoinIndex(path, ti), from.Values[fi], to.Values[ti], res)
				fi++
				ti++
			}
		case diffpatch.DiffInsert:
			for range n {
				if len(pending) != 0 {
					*res = append(*res, Change{
						Path: ir.JoinIndex(path, ti),
						Op:   Replace,
						From: from.Values[pending[0]],
						To:   to.Values[ti],
					})
					pending = pending[1:]
				} else {
					*res = append(*res, Change{Path: ir.JoinIndex(path, ti), Op: Insert, To: to.Values[ti]})
				}
				ti++
			}
		}
	}
	flushDeletes(path, from, pending, res)
}

func flushDeletes(path string, from *ir.Node, idxs []int, res *[]Change) {
	for _, i := range idxs {
		*res = append(*res, Change{Path: ir.JoinIndex(path, i), Op: Delete, From: from.Values[i]})
	}
}

func mapValues(m map[string]rune, node *ir.Node) []rune {
	rs := make([]rune, len(node.Values))
	for i, v := range node.Values {
		sum := summary(v)
		r, ok := m[sum]
		if !ok {
			r = rune(len(m))
			m[sum] = r
		}
		rs[i] = r
	}
	return rs
}
