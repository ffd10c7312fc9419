package libdiff

import (
	"github.com/signadot/tony-format/go-blocktree/ir"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// diffObject aligns the two field lists by name, reporting fields present
// on one side only and recursing into fields present on both.
func diffObject(path string, from, to *ir.Node, res *[]Change) {
	fieldMap := map[string]rune{}
	runeMap := map[rune]string{}
	fromRunes := mapFieldsTo(fieldMap, runeMap, from)
	toRunes := mapFieldsTo(fieldMap, runeMap, to)
	diffCfg := diffpatch.New()
	diffs := diffCfg.DiffMainRunes(fromRunes, toRunes, false)
	fi, ti := 0, 0
	for i := range diffs {
		d := &diffs[i]
		switch d.Type {
		case diffpatch.DiffDelete:
			for _, r := range d.Text {
				*res = append(*res, Change{Path: ir.Join(path, runeMap[r]), Op: Delete, From: from.Values[fi]})
				fi++
			}
		case diffpatch.DiffEqual:
			for _, r := range d.Text {
				diff(ir.Join(path, runeMap[r]), from.Values[fi], to.Values[ti], res)
				fi++
				ti++
			}
		case diffpatch.DiffInsert:
			for _, r := range d.Text {
				*res = append(*res, Change{Path: ir.Join(path, runeMap[r]), Op: Insert, To: to.Values[ti]})
				ti++
			}
		}
	}
}

func mapFieldsTo(m map[string]rune, im map[rune]string, node *ir.Node) []rune {
	rs := make([]rune, len(node.Fields))
	for i := range node.Fields {
		f := node.Fields[i].String
		r, ok := m[f]
		if !ok {
			r = rune(len(m))
			m[f] = r
			im[r] = f
		}
		rs[i] = r
	}
	return rs
}
