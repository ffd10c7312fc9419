package libdiff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/tony-format/go-blocktree/ir"
)

func obj(kvs ...any) *ir.Node {
	res := make([]ir.KeyVal, 0, len(kvs)/2)
	for i := 0; i < len(kvs); i += 2 {
		res = append(res, ir.KeyVal{Key: ir.FromString(kvs[i].(string)), Val: kvs[i+1].(*ir.Node)})
	}
	return ir.FromKeyVals(res)
}

func ints(xs ...int64) *ir.Node {
	vals := make([]*ir.Node, len(xs))
	for i, x := range xs {
		vals[i] = ir.FromInt(x)
	}
	return ir.FromSlice(vals)
}

type summaryChange struct {
	Path string
	Op   string
}

func summarize(cs []Change) []summaryChange {
	res := make([]summaryChange, len(cs))
	for i, c := range cs {
		res[i] = summaryChange{Path: c.Path, Op: c.Op.String()}
	}
	return res
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		from, to *ir.Node
		want     []summaryChange
	}{
		{
			name: "equal",
			from: obj("a", ints(1, 2)),
			to:   obj("a", ints(1, 2)),
		},
		{
			name: "fields",
			from: obj("a", ir.FromInt(1), "b", ir.FromString("x")),
			to:   obj("b", ir.FromString("y"), "c", ir.Null()),
			want: []summaryChange{
				{"$.a", "delete"},
				{"$.b", "replace"},
				{"$.c", "insert"},
			},
		},
		{
			name: "array",
			from: obj("shape", ints(3, 4)),
			to:   obj("shape", ints(3, 5, 6)),
			want: []summaryChange{
				{"$.shape[1]", "replace"},
				{"$.shape[2]", "insert"},
			},
		},
		{
			name: "array delete",
			from: ints(1, 2, 3),
			to:   ints(1, 3),
			want: []summaryChange{{"$[1]", "delete"}},
		},
		{
			name: "tag",
			from: obj("t", obj().WithTag("!core/table")),
			to:   obj("t", obj().WithTag("!core/column")),
			want: []summaryChange{{"$.t", "retag"}},
		},
		{
			name: "type",
			from: obj("v", ir.FromInt(1)),
			to:   obj("v", ir.FromFloat(1)),
			want: []summaryChange{{"$.v", "replace"}},
		},
		{
			name: "nested",
			from: obj("t", obj("columns", ir.FromSlice([]*ir.Node{obj("name", ir.FromString("a"))}))),
			to:   obj("t", obj("columns", ir.FromSlice([]*ir.Node{obj("name", ir.FromString("b"))}))),
			want: []summaryChange{{"$.t.columns[0].name", "replace"}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := summarize(Diff(test.from, test.to))
			if len(test.want) == 0 && len(got) == 0 {
				return
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestChangeString(t *testing.T) {
	c := Change{Path: "$.a", Op: Replace, From: ir.FromInt(1), To: ir.FromString("x")}
	if got, want := c.String(), "replace $.a: Number-i-1 -> String-x"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
