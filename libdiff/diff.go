package libdiff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/signadot/tony-format/go-blocktree/ir"
)

type Op int

const (
	Delete Op = iota
	Insert
	Replace
	// Retag is a change of tag only; the values are equal.
	Retag
)

func (o Op) String() string {
	switch o {
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	case Replace:
		return "replace"
	case Retag:
		return "retag"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Change is one difference between two trees. From is nil for an insert
// and To is nil for a delete.
type Change struct {
	Path string
	Op   Op
	From *ir.Node
	To   *ir.Node
}

// Diff lists the changes turning from into to, in document order.
func Diff(from, to *ir.Node) []Change {
	var res []Change
	diff("$", from, to, &res)
	return res
}

func diff(path string, from, to *ir.Node, res *[]Change) {
	if from.Type != to.Type {
		*res = append(*res, Change{Path: path, Op: Replace, From: from, To: to})
		return
	}
	switch from.Type {
	case ir.ObjectType:
		diffObject(path, from, to, res)
	case ir.ArrayType:
		diffArray(path, from, to, res)
	default:
		if summary(from) != summary(to) {
			*res = append(*res, Change{Path: path, Op: Replace, From: from, To: to})
			return
		}
	}
	if from.Tag != to.Tag {
		*res = append(*res, Change{Path: path, Op: Retag, From: from, To: to})
	}
}

// summary is a one-line identity for a node: its type and, for scalars,
// its value. Containers summarize as their type only.
func summary(n *ir.Node) string {
	switch n.Type {
	case ir.BoolType:
		return n.Type.String() + "-" + strconv.FormatBool(n.Bool)
	case ir.StringType:
		return n.Type.String() + "-" + n.String
	case ir.NumberType:
		switch {
		case n.Int64 != nil:
			return n.Type.String() + "-i-" + strconv.FormatInt(*n.Int64, 10)
		case n.Float64 != nil:
			return n.Type.String() + "-f-" + strconv.FormatFloat(*n.Float64, 'g', -1, 64)
		}
		return n.Type.String() + "-n-" + n.Number
	}
	return n.Type.String()
}

func (c Change) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", c.Op, c.Path)
	switch c.Op {
	case Retag:
		fmt.Fprintf(&b, ": %q -> %q", c.From.Tag, c.To.Tag)
	case Replace:
		fmt.Fprintf(&b, ": %s -> %s", brief(c.From), brief(c.To))
	case Delete:
		fmt.Fprintf(&b, ": %s", brief(c.From))
	case Insert:
		fmt.Fprintf(&b, ": %s", brief(c.To))
	}
	return b.String()
}

func brief(n *ir.Node) string {
	s := summary(n)
	if n.Type == ir.ObjectType || n.Type == ir.ArrayType {
		s = fmt.Sprintf("%s(%d)", s, len(n.Values))
	}
	if n.Tag != "" {
		s = n.Tag + " " + s
	}
	return s
}
