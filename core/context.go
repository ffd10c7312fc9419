package core

import (
	"github.com/signadot/tony-format/go-blocktree/block"
	"github.com/signadot/tony-format/go-blocktree/debug"
	"github.com/signadot/tony-format/go-blocktree/ir"
	"github.com/signadot/tony-format/go-blocktree/ndarray"
	"github.com/signadot/tony-format/go-blocktree/table"
)

// Tags of the node kinds this package converts.
const (
	TableTag   = "!core/table"
	ColumnTag  = "!core/column"
	NDArrayTag = "!core/ndarray"
)

// Tags lists the registered tags.
func Tags() []string {
	return []string{TableTag, ColumnTag, NDArrayTag}
}

// Context carries the per-document state every converter shares: the block
// manager and the inline threshold.
//
// A Context, like its Manager, is not safe for concurrent use.
type Context struct {
	Blocks *block.Manager
	// InlineThreshold is the largest element count written inline in the
	// tree. block.NoInline (or any negative value) never inlines.
	InlineThreshold int
}

func NewContext(blocks *block.Manager, inlineThreshold int) *Context {
	return &Context{Blocks: blocks, InlineThreshold: inlineThreshold}
}

// ToNode converts one of the registered in-memory types. ok is false when v
// has no converter.
func (c *Context) ToNode(v any, path string) (n *ir.Node, ok bool, err error) {
	n, err = c.atomic(func() (*ir.Node, error) {
		n, ok, err = c.toNode(v, path)
		return n, err
	})
	return n, ok, err
}

func (c *Context) toNode(v any, path string) (n *ir.Node, ok bool, err error) {
	switch x := v.(type) {
	case *table.Table:
		n, err = c.tableToNode(x, path)
	case *table.Column:
		n, err = c.columnToNode(x, path)
	case *ndarray.Array:
		n, err = c.arrayToNode(x, path)
	default:
		return nil, false, nil
	}
	if debug.Convert() {
		debug.Logf("convert %s: %T\n", path, v)
	}
	return n, true, err
}

// FromNode converts a node carrying one of the registered tags. ok is false
// for any other node.
func (c *Context) FromNode(n *ir.Node) (v any, ok bool, err error) {
	switch n.Tag {
	case TableTag:
		v, err = c.TableFromNode(n)
	case ColumnTag:
		v, err = c.ColumnFromNode(n)
	case NDArrayTag:
		v, err = c.ArrayFromNode(n)
	default:
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

// atomic runs a save conversion, releasing any blocks it registered if it
// fails.
func (c *Context) atomic(fn func() (*ir.Node, error)) (*ir.Node, error) {
	mk := c.Blocks.Mark()
	n, err := fn()
	if err != nil {
		c.Blocks.Rollback(mk)
		return nil, err
	}
	return n, nil
}

func kv(key string, val *ir.Node) ir.KeyVal {
	return ir.KeyVal{Key: ir.FromString(key), Val: val}
}

// optString reads an optional string field.
func optString(n *ir.Node, field, path string) (string, error) {
	v := ir.Get(n, field)
	if v == nil {
		return "", nil
	}
	if v.Type != ir.StringType {
		return "", structural(ir.Join(path, field), "expected a string, got %s", v.Type)
	}
	return v.String, nil
}

// optMeta reads an optional free-form mapping.
func optMeta(n *ir.Node, field, path string) (map[string]any, error) {
	v := ir.Get(n, field)
	if v == nil {
		return nil, nil
	}
	if v.Type != ir.ObjectType {
		return nil, structural(ir.Join(path, field), "expected a mapping, got %s", v.Type)
	}
	m, err := v.ToAny()
	if err != nil {
		return nil, &UnsupportedTypeError{Path: ir.Join(path, field), Message: "metadata", Err: err}
	}
	return m.(map[string]any), nil
}

func metaNode(m map[string]any, path string) (*ir.Node, error) {
	n, err := ir.FromAny(m)
	if err != nil {
		return nil, &UnsupportedTypeError{Path: path, Message: "metadata value", Err: err}
	}
	return n, nil
}
