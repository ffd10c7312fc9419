package core

import (
	"maps"
	"slices"

	"github.com/signadot/tony-format/go-blocktree/debug"
	"github.com/signadot/tony-format/go-blocktree/ir"
)

// ConvertToTree turns an in-memory document into a tree. Registered types
// are converted wherever they appear; maps (in sorted key order), slices and
// plain values pass through, and *ir.Node values are copied as they are.
// On error no blocks registered during the call remain in the manager.
func (c *Context) ConvertToTree(v any) (*ir.Node, error) {
	return c.atomic(func() (*ir.Node, error) { return c.toTree(v, "$") })
}

func (c *Context) toTree(v any, path string) (*ir.Node, error) {
	switch x := v.(type) {
	case map[string]any:
		kvs := make([]ir.KeyVal, 0, len(x))
		for _, k := range slices.Sorted(maps.Keys(x)) {
			n, err := c.toTree(x[k], ir.Join(path, k))
			if err != nil {
				return nil, err
			}
			kvs = append(kvs, kv(k, n))
		}
		return ir.FromKeyVals(kvs), nil
	case []any:
		vals := make([]*ir.Node, len(x))
		for i, e := range x {
			n, err := c.toTree(e, ir.JoinIndex(path, i))
			if err != nil {
				return nil, err
			}
			vals[i] = n
		}
		return ir.FromSlice(vals), nil
	}
	n, ok, err := c.toNode(v, path)
	if ok {
		return n, err
	}
	n, err = ir.FromAny(v)
	if err != nil {
		return nil, &UnsupportedTypeError{Path: path, Message: "no tree form", Err: err}
	}
	return n, nil
}

// ConvertFromTree is the inverse of ConvertToTree. Nodes carrying a
// registered tag become their in-memory types; other objects become
// map[string]any and sequences []any. Tags without a converter are dropped.
func (c *Context) ConvertFromTree(n *ir.Node) (any, error) {
	if v, ok, err := c.FromNode(n); ok {
		if err != nil {
			return nil, err
		}
		if debug.Convert() {
			debug.Logf("convert %s: %s\n", n.Path(), n.Tag)
		}
		return v, nil
	}
	switch n.Type {
	case ir.ObjectType:
		res := make(map[string]any, len(n.Fields))
		for i, f := range n.Fields {
			if f.Type != ir.StringType {
				return nil, structural(n.Path(), "%s key in mapping", f.Type)
			}
			v, err := c.ConvertFromTree(n.Values[i])
			if err != nil {
				return nil, err
			}
			res[f.String] = v
		}
		return res, nil
	case ir.ArrayType:
		res := make([]any, len(n.Values))
		for i, e := range n.Values {
			v, err := c.ConvertFromTree(e)
			if err != nil {
				return nil, err
			}
			res[i] = v
		}
		return res, nil
	}
	return n.ToAny()
}
