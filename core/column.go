package core

import (
	"fmt"

	"github.com/signadot/tony-format/go-blocktree/ir"
	"github.com/signadot/tony-format/go-blocktree/ndarray"
	"github.com/signadot/tony-format/go-blocktree/table"
)

// ColumnToNode describes col as a column node. The data and the mask, if
// any, become ndarray nodes of their own.
func (c *Context) ColumnToNode(col *table.Column, path string) (*ir.Node, error) {
	return c.atomic(func() (*ir.Node, error) { return c.columnToNode(col, path) })
}

func (c *Context) columnToNode(col *table.Column, path string) (*ir.Node, error) {
	if col == nil {
		return nil, structural(path, "nil column")
	}
	if col.Data == nil {
		return nil, structural(path, "column %q has no data", col.Name)
	}
	if col.Data.NDim() == 0 {
		return nil, &ShapeMismatchError{Path: ir.Join(path, "data"), Message: fmt.Sprintf("column %q data is 0-d", col.Name)}
	}
	if err := checkMask(col, path); err != nil {
		return nil, err
	}
	data, err := c.arrayToNode(col.Data, ir.Join(path, "data"))
	if err != nil {
		return nil, err
	}
	kvs := []ir.KeyVal{
		kv("name", ir.FromString(col.Name)),
		kv("data", data),
	}
	if col.Mask != nil {
		mask, err := c.arrayToNode(col.Mask, ir.Join(path, "mask"))
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, kv("mask", mask))
	}
	if col.Unit != "" {
		kvs = append(kvs, kv("unit", ir.FromString(col.Unit)))
	}
	if col.Description != "" {
		kvs = append(kvs, kv("description", ir.FromString(col.Description)))
	}
	if len(col.Meta) != 0 {
		meta, err := metaNode(col.Meta, ir.Join(path, "meta"))
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, kv("meta", meta))
	}
	return ir.FromKeyVals(kvs).WithTag(ColumnTag), nil
}

// ColumnFromNode is the inverse of ColumnToNode.
func (c *Context) ColumnFromNode(n *ir.Node) (*table.Column, error) {
	path := n.Path()
	if n.Type != ir.ObjectType {
		return nil, structural(path, "column must be a mapping, got %s", n.Type)
	}
	if n.Tag != ColumnTag {
		return nil, structural(path, "expected tag %s, got %q", ColumnTag, n.Tag)
	}
	name := ir.Get(n, "name")
	if name == nil || name.Type != ir.StringType {
		return nil, structural(path, "column has no name")
	}
	dn := ir.Get(n, "data")
	if dn == nil {
		return nil, structural(path, "column %q has no data", name.String)
	}
	data, err := c.ArrayFromNode(dn)
	if err != nil {
		return nil, err
	}
	if data.NDim() == 0 {
		return nil, &ShapeMismatchError{Path: dn.Path(), Message: fmt.Sprintf("column %q data is 0-d", name.String)}
	}
	col := &table.Column{Name: name.String, Data: data}
	if mn := ir.Get(n, "mask"); mn != nil {
		if col.Mask, err = c.ArrayFromNode(mn); err != nil {
			return nil, err
		}
		if err := checkMask(col, path); err != nil {
			return nil, err
		}
	}
	if col.Unit, err = optString(n, "unit", path); err != nil {
		return nil, err
	}
	if col.Description, err = optString(n, "description", path); err != nil {
		return nil, err
	}
	if col.Meta, err = optMeta(n, "meta", path); err != nil {
		return nil, err
	}
	return col, nil
}

// checkMask requires a bool8 mask with one entry per data element.
func checkMask(col *table.Column, path string) error {
	if col.Mask == nil {
		return nil
	}
	mpath := ir.Join(path, "mask")
	if col.Mask.DType.Kind != ndarray.Bool {
		return &UnsupportedTypeError{Path: mpath, Message: fmt.Sprintf("mask of column %q is %s, not bool8", col.Name, col.Mask.DType)}
	}
	if col.Mask.Size() != col.Data.Size() {
		return &ShapeMismatchError{
			Path:    mpath,
			Message: fmt.Sprintf("mask of column %q has %d elements, data has %d", col.Name, col.Mask.Size(), col.Data.Size()),
		}
	}
	return nil
}
