package core

import (
	"github.com/signadot/tony-format/go-blocktree/ir"
	"github.com/signadot/tony-format/go-blocktree/table"
)

// TableToNode describes t as a table node with its columns in order.
func (c *Context) TableToNode(t *table.Table, path string) (*ir.Node, error) {
	return c.atomic(func() (*ir.Node, error) { return c.tableToNode(t, path) })
}

func (c *Context) tableToNode(t *table.Table, path string) (*ir.Node, error) {
	if t == nil {
		return nil, structural(path, "nil table")
	}
	cpath := ir.Join(path, "columns")
	for i, col := range t.Columns {
		if col == nil || col.Data == nil {
			return nil, structural(ir.JoinIndex(cpath, i), "column has no data")
		}
	}
	if err := checkColumns(t.Columns, path); err != nil {
		return nil, err
	}
	cols := make([]*ir.Node, len(t.Columns))
	for i, col := range t.Columns {
		n, err := c.columnToNode(col, ir.JoinIndex(cpath, i))
		if err != nil {
			return nil, err
		}
		cols[i] = n
	}
	kvs := []ir.KeyVal{kv("columns", ir.FromSlice(cols))}
	if len(t.Meta) != 0 {
		meta, err := metaNode(t.Meta, ir.Join(path, "meta"))
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, kv("meta", meta))
	}
	return ir.FromKeyVals(kvs).WithTag(TableTag), nil
}

// TableFromNode is the inverse of TableToNode. Either every column converts
// and the lengths agree, or no table is returned.
func (c *Context) TableFromNode(n *ir.Node) (*table.Table, error) {
	path := n.Path()
	if n.Type != ir.ObjectType {
		return nil, structural(path, "table must be a mapping, got %s", n.Type)
	}
	if n.Tag != TableTag {
		return nil, structural(path, "expected tag %s, got %q", TableTag, n.Tag)
	}
	cn := ir.Get(n, "columns")
	if cn == nil {
		return nil, structural(path, "table has no columns")
	}
	if cn.Type != ir.ArrayType {
		return nil, structural(ir.Join(path, "columns"), "columns must be a sequence, got %s", cn.Type)
	}
	cols := make([]*table.Column, len(cn.Values))
	for i, v := range cn.Values {
		col, err := c.ColumnFromNode(v)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	if err := checkColumns(cols, path); err != nil {
		return nil, err
	}
	meta, err := optMeta(n, "meta", path)
	if err != nil {
		return nil, err
	}
	return &table.Table{Columns: cols, Meta: meta}, nil
}

// checkColumns requires unique names and a common row count. A length
// mismatch names the first column and every column disagreeing with it.
func checkColumns(cols []*table.Column, path string) error {
	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if seen[col.Name] {
			return structural(path, "duplicate column %q", col.Name)
		}
		seen[col.Name] = true
	}
	if len(cols) == 0 {
		return nil
	}
	first := cols[0]
	var e *LengthMismatchError
	for _, col := range cols[1:] {
		if col.Len() == first.Len() {
			continue
		}
		if e == nil {
			e = &LengthMismatchError{Path: path, Columns: []string{first.Name}, Lengths: []int{first.Len()}}
		}
		e.Columns = append(e.Columns, col.Name)
		e.Lengths = append(e.Lengths, col.Len())
	}
	if e != nil {
		return e
	}
	return nil
}
