package table

import (
	"errors"
	"fmt"
	"slices"

	"github.com/signadot/tony-format/go-blocktree/ndarray"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrNoColumn        = errors.New("no such column")
	ErrLength          = errors.New("column length mismatch")
)

// Column is one named column of a Table. Data's leading dimension is the
// row count; trailing dimensions make each cell a fixed-shape sub-array.
type Column struct {
	Name string
	Data *ndarray.Array
	// Mask, when set, is a bool8 array shaped like Data; true marks a
	// masked (missing) cell.
	Mask        *ndarray.Array
	Unit        string
	Description string
	Meta        map[string]any
}

func (c *Column) Len() int { return c.Data.Len() }

func (c *Column) IsMasked() bool { return c.Mask != nil }

// Masked reports whether the cell at idx is masked.
func (c *Column) Masked(idx ...int) (bool, error) {
	if c.Mask == nil {
		return false, nil
	}
	v, err := c.Mask.At(idx...)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Table is an ordered set of equal-length columns. Column order is
// significant and preserved.
type Table struct {
	Columns []*Column
	Meta    map[string]any
}

// New checks that column names are unique and lengths agree.
func New(cols ...*Column) (*Table, error) {
	t := &Table{Columns: cols}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = true
		if c.Data == nil {
			return fmt.Errorf("column %q has no data", c.Name)
		}
		if c.Data.NDim() == 0 {
			return fmt.Errorf("column %q has 0-d data", c.Name)
		}
		if c.Mask != nil && !slices.Equal(c.Mask.Shape, c.Data.Shape) {
			return fmt.Errorf("column %q: mask shape %v does not match data shape %v", c.Name, c.Mask.Shape, c.Data.Shape)
		}
	}
	if len(t.Columns) == 0 {
		return nil
	}
	n := t.Columns[0].Len()
	for _, c := range t.Columns[1:] {
		if c.Len() != n {
			return fmt.Errorf("%w: %q has %d rows, %q has %d", ErrLength, t.Columns[0].Name, n, c.Name, c.Len())
		}
	}
	return nil
}

// Len is the row count.
func (t *Table) Len() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

func (t *Table) Names() []string {
	res := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		res[i] = c.Name
	}
	return res
}

func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Row decodes row i, one value per column. Sub-array cells come back as
// nested []any.
func (t *Table) Row(i int) ([]any, error) {
	res := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		cell, err := c.Data.Index(i)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		v, err := cell.Values()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		res[j] = v
	}
	return res, nil
}

// SetMask attaches a per-row mask to a one-dimensional column.
func (t *Table) SetMask(name string, mask []bool) error {
	c := t.Column(name)
	if c == nil {
		return fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	if c.Data.NDim() != 1 {
		return fmt.Errorf("column %q: row mask on %d-d data", name, c.Data.NDim())
	}
	if len(mask) != c.Len() {
		return fmt.Errorf("%w: mask for %q has %d rows, column has %d", ErrLength, name, len(mask), c.Len())
	}
	m := ndarray.New(ndarray.Scalar(ndarray.Bool), len(mask))
	for i, v := range mask {
		if err := m.SetAt(v, i); err != nil {
			return err
		}
	}
	c.Mask = m
	return nil
}
