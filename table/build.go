package table

import (
	"fmt"

	"github.com/signadot/tony-format/go-blocktree/ndarray"
)

// FromRows builds a table with one freshly allocated buffer per column.
func FromRows(names []string, dtypes []*ndarray.DType, rows [][]any) (*Table, error) {
	if len(names) != len(dtypes) {
		return nil, fmt.Errorf("%d names for %d types", len(names), len(dtypes))
	}
	cols := make([]*Column, len(names))
	for j, name := range names {
		data := ndarray.New(dtypes[j], len(rows))
		for i, row := range rows {
			if len(row) != len(names) {
				return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(names))
			}
			if err := data.SetAt(row[j], i); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, name, err)
			}
		}
		cols[j] = &Column{Name: name, Data: data}
	}
	return New(cols...)
}

// FromStructured builds a table whose columns are the fields of a 1-d
// structured array. The columns are views: they all share a's buffer.
func FromStructured(a *ndarray.Array) (*Table, error) {
	if a.DType.Kind != ndarray.Struct {
		return nil, fmt.Errorf("%s is not a structured type", a.DType)
	}
	if a.NDim() != 1 {
		return nil, fmt.Errorf("structured table source must be 1-d, got shape %v", a.Shape)
	}
	cols := make([]*Column, len(a.DType.Fields))
	for i, f := range a.DType.Fields {
		data, err := a.Field(f.Name)
		if err != nil {
			return nil, err
		}
		cols[i] = &Column{Name: f.Name, Data: data}
	}
	return New(cols...)
}
