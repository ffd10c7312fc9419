package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-blocktree/table"
)

func showTable(cfg *TableConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Table.Parse(cc, args)
	if err != nil {
		cfg.Table.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: table requires one file", cli.ErrUsage)
	}
	key := cfg.Key
	if key == "" {
		key = cfg.conf.Pack.Key
	}
	d, err := cfg.readDoc(args[0])
	if err != nil {
		return err
	}
	n := d.Get(key)
	if n == nil {
		return fmt.Errorf("%s has no key %q (keys: %s)", args[0], key, strings.Join(d.Keys(), ", "))
	}
	t, err := d.Context().TableFromNode(n)
	if err != nil {
		return err
	}
	return renderTable(cc.Out, cfg.colors(cc.Out), t)
}

type maskedCell struct{}

func (maskedCell) String() string { return "--" }

func renderTable(w io.Writer, cs *colors, t *table.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	head := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = c.Name
		if c.Unit != "" {
			head[i] += " [" + c.Unit + "]"
		}
		head[i] = cs.head.Sprint(head[i])
	}
	fmt.Fprintln(tw, strings.Join(head, "\t"))
	for i := range t.Len() {
		row, err := t.Row(i)
		if err != nil {
			return err
		}
		cells := make([]string, len(row))
		for j, c := range t.Columns {
			v, err := maskCell(c, i, row[j])
			if err != nil {
				return err
			}
			if _, ok := v.(maskedCell); ok {
				cells[j] = cs.masked.Sprint(v)
				continue
			}
			cells[j] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// maskCell replaces the masked elements of cell i with maskedCell.
func maskCell(c *table.Column, i int, v any) (any, error) {
	if c.Mask == nil {
		return v, nil
	}
	m, err := c.Mask.Index(i)
	if err != nil {
		return nil, err
	}
	mv, err := m.Values()
	if err != nil {
		return nil, err
	}
	return applyMask(v, mv), nil
}

func applyMask(v, mask any) any {
	switch m := mask.(type) {
	case bool:
		if m {
			return maskedCell{}
		}
	case []any:
		vs, ok := v.([]any)
		if !ok || len(vs) != len(m) {
			return v
		}
		res := make([]any, len(vs))
		for i := range vs {
			res[i] = applyMask(vs[i], m[i])
		}
		return res
	}
	return v
}
