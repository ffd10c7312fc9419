package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-blocktree/config"
	"github.com/signadot/tony-format/go-blocktree/document"
	"github.com/signadot/tony-format/go-blocktree/ndarray"
	"github.com/signadot/tony-format/go-blocktree/table"
)

func pack(cfg *PackConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Pack.Parse(cc, args)
	if err != nil {
		cfg.Pack.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: pack requires one csv file", cli.ErrUsage)
	}
	if f, ok := cc.Out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return fmt.Errorf("%w: refusing to write a document to a terminal, use -o", cli.ErrUsage)
	}
	pc := cfg.conf.Pack
	if cfg.Key != "" {
		pc.Key = cfg.Key
	}
	pc.Structured = pc.Structured || cfg.Structured

	var r io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	ct, err := readCSV(r, pc.Delimiter)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", args[0], err)
	}
	t, err := ct.build(pc)
	if err != nil {
		return fmt.Errorf("error building table from %s: %w", args[0], err)
	}
	t.Meta = map[string]any{"source": filepath.Base(args[0])}

	opts := append(cfg.conf.WriteOptions(), document.WithLogger(cfg.log))
	if cfg.Inline != nil {
		opts = append(opts, document.WithInlineThreshold(*cfg.Inline))
	}
	d, err := document.Encode(map[string]any{pc.Key: t}, opts...)
	if err != nil {
		return err
	}
	if _, err := d.WriteTo(cc.Out); err != nil {
		return err
	}
	cfg.log.Info("packed", "rows", t.Len(), "columns", len(t.Columns), "blocks", d.Blocks.Len(), "structured", pc.Structured)
	return nil
}

// csvTable holds typed columns read from csv. An empty cell is recorded
// as masked with the zero value of its column type.
type csvTable struct {
	names  []string
	dtypes []*ndarray.DType
	cols   [][]any
	masks  [][]bool
}

var errNoHeader = errors.New("csv has no header row")

func readCSV(r io.Reader, delim string) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	if delim != "" {
		cr.Comma, _ = utf8.DecodeRuneInString(delim)
	}
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errNoHeader
	}
	ct := &csvTable{names: recs[0]}
	rows := recs[1:]
	cells := make([]string, len(rows))
	for j := range ct.names {
		for i, row := range rows {
			cells[i] = row[j]
		}
		dt, vals, mask := inferColumn(cells)
		ct.dtypes = append(ct.dtypes, dt)
		ct.cols = append(ct.cols, vals)
		ct.masks = append(ct.masks, mask)
	}
	return ct, nil
}

// inferColumn picks int64 when every non-empty cell parses as an integer,
// float64 when every one parses as a float, and a fixed-width string type
// otherwise. An all-empty column is float64. mask is nil when no cell is
// empty.
func inferColumn(cells []string) (*ndarray.DType, []any, []bool) {
	var mask []bool
	isInt, isFloat, isASCII := true, true, true
	width := 1
	for i, s := range cells {
		if s == "" {
			if mask == nil {
				mask = make([]bool, len(cells))
			}
			mask[i] = true
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			isFloat = false
		}
		for _, r := range s {
			if r >= utf8.RuneSelf {
				isASCII = false
			}
		}
		width = max(width, utf8.RuneCountInString(s))
	}
	empty := mask != nil && !slices.Contains(mask, false)
	vals := make([]any, len(cells))
	var dt *ndarray.DType
	switch {
	case empty || len(cells) == 0:
		dt = ndarray.Scalar(ndarray.Float64)
		for i := range vals {
			vals[i] = float64(0)
		}
		return dt, vals, mask
	case isInt:
		dt = ndarray.Scalar(ndarray.Int64)
	case isFloat:
		dt = ndarray.Scalar(ndarray.Float64)
	case isASCII:
		dt = ndarray.ASCIIString(width)
	default:
		dt = ndarray.UCS4String(width)
	}
	for i, s := range cells {
		switch {
		case dt.Kind == ndarray.Int64:
			vals[i] = int64(0)
			if s != "" {
				vals[i], _ = strconv.ParseInt(s, 10, 64)
			}
		case dt.Kind == ndarray.Float64:
			vals[i] = float64(0)
			if s != "" {
				vals[i], _ = strconv.ParseFloat(s, 64)
			}
		default:
			vals[i] = s
		}
	}
	return dt, vals, mask
}

func (ct *csvTable) rows() [][]any {
	n := 0
	if len(ct.cols) != 0 {
		n = len(ct.cols[0])
	}
	res := make([][]any, n)
	for i := range res {
		res[i] = make([]any, len(ct.cols))
		for j := range ct.cols {
			res[i][j] = ct.cols[j][i]
		}
	}
	return res
}

// build makes the table: one buffer per column, or with pc.Structured one
// record buffer whose fields are the columns. Masks, units and
// descriptions are attached afterwards.
func (ct *csvTable) build(pc config.Pack) (*table.Table, error) {
	var (
		t   *table.Table
		err error
	)
	if pc.Structured {
		t, err = ct.buildStructured()
	} else {
		t, err = table.FromRows(ct.names, ct.dtypes, ct.rows())
	}
	if err != nil {
		return nil, err
	}
	for j, c := range t.Columns {
		if ct.masks[j] != nil {
			if err := t.SetMask(c.Name, ct.masks[j]); err != nil {
				return nil, err
			}
		}
		c.Unit = pc.Units[c.Name]
		c.Description = pc.Descriptions[c.Name]
	}
	return t, nil
}

func (ct *csvTable) buildStructured() (*table.Table, error) {
	fields := make([]ndarray.Field, len(ct.names))
	for j, name := range ct.names {
		fields[j] = ndarray.Field{Name: name, Type: ct.dtypes[j]}
	}
	st, err := ndarray.StructOf(fields...)
	if err != nil {
		return nil, err
	}
	n := 0
	if len(ct.cols) != 0 {
		n = len(ct.cols[0])
	}
	recs := ndarray.New(st, n)
	for j, name := range ct.names {
		f, err := recs.Field(name)
		if err != nil {
			return nil, err
		}
		for i, v := range ct.cols[j] {
			if err := f.SetAt(v, i); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, name, err)
			}
		}
	}
	return table.FromStructured(recs)
}
