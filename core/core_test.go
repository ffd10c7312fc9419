package core

import (
	"errors"
	"math"
	"testing"

	"github.com/signadot/tony-format/go-blocktree/block"
	"github.com/signadot/tony-format/go-blocktree/ir"
	"github.com/signadot/tony-format/go-blocktree/ndarray"
	"github.com/signadot/tony-format/go-blocktree/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	i64  = ndarray.Scalar(ndarray.Int64)
	f64  = ndarray.Scalar(ndarray.Float64)
	str1 = ndarray.ASCIIString(1)
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromRows(
		[]string{"a", "b", "c"},
		[]*ndarray.DType{i64, f64, str1},
		[][]any{
			{1, 2.0, "x"},
			{4, 5.0, "y"},
			{5, 8.2, "z"},
		})
	require.NoError(t, err)
	return tbl
}

func structuredTable(t *testing.T) *table.Table {
	t.Helper()
	dt := ndarray.MustStructOf(
		ndarray.Field{Name: "a", Type: i64},
		ndarray.Field{Name: "b", Type: f64},
		ndarray.Field{Name: "c", Type: str1},
	)
	a := ndarray.New(dt, 3)
	require.NoError(t, a.Fill([]any{
		[]any{1, 2.0, "x"},
		[]any{4, 5.0, "y"},
		[]any{5, 8.2, "z"},
	}))
	tbl, err := table.FromStructured(a)
	require.NoError(t, err)
	return tbl
}

func subArrayTable(t *testing.T) *table.Table {
	t.Helper()
	data := ndarray.New(ndarray.Scalar(ndarray.Int32), 3, 2, 2)
	require.NoError(t, data.Fill([]any{
		[]any{[]any{1, 2}, []any{3, 4}},
		[]any{[]any{5, 6}, []any{7, 8}},
		[]any{[]any{9, 10}, []any{11, 12}},
	}))
	tbl, err := table.New(&table.Column{Name: "m", Data: data})
	require.NoError(t, err)
	return tbl
}

// save converts v and then reloads the tree against the same blocks, the
// way a document round trip would.
func save(t *testing.T, threshold int, v any) (*ir.Node, *Context) {
	t.Helper()
	c := NewContext(block.NewManager(), threshold)
	n, err := c.ConvertToTree(v)
	require.NoError(t, err)
	return n, c
}

func TestBlockCounts(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		tree      func(t *testing.T) any
		blocks    int
	}{
		{
			name:      "separate columns",
			threshold: block.NoInline,
			tree:      func(t *testing.T) any { return sampleTable(t) },
			blocks:    3,
		},
		{
			name:      "structured columns",
			threshold: block.NoInline,
			tree:      func(t *testing.T) any { return structuredTable(t) },
			blocks:    1,
		},
		{
			name:      "sub-array column",
			threshold: block.NoInline,
			tree:      func(t *testing.T) any { return subArrayTable(t) },
			blocks:    1,
		},
		{
			name:      "tables sharing a column",
			threshold: block.NoInline,
			tree: func(t *testing.T) any {
				t1 := sampleTable(t)
				extra := ndarray.New(f64, 3)
				t2, err := table.New(t1.Columns[0], &table.Column{Name: "d", Data: extra})
				require.NoError(t, err)
				return map[string]any{"t1": t1, "t2": t2}
			},
			blocks: 4,
		},
		{
			name:      "masked column",
			threshold: block.NoInline,
			tree: func(t *testing.T) any {
				tbl := sampleTable(t)
				require.NoError(t, tbl.SetMask("b", []bool{false, true, false}))
				return tbl
			},
			blocks: 4,
		},
		{
			name:      "inline",
			threshold: 64,
			tree:      func(t *testing.T) any { return sampleTable(t) },
			blocks:    0,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, c := save(t, test.threshold, test.tree(t))
			assert.Equal(t, test.blocks, c.Blocks.Len())
		})
	}
}

func TestTableRoundTrip(t *testing.T) {
	for _, threshold := range []int{block.NoInline, 64} {
		n, c := save(t, threshold, sampleTable(t))
		require.Equal(t, TableTag, n.Tag)
		got, err := c.TableFromNode(n)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, got.Names())
		want := [][]any{
			{int64(1), 2.0, "x"},
			{int64(4), 5.0, "y"},
			{int64(5), 8.2, "z"},
		}
		for i, row := range want {
			r, err := got.Row(i)
			require.NoError(t, err)
			assert.Equal(t, row, r, "threshold %d row %d", threshold, i)
		}
	}
}

func TestStructuredColumnsShareBuffer(t *testing.T) {
	n, c := save(t, block.NoInline, structuredTable(t))
	cols := ir.Get(n, "columns").Values
	require.Len(t, cols, 3)
	for i, col := range cols {
		data := ir.Get(col, "data")
		src, err := ir.Get(data, "source").AsInt()
		require.NoError(t, err)
		assert.EqualValues(t, 0, src)
		assert.NotNil(t, ir.Get(data, "strides"), "column %d is a strided view", i)
	}
	assert.Nil(t, ir.Get(ir.Get(cols[0], "data"), "offset"))
	off, err := ir.Get(ir.Get(cols[1], "data"), "offset").AsInt()
	require.NoError(t, err)
	assert.EqualValues(t, 8, off)

	got, err := c.TableFromNode(n)
	require.NoError(t, err)
	buf := got.Columns[0].Data.Buffer
	for _, col := range got.Columns {
		assert.Same(t, buf, col.Data.Buffer)
	}
	r, err := got.Row(2)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(5), 8.2, "z"}, r)
}

func TestSubArrayColumn(t *testing.T) {
	n, c := save(t, block.NoInline, subArrayTable(t))
	got, err := c.TableFromNode(n)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
	assert.Equal(t, []int{3, 2, 2}, got.Columns[0].Data.Shape)
	r, err := got.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{[]any{int64(5), int64(6)}, []any{int64(7), int64(8)}}}, r)
}

func inlineArrayNode(data *ir.Node) *ir.Node {
	return ir.FromKeyVals([]ir.KeyVal{kv("data", data)}).WithTag(NDArrayTag)
}

func ints(xs ...int64) *ir.Node {
	vals := make([]*ir.Node, len(xs))
	for i, x := range xs {
		vals[i] = ir.FromInt(x)
	}
	return ir.FromSlice(vals)
}

func TestMismatchedColumns(t *testing.T) {
	col := func(name string, data *ir.Node) *ir.Node {
		return ir.FromKeyVals([]ir.KeyVal{
			kv("name", ir.FromString(name)),
			kv("data", inlineArrayNode(data)),
		}).WithTag(ColumnTag)
	}
	n := ir.FromKeyVals([]ir.KeyVal{
		kv("columns", ir.FromSlice([]*ir.Node{
			col("a", ints(1, 2, 3)),
			col("b", ints(1, 2, 3, 4)),
		})),
	}).WithTag(TableTag)

	c := NewContext(block.NewManager(), block.NoInline)
	got, err := c.TableFromNode(n)
	assert.Nil(t, got)
	var lm *LengthMismatchError
	require.ErrorAs(t, err, &lm)
	assert.Equal(t, []string{"a", "b"}, lm.Columns)
	assert.Equal(t, []int{3, 4}, lm.Lengths)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestNestedStruct(t *testing.T) {
	inner := ndarray.MustStructOf(
		ndarray.Field{Name: "a0", Type: ndarray.Scalar(ndarray.Int32)},
		ndarray.Field{Name: "a1", Type: ndarray.Scalar(ndarray.Float32).WithOrder(ndarray.BigEndian)},
	)
	dt := ndarray.MustStructOf(
		ndarray.Field{Name: "a", Type: inner},
		ndarray.Field{Name: "b", Type: ndarray.Scalar(ndarray.Int8), Shape: []int{2}},
	)
	a := ndarray.New(dt, 2)
	require.NoError(t, a.Fill([]any{
		[]any{[]any{1, 1.5}, []any{-1, 2}},
		[]any{[]any{2, 2.5}, []any{3, 4}},
	}))
	for _, threshold := range []int{block.NoInline, 64} {
		c := NewContext(block.NewManager(), threshold)
		n, err := c.ArrayToNode(a, "$")
		require.NoError(t, err)

		fields := ir.Get(n, "datatype")
		require.Equal(t, ir.ArrayType, fields.Type)
		require.Len(t, fields.Values, 2)
		sub := ir.Get(fields.Values[0], "datatype")
		require.Len(t, sub.Values, 2)
		assert.Equal(t, "a0", ir.Get(sub.Values[0], "name").String)
		assert.Equal(t, "a1", ir.Get(sub.Values[1], "name").String)
		assert.Equal(t, "big", ir.Get(sub.Values[1], "byteorder").String)

		got, err := c.ArrayFromNode(n)
		require.NoError(t, err)
		assert.True(t, got.DType.Equal(dt), "got %s", got.DType)
		assert.True(t, got.Equal(a), "threshold %d", threshold)
	}
}

func blockArrayNode(src int64, dt string, shape *ir.Node, extra ...ir.KeyVal) *ir.Node {
	kvs := []ir.KeyVal{
		kv("source", ir.FromInt(src)),
		kv("datatype", ir.FromString(dt)),
		kv("byteorder", ir.FromString("little")),
		kv("shape", shape),
	}
	return ir.FromKeyVals(append(kvs, extra...)).WithTag(NDArrayTag)
}

func TestBlockGeometry(t *testing.T) {
	m := block.NewManager()
	m.Append(make([]byte, 24))
	c := NewContext(m, block.NoInline)

	tests := []struct {
		name string
		node *ir.Node
		err  any
	}{
		{name: "exact", node: blockArrayNode(0, "int64", ints(3))},
		{name: "exact 2-d", node: blockArrayNode(0, "int32", ints(2, 3))},
		{name: "short", node: blockArrayNode(0, "int64", ints(2)), err: new(*ShapeMismatchError)},
		{name: "long", node: blockArrayNode(0, "int64", ints(4)), err: new(*ShapeMismatchError)},
		{name: "view", node: blockArrayNode(0, "int64", ints(2), kv("offset", ir.FromInt(8)))},
		{name: "view past end", node: blockArrayNode(0, "int64", ints(3), kv("offset", ir.FromInt(8))), err: new(*ShapeMismatchError)},
		{name: "strided", node: blockArrayNode(0, "int32", ints(3), kv("strides", ints(8)))},
		{name: "byte count wraps to block length", node: blockArrayNode(0, "int64", ints(1<<61+3)), err: new(*ShapeMismatchError)},
		{name: "element count wraps", node: blockArrayNode(0, "int64", ints(1<<32, 1<<32)), err: new(*ShapeMismatchError)},
		{name: "stride span wraps", node: blockArrayNode(0, "int64", ints(3), kv("strides", ints(math.MaxInt64))), err: new(*ShapeMismatchError)},
		{
			name: "huge string type",
			node: ir.FromKeyVals([]ir.KeyVal{
				kv("source", ir.FromInt(0)),
				kv("datatype", ir.FromSlice([]*ir.Node{ir.FromString("ucs4"), ir.FromInt(math.MaxInt64)})),
				kv("shape", ints(1)),
			}).WithTag(NDArrayTag),
			err: new(*UnsupportedTypeError),
		},
		{name: "missing block", node: blockArrayNode(5, "int64", ints(3)), err: new(*StructuralError)},
		{name: "unknown type", node: blockArrayNode(0, "complex128", ints(1)), err: new(*UnsupportedTypeError)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a, err := c.ArrayFromNode(test.node)
			if test.err == nil {
				require.NoError(t, err)
				blk, _ := m.Resolve(0)
				assert.Same(t, blk.Buffer(), a.Buffer)
				return
			}
			assert.Nil(t, a)
			require.ErrorAs(t, err, test.err)
		})
	}
}

func TestMissingBlockWrapsRange(t *testing.T) {
	c := NewContext(block.NewManager(), block.NoInline)
	_, err := c.ArrayFromNode(blockArrayNode(0, "int64", ints(1)))
	var re *block.RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 0, re.Len)
}

func TestInlineInference(t *testing.T) {
	tests := []struct {
		name  string
		data  *ir.Node
		dtype *ndarray.DType
		shape []int
	}{
		{name: "ints", data: ints(1, 2, 3), dtype: i64, shape: []int{3}},
		{name: "2-d", data: ir.FromSlice([]*ir.Node{ints(1, 2), ints(3, 4)}), dtype: i64, shape: []int{2, 2}},
		{name: "mixed numbers", data: ir.FromSlice([]*ir.Node{ir.FromInt(1), ir.FromFloat(2.5)}), dtype: f64, shape: []int{2}},
		{name: "strings", data: ir.FromSlice([]*ir.Node{ir.FromString("a"), ir.FromString("bc")}), dtype: ndarray.ASCIIString(2), shape: []int{2}},
		{name: "wide strings", data: ir.FromSlice([]*ir.Node{ir.FromString("é")}), dtype: ndarray.UCS4String(1), shape: []int{1}},
		{name: "bools", data: ir.FromSlice([]*ir.Node{ir.FromBool(true)}), dtype: ndarray.Scalar(ndarray.Bool), shape: []int{1}},
		{name: "scalar", data: ir.FromInt(7), dtype: i64, shape: nil},
		{name: "big", data: ir.FromSlice([]*ir.Node{ir.FromUint(1 << 63)}), dtype: ndarray.Scalar(ndarray.Uint64), shape: []int{1}},
	}
	c := NewContext(block.NewManager(), block.NoInline)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a, err := c.ArrayFromNode(inlineArrayNode(test.data))
			require.NoError(t, err)
			assert.True(t, a.DType.Equal(test.dtype), "got %s", a.DType)
			assert.Equal(t, len(test.shape), a.NDim())
			if len(test.shape) != 0 {
				assert.Equal(t, test.shape, a.Shape)
			}
		})
	}
}

func TestInlineErrors(t *testing.T) {
	c := NewContext(block.NewManager(), block.NoInline)

	_, err := c.ArrayFromNode(inlineArrayNode(ir.FromSlice([]*ir.Node{ir.FromBool(true), ir.FromInt(1)})))
	assert.ErrorAs(t, err, new(*UnsupportedTypeError))

	ragged := ir.FromSlice([]*ir.Node{ints(1, 2), ints(3)})
	_, err = c.ArrayFromNode(inlineArrayNode(ragged))
	assert.ErrorAs(t, err, new(*ShapeMismatchError))

	declared := ir.FromKeyVals([]ir.KeyVal{
		kv("data", ints(1, 2, 3)),
		kv("datatype", ir.FromString("int8")),
		kv("shape", ints(2)),
	}).WithTag(NDArrayTag)
	_, err = c.ArrayFromNode(declared)
	assert.ErrorAs(t, err, new(*ShapeMismatchError))

	overflow := ir.FromKeyVals([]ir.KeyVal{
		kv("data", ints(1000)),
		kv("datatype", ir.FromString("int8")),
	}).WithTag(NDArrayTag)
	_, err = c.ArrayFromNode(overflow)
	assert.ErrorAs(t, err, new(*ShapeMismatchError))

	huge := ir.FromKeyVals([]ir.KeyVal{
		kv("data", ints(1, 2, 3)),
		kv("datatype", ir.FromString("int64")),
		kv("shape", ints(1<<50)),
	}).WithTag(NDArrayTag)
	_, err = c.ArrayFromNode(huge)
	assert.ErrorAs(t, err, new(*ShapeMismatchError))

	// the literal follows the first two dimensions but not the third
	deep := ir.FromKeyVals([]ir.KeyVal{
		kv("data", ir.FromSlice([]*ir.Node{ints(1, 2)})),
		kv("datatype", ir.FromString("int64")),
		kv("shape", ints(1, 2, 1<<40)),
	}).WithTag(NDArrayTag)
	_, err = c.ArrayFromNode(deep)
	assert.ErrorAs(t, err, new(*ShapeMismatchError))

	wide := ir.FromKeyVals([]ir.KeyVal{
		kv("data", ir.FromSlice([]*ir.Node{ir.FromString("a")})),
		kv("datatype", ir.FromSlice([]*ir.Node{ir.FromString("ascii"), ir.FromInt(1 << 30)})),
		kv("shape", ints(1)),
	}).WithTag(NDArrayTag)
	_, err = c.ArrayFromNode(wide)
	assert.ErrorAs(t, err, new(*ShapeMismatchError))

	both := blockArrayNode(0, "int8", ints(1), kv("data", ints(1)))
	_, err = c.ArrayFromNode(both)
	assert.ErrorAs(t, err, new(*StructuralError))
}

func TestMaskAndColumnMeta(t *testing.T) {
	tbl := sampleTable(t)
	require.NoError(t, tbl.SetMask("b", []bool{false, true, false}))
	b := tbl.Column("b")
	b.Unit = "m/s"
	b.Description = "speed"
	b.Meta = map[string]any{"source": "survey", "rev": 2}
	tbl.Meta = map[string]any{"name": "runs"}

	for _, threshold := range []int{block.NoInline, 64} {
		n, c := save(t, threshold, tbl)
		bn := ir.Get(n, "columns").Values[1]
		assert.Equal(t, NDArrayTag, ir.Get(bn, "mask").Tag)

		got, err := c.TableFromNode(n)
		require.NoError(t, err)
		gb := got.Column("b")
		require.NotNil(t, gb)
		assert.True(t, gb.IsMasked())
		masked, err := gb.Masked(1)
		require.NoError(t, err)
		assert.True(t, masked)
		masked, err = gb.Masked(0)
		require.NoError(t, err)
		assert.False(t, masked)
		assert.Equal(t, "m/s", gb.Unit)
		assert.Equal(t, "speed", gb.Description)
		assert.Equal(t, map[string]any{"source": "survey", "rev": int64(2)}, gb.Meta)
		assert.Equal(t, map[string]any{"name": "runs"}, got.Meta)
		assert.False(t, got.Column("a").IsMasked())
	}
}

func TestBadMask(t *testing.T) {
	tbl := sampleTable(t)
	c := NewContext(block.NewManager(), block.NoInline)

	col := tbl.Column("a")
	col.Mask = ndarray.New(ndarray.Scalar(ndarray.Bool), 2)
	_, err := c.ColumnToNode(col, "$")
	assert.ErrorAs(t, err, new(*ShapeMismatchError))

	col.Mask = ndarray.New(i64, 3)
	_, err = c.ColumnToNode(col, "$")
	assert.ErrorAs(t, err, new(*UnsupportedTypeError))
	assert.Equal(t, 0, c.Blocks.Len())
}

func TestFailedSaveReleasesBlocks(t *testing.T) {
	tbl := sampleTable(t)
	tbl.Columns[2].Meta = map[string]any{"bad": make(chan int)}
	c := NewContext(block.NewManager(), block.NoInline)

	n, err := c.ConvertToTree(map[string]any{"t": tbl})
	assert.Nil(t, n)
	assert.ErrorAs(t, err, new(*UnsupportedTypeError))
	assert.Equal(t, 0, c.Blocks.Len())
}

func TestScalarColumn(t *testing.T) {
	tbl := &table.Table{Columns: []*table.Column{
		{Name: "s", Data: ndarray.New(i64)},
	}}
	c := NewContext(block.NewManager(), block.NoInline)
	_, err := c.TableToNode(tbl, "$")
	var se *ShapeMismatchError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "$.columns[0].data", se.Path)
	assert.Equal(t, 0, c.Blocks.Len())
}

func TestInlineFallsBackToBlock(t *testing.T) {
	a := ndarray.New(ndarray.ASCIIString(2), 1)
	a.Buffer.Bytes()[0] = 0xff
	for _, threshold := range []int{block.NoInline, 64} {
		c := NewContext(block.NewManager(), threshold)
		n, err := c.ArrayToNode(a, "$")
		require.NoError(t, err)
		assert.NotNil(t, ir.Get(n, "source"), "threshold %d", threshold)
		assert.Nil(t, ir.Get(n, "data"), "threshold %d", threshold)
		assert.Equal(t, 1, c.Blocks.Len())

		got, err := c.ArrayFromNode(n)
		require.NoError(t, err)
		assert.True(t, got.Equal(a), "threshold %d", threshold)
	}
}

func TestDuplicateColumn(t *testing.T) {
	tbl := sampleTable(t)
	tbl.Columns[1].Name = "a"
	c := NewContext(block.NewManager(), block.NoInline)
	_, err := c.TableToNode(tbl, "$")
	assert.ErrorAs(t, err, new(*StructuralError))
}

func TestConvertTree(t *testing.T) {
	tbl := sampleTable(t)
	n, c := save(t, block.NoInline, map[string]any{
		"data":  tbl,
		"notes": []any{"first", int64(2)},
		"raw":   tbl.Columns[0].Data,
	})
	assert.Equal(t, TableTag, ir.Get(n, "data").Tag)
	assert.Equal(t, NDArrayTag, ir.Get(n, "raw").Tag)
	assert.Equal(t, 3, c.Blocks.Len())

	v, err := c.ConvertFromTree(n)
	require.NoError(t, err)
	m := v.(map[string]any)
	got, ok := m["data"].(*table.Table)
	require.True(t, ok)
	raw, ok := m["raw"].(*ndarray.Array)
	require.True(t, ok)
	assert.Same(t, got.Columns[0].Data.Buffer, raw.Buffer)
	assert.Equal(t, []any{"first", int64(2)}, m["notes"])
}

func TestWrongTag(t *testing.T) {
	c := NewContext(block.NewManager(), block.NoInline)
	n := ir.FromKeyVals([]ir.KeyVal{kv("columns", ir.FromSlice(nil))}).WithTag(TableTag)
	_, err := c.ColumnFromNode(n)
	assert.ErrorAs(t, err, new(*StructuralError))

	empty, err := c.TableFromNode(n)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = c.TableFromNode(ir.FromKeyVals(nil).WithTag(TableTag))
	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "$", se.Path)
}
