package core

import (
	"fmt"
	"unicode/utf8"

	"github.com/signadot/tony-format/go-blocktree/block"
	"github.com/signadot/tony-format/go-blocktree/debug"
	"github.com/signadot/tony-format/go-blocktree/ir"
	"github.com/signadot/tony-format/go-blocktree/ndarray"
)

// ArrayToNode describes a as an ndarray node. Arrays of at most
// InlineThreshold elements are written as a literal under "data"; larger
// ones reference the block holding a's buffer. Arrays sharing a buffer
// share a block, and the node then records where in the block a lives.
func (c *Context) ArrayToNode(a *ndarray.Array, path string) (*ir.Node, error) {
	return c.atomic(func() (*ir.Node, error) { return c.arrayToNode(a, path) })
}

func (c *Context) arrayToNode(a *ndarray.Array, path string) (*ir.Node, error) {
	if a == nil {
		return nil, structural(path, "nil array")
	}
	dt, err := datatypeNode(a.DType, ir.Join(path, "datatype"))
	if err != nil {
		return nil, err
	}
	if block.ShouldInline(a.Size(), c.InlineThreshold) {
		vals, err := a.Values()
		if err != nil {
			return nil, &UnsupportedTypeError{Path: path, Message: "undecodable element", Err: err}
		}
		if literalExact(a, vals) {
			data, err := ir.FromAny(vals)
			if err != nil {
				return nil, &UnsupportedTypeError{Path: ir.Join(path, "data"), Message: "element value", Err: err}
			}
			if debug.Convert() {
				debug.Logf("ndarray %s: inline %s\n", path, a)
			}
			return ir.FromKeyVals([]ir.KeyVal{
				kv("data", data),
				kv("datatype", dt),
				kv("byteorder", ir.FromString(a.DType.Order.String())),
				kv("shape", intsNode(a.Shape)),
			}).WithTag(NDArrayTag), nil
		}
		if debug.Convert() {
			debug.Logf("ndarray %s: %s has no exact literal, using a block\n", path, a)
		}
	}
	blk := c.Blocks.Register(a.Buffer, path)
	if debug.Convert() {
		debug.Logf("ndarray %s: block %d %s offset=%d strides=%v\n", path, blk.Index(), a, a.Offset, a.Strides)
	}
	kvs := []ir.KeyVal{
		kv("source", ir.FromInt(int64(blk.Index()))),
		kv("datatype", dt),
		kv("byteorder", ir.FromString(a.DType.Order.String())),
		kv("shape", intsNode(a.Shape)),
	}
	if a.Offset != 0 {
		kvs = append(kvs, kv("offset", ir.FromInt(int64(a.Offset))))
	}
	if !a.IsWholeBuffer() {
		kvs = append(kvs, kv("strides", intsNode(a.Strides)))
	}
	return ir.FromKeyVals(kvs).WithTag(NDArrayTag), nil
}

// literalExact reports whether vals written back into a fresh array
// reproduce a's bytes. Elements with no literal form, such as non-ASCII
// bytes in an ascii type or non-canonical bools, fail this.
func literalExact(a *ndarray.Array, vals any) bool {
	re := ndarray.New(a.DType, a.Shape...)
	return re.Fill(vals) == nil && re.Equal(a)
}

// ArrayFromNode is the inverse of ArrayToNode. Block-backed arrays are views
// of the block's buffer, so arrays resolved from the same block share memory.
func (c *Context) ArrayFromNode(n *ir.Node) (*ndarray.Array, error) {
	path := n.Path()
	if n.Type != ir.ObjectType {
		return nil, structural(path, "ndarray must be a mapping, got %s", n.Type)
	}
	if n.Tag != NDArrayTag {
		return nil, structural(path, "expected tag %s, got %q", NDArrayTag, n.Tag)
	}
	src, data := ir.Get(n, "source"), ir.Get(n, "data")
	switch {
	case src != nil && data != nil:
		return nil, structural(path, "ndarray has both source and data")
	case src != nil:
		return c.blockArray(n, src, path)
	case data != nil:
		return inlineArray(n, data, path)
	}
	return nil, structural(path, "ndarray has neither source nor data")
}

func (c *Context) blockArray(n, src *ir.Node, path string) (*ndarray.Array, error) {
	idx, err := src.AsInt()
	if err != nil {
		return nil, &StructuralError{Path: ir.Join(path, "source"), Message: "source must be a block index", Err: err}
	}
	blk, err := c.Blocks.Reference(int(idx), path)
	if err != nil {
		return nil, &StructuralError{Path: ir.Join(path, "source"), Message: "unresolved block", Err: err}
	}
	dtn := ir.Get(n, "datatype")
	if dtn == nil {
		return nil, structural(path, "ndarray has no datatype")
	}
	dt, err := parseDatatype(dtn, ir.Get(n, "byteorder"), ir.Join(path, "datatype"))
	if err != nil {
		return nil, err
	}
	sn := ir.Get(n, "shape")
	if sn == nil {
		return nil, structural(path, "block ndarray has no shape")
	}
	shape, err := parseShape(sn, ir.Join(path, "shape"))
	if err != nil {
		return nil, err
	}
	offset := 0
	on := ir.Get(n, "offset")
	if on != nil {
		o, err := on.AsInt()
		if err != nil || o < 0 {
			return nil, &StructuralError{Path: ir.Join(path, "offset"), Message: "offset must be a non-negative integer", Err: err}
		}
		offset = int(o)
	}
	var strides []int
	stn := ir.Get(n, "strides")
	if stn != nil {
		if strides, err = parseInts(stn, ir.Join(path, "strides")); err != nil {
			return nil, err
		}
	}
	a, err := ndarray.View(blk.Buffer(), dt, offset, shape, strides)
	if err != nil {
		return nil, &ShapeMismatchError{
			Path:    path,
			Message: fmt.Sprintf("%s does not fit block %d of %d bytes", dt, blk.Index(), blk.Len()),
			Err:     err,
		}
	}
	if on == nil && stn == nil && a.NBytes() != blk.Len() {
		return nil, &ShapeMismatchError{
			Path: path,
			Message: fmt.Sprintf("shape %v of %s needs %d bytes, block %d has %d",
				shape, dt, a.NBytes(), blk.Index(), blk.Len()),
		}
	}
	return a, nil
}

func inlineArray(n, data *ir.Node, path string) (*ndarray.Array, error) {
	var (
		dt  *ndarray.DType
		err error
	)
	if dtn := ir.Get(n, "datatype"); dtn != nil {
		if dt, err = parseDatatype(dtn, ir.Get(n, "byteorder"), ir.Join(path, "datatype")); err != nil {
			return nil, err
		}
	} else if dt, err = inferDType(data, ir.Join(path, "data")); err != nil {
		return nil, err
	}
	var shape []int
	if sn := ir.Get(n, "shape"); sn != nil {
		if shape, err = parseShape(sn, ir.Join(path, "shape")); err != nil {
			return nil, err
		}
	} else {
		shape = inferShape(data, dt)
	}
	if err := checkLiteral(data, shape, dt, ir.Join(path, "data")); err != nil {
		return nil, err
	}
	vals, err := data.ToAny()
	if err != nil {
		return nil, &StructuralError{Path: ir.Join(path, "data"), Message: "bad literal", Err: err}
	}
	a, err := ndarray.Alloc(dt, shape...)
	if err != nil {
		return nil, &ShapeMismatchError{Path: path, Message: fmt.Sprintf("shape %v of %s", shape, dt), Err: err}
	}
	if err := a.Fill(vals); err != nil {
		return nil, &ShapeMismatchError{
			Path:    ir.Join(path, "data"),
			Message: fmt.Sprintf("literal does not match shape %v of %s", shape, dt),
			Err:     err,
		}
	}
	return a, nil
}

// maxInlineBytes bounds the memory a literal may claim through its declared
// shape and datatype.
const maxInlineBytes = 1 << 28

// checkLiteral compares a declared shape with the literal before anything is
// allocated. The first element at each level must have the declared length,
// and a primitive literal must hold exactly one leaf per element.
func checkLiteral(data *ir.Node, shape []int, dt *ndarray.DType, path string) error {
	mismatch := func(format string, args ...any) error {
		return &ShapeMismatchError{Path: path, Message: fmt.Sprintf(format, args...)}
	}
	n := data
	for i, d := range shape {
		if n.Type != ir.ArrayType || len(n.Values) != d {
			return mismatch("literal does not follow dimension %d of shape %v", i, shape)
		}
		if d == 0 {
			return nil
		}
		n = n.Values[0]
	}
	size, err := ndarray.ByteSize(dt, shape)
	if err != nil {
		return &ShapeMismatchError{Path: path, Message: fmt.Sprintf("shape %v of %s", shape, dt), Err: err}
	}
	if size > maxInlineBytes {
		return mismatch("shape %v of %s needs %d bytes, more than an inline literal may hold", shape, dt, size)
	}
	if dt.Kind == ndarray.Struct {
		return nil
	}
	lc := &leafCounts{}
	lc.add(data)
	leaves, count := lc.total(), 1
	for _, d := range shape {
		if d > leaves/count {
			return mismatch("shape %v has more elements than the literal's %d", shape, leaves)
		}
		count *= d
	}
	if count != leaves {
		return mismatch("shape %v has %d elements, the literal %d", shape, count, leaves)
	}
	return nil
}

// inferShape reads the shape off the nesting of a literal. Records of a
// structured type are themselves sequences, so only the outer dimension is
// inferred for them.
func inferShape(data *ir.Node, dt *ndarray.DType) []int {
	if dt.Kind == ndarray.Struct {
		if data.Type != ir.ArrayType {
			return nil
		}
		return []int{len(data.Values)}
	}
	var shape []int
	for data.Type == ir.ArrayType {
		shape = append(shape, len(data.Values))
		if len(data.Values) == 0 {
			break
		}
		data = data.Values[0]
	}
	return shape
}

type leafCounts struct {
	ints, bigs, floats, bools, strs, other int
	negative                               bool
	wide                                   bool
	maxLen                                 int
}

func (lc *leafCounts) total() int {
	return lc.ints + lc.bigs + lc.floats + lc.bools + lc.strs + lc.other
}

func (lc *leafCounts) add(n *ir.Node) {
	switch n.Type {
	case ir.ArrayType:
		for _, v := range n.Values {
			lc.add(v)
		}
	case ir.BoolType:
		lc.bools++
	case ir.StringType:
		lc.strs++
		count := len(n.String)
		for _, r := range n.String {
			if r >= utf8.RuneSelf {
				lc.wide = true
				count = utf8.RuneCountInString(n.String)
				break
			}
		}
		lc.maxLen = max(lc.maxLen, count)
	case ir.NumberType:
		switch {
		case n.Int64 != nil:
			lc.ints++
			lc.negative = lc.negative || *n.Int64 < 0
		case n.Float64 != nil:
			lc.floats++
		default:
			lc.bigs++
		}
	default:
		lc.other++
	}
}

// inferDType picks an element type for an untyped literal: int64, uint64
// when a value exceeds int64, float64, bool8, or the narrowest string type.
func inferDType(data *ir.Node, path string) (*ndarray.DType, error) {
	lc := &leafCounts{}
	lc.add(data)
	numbers := lc.ints + lc.bigs + lc.floats
	switch {
	case lc.other > 0:
		return nil, &UnsupportedTypeError{Path: path, Message: "literal holds values that are not numbers, strings or booleans"}
	case lc.strs > 0 && (numbers > 0 || lc.bools > 0), lc.bools > 0 && numbers > 0:
		return nil, &UnsupportedTypeError{Path: path, Message: "literal mixes element kinds"}
	case lc.strs > 0:
		n := max(lc.maxLen, 1)
		if lc.wide {
			return ndarray.UCS4String(n), nil
		}
		return ndarray.ASCIIString(n), nil
	case lc.bools > 0:
		return ndarray.Scalar(ndarray.Bool), nil
	case lc.floats > 0, numbers == 0:
		return ndarray.Scalar(ndarray.Float64), nil
	case lc.bigs > 0:
		if lc.negative {
			return nil, &UnsupportedTypeError{Path: path, Message: "literal mixes negative and uint64 values"}
		}
		return ndarray.Scalar(ndarray.Uint64), nil
	}
	return ndarray.Scalar(ndarray.Int64), nil
}
