package core

import (
	"fmt"
	"math"

	"github.com/signadot/tony-format/go-blocktree/ir"
	"github.com/signadot/tony-format/go-blocktree/ndarray"
)

// datatypeNode renders the element type as written under "datatype":
// a kind name ("int32"), a string type (["ascii", 1]), or a field list.
func datatypeNode(dt *ndarray.DType, path string) (*ir.Node, error) {
	switch dt.Kind {
	case ndarray.ASCII, ndarray.UCS4:
		return ir.FromSlice([]*ir.Node{
			ir.FromString(dt.Kind.String()),
			ir.FromInt(int64(dt.Length)),
		}), nil
	case ndarray.Struct:
		fields := make([]*ir.Node, len(dt.Fields))
		for i, f := range dt.Fields {
			fpath := ir.Join(path, f.Name)
			sub, err := datatypeNode(f.Type, fpath)
			if err != nil {
				return nil, err
			}
			kvs := []ir.KeyVal{
				kv("name", ir.FromString(f.Name)),
				kv("datatype", sub),
				kv("byteorder", ir.FromString(f.Type.Order.String())),
			}
			if len(f.Shape) != 0 {
				kvs = append(kvs, kv("shape", intsNode(f.Shape)))
			}
			fields[i] = ir.FromKeyVals(kvs)
		}
		return ir.FromSlice(fields), nil
	case ndarray.Invalid:
		return nil, &UnsupportedTypeError{Path: path, Message: "invalid element type"}
	}
	return ir.FromString(dt.Kind.String()), nil
}

// parseDatatype is the inverse of datatypeNode. order is the sibling
// "byteorder" node, which may be nil.
func parseDatatype(n, order *ir.Node, path string) (*ndarray.DType, error) {
	bo := ndarray.LittleEndian
	if order != nil {
		if order.Type != ir.StringType {
			return nil, structural(path, "byteorder must be a string, got %s", order.Type)
		}
		var err error
		if bo, err = ndarray.ParseByteOrder(order.String); err != nil {
			return nil, &StructuralError{Path: path, Message: "bad byteorder", Err: err}
		}
	}
	switch n.Type {
	case ir.StringType:
		k, ok := ndarray.ParseKind(n.String)
		if !ok || k == ndarray.ASCII || k == ndarray.UCS4 || k == ndarray.Struct {
			return nil, &UnsupportedTypeError{Path: path, Message: "datatype " + n.String}
		}
		return ndarray.Scalar(k).WithOrder(bo), nil
	case ir.ArrayType:
		if len(n.Values) == 2 && n.Values[0].Type == ir.StringType {
			return parseStringType(n, bo, path)
		}
		return parseStructType(n, path)
	}
	return nil, structural(path, "datatype must be a string or a sequence, got %s", n.Type)
}

func parseStringType(n *ir.Node, bo ndarray.ByteOrder, path string) (*ndarray.DType, error) {
	kind := n.Values[0].String
	length, err := n.Values[1].AsInt()
	if err != nil || length < 0 {
		return nil, &StructuralError{Path: path, Message: "bad " + kind + " length", Err: err}
	}
	if length > math.MaxInt32 {
		return nil, &UnsupportedTypeError{Path: path, Message: fmt.Sprintf("%s length %d", kind, length)}
	}
	switch kind {
	case "ascii":
		return ndarray.ASCIIString(int(length)), nil
	case "ucs4":
		return ndarray.UCS4String(int(length)).WithOrder(bo), nil
	}
	return nil, &UnsupportedTypeError{Path: path, Message: "string datatype " + kind}
}

func parseStructType(n *ir.Node, path string) (*ndarray.DType, error) {
	if len(n.Values) == 0 {
		return nil, &UnsupportedTypeError{Path: path, Message: "structured datatype with no fields"}
	}
	fields := make([]ndarray.Field, len(n.Values))
	for i, fn := range n.Values {
		fpath := ir.JoinIndex(path, i)
		if fn.Type != ir.ObjectType {
			return nil, structural(fpath, "field must be a mapping, got %s", fn.Type)
		}
		name := ir.Get(fn, "name")
		if name == nil || name.Type != ir.StringType {
			return nil, structural(fpath, "field has no name")
		}
		sub := ir.Get(fn, "datatype")
		if sub == nil {
			return nil, structural(fpath, "field %q has no datatype", name.String)
		}
		dt, err := parseDatatype(sub, ir.Get(fn, "byteorder"), ir.Join(fpath, "datatype"))
		if err != nil {
			return nil, err
		}
		var shape []int
		if sn := ir.Get(fn, "shape"); sn != nil {
			if shape, err = parseShape(sn, ir.Join(fpath, "shape")); err != nil {
				return nil, err
			}
		}
		fields[i] = ndarray.Field{Name: name.String, Type: dt, Shape: shape}
	}
	dt, err := ndarray.StructOf(fields...)
	if err != nil {
		return nil, &StructuralError{Path: path, Message: "bad structured datatype", Err: err}
	}
	return dt, nil
}

func intsNode(xs []int) *ir.Node {
	vals := make([]*ir.Node, len(xs))
	for i, x := range xs {
		vals[i] = ir.FromInt(int64(x))
	}
	return ir.FromSlice(vals)
}

func parseInts(n *ir.Node, path string) ([]int, error) {
	if n.Type != ir.ArrayType {
		return nil, structural(path, "expected a sequence of integers, got %s", n.Type)
	}
	res := make([]int, len(n.Values))
	for i, v := range n.Values {
		x, err := v.AsInt()
		if err != nil {
			return nil, &StructuralError{Path: ir.JoinIndex(path, i), Message: "expected an integer", Err: err}
		}
		res[i] = int(x)
	}
	return res, nil
}

func parseShape(n *ir.Node, path string) ([]int, error) {
	shape, err := parseInts(n, path)
	if err != nil {
		return nil, err
	}
	for _, d := range shape {
		if d < 0 {
			return nil, structural(path, "negative dimension in %v", shape)
		}
	}
	return shape, nil
}
