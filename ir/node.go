package ir

import (
	"fmt"
	"math"
	"strconv"
)

type Node struct {
	Type        Type
	Parent      *Node
	ParentIndex int
	ParentField string
	Fields      []*Node
	Values      []*Node

	Tag string

	String  string
	Bool    bool
	Number  string
	Float64 *float64
	Int64   *int64
}

func (y *Node) WithTag(tag string) *Node {
	y.Tag = tag
	return y
}

func (y *Node) Clone() *Node {
	res := &Node{}
	return y.CloneTo(res)
}

func (y *Node) CloneTo(dst *Node) *Node {
	dst.Parent = y.Parent
	dst.ParentIndex = y.ParentIndex
	dst.ParentField = y.ParentField
	dst.Type = y.Type
	dst.Tag = y.Tag
	dst.Values = make([]*Node, len(y.Values))
	dst.Fields = make([]*Node, len(y.Fields))
	for i, yv := range y.Values {
		dstI := yv.CloneTo(&Node{})
		dstI.Parent = dst
		dstI.ParentIndex = i
		dst.Values[i] = dstI
	}
	for i, yf := range y.Fields {
		dstI := yf.CloneTo(&Node{})
		dstI.Parent = dst
		dstI.ParentIndex = i
		dst.Fields[i] = dstI
	}
	dst.String = y.String
	dst.Number = y.Number
	if y.Float64 != nil {
		f := *y.Float64
		dst.Float64 = &f
	}
	if y.Int64 != nil {
		i := *y.Int64
		dst.Int64 = &i
	}
	dst.Bool = y.Bool
	return dst
}

func FromString(v string) *Node {
	return &Node{Type: StringType, String: v}
}

func FromInt(v int64) *Node {
	return &Node{
		Type:  NumberType,
		Int64: &v,
	}
}

// FromUint returns a number node for v. Values which do not fit an int64
// are carried in Number.
func FromUint(v uint64) *Node {
	if v <= math.MaxInt64 {
		return FromInt(int64(v))
	}
	return &Node{
		Type:   NumberType,
		Number: strconv.FormatUint(v, 10),
	}
}

func FromFloat(f float64) *Node {
	return &Node{
		Type:    NumberType,
		Float64: &f,
	}
}

func FromBool(v bool) *Node {
	return &Node{
		Type: BoolType,
		Bool: v,
	}
}

func Null() *Node {
	return &Node{Type: NullType}
}

type KeyVal struct {
	Key *Node
	Val *Node
}

func FromKeyVals(kvs []KeyVal) *Node {
	return FromKeyValsAt(&Node{}, kvs)
}

func FromKeyValsAt(res *Node, kvs []KeyVal) *Node {
	res.Type = ObjectType
	res.Fields = make([]*Node, len(kvs))
	res.Values = make([]*Node, len(kvs))
	for i := range kvs {
		kv := &kvs[i]
		if kv.Key == nil {
			kv.Key = Null()
		}
		kv.Key.ParentField = kv.Key.String
		kv.Val.ParentField = kv.Key.String
		kv.Val.Parent = res
		kv.Val.ParentIndex = i
		kv.Key.Parent = res
		kv.Key.ParentIndex = i
		res.Fields[i] = kv.Key
		res.Values[i] = kv.Val
	}
	return res
}

func FromSlice(ySlice []*Node) *Node {
	res := &Node{
		Type: ArrayType,
	}
	res.Values = make([]*Node, len(ySlice))
	for i, y := range ySlice {
		res.Values[i] = y
		y.Parent = res
		y.ParentIndex = i
	}
	return res
}

func Get(y *Node, field string) *Node {
	if y == nil || y.Type != ObjectType {
		return nil
	}
	for i, f := range y.Fields {
		if f.String == field {
			return y.Values[i]
		}
	}
	return nil
}

// Set replaces the value of field in y, appending the field if it is not
// present. Field order of existing entries is unchanged.
func (y *Node) Set(field string, v *Node) *Node {
	if y.Type != ObjectType {
		panic(fmt.Sprintf("ir: Set on %s node", y.Type))
	}
	v.Parent = y
	v.ParentField = field
	for i, f := range y.Fields {
		if f.String == field {
			v.ParentIndex = i
			y.Values[i] = v
			return y
		}
	}
	key := FromString(field)
	key.Parent = y
	key.ParentIndex = len(y.Fields)
	key.ParentField = field
	v.ParentIndex = len(y.Values)
	y.Fields = append(y.Fields, key)
	y.Values = append(y.Values, v)
	return y
}

// Append adds v to the end of the array node y.
func (y *Node) Append(v *Node) *Node {
	if y.Type != ArrayType {
		panic(fmt.Sprintf("ir: Append on %s node", y.Type))
	}
	v.Parent = y
	v.ParentIndex = len(y.Values)
	y.Values = append(y.Values, v)
	return y
}

func (y *Node) Visit(f func(y *Node, isPost bool) (bool, error)) error {
	dive, err := f(y, false)
	if err != nil {
		return err
	}
	if dive {
		for _, yy := range y.Values {
			if err := yy.Visit(f); err != nil {
				return err
			}
		}
	}
	if _, err := f(y, true); err != nil {
		return err
	}
	return nil
}

// used when a tag overrides a default built in tag
func (y *Node) ReType() {
	if y.Type != StringType {
		return
	}
	v := y.String
	switch v {
	case "null":
		y.Type = NullType
		return
	case "true":
		y.Type = BoolType
		y.Bool = true
		return
	case "false":
		y.Type = BoolType
		y.Bool = false
		return
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err == nil {
		y.Type = NumberType
		y.Int64 = &i
		return
	}
	if _, err := strconv.ParseUint(v, 10, 64); err == nil {
		y.Type = NumberType
		y.Number = v
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err == nil {
		y.Type = NumberType
		y.Float64 = &f
	}
}

func (y *Node) Root() *Node {
	res := y
	for res.Parent != nil {
		res = res.Parent
	}
	return res
}

// AsInt returns the integer value of a number node.
func (y *Node) AsInt() (int64, error) {
	if y == nil || y.Type != NumberType {
		return 0, fmt.Errorf("%w: expected integer", ErrType)
	}
	if y.Int64 != nil {
		return *y.Int64, nil
	}
	if y.Float64 != nil && *y.Float64 == math.Trunc(*y.Float64) {
		return int64(*y.Float64), nil
	}
	return 0, fmt.Errorf("%w: %s is not an int64", ErrType, y.numberText())
}

// AsUint returns the unsigned value of a number node, including values
// carried in Number.
func (y *Node) AsUint() (uint64, error) {
	if y == nil || y.Type != NumberType {
		return 0, fmt.Errorf("%w: expected integer", ErrType)
	}
	if y.Int64 != nil {
		if *y.Int64 < 0 {
			return 0, fmt.Errorf("%w: %d is negative", ErrType, *y.Int64)
		}
		return uint64(*y.Int64), nil
	}
	if y.Number != "" {
		u, err := strconv.ParseUint(y.Number, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrType, err)
		}
		return u, nil
	}
	i, err := y.AsInt()
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrType, i)
	}
	return uint64(i), nil
}

// AsFloat returns the value of any number node as a float64.
func (y *Node) AsFloat() (float64, error) {
	if y == nil || y.Type != NumberType {
		return 0, fmt.Errorf("%w: expected number", ErrType)
	}
	switch {
	case y.Float64 != nil:
		return *y.Float64, nil
	case y.Int64 != nil:
		return float64(*y.Int64), nil
	}
	return strconv.ParseFloat(y.Number, 64)
}

func (y *Node) numberText() string {
	switch {
	case y.Int64 != nil:
		return strconv.FormatInt(*y.Int64, 10)
	case y.Float64 != nil:
		return strconv.FormatFloat(*y.Float64, 'g', -1, 64)
	}
	return y.Number
}
