package ir

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// FromAny converts plain Go values (nil, bool, integers, floats, strings,
// []any, map[string]any and *Node) into a tree. Map keys are emitted in
// sorted order.
func FromAny(v any) (*Node, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case *Node:
		return x.Clone(), nil
	case bool:
		return FromBool(x), nil
	case string:
		return FromString(x), nil
	case int:
		return FromInt(int64(x)), nil
	case int8:
		return FromInt(int64(x)), nil
	case int16:
		return FromInt(int64(x)), nil
	case int32:
		return FromInt(int64(x)), nil
	case int64:
		return FromInt(x), nil
	case uint:
		return FromUint(uint64(x)), nil
	case uint8:
		return FromUint(uint64(x)), nil
	case uint16:
		return FromUint(uint64(x)), nil
	case uint32:
		return FromUint(uint64(x)), nil
	case uint64:
		return FromUint(x), nil
	case float32:
		return FromFloat(float64(x)), nil
	case float64:
		return FromFloat(x), nil
	case []any:
		vals := make([]*Node, len(x))
		for i, e := range x {
			n, err := FromAny(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			vals[i] = n
		}
		return FromSlice(vals), nil
	case []string:
		vals := make([]*Node, len(x))
		for i, e := range x {
			vals[i] = FromString(e)
		}
		return FromSlice(vals), nil
	case map[string]any:
		kvs := make([]KeyVal, 0, len(x))
		for _, k := range slices.Sorted(maps.Keys(x)) {
			n, err := FromAny(x[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			kvs = append(kvs, KeyVal{Key: FromString(k), Val: n})
		}
		return FromKeyVals(kvs), nil
	case map[string]string:
		kvs := make([]KeyVal, 0, len(x))
		for _, k := range slices.Sorted(maps.Keys(x)) {
			kvs = append(kvs, KeyVal{Key: FromString(k), Val: FromString(x[k])})
		}
		return FromKeyVals(kvs), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// ToAny is the inverse of FromAny. Integers come back as int64 (or uint64
// when they do not fit), floats as float64, objects as map[string]any and
// arrays as []any. Tags are dropped.
func (y *Node) ToAny() (any, error) {
	switch y.Type {
	case NullType:
		return nil, nil
	case BoolType:
		return y.Bool, nil
	case StringType:
		return y.String, nil
	case NumberType:
		switch {
		case y.Int64 != nil:
			return *y.Int64, nil
		case y.Float64 != nil:
			return *y.Float64, nil
		}
		u, err := y.AsUint()
		if err != nil {
			return nil, err
		}
		if u <= math.MaxInt64 {
			return int64(u), nil
		}
		return u, nil
	case ArrayType:
		res := make([]any, len(y.Values))
		for i, v := range y.Values {
			a, err := v.ToAny()
			if err != nil {
				return nil, err
			}
			res[i] = a
		}
		return res, nil
	case ObjectType:
		res := make(map[string]any, len(y.Fields))
		for i, f := range y.Fields {
			if f.Type != StringType {
				return nil, fmt.Errorf("%w: %s key at %s", ErrType, f.Type, y.Path())
			}
			a, err := y.Values[i].ToAny()
			if err != nil {
				return nil, err
			}
			res[f.String] = a
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: node type %s", ErrUnsupported, y.Type)
}
