package ndarray

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

var ErrValue = errors.New("bad element value")

// Decode reads one element of type dt from b. Booleans decode as bool,
// signed integers as int64, unsigned as uint64, floats as float64, strings
// as string (trailing NULs removed) and records as []any in field order,
// with sub-array fields nested per their shape.
func Decode(dt *DType, b []byte) (any, error) {
	bo := dt.Order.binary()
	switch dt.Kind {
	case Bool:
		return b[0] != 0, nil
	case Int8:
		return int64(int8(b[0])), nil
	case Int16:
		return int64(int16(bo.Uint16(b))), nil
	case Int32:
		return int64(int32(bo.Uint32(b))), nil
	case Int64:
		return int64(bo.Uint64(b)), nil
	case Uint8:
		return uint64(b[0]), nil
	case Uint16:
		return uint64(bo.Uint16(b)), nil
	case Uint32:
		return uint64(bo.Uint32(b)), nil
	case Uint64:
		return bo.Uint64(b), nil
	case Float32:
		return float64(math.Float32frombits(bo.Uint32(b))), nil
	case Float64:
		return math.Float64frombits(bo.Uint64(b)), nil
	case ASCII:
		return string(bytes.TrimRight(b[:dt.Length], "\x00")), nil
	case UCS4:
		rs := make([]rune, 0, dt.Length)
		for i := 0; i < dt.Length; i++ {
			r := rune(bo.Uint32(b[4*i:]))
			if r == 0 {
				break
			}
			rs = append(rs, r)
		}
		return string(rs), nil
	case Struct:
		res := make([]any, len(dt.Fields))
		for i, f := range dt.Fields {
			sub := &Array{
				Buffer:  NewBuffer(b),
				Offset:  f.Offset,
				Shape:   f.Shape,
				Strides: CStrides(f.Type.ItemSize(), f.Shape),
				DType:   f.Type,
			}
			v, err := sub.Values()
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			res[i] = v
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: cannot decode %s", ErrValue, dt.Kind)
}

// Encode writes v as one element of type dt into b. It accepts the types
// Decode produces, plus other Go integer and float types where the value
// is representable.
func Encode(dt *DType, b []byte, v any) error {
	bo := dt.Order.binary()
	switch dt.Kind {
	case Bool:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %T for %s", ErrValue, v, dt.Kind)
		}
		b[0] = 0
		if x {
			b[0] = 1
		}
		return nil
	case Int8, Int16, Int32, Int64:
		x, err := toInt64(v)
		if err != nil {
			return err
		}
		bits := 8 * dt.Kind.width()
		if bits < 64 && (x < -(1<<(bits-1)) || x >= 1<<(bits-1)) {
			return fmt.Errorf("%w: %d overflows %s", ErrValue, x, dt.Kind)
		}
		putUint(bo, b, dt.Kind.width(), uint64(x))
		return nil
	case Uint8, Uint16, Uint32, Uint64:
		x, err := toUint64(v)
		if err != nil {
			return err
		}
		bits := 8 * dt.Kind.width()
		if bits < 64 && x >= 1<<bits {
			return fmt.Errorf("%w: %d overflows %s", ErrValue, x, dt.Kind)
		}
		putUint(bo, b, dt.Kind.width(), x)
		return nil
	case Float32:
		x, err := toFloat64(v)
		if err != nil {
			return err
		}
		bo.PutUint32(b, math.Float32bits(float32(x)))
		return nil
	case Float64:
		x, err := toFloat64(v)
		if err != nil {
			return err
		}
		bo.PutUint64(b, math.Float64bits(x))
		return nil
	case ASCII:
		s, err := toText(v)
		if err != nil {
			return err
		}
		if len(s) > dt.Length {
			return fmt.Errorf("%w: %q longer than %d", ErrValue, s, dt.Length)
		}
		for i := 0; i < len(s); i++ {
			if s[i] >= utf8.RuneSelf {
				return fmt.Errorf("%w: %q is not ascii", ErrValue, s)
			}
		}
		clear(b[:dt.Length])
		copy(b, s)
		return nil
	case UCS4:
		s, err := toText(v)
		if err != nil {
			return err
		}
		if n := utf8.RuneCountInString(s); n > dt.Length {
			return fmt.Errorf("%w: %q longer than %d", ErrValue, s, dt.Length)
		}
		clear(b[:4*dt.Length])
		i := 0
		for _, r := range s {
			bo.PutUint32(b[4*i:], uint32(r))
			i++
		}
		return nil
	case Struct:
		items, ok := v.([]any)
		if !ok || len(items) != len(dt.Fields) {
			return fmt.Errorf("%w: record of %d fields needs a sequence of %d, got %T", ErrValue, len(dt.Fields), len(dt.Fields), v)
		}
		for i, f := range dt.Fields {
			sub := &Array{
				Buffer:  NewBuffer(b),
				Offset:  f.Offset,
				Shape:   f.Shape,
				Strides: CStrides(f.Type.ItemSize(), f.Shape),
				DType:   f.Type,
			}
			if err := sub.Fill(items[i]); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: cannot encode %s", ErrValue, dt.Kind)
}

func putUint(bo binary.ByteOrder, b []byte, width int, x uint64) {
	switch width {
	case 1:
		b[0] = byte(x)
	case 2:
		bo.PutUint16(b, uint16(x))
	case 4:
		bo.PutUint32(b, uint32(x))
	default:
		bo.PutUint64(b, x)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint, uint8, uint16, uint32, uint64:
		u, _ := toUint64(x)
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrValue, u)
		}
		return int64(u), nil
	}
	return 0, fmt.Errorf("%w: %T is not an integer", ErrValue, v)
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case int, int8, int16, int32, int64:
		i, _ := toInt64(x)
		if i < 0 {
			return 0, fmt.Errorf("%w: %d is negative", ErrValue, i)
		}
		return uint64(i), nil
	}
	return 0, fmt.Errorf("%w: %T is not an unsigned integer", ErrValue, v)
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	if i, err := toInt64(v); err == nil {
		return float64(i), nil
	}
	if u, err := toUint64(v); err == nil {
		return float64(u), nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrValue, v)
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	return "", fmt.Errorf("%w: %T is not a string", ErrValue, v)
}
