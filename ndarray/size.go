package ndarray

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrOverflow reports a shape whose element count or byte size does not
// fit in an int.
var ErrOverflow = errors.New("array size overflows int")

func mulInt(a, b int) (int, bool) {
	hi, lo := bits.Mul64(absUint(a), absUint(b))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	if (a < 0) != (b < 0) {
		return -int(lo), true
	}
	return int(lo), true
}

func addInt(a, b int) (int, bool) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, false
	}
	return c, true
}

func absUint(x int) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}

// ByteSize is the number of bytes a packed array of dt with the given shape
// occupies. It fails on negative dimensions and when the element count or
// the byte count overflows.
func ByteSize(dt *DType, shape []int) (int, error) {
	count := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension in shape %v", shape)
		}
		if d == 0 {
			return 0, nil
		}
	}
	for _, d := range shape {
		var ok bool
		if count, ok = mulInt(count, d); !ok {
			return 0, fmt.Errorf("%w: shape %v", ErrOverflow, shape)
		}
	}
	n, ok := mulInt(count, dt.ItemSize())
	if !ok {
		return 0, fmt.Errorf("%w: shape %v of %d byte elements", ErrOverflow, shape, dt.ItemSize())
	}
	return n, nil
}

// Alloc is New for shapes that come from untrusted input: it fails instead
// of panicking when the shape is negative or too large to address.
func Alloc(dt *DType, shape ...int) (*Array, error) {
	if _, err := ByteSize(dt, shape); err != nil {
		return nil, err
	}
	return New(dt, shape...), nil
}
