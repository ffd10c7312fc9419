package ndarray

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrNoField     = errors.New("no such field")
)

// Buffer is one allocation of element memory. Its identity is its pointer:
// arrays holding the same *Buffer are views of the same memory, whatever
// their offsets and strides.
type Buffer struct {
	data []byte
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) Bytes() []byte { return b.data }
func (b *Buffer) Len() int      { return len(b.data) }

// Array is an N-dimensional strided view of a Buffer.
type Array struct {
	Buffer *Buffer
	// Offset is the byte offset of the first element.
	Offset int
	Shape  []int
	// Strides are in bytes, one per dimension.
	Strides []int
	DType   *DType
}

// New allocates a zeroed C-contiguous array.
func New(dt *DType, shape ...int) *Array {
	shape = slices.Clone(shape)
	return &Array{
		Buffer:  NewBuffer(make([]byte, product(shape)*dt.ItemSize())),
		Shape:   shape,
		Strides: CStrides(dt.ItemSize(), shape),
		DType:   dt,
	}
}

// View makes an array over buf. Nil strides mean C-contiguous. The view must
// lie within buf.
func View(buf *Buffer, dt *DType, offset int, shape, strides []int) (*Array, error) {
	if strides == nil {
		strides = CStrides(dt.ItemSize(), shape)
	}
	if len(strides) != len(shape) {
		return nil, fmt.Errorf("%d strides for %d dimensions", len(strides), len(shape))
	}
	if _, err := ByteSize(dt, shape); err != nil {
		return nil, err
	}
	a := &Array{
		Buffer:  buf,
		Offset:  offset,
		Shape:   slices.Clone(shape),
		Strides: slices.Clone(strides),
		DType:   dt,
	}
	if a.Size() == 0 {
		return a, nil
	}
	lo, hi, ok := a.extent()
	if !ok {
		return nil, fmt.Errorf("%w: offset %d strides %v", ErrOverflow, offset, strides)
	}
	if lo < 0 || hi > buf.Len() {
		return nil, fmt.Errorf("%w: view spans bytes [%d, %d) of a %d byte buffer", ErrOutOfBounds, lo, hi, buf.Len())
	}
	return a, nil
}

// CStrides returns row-major byte strides for shape. Strides that would
// overflow can only occur outside a zero dimension, where no element is
// ever addressed; they are set to 0.
func CStrides(itemSize int, shape []int) []int {
	strides := make([]int, len(shape))
	acc := itemSize
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		next, ok := mulInt(acc, shape[i])
		if !ok {
			next = 0
		}
		acc = next
	}
	return strides
}

func (a *Array) NDim() int { return len(a.Shape) }

// Size is the total number of elements.
func (a *Array) Size() int { return product(a.Shape) }

// Len is the length of the leading dimension, the row count of a column.
func (a *Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

func (a *Array) ItemSize() int { return a.DType.ItemSize() }

// NBytes is the number of bytes the elements would take if packed.
func (a *Array) NBytes() int { return a.Size() * a.ItemSize() }

// IsContiguous reports whether the elements are laid out in C order with no
// gaps.
func (a *Array) IsContiguous() bool {
	want := CStrides(a.ItemSize(), a.Shape)
	for i, d := range a.Shape {
		if d > 1 && a.Strides[i] != want[i] {
			return false
		}
	}
	return true
}

// IsWholeBuffer reports whether a covers its buffer exactly, in order.
func (a *Array) IsWholeBuffer() bool {
	return a.Offset == 0 && a.IsContiguous() && a.NBytes() == a.Buffer.Len()
}

// Extent returns the half-open byte range of the buffer touched by a.
func (a *Array) Extent() (lo, hi int) {
	lo, hi, _ = a.extent()
	return lo, hi
}

// extent is Extent with ok false when the range overflows an int.
func (a *Array) extent() (lo, hi int, ok bool) {
	lo = a.Offset
	if hi, ok = addInt(a.Offset, a.ItemSize()); !ok {
		return 0, 0, false
	}
	for _, d := range a.Shape {
		if d == 0 {
			return a.Offset, a.Offset, true
		}
	}
	for i, d := range a.Shape {
		span, ok := mulInt(d-1, a.Strides[i])
		if !ok {
			return 0, 0, false
		}
		if span < 0 {
			lo, ok = addInt(lo, span)
		} else {
			hi, ok = addInt(hi, span)
		}
		if !ok {
			return 0, 0, false
		}
	}
	return lo, hi, true
}

// Field returns the named field of a structured array as a view of the same
// buffer. Sub-array fields append their shape to the array's.
func (a *Array) Field(name string) (*Array, error) {
	if a.DType.Kind != Struct {
		return nil, fmt.Errorf("%w %q: %s is not structured", ErrNoField, name, a.DType)
	}
	f, ok := a.DType.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w %q in %s", ErrNoField, name, a.DType)
	}
	return &Array{
		Buffer:  a.Buffer,
		Offset:  a.Offset + f.Offset,
		Shape:   append(slices.Clone(a.Shape), f.Shape...),
		Strides: append(slices.Clone(a.Strides), CStrides(f.Type.ItemSize(), f.Shape)...),
		DType:   f.Type,
	}, nil
}

// Index returns row i along the leading dimension as a view.
func (a *Array) Index(i int) (*Array, error) {
	if len(a.Shape) == 0 {
		return nil, fmt.Errorf("%w: index into 0-d array", ErrOutOfBounds)
	}
	if i < 0 || i >= a.Shape[0] {
		return nil, fmt.Errorf("%w: index %d for length %d", ErrOutOfBounds, i, a.Shape[0])
	}
	return &Array{
		Buffer:  a.Buffer,
		Offset:  a.Offset + i*a.Strides[0],
		Shape:   slices.Clone(a.Shape[1:]),
		Strides: slices.Clone(a.Strides[1:]),
		DType:   a.DType,
	}, nil
}

func (a *Array) elemOffset(idx []int) (int, error) {
	if len(idx) != len(a.Shape) {
		return 0, fmt.Errorf("%w: %d indices for %d dimensions", ErrOutOfBounds, len(idx), len(a.Shape))
	}
	off := a.Offset
	for i, x := range idx {
		if x < 0 || x >= a.Shape[i] {
			return 0, fmt.Errorf("%w: index %v for shape %v", ErrOutOfBounds, idx, a.Shape)
		}
		off += x * a.Strides[i]
	}
	return off, nil
}

func (a *Array) elem(off int) []byte {
	return a.Buffer.data[off : off+a.ItemSize()]
}

// At decodes the element at idx. See Decode for the Go types returned.
func (a *Array) At(idx ...int) (any, error) {
	off, err := a.elemOffset(idx)
	if err != nil {
		return nil, err
	}
	return Decode(a.DType, a.elem(off))
}

// SetAt encodes v into the element at idx.
func (a *Array) SetAt(v any, idx ...int) error {
	off, err := a.elemOffset(idx)
	if err != nil {
		return err
	}
	return Encode(a.DType, a.elem(off), v)
}

// Each calls fn with the byte offset of every element in C order.
func (a *Array) Each(fn func(off int) error) error {
	if a.Size() == 0 {
		return nil
	}
	idx := make([]int, len(a.Shape))
	for {
		off := a.Offset
		for i, x := range idx {
			off += x * a.Strides[i]
		}
		if err := fn(off); err != nil {
			return err
		}
		d := len(idx) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < a.Shape[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return nil
		}
	}
}

// Values decodes all elements into nested []any following the shape. A 0-d
// array yields its single element.
func (a *Array) Values() (any, error) {
	var flat []any
	if a.ItemSize() > 0 {
		// a view of a sized element never has more elements than its buffer has bytes
		flat = make([]any, 0, a.Size())
	}
	err := a.Each(func(off int) error {
		v, err := Decode(a.DType, a.elem(off))
		if err != nil {
			return err
		}
		flat = append(flat, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(a.Shape) == 0 {
		return flat[0], nil
	}
	res, _ := nest(flat, a.Shape)
	return res, nil
}

func nest(flat []any, shape []int) (any, []any) {
	if len(shape) == 0 {
		return flat[0], flat[1:]
	}
	res := make([]any, shape[0])
	for i := range res {
		res[i], flat = nest(flat, shape[1:])
	}
	return res, flat
}

// Fill encodes nested values (as produced by Values) into a.
func (a *Array) Fill(nested any) error {
	var flat []any
	if a.ItemSize() > 0 {
		// a view of a sized element never has more elements than its buffer has bytes
		flat = make([]any, 0, a.Size())
	}
	if err := flatten(nested, a.Shape, &flat); err != nil {
		return err
	}
	i := 0
	return a.Each(func(off int) error {
		err := Encode(a.DType, a.elem(off), flat[i])
		i++
		return err
	})
}

func flatten(v any, shape []int, dst *[]any) error {
	if len(shape) == 0 {
		*dst = append(*dst, v)
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected a sequence of %d, got %T", shape[0], v)
	}
	if len(items) != shape[0] {
		return fmt.Errorf("expected a sequence of %d, got %d", shape[0], len(items))
	}
	for _, item := range items {
		if err := flatten(item, shape[1:], dst); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a C-contiguous copy of a in a new buffer.
func (a *Array) Copy() *Array {
	res := New(a.DType, a.Shape...)
	i := 0
	n := a.ItemSize()
	a.Each(func(off int) error {
		copy(res.Buffer.data[i:i+n], a.elem(off))
		i += n
		return nil
	})
	return res
}

// Equal reports whether a and b have equal element types, shapes and
// element bytes. Where they live is not compared.
func (a *Array) Equal(b *Array) bool {
	if !a.DType.Equal(b.DType) || !slices.Equal(a.Shape, b.Shape) {
		return false
	}
	return bytes.Equal(a.Copy().Buffer.data, b.Copy().Buffer.data)
}

func (a *Array) String() string {
	return fmt.Sprintf("ndarray%s %s", shapeString(a.Shape), a.DType)
}
