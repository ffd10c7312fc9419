package ndarray

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	ASCII
	UCS4
	Struct
)

var kindNames = map[Kind]string{
	Bool:    "bool8",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	ASCII:   "ascii",
	UCS4:    "ucs4",
	Struct:  "struct",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("<kind %d>", k)
}

// ParseKind maps a kind name as written in a document back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return Invalid, false
}

func (k Kind) IsInt() bool   { return k >= Int8 && k <= Int64 }
func (k Kind) IsUint() bool  { return k >= Uint8 && k <= Uint64 }
func (k Kind) IsFloat() bool { return k == Float32 || k == Float64 }
func (k Kind) IsText() bool  { return k == ASCII || k == UCS4 }

func (k Kind) width() int {
	switch k {
	case Bool, Int8, Uint8, ASCII:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32, UCS4:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big"
	}
	return "little"
}

func ParseByteOrder(s string) (ByteOrder, error) {
	switch s {
	case "little":
		return LittleEndian, nil
	case "big":
		return BigEndian, nil
	}
	return 0, fmt.Errorf("unknown byte order %q", s)
}

func (o ByteOrder) binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// DType describes one array element: a primitive of a given width and byte
// order, a fixed-length string, or an ordered list of named fields.
type DType struct {
	Kind Kind
	// Length is the number of characters for ASCII and UCS4.
	Length int
	Order  ByteOrder
	// Fields is set for Struct, in record order.
	Fields []Field
}

// Field is one member of a structured element type.
type Field struct {
	Name string
	Type *DType
	// Shape makes the field a fixed-shape sub-array of Type.
	Shape []int
	// Offset is the byte offset of the field within the record. StructOf
	// computes it.
	Offset int
}

// Size is the number of bytes the field occupies in a record.
func (f Field) Size() int {
	return f.Type.ItemSize() * product(f.Shape)
}

// Scalar returns a little-endian primitive type.
func Scalar(k Kind) *DType {
	return &DType{Kind: k}
}

func ASCIIString(n int) *DType {
	return &DType{Kind: ASCII, Length: n, Order: BigEndian}
}

func UCS4String(n int) *DType {
	return &DType{Kind: UCS4, Length: n}
}

// StructOf builds a packed record type. Field offsets are assigned in
// order; names must be unique and non-empty.
func StructOf(fields ...Field) (*DType, error) {
	res := &DType{Kind: Struct, Fields: make([]Field, len(fields))}
	seen := make(map[string]bool, len(fields))
	off := 0
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has no name", i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		if f.Type == nil {
			return nil, fmt.Errorf("field %q has no type", f.Name)
		}
		size, err := ByteSize(f.Type, f.Shape)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		seen[f.Name] = true
		f.Shape = slices.Clone(f.Shape)
		f.Offset = off
		var ok bool
		if off, ok = addInt(off, size); !ok {
			return nil, fmt.Errorf("%w: record size at field %q", ErrOverflow, f.Name)
		}
		res.Fields[i] = f
	}
	return res, nil
}

// MustStructOf is StructOf for statically known layouts.
func MustStructOf(fields ...Field) *DType {
	d, err := StructOf(fields...)
	if err != nil {
		panic(err)
	}
	return d
}

// WithOrder returns a copy of d with byte order o.
func (d *DType) WithOrder(o ByteOrder) *DType {
	res := *d
	res.Order = o
	return &res
}

func (d *DType) ItemSize() int {
	switch d.Kind {
	case ASCII, UCS4:
		return d.Kind.width() * d.Length
	case Struct:
		n := 0
		for _, f := range d.Fields {
			if end := f.Offset + f.Size(); end > n {
				n = end
			}
		}
		return n
	}
	return d.Kind.width()
}

func (d *DType) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (d *DType) Equal(o *DType) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil || d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case ASCII:
		return d.Length == o.Length
	case UCS4:
		return d.Length == o.Length && d.Order == o.Order
	case Struct:
		if len(d.Fields) != len(o.Fields) {
			return false
		}
		for i, f := range d.Fields {
			g := o.Fields[i]
			if f.Name != g.Name || f.Offset != g.Offset || !slices.Equal(f.Shape, g.Shape) || !f.Type.Equal(g.Type) {
				return false
			}
		}
		return true
	}
	if d.Kind.width() == 1 {
		return true
	}
	return d.Order == o.Order
}

// String renders d in a compact numpy-like notation, e.g. "<i4", "|S1" or
// "{a:<i4(2,2), b:<f8}".
func (d *DType) String() string {
	switch d.Kind {
	case ASCII:
		return fmt.Sprintf("|S%d", d.Length)
	case UCS4:
		return fmt.Sprintf("%sU%d", orderChar(d.Order), d.Length)
	case Struct:
		parts := make([]string, len(d.Fields))
		for i, f := range d.Fields {
			parts[i] = f.Name + ":" + f.Type.String()
			if len(f.Shape) != 0 {
				parts[i] += shapeString(f.Shape)
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Bool:
		return "|b1"
	}
	code := map[Kind]string{
		Int8: "i", Int16: "i", Int32: "i", Int64: "i",
		Uint8: "u", Uint16: "u", Uint32: "u", Uint64: "u",
		Float32: "f", Float64: "f",
	}[d.Kind]
	if code == "" {
		return d.Kind.String()
	}
	o := orderChar(d.Order)
	if d.Kind.width() == 1 {
		o = "|"
	}
	return fmt.Sprintf("%s%s%d", o, code, d.Kind.width())
}

func orderChar(o ByteOrder) string {
	if o == BigEndian {
		return ">"
	}
	return "<"
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
