package core

import (
	"fmt"
	"strings"
)

// StructuralError reports a tree that cannot be interpreted: a missing or
// mistyped required field, or a reference to a block that does not exist.
type StructuralError struct {
	Path    string
	Message string
	Err     error
}

func (e *StructuralError) Error() string {
	return withCause(fmt.Sprintf("structural error at %s: %s", e.Path, e.Message), e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// LengthMismatchError reports table columns whose row counts differ.
// Columns and Lengths are parallel; the first entry is the reference
// column.
type LengthMismatchError struct {
	Path    string
	Columns []string
	Lengths []int
}

func (e *LengthMismatchError) Error() string {
	parts := make([]string, len(e.Columns))
	for i, name := range e.Columns {
		parts[i] = fmt.Sprintf("%q has %d", name, e.Lengths[i])
	}
	return fmt.Sprintf("column length mismatch at %s: %s", e.Path, strings.Join(parts, ", "))
}

// ShapeMismatchError reports an array whose declared shape and element type
// disagree with its block or inline payload.
type ShapeMismatchError struct {
	Path    string
	Message string
	Err     error
}

func (e *ShapeMismatchError) Error() string {
	return withCause(fmt.Sprintf("shape mismatch at %s: %s", e.Path, e.Message), e.Err)
}

func (e *ShapeMismatchError) Unwrap() error { return e.Err }

// UnsupportedTypeError reports an element type or value with no tree
// representation.
type UnsupportedTypeError struct {
	Path    string
	Message string
	Err     error
}

func (e *UnsupportedTypeError) Error() string {
	return withCause(fmt.Sprintf("unsupported type at %s: %s", e.Path, e.Message), e.Err)
}

func (e *UnsupportedTypeError) Unwrap() error { return e.Err }

func withCause(msg string, err error) string {
	if err == nil {
		return msg
	}
	return msg + ": " + err.Error()
}

func structural(path, format string, args ...any) error {
	return &StructuralError{Path: path, Message: fmt.Sprintf(format, args...)}
}
