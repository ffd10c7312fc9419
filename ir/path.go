package ir

import (
	"strconv"
	"strings"
)

// Path returns the JSONPath-style location of y in its tree, e.g.
// "$.table.columns[0].data".
func (y *Node) Path() string {
	if y.Parent == nil {
		return "$"
	}
	switch y.Parent.Type {
	case ObjectType:
		return y.Parent.Path() + "." + quoteField(y.ParentField)
	case ArrayType:
		return y.Parent.Path() + "[" + strconv.Itoa(y.ParentIndex) + "]"
	default:
		panic("parent but not in container")
	}
}

// Join appends a field to a path built with Path.
func Join(path, field string) string {
	return path + "." + quoteField(field)
}

// JoinIndex appends an index to a path built with Path.
func JoinIndex(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

func quoteField(f string) string {
	if f != "" && strings.IndexAny(f, "'.*$[] ") == -1 {
		return f
	}
	return "'" + strings.ReplaceAll(f, "'", "\\'") + "'"
}
