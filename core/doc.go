// Package core converts between in-memory arrays, columns and tables and
// the tagged nodes that describe them in a document tree.
//
// # Node kinds
//
//   - !core/ndarray: an array, either inline under "data" or referencing a
//     block by index under "source", with "datatype", "byteorder" and
//     "shape". Views of a block add "offset" and "strides".
//   - !core/column: "name", "data" (an ndarray node), and optionally
//     "mask" (a bool8 ndarray node), "unit", "description" and "meta".
//   - !core/table: "columns", an ordered sequence of column nodes, and an
//     optional "meta" mapping.
//
// # Blocks
//
// Arrays are never copied into the tree unless they are small enough to
// inline. Every other array names the block of its buffer, and arrays
// sharing a buffer share a block; see package block. A Context binds the
// converters of one document to its block manager.
//
// Conversion from a tree is strict: a block-backed array without offset or
// strides must fill its block exactly, views must lie within their block,
// and table columns must agree on their row count.
package core
