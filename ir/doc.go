// Package ir provides the tree model for block documents.
//
// # Overview
//
// A document's metadata is a tree of Nodes. The tree is deliberately generic:
// it knows nothing about tables or arrays. Typed entities are ordinary
// object nodes carrying a Tag (for example "!core/ndarray"), and the
// converters in package core interpret them.
//
// The IR works as a recursive tagged union structure, where values are placed
// in fields depending on the node type:
//
//   - NullType: null value
//   - BoolType: Bool
//   - NumberType: Int64, Float64, or Number (decimal text) for unsigned
//     values beyond int64
//   - StringType: String
//   - ArrayType: Values
//   - ObjectType: Fields[i] is the key for Values[i]; order is preserved
//
// # Creating Nodes
//
//	obj := ir.FromKeyVals([]ir.KeyVal{
//	    {Key: ir.FromString("name"), Val: ir.FromString("a")},
//	}).WithTag("!core/column")
//	obj.Set("unit", ir.FromString("degree"))
//	arr := ir.FromSlice([]*ir.Node{ir.FromInt(1), ir.FromInt(2)})
//
// # Navigating Nodes
//
// Nodes maintain parent links, so Path() reports where a node sits:
//
//	node.Path() // e.g., "$.table.columns[0].data"
//
// # Thread Safety
//
// Node structures are not thread-safe.
package ir
