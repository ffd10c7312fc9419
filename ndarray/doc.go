// Package ndarray provides the in-memory numeric arrays that block documents
// store.
//
// An Array is a strided view (offset, shape, byte strides) over a Buffer.
// Buffers are compared by identity, never by content: two arrays share
// storage exactly when they hold the same *Buffer. Field and Index return
// views, so the columns of a structured array or the rows of an N-D array
// all point at one Buffer.
//
// Element types are described by DType: fixed-width primitives with a byte
// order, fixed-length ascii/ucs4 strings, and records (Struct) whose fields
// may themselves be records or fixed-shape sub-arrays.
//
//	rec := ndarray.MustStructOf(
//	    ndarray.Field{Name: "a", Type: ndarray.Scalar(ndarray.Int32), Shape: []int{2, 2}},
//	    ndarray.Field{Name: "b", Type: ndarray.Scalar(ndarray.Float64)},
//	)
//	arr := ndarray.New(rec, 3)
//	a, _ := arr.Field("a") // shape [3 2 2], same Buffer as arr
package ndarray
