// Package table provides tables of named, equal-length columns backed by
// ndarray data. Columns may be independent arrays or views of one
// structured array; FromStructured builds the latter so every column
// shares a single buffer.
package table
