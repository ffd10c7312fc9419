// Package block manages the binary segments of a block document.
//
// A Manager hands out blocks for array buffers during a save, keyed by
// buffer identity, and maps block indices back to bytes during a load.
// Blocks are framed on disk as
//
//	magic "\xd3BLK" | uint16 header size | header | data
//
// with a big-endian header carrying flags, compression (always empty),
// allocated/used/data sizes and an md5 checksum of the data.
package block
