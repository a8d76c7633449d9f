// Package trace records device memory operations in a compact binary log.
//
// A log starts with an 8-byte header carrying a magic number, the format
// version, and the block codec. Entries are fixed-width and little-endian;
// the writer buffers them into blocks and frames each block with its
// uncompressed and compressed sizes. Blocks that do not shrink under the
// selected codec are stored raw, marked by a compressed size of zero.
//
// Logs are append-only. A reader that reaches the end of the stream on a
// block boundary reports io.EOF; a block torn mid-frame surfaces as an
// error so truncation is never silent.
package trace
