// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides 64-byte aligned allocation for transfer staging memory. 64 bytes
// satisfies the device heap's 32-byte minimum alignment and keeps staging
// buffers cache-line aligned for the tile conversion loops.
//
// # Zero-Copy Views
//
// AsFloat32s and AsBytes reinterpret a slice's backing array without copying.
// They are used at the codec boundary where staging bytes are consumed as
// float32 elements and vice versa.
package mem
