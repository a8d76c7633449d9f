// Package tile implements the device's 32x32 tile layout and the conversion
// between row-major (host) and tile-blocked (device) float32 arrays.
//
// # Layout
//
// Device memory is organized in fixed tiles of 32x32 float32 elements (4,096
// bytes, one device page). A rows x cols matrix is stored as a row-major grid
// of whole tiles; within each tile elements are again row-major:
//
//	tiled[(tr*tileCols+tc)*1024 + r*32 + c] = rowMajor[(tr*32+r)*cols + (tc*32+c)]
//
// Tile (0,0) comes first, then increasing tile column, then tile row. Callers
// that address tiles by index ("the second tile starts at element 1024")
// depend on exactly this order.
//
// # Alignment
//
// Partial tiles do not exist: rows and cols must each be multiples of 32.
// Pack and Unpack reject unaligned shapes instead of truncating.
//
// Pack and Unpack are pure reorderings. They perform no allocation and no
// I/O, and composing them is the identity, bit for bit.
package tile
