// Package tilehal is the memory layer of a HAL driver for tile-based
// tensor accelerators.
//
// The device exposes its DRAM as allocatable, mappable buffers. Hosts see
// row-major float32 data; the device stores 32x32 tiles. The conversion
// between the two layouts happens transparently at the map/unmap boundary,
// so callers never handle tiled bytes.
//
// # Quick Start
//
// Open the built-in simulated device, write a matrix, read it back:
//
//	ctx := context.Background()
//	dev, _ := tilehal.OpenDevice(ctx, "sim", 0)
//	defer dev.Close(ctx)
//
//	alloc := dev.Allocator()
//	buf, _ := alloc.AllocateBuffer(ctx, tilehal.BufferParams{
//	    Type:  tilehal.MemoryTypeDeviceLocal,
//	    Usage: tilehal.BufferUsageTransfer | tilehal.BufferUsageDispatchStorage,
//	}, 4096)
//	defer alloc.ReleaseBuffer(ctx, buf)
//
//	m, _ := buf.Map(ctx, tilehal.MemoryAccessWrite, 0, 4096)
//	for i, f := 0, m.Float32s(); i < len(f); i++ {
//	    f[i] = float32(i)
//	}
//	buf.Unmap(ctx, m) // packs to tiles, writes to the device
//
//	m, _ = buf.Map(ctx, tilehal.MemoryAccessRead, 0, 4096) // reads, unpacks
//	_ = m.Float32s()                                       // row-major again
//	buf.Unmap(ctx, m)
//
// # Shapes
//
// Tile conversion needs the buffer's 2-D layout. Without one, a square
// tile-aligned shape is inferred from the byte size - fine for square
// matrices, wrong for everything else. Pass the real layout for non-square
// data:
//
//	buf, _ := alloc.AllocateBuffer(ctx, params, 128*256*4,
//	    tilehal.WithShape(128, 256))
//
// # Backends
//
// Two memory backends implement the same contract: the simulated backend
// (driver "sim", host-memory DRAM pool with optional bandwidth modeling)
// and a vendor-runtime bridge (membackend.NewRuntimeBackend plus
// NewDevice) for real hardware. Both run in the same binary, so code tested
// against the simulator moves to hardware unchanged.
//
// # Key Features
//
//   - Bit-exact 32x32 tile codec (pack/unpack is a pure permutation)
//   - One-heap allocator with 32-byte alignment and byte-count statistics
//   - Scoped mappings: one live mapping per buffer, enforced
//   - Staging-memory budget with ErrResourceExhausted backpressure
//   - Structured logging, metrics hooks, optional binary transfer traces
package tilehal
