package tilehal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/tilehal/internal/mem"
	"github.com/hupe1980/tilehal/internal/resource"
	"github.com/hupe1980/tilehal/membackend"
	"github.com/hupe1980/tilehal/tile"
)

// Buffer is one device memory allocation. Mapping it gives the host a
// row-major float32 view; the tiled device layout is packed and unpacked
// at the map/unmap boundary, invisibly to the caller.
//
// A buffer supports at most one live mapping at a time. Buffer methods are
// safe for concurrent use, but content access through a Mapping is
// single-goroutine by convention; sharing one buffer across goroutines
// needs external synchronization.
type Buffer interface {
	// AllocationSize returns the caller-visible allocation size in bytes,
	// always a multiple of MinAlignment.
	AllocationSize() int64

	// Shape returns the 2-D layout used for tile conversion.
	Shape() tile.Shape

	// MemoryType returns the memory class the buffer was allocated with.
	MemoryType() MemoryType

	// AllowedAccess returns the access rights mappings may request.
	AllowedAccess() MemoryAccess

	// AllowedUsage returns the declared buffer uses.
	AllowedUsage() BufferUsage

	// Map exposes [offset, offset+length) of the buffer to the host.
	//
	// Under MemoryAccessWrite the mapping starts zero-filled and no device
	// I/O happens until Unmap. Under MemoryAccessRead the device contents
	// are read and unpacked from tiles before Map returns; read failures
	// propagate. Layout conversion applies only to mappings that span the
	// whole buffer; partial mappings see raw device bytes.
	Map(ctx context.Context, access MemoryAccess, offset, length int64) (*Mapping, error)

	// Unmap ends a mapping and invalidates it. For write mappings the
	// host data is packed into tiles and written to the device first; a
	// device write failure is logged and counted but not returned, so
	// unmap always completes and scratch memory never leaks.
	Unmap(ctx context.Context, m *Mapping) error

	// Close releases the device region. A live mapping is abandoned: its
	// scratch is released and no device write happens. Buffers are closed
	// exactly once; use Allocator.ReleaseBuffer to keep the freed-bytes
	// statistics consistent.
	Close(ctx context.Context) error
}

// Mapping is a temporary host-visible view of a buffer's bytes, valid
// between Map and the matching Unmap. After Unmap the span is empty and
// the handle must not be reused. Mapping accessors are not synchronized.
type Mapping struct {
	buf       *buffer
	access    MemoryAccess
	offset    int64
	length    int64
	scratch   []byte
	converted bool
	charged   int64
}

// Bytes returns the mapped span in host (row-major) order.
func (m *Mapping) Bytes() []byte {
	if m == nil || m.scratch == nil {
		return nil
	}
	return m.scratch[:m.length]
}

// Float32s returns the mapped span as float32 elements.
func (m *Mapping) Float32s() []float32 {
	return mem.AsFloat32s(m.Bytes())
}

// Len returns the mapped length in bytes, 0 once unmapped.
func (m *Mapping) Len() int64 {
	if m == nil || m.scratch == nil {
		return 0
	}
	return m.length
}

// Offset returns the mapping's offset within the buffer.
func (m *Mapping) Offset() int64 {
	if m == nil {
		return 0
	}
	return m.offset
}

type buffer struct {
	backend membackend.Backend
	res     *resource.Controller
	stats   *allocatorStats
	logger  *Logger
	metrics MetricsCollector

	region    membackend.Region
	size      int64
	shape     tile.Shape
	usesTiles bool
	memType   MemoryType
	access    MemoryAccess
	usage     BufferUsage

	mu      sync.Mutex
	mapping *Mapping
	closed  bool
}

var _ Buffer = (*buffer)(nil)

func (b *buffer) AllocationSize() int64 {
	return b.size
}

func (b *buffer) Shape() tile.Shape {
	return b.shape
}

func (b *buffer) MemoryType() MemoryType {
	return b.memType
}

func (b *buffer) AllowedAccess() MemoryAccess {
	return b.access
}

func (b *buffer) AllowedUsage() BufferUsage {
	return b.usage
}

// Map implements Buffer.
func (b *buffer) Map(ctx context.Context, access MemoryAccess, offset, length int64) (*Mapping, error) {
	start := time.Now()

	m, err := b.mapRange(ctx, access, offset, length)

	duration := time.Since(start)
	b.metrics.RecordMap(length, duration, err)
	b.logger.LogMap(ctx, access, offset, length, err)

	if err != nil {
		return nil, err
	}
	return m, nil
}

func (b *buffer) mapRange(ctx context.Context, access MemoryAccess, offset, length int64) (*Mapping, error) {
	if access != MemoryAccessRead && access != MemoryAccessWrite {
		return nil, fmt.Errorf("%w: mapping access must be read or write, got %s", ErrInvalidArgument, access)
	}

	if access&b.access == 0 {
		return nil, fmt.Errorf("%w: buffer allows %s access, mapping requested %s", ErrInvalidArgument, b.access, access)
	}

	if length <= 0 {
		return nil, fmt.Errorf("%w: mapping length must be positive, got %d", ErrInvalidArgument, length)
	}

	if offset < 0 || offset+length > b.size {
		return nil, fmt.Errorf("%w: mapping [%d, %d) exceeds allocation of %d bytes", ErrOutOfRange, offset, offset+length, b.size)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("buffer: %w", ErrClosed)
	}

	if b.mapping != nil {
		return nil, ErrAlreadyMapped
	}

	// Conversion applies only to whole-buffer mappings on a tiled shape.
	// Partial mappings move raw device bytes, so a span never exceeds the
	// scratch it was given.
	converted := b.usesTiles && offset == 0 && length == b.size

	// Converted scratch covers the full shape: the shape may be larger
	// than the allocation (inferred squares round up) and the codec works
	// on whole tiles. The caller's view stays clipped to length.
	scratchLen := length
	if converted {
		scratchLen = int64(b.shape.SizeBytes())
	}

	// Write mappings reserve the tile staging up front so the device write
	// at unmap can never fail on the budget - unmap must be total.
	charged := scratchLen
	if converted {
		charged += int64(b.shape.SizeBytes())
	}

	if err := b.res.AcquireMemory(charged); err != nil {
		return nil, translateError(err)
	}
	b.stats.hostAllocated.Add(charged)

	m := &Mapping{
		buf:       b,
		access:    access,
		offset:    offset,
		length:    length,
		scratch:   mem.AllocAligned(int(scratchLen)),
		converted: converted,
		charged:   charged,
	}

	if access == MemoryAccessRead {
		if err := b.fill(ctx, m); err != nil {
			b.releaseScratch(m)
			return nil, translateError(err)
		}

		if converted {
			// The tile staging is only needed during the unpack.
			staging := int64(b.shape.SizeBytes())
			b.res.ReleaseMemory(staging)
			b.stats.hostFreed.Add(staging)
			m.charged -= staging
		}
	}

	b.mapping = m

	return m, nil
}

// fill materializes device contents into the mapping's scratch for read
// access.
func (b *buffer) fill(ctx context.Context, m *Mapping) error {
	if !m.converted {
		return b.readRegion(ctx, m.offset, m.scratch)
	}

	staging := mem.AllocAlignedFloat32(b.shape.Elements())

	if err := b.readRegion(ctx, 0, mem.AsBytes(staging)); err != nil {
		return err
	}

	return tile.Unpack(mem.AsFloat32s(m.scratch), staging, b.shape)
}

func (b *buffer) readRegion(ctx context.Context, offset int64, dst []byte) error {
	start := time.Now()

	err := b.backend.Read(ctx, b.region, offset, dst)

	b.metrics.RecordTransfer(TransferDeviceToHost, int64(len(dst)), time.Since(start), err)
	b.logger.LogTransfer(ctx, TransferDeviceToHost, int64(len(dst)), err)

	return err
}

// Unmap implements Buffer.
func (b *buffer) Unmap(ctx context.Context, m *Mapping) error {
	start := time.Now()
	length := m.Len() // captured before the span is invalidated

	err := b.unmapRange(ctx, m)

	duration := time.Since(start)
	b.metrics.RecordUnmap(length, duration, err)
	b.logger.LogUnmap(ctx, length, err)

	return err
}

func (b *buffer) unmapRange(ctx context.Context, m *Mapping) error {
	if m == nil {
		return fmt.Errorf("%w: nil mapping", ErrInvalidArgument)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if m.buf != b || b.mapping != m {
		return ErrNotMapped
	}

	if m.access == MemoryAccessWrite {
		// Best effort: the write failure is already in the log and the
		// metrics; failing here would leak the scratch reservation.
		_ = b.flushWrite(ctx, m)
	}

	b.releaseScratch(m)
	b.mapping = nil

	return nil
}

// flushWrite packs the host-order scratch into tile order and writes it to
// the device.
func (b *buffer) flushWrite(ctx context.Context, m *Mapping) error {
	data := m.scratch
	offset := m.offset

	if m.converted {
		staging := mem.AllocAlignedFloat32(b.shape.Elements())

		if err := tile.Pack(staging, mem.AsFloat32s(m.scratch), b.shape); err != nil {
			return err
		}

		data = mem.AsBytes(staging)
		offset = 0
	}

	start := time.Now()

	err := b.backend.Write(ctx, b.region, offset, data)

	b.metrics.RecordTransfer(TransferHostToDevice, int64(len(data)), time.Since(start), err)
	b.logger.LogTransfer(ctx, TransferHostToDevice, int64(len(data)), err)

	return err
}

// releaseScratch returns the mapping's staging budget and empties its span.
func (b *buffer) releaseScratch(m *Mapping) {
	b.res.ReleaseMemory(m.charged)
	b.stats.hostFreed.Add(m.charged)

	m.charged = 0
	m.scratch = nil
	m.buf = nil
}

// Close implements Buffer.
func (b *buffer) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("buffer: %w", ErrClosed)
	}
	b.closed = true

	// Abandon a live mapping: scratch is released, nothing is written out.
	if b.mapping != nil {
		b.releaseScratch(b.mapping)
		b.mapping = nil
	}

	if err := b.backend.Free(ctx, b.region); err != nil {
		return translateError(err)
	}

	return nil
}
