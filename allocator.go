package tilehal

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/tilehal/internal/resource"
	"github.com/hupe1980/tilehal/membackend"
	"github.com/hupe1980/tilehal/tile"
)

// Allocator gate-keeps all buffer creation for one device. It owns the heap
// description, the alignment policy, and the allocation statistics.
type Allocator interface {
	// QueryMemoryHeaps fills dst with the device's memory heaps and returns
	// the total heap count, which may exceed len(dst). This device class
	// exposes exactly one heap.
	QueryMemoryHeaps(dst []MemoryHeap) (int, error)

	// QueryBufferCompatibility reports whether params can be served and
	// returns the allocation size rounded up to MinAlignment. A None result
	// is a hard filter: allocation with those params will fail.
	QueryBufferCompatibility(params BufferParams, size int64) (BufferCompatibility, int64)

	// AllocateBuffer reserves an aligned device region and returns its
	// Buffer. The conversion shape defaults to a square inferred from the
	// size; callers with non-square layouts pass WithShape.
	AllocateBuffer(ctx context.Context, params BufferParams, size int64, optFns ...AllocOption) (Buffer, error)

	// ReleaseBuffer closes the buffer and accounts its allocation size as
	// freed. Each buffer is released exactly once.
	ReleaseBuffer(ctx context.Context, buf Buffer) error

	// ImportBuffer wraps foreign memory in a Buffer. Not supported by this
	// device class; always ErrUnimplemented.
	ImportBuffer(ctx context.Context, params BufferParams, data []byte) (Buffer, error)

	// ExportBuffer releases a Buffer's memory to the caller. Not supported
	// by this device class; always ErrUnimplemented.
	ExportBuffer(ctx context.Context, buf Buffer) ([]byte, error)

	// Statistics returns a snapshot of the aggregate byte counters.
	Statistics() AllocatorStatistics
}

// AllocatorStatistics is a snapshot of an allocator's aggregate byte
// counters. The counters only grow; allocate and free pair up over a
// buffer's lifetime. Diagnostics only - never a correctness input.
type AllocatorStatistics struct {
	// HostBytesAllocated counts staging memory charged by mappings.
	HostBytesAllocated int64
	// HostBytesFreed counts staging memory returned by unmaps.
	HostBytesFreed int64
	// DeviceBytesAllocated counts aligned allocation sizes.
	DeviceBytesAllocated int64
	// DeviceBytesFreed counts aligned sizes of released buffers.
	DeviceBytesFreed int64
}

// AllocOption configures one allocation.
type AllocOption func(*allocOptions)

type allocOptions struct {
	shape tile.Shape
}

// WithShape supplies the buffer's 2-D layout for tile conversion. The shape
// must be tile-aligned and hold at least the aligned allocation size.
// Without it a square shape is inferred from the byte size, which comes out
// wrong for non-square matrices.
func WithShape(rows, cols int) AllocOption {
	return func(o *allocOptions) {
		o.shape = tile.Shape{Rows: rows, Cols: cols}
	}
}

func applyAllocOptions(optFns []AllocOption) allocOptions {
	var o allocOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// allocatorStats holds the counters shared between the allocator and its
// buffers. Per allocator instance; devices never share a counter set.
type allocatorStats struct {
	hostAllocated   atomic.Int64
	hostFreed       atomic.Int64
	deviceAllocated atomic.Int64
	deviceFreed     atomic.Int64
}

type deviceAllocator struct {
	backend membackend.Backend
	res     *resource.Controller
	logger  *Logger
	metrics MetricsCollector
	stats   allocatorStats
}

var _ Allocator = (*deviceAllocator)(nil)

func newDeviceAllocator(backend membackend.Backend, res *resource.Controller, logger *Logger, metrics MetricsCollector) *deviceAllocator {
	return &deviceAllocator{
		backend: backend,
		res:     res,
		logger:  logger,
		metrics: metrics,
	}
}

// QueryMemoryHeaps implements Allocator.
func (a *deviceAllocator) QueryMemoryHeaps(dst []MemoryHeap) (int, error) {
	if len(dst) >= 1 {
		dst[0] = MemoryHeap{
			Type: MemoryTypeDeviceLocal,
			AllowedUsage: BufferUsageTransfer |
				BufferUsageDispatchStorage |
				BufferUsageDispatchIndirectParams |
				BufferUsageDispatchUniformRead,
			MaxAllocationSize: a.backend.Capacity(),
			MinAlignment:      MinAlignment,
		}
	}
	return 1, nil
}

// QueryBufferCompatibility implements Allocator.
func (a *deviceAllocator) QueryBufferCompatibility(params BufferParams, size int64) (BufferCompatibility, int64) {
	size = AlignSize(size)

	if params.Type&MemoryTypeDeviceLocal == 0 {
		return BufferCompatibilityNone, size
	}

	return BufferCompatibilityAllocatable, size
}

// AllocateBuffer implements Allocator.
func (a *deviceAllocator) AllocateBuffer(ctx context.Context, params BufferParams, size int64, optFns ...AllocOption) (Buffer, error) {
	start := time.Now()

	buf, err := a.allocateBuffer(ctx, params, size, optFns...)

	duration := time.Since(start)
	a.metrics.RecordAllocation(AlignSize(size), duration, err)
	a.logger.LogAllocation(ctx, AlignSize(size), err)

	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (a *deviceAllocator) allocateBuffer(ctx context.Context, params BufferParams, size int64, optFns ...AllocOption) (*buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: allocation size must be positive, got %d", ErrInvalidArgument, size)
	}

	compat, aligned := a.QueryBufferCompatibility(params, size)
	if compat&BufferCompatibilityAllocatable == 0 {
		return nil, &IncompatibleBufferError{Params: params}
	}

	opts := applyAllocOptions(optFns)

	shape := opts.shape
	if shape == (tile.Shape{}) {
		shape = tile.InferShape(int(aligned / 4))
	} else {
		if !shape.Aligned() {
			return nil, fmt.Errorf("%w: shape %s is not tile-aligned", ErrInvalidArgument, shape)
		}
		if int64(shape.SizeBytes()) < aligned {
			return nil, fmt.Errorf("%w: shape %s holds %d bytes, allocation needs %d", ErrInvalidArgument, shape, shape.SizeBytes(), aligned)
		}
	}

	usesTiles := shape.Aligned()

	// The device region covers whole tiles so the codec never runs past
	// it; the caller-visible size stays the aligned request.
	regionSize := aligned
	if usesTiles {
		regionSize = int64(shape.SizeBytes())
	}

	region, err := a.backend.Allocate(ctx, regionSize)
	if err != nil {
		return nil, translateError(err)
	}

	params = params.normalize()

	buf := &buffer{
		backend:   a.backend,
		res:       a.res,
		stats:     &a.stats,
		logger:    a.logger,
		metrics:   a.metrics,
		region:    region,
		size:      aligned,
		shape:     shape,
		usesTiles: usesTiles,
		memType:   params.Type,
		access:    params.Access,
		usage:     params.Usage,
	}

	a.stats.deviceAllocated.Add(aligned)

	return buf, nil
}

// ReleaseBuffer implements Allocator.
func (a *deviceAllocator) ReleaseBuffer(ctx context.Context, buf Buffer) error {
	start := time.Now()

	var size int64
	if buf != nil {
		size = buf.AllocationSize()
	}

	err := a.releaseBuffer(ctx, buf)

	duration := time.Since(start)
	a.metrics.RecordRelease(size, duration, err)
	a.logger.LogRelease(ctx, size, err)

	return err
}

func (a *deviceAllocator) releaseBuffer(ctx context.Context, buf Buffer) error {
	b, ok := buf.(*buffer)
	if !ok || b == nil {
		return fmt.Errorf("%w: buffer was not allocated by this allocator", ErrInvalidArgument)
	}

	if err := b.Close(ctx); err != nil {
		return err
	}

	a.stats.deviceFreed.Add(b.size)

	return nil
}

// ImportBuffer implements Allocator.
func (a *deviceAllocator) ImportBuffer(ctx context.Context, params BufferParams, data []byte) (Buffer, error) {
	return nil, fmt.Errorf("%w: buffer import from external memory", ErrUnimplemented)
}

// ExportBuffer implements Allocator.
func (a *deviceAllocator) ExportBuffer(ctx context.Context, buf Buffer) ([]byte, error) {
	return nil, fmt.Errorf("%w: buffer export to external memory", ErrUnimplemented)
}

// Statistics implements Allocator.
func (a *deviceAllocator) Statistics() AllocatorStatistics {
	return AllocatorStatistics{
		HostBytesAllocated:   a.stats.hostAllocated.Load(),
		HostBytesFreed:       a.stats.hostFreed.Load(),
		DeviceBytesAllocated: a.stats.deviceAllocated.Load(),
		DeviceBytesFreed:     a.stats.deviceFreed.Load(),
	}
}
