package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/hupe1980/tilehal/internal/mmap"
	"github.com/hupe1980/tilehal/membackend"
)

// PageSize is the device page granularity (one 32x32 float32 tile).
const PageSize int64 = 4096

// Backend simulates device DRAM with host memory. The pool is one anonymous
// memory mapping divided into 4,096-byte pages; a page-occupancy bitmap
// drives first-fit allocation, so regions get real, stable device addresses
// and freed address ranges are reused.
type Backend struct {
	pool     *mmap.Mapping
	capacity int64
	numPages uint32
	gridX    int
	gridY    int
	limiter  *rate.Limiter

	mu    sync.Mutex
	pages *pageTable

	closed atomic.Bool
}

var _ membackend.Backend = (*Backend)(nil)

// New creates a simulated backend. Defaults: 256 MiB capacity, 11x10 core
// grid, unlimited bandwidth.
func New(optFns ...Option) (*Backend, error) {
	opts := applyOptions(optFns)

	if opts.capacity <= 0 {
		return nil, fmt.Errorf("sim: capacity must be positive, got %d", opts.capacity)
	}
	if opts.gridX <= 0 || opts.gridY <= 0 {
		return nil, fmt.Errorf("sim: core grid must be positive, got %dx%d", opts.gridX, opts.gridY)
	}

	numPages := (opts.capacity + PageSize - 1) / PageSize
	capacity := numPages * PageSize

	pool, err := mmap.MapAnon(int(capacity))
	if err != nil {
		return nil, fmt.Errorf("sim: mapping DRAM pool: %w", err)
	}
	// Buffers land anywhere in the pool; sequential readahead buys nothing.
	_ = pool.Advise(mmap.AccessRandom)

	b := &Backend{
		pool:     pool,
		capacity: capacity,
		numPages: uint32(numPages),
		gridX:    opts.gridX,
		gridY:    opts.gridY,
		pages:    newPageTable(uint32(numPages)),
	}

	if opts.bandwidthPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.bandwidthPerSecond), int(opts.bandwidthPerSecond))
	}

	return b, nil
}

// Name implements membackend.Backend.
func (b *Backend) Name() string { return "sim" }

// Capacity implements membackend.Backend.
func (b *Backend) Capacity() int64 { return b.capacity }

// GridX implements membackend.Backend.
func (b *Backend) GridX() int { return b.gridX }

// GridY implements membackend.Backend.
func (b *Backend) GridY() int { return b.gridY }

// Allocate implements membackend.Backend. The returned region starts on a
// page boundary; its address is the byte offset into the pool.
func (b *Backend) Allocate(_ context.Context, size int64) (membackend.Region, error) {
	if b.closed.Load() {
		return membackend.Region{}, membackend.ErrClosed
	}
	if size <= 0 {
		return membackend.Region{}, fmt.Errorf("%w: size %d", membackend.ErrInvalidRegion, size)
	}

	numPages := (size + PageSize - 1) / PageSize

	b.mu.Lock()
	defer b.mu.Unlock()

	start, ok := b.pages.findRun(uint32(numPages))
	if !ok {
		return membackend.Region{}, fmt.Errorf("%w: %d bytes requested, %d of %d pages in use",
			membackend.ErrCapacity, size, b.pages.reserved(), b.numPages)
	}
	b.pages.reserve(start, uint32(numPages))

	return membackend.Region{Addr: int64(start) * PageSize, Size: size}, nil
}

// Free implements membackend.Backend. Freeing a region that is not
// currently allocated (including a second free) returns ErrInvalidRegion.
func (b *Backend) Free(_ context.Context, r membackend.Region) error {
	if b.closed.Load() {
		return membackend.ErrClosed
	}

	start, numPages, err := b.regionPages(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.pages.isReserved(start, numPages) {
		return fmt.Errorf("%w: region [%d, %d) is not allocated", membackend.ErrInvalidRegion, r.Addr, r.Addr+r.Size)
	}
	b.pages.release(start, numPages)

	return nil
}

// Write implements membackend.Backend.
func (b *Backend) Write(ctx context.Context, r membackend.Region, offset int64, src []byte) error {
	if b.closed.Load() {
		return membackend.ErrClosed
	}
	if err := b.checkSpan(r, offset, int64(len(src))); err != nil {
		return err
	}
	if err := b.waitBandwidth(ctx, len(src)); err != nil {
		return err
	}

	span, err := b.pool.Region(int(r.Addr+offset), len(src))
	if err != nil {
		return fmt.Errorf("sim: pool view: %w", err)
	}

	copy(span.Bytes(), src)
	return nil
}

// Read implements membackend.Backend.
func (b *Backend) Read(ctx context.Context, r membackend.Region, offset int64, dst []byte) error {
	if b.closed.Load() {
		return membackend.ErrClosed
	}
	if err := b.checkSpan(r, offset, int64(len(dst))); err != nil {
		return err
	}
	if err := b.waitBandwidth(ctx, len(dst)); err != nil {
		return err
	}

	span, err := b.pool.Region(int(r.Addr+offset), len(dst))
	if err != nil {
		return fmt.Errorf("sim: pool view: %w", err)
	}

	copy(dst, span.Bytes())
	return nil
}

// Flush implements membackend.Backend. Transfers are synchronous, so there
// is never queued work to drain.
func (b *Backend) Flush(context.Context) error {
	if b.closed.Load() {
		return membackend.ErrClosed
	}
	return nil
}

// Close implements membackend.Backend. Idempotent.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.pool.Close()
}

// ReservedBytes returns the bytes currently reserved, page-granular.
// Diagnostic only.
func (b *Backend) ReservedBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(b.pages.reserved()) * PageSize
}

func (b *Backend) regionPages(r membackend.Region) (start, numPages uint32, err error) {
	if r.Addr < 0 || r.Size <= 0 || r.Addr%PageSize != 0 || r.Addr+r.Size > b.capacity {
		return 0, 0, fmt.Errorf("%w: [%d, %d)", membackend.ErrInvalidRegion, r.Addr, r.Addr+r.Size)
	}
	return uint32(r.Addr / PageSize), uint32((r.Size + PageSize - 1) / PageSize), nil
}

func (b *Backend) checkSpan(r membackend.Region, offset, length int64) error {
	if _, _, err := b.regionPages(r); err != nil {
		return err
	}
	if offset < 0 || length < 0 || offset+length > r.Size {
		return fmt.Errorf("%w: [%d, %d) in region of %d bytes", membackend.ErrOutOfBounds, offset, offset+length, r.Size)
	}
	return nil
}

// waitBandwidth blocks until the bandwidth model admits n bytes. Requests
// larger than the limiter burst are fed in burst-sized chunks.
func (b *Backend) waitBandwidth(ctx context.Context, n int) error {
	if b.limiter == nil {
		return nil
	}

	burst := b.limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := b.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
