package membackend

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Runtime is the slice of a vendor runtime this package depends on. All
// calls are blocking and all-or-nothing; no partial-transfer state exists.
// Integrators with real hardware implement this against their SDK - no
// vendor code is linked here.
type Runtime interface {
	// DeviceName returns a human-readable device name.
	DeviceName() string

	// DRAMSize returns the total device DRAM in bytes.
	DRAMSize() int64

	// CoreGrid returns the compute core grid dimensions.
	CoreGrid() (x, y int)

	// AllocateDRAM reserves size bytes and returns the device address.
	AllocateDRAM(ctx context.Context, size int64) (int64, error)

	// FreeDRAM releases a reservation made by AllocateDRAM.
	FreeDRAM(ctx context.Context, addr, size int64) error

	// WriteDRAM copies src to device memory at addr.
	WriteDRAM(ctx context.Context, addr int64, src []byte) error

	// ReadDRAM fills dst from device memory at addr.
	ReadDRAM(ctx context.Context, addr int64, dst []byte) error

	// Synchronize blocks until all queued device work has completed.
	Synchronize(ctx context.Context) error

	// Close releases the runtime handle.
	Close() error
}

// RuntimeBackend adapts a vendor Runtime to the Backend contract. It adds
// region bounds checking and close-once semantics on top of the runtime's
// raw address-based calls.
type RuntimeBackend struct {
	rt     Runtime
	closed atomic.Bool
}

var _ Backend = (*RuntimeBackend)(nil)

// NewRuntimeBackend wraps a vendor runtime in a Backend.
func NewRuntimeBackend(rt Runtime) *RuntimeBackend {
	return &RuntimeBackend{rt: rt}
}

// Name implements Backend.
func (b *RuntimeBackend) Name() string {
	return b.rt.DeviceName()
}

// Capacity implements Backend.
func (b *RuntimeBackend) Capacity() int64 {
	return b.rt.DRAMSize()
}

// GridX implements Backend.
func (b *RuntimeBackend) GridX() int {
	x, _ := b.rt.CoreGrid()
	return x
}

// GridY implements Backend.
func (b *RuntimeBackend) GridY() int {
	_, y := b.rt.CoreGrid()
	return y
}

// Allocate implements Backend.
func (b *RuntimeBackend) Allocate(ctx context.Context, size int64) (Region, error) {
	if b.closed.Load() {
		return Region{}, ErrClosed
	}
	if size <= 0 {
		return Region{}, fmt.Errorf("%w: size %d", ErrInvalidRegion, size)
	}

	addr, err := b.rt.AllocateDRAM(ctx, size)
	if err != nil {
		return Region{}, err
	}

	return Region{Addr: addr, Size: size}, nil
}

// Free implements Backend.
func (b *RuntimeBackend) Free(ctx context.Context, r Region) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return b.rt.FreeDRAM(ctx, r.Addr, r.Size)
}

// Write implements Backend.
func (b *RuntimeBackend) Write(ctx context.Context, r Region, offset int64, src []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if err := checkSpan(r, offset, int64(len(src))); err != nil {
		return err
	}
	return b.rt.WriteDRAM(ctx, r.Addr+offset, src)
}

// Read implements Backend.
func (b *RuntimeBackend) Read(ctx context.Context, r Region, offset int64, dst []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if err := checkSpan(r, offset, int64(len(dst))); err != nil {
		return err
	}
	return b.rt.ReadDRAM(ctx, r.Addr+offset, dst)
}

// Flush implements Backend.
func (b *RuntimeBackend) Flush(ctx context.Context) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return b.rt.Synchronize(ctx)
}

// Close implements Backend. Idempotent.
func (b *RuntimeBackend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.rt.Close()
}

func checkSpan(r Region, offset, length int64) error {
	if offset < 0 || length < 0 || offset+length > r.Size {
		return fmt.Errorf("%w: [%d, %d) in region of %d bytes", ErrOutOfBounds, offset, offset+length, r.Size)
	}
	return nil
}
