package membackend

import (
	"context"
	"errors"
)

var (
	// ErrCapacity is returned when the device heap cannot satisfy an allocation.
	ErrCapacity = errors.New("membackend: device memory exhausted")
	// ErrClosed is returned when the backend has been closed.
	ErrClosed = errors.New("membackend: backend is closed")
	// ErrOutOfBounds is returned when a transfer exceeds its region.
	ErrOutOfBounds = errors.New("membackend: transfer out of region bounds")
	// ErrInvalidRegion is returned when a region was not produced by this backend.
	ErrInvalidRegion = errors.New("membackend: invalid region")
)

// Region identifies one reservation of device memory. Addr is a device
// address, stable for the lifetime of the reservation; Size is the reserved
// length in bytes.
type Region struct {
	Addr int64
	Size int64
}

// Backend is the device-memory capability contract. Exactly two kinds of
// implementation exist: the simulated backend (package sim), which models
// DRAM with host memory, and the runtime-backed backend (NewRuntimeBackend),
// which bridges to a vendor runtime. The variant is chosen when the device
// is constructed, never at compile time, so both are testable in the same
// binary.
//
// All transfer methods are blocking and all-or-nothing: on return without
// error the full byte count has moved, and on error no partial-transfer
// state is observable.
type Backend interface {
	// Name identifies the backend family (for example "sim").
	Name() string

	// Capacity returns the total device memory in bytes.
	Capacity() int64

	// GridX and GridY report the device's compute core grid.
	GridX() int
	GridY() int

	// Allocate reserves size bytes of device memory. It returns ErrCapacity
	// when the heap cannot satisfy the request and ErrClosed after Close.
	Allocate(ctx context.Context, size int64) (Region, error)

	// Free releases a region returned by Allocate.
	Free(ctx context.Context, r Region) error

	// Write copies src into the region starting at offset.
	Write(ctx context.Context, r Region, offset int64, src []byte) error

	// Read fills dst from the region starting at offset.
	Read(ctx context.Context, r Region, offset int64, dst []byte) error

	// Flush drains any queued transfer work. Backends whose transfers are
	// synchronous have nothing queued and return nil.
	Flush(ctx context.Context) error

	// Close releases the backend. Idempotent.
	Close() error
}
