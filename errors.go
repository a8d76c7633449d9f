package tilehal

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tilehal/internal/resource"
	"github.com/hupe1980/tilehal/membackend"
)

var (
	// ErrResourceExhausted is returned when host staging or device memory
	// cannot be obtained. Recoverable; the buffer is left unallocated.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrUnavailable is returned when the underlying device or backend is
	// not initialized or has been shut down. The caller may retry after
	// reopening the device.
	ErrUnavailable = errors.New("device unavailable")

	// ErrUnimplemented is returned for operations outside this driver's
	// scope (buffer import/export). Permanent; never silently degrades.
	ErrUnimplemented = errors.New("unimplemented")

	// ErrNotFound is returned for unknown drivers, devices, and device
	// property keys.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed requests: zero sizes,
	// incompatible parameters, unaligned shapes, bad access flags.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInternal is returned when the vendor runtime surfaces an error the
	// driver cannot classify.
	ErrInternal = errors.New("internal error")

	// ErrAlreadyMapped is returned when a buffer with a live mapping is
	// mapped again before the matching unmap.
	ErrAlreadyMapped = errors.New("buffer already mapped")

	// ErrNotMapped is returned when unmapping a mapping that is not the
	// buffer's live one (already unmapped, or from another buffer).
	ErrNotMapped = errors.New("mapping is not live")

	// ErrOutOfRange is returned when a mapped byte range exceeds the
	// buffer's allocation.
	ErrOutOfRange = errors.New("byte range out of bounds")

	// ErrClosed is returned when operating on a closed buffer or device.
	ErrClosed = errors.New("already closed")

	// ErrDriverExists reports a duplicate driver registration.
	ErrDriverExists = errors.New("driver already registered")
)

// PropertyNotFoundError indicates an unrecognized capability query.
//
// errors.Is(err, ErrNotFound) matches it.
type PropertyNotFoundError struct {
	Category string
	Key      string
}

func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("unknown device property '%s :: %s'", e.Category, e.Key)
}

func (e *PropertyNotFoundError) Unwrap() error { return ErrNotFound }

// IncompatibleBufferError indicates allocation parameters the device heap
// cannot serve, most commonly a memory type without MemoryTypeDeviceLocal.
//
// errors.Is(err, ErrInvalidArgument) matches it.
type IncompatibleBufferError struct {
	Params BufferParams
}

func (e *IncompatibleBufferError) Error() string {
	return fmt.Sprintf("allocation incompatible with device heap: type=0x%x access=%s usage=0x%x",
		uint32(e.Params.Type), e.Params.Access, uint32(e.Params.Usage))
}

func (e *IncompatibleBufferError) Unwrap() error { return ErrInvalidArgument }

// translateError normalizes backend and staging errors to the package
// sentinels so callers only depend on one error vocabulary. Unknown errors
// pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, membackend.ErrCapacity) {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}

	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}

	if errors.Is(err, membackend.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if errors.Is(err, membackend.ErrOutOfBounds) {
		return fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}

	return err
}
