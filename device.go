package tilehal

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/tilehal/internal/resource"
	"github.com/hupe1980/tilehal/membackend"
)

// Property query categories and keys recognized by Device.QueryI64.
const (
	// PropertyCategoryDeviceID answers with the device ordinal for any key.
	PropertyCategoryDeviceID = "hal.device.id"
	// PropertyCategoryDevice holds the hardware capability keys.
	PropertyCategoryDevice = "hal.device"

	// PropertyKeyCoreCountX is the compute core grid width.
	PropertyKeyCoreCountX = "core_count_x"
	// PropertyKeyCoreCountY is the compute core grid height.
	PropertyKeyCoreCountY = "core_count_y"
	// PropertyKeyDRAMSize is the total device memory in bytes.
	PropertyKeyDRAMSize = "dram_size"
)

// Device is one opened accelerator. It brokers access to its single
// Allocator and answers capability queries; it performs no tile conversion
// and owns no buffer state itself.
type Device interface {
	// Identifier returns the driver identifier the device was opened
	// through, e.g. "sim".
	Identifier() string

	// ID returns the device ordinal.
	ID() int64

	// QueryI64 answers integer-keyed capability queries. Recognized
	// queries: (PropertyCategoryDeviceID, any key) and
	// (PropertyCategoryDevice, core_count_x | core_count_y | dram_size).
	// Anything else fails with a PropertyNotFoundError.
	QueryI64(category, key string) (int64, error)

	// Allocator returns the device's allocator, created at open and
	// released at close.
	Allocator() Allocator

	// Flush drains queued transfer work. Transfers in this driver are
	// synchronous, so there is normally nothing queued; backend flush
	// errors are logged, never returned.
	Flush(ctx context.Context) error

	// Trim releases cached host resources. This driver caches nothing, so
	// Trim always succeeds.
	Trim() error

	// Close releases the allocator and the memory backend. Idempotent.
	// Callers release their buffers first; buffers outliving the device
	// fail their operations with ErrUnavailable.
	Close(ctx context.Context) error
}

type device struct {
	identifier string
	id         int64
	backend    membackend.Backend
	allocator  *deviceAllocator
	logger     *Logger
	metrics    MetricsCollector
	closed     atomic.Bool
}

var _ Device = (*device)(nil)

// NewDevice wraps a memory backend in a Device. Most callers open devices
// through a registered driver with OpenDevice; NewDevice is the hook for
// custom backends, typically a membackend.NewRuntimeBackend bridge to
// vendor hardware.
func NewDevice(ctx context.Context, identifier string, deviceID int64, backend membackend.Backend, optFns ...Option) (Device, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil memory backend", ErrInvalidArgument)
	}

	opts := applyOptions(optFns)

	logger := opts.logger.WithDriver(identifier).WithDevice(deviceID)

	if opts.traceWriter != nil {
		backend = newTracingBackend(backend, opts.traceWriter, logger)
	}

	res := resource.NewController(resource.Config{
		MemoryLimitBytes: opts.stagingLimitBytes,
	})

	d := &device{
		identifier: identifier,
		id:         deviceID,
		backend:    backend,
		allocator:  newDeviceAllocator(backend, res, logger, opts.metricsCollector),
		logger:     logger,
		metrics:    opts.metricsCollector,
	}

	d.logger.LogDeviceOpen(ctx, identifier, deviceID, backend.GridX(), backend.GridY(), backend.Capacity())

	return d, nil
}

// Identifier implements Device.
func (d *device) Identifier() string {
	return d.identifier
}

// ID implements Device.
func (d *device) ID() int64 {
	return d.id
}

// QueryI64 implements Device.
func (d *device) QueryI64(category, key string) (int64, error) {
	if category == PropertyCategoryDeviceID {
		return d.id, nil
	}

	if category == PropertyCategoryDevice {
		switch key {
		case PropertyKeyCoreCountX:
			return int64(d.backend.GridX()), nil
		case PropertyKeyCoreCountY:
			return int64(d.backend.GridY()), nil
		case PropertyKeyDRAMSize:
			return d.backend.Capacity(), nil
		}
	}

	return 0, &PropertyNotFoundError{Category: category, Key: key}
}

// Allocator implements Device.
func (d *device) Allocator() Allocator {
	return d.allocator
}

// Flush implements Device.
func (d *device) Flush(ctx context.Context) error {
	err := d.backend.Flush(ctx)
	d.logger.LogFlush(ctx, err)

	return nil
}

// Trim implements Device.
func (d *device) Trim() error {
	return nil
}
