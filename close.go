package tilehal

import (
	"context"
)

// Close releases the device's memory backend and, with it, the allocator.
// Close is idempotent: the first call tears down, later calls return nil.
func (d *device) Close(ctx context.Context) error {
	if d.closed.Swap(true) {
		return nil
	}

	var firstErr error
	if err := d.backend.Close(); err != nil {
		firstErr = err
	}

	d.logger.LogDeviceClose(ctx, d.id, firstErr)

	return firstErr
}
