package tilehal_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilehal"
	"github.com/hupe1980/tilehal/membackend/sim"
)

func TestNewDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("NilBackend", func(t *testing.T) {
		_, err := tilehal.NewDevice(ctx, "sim", 0, nil)
		require.ErrorIs(t, err, tilehal.ErrInvalidArgument)
	})

	t.Run("CustomBackend", func(t *testing.T) {
		backend, err := sim.New(sim.WithCapacity(1 << 20))
		require.NoError(t, err)

		dev, err := tilehal.NewDevice(ctx, "custom", 7, backend)
		require.NoError(t, err)
		t.Cleanup(func() { _ = dev.Close(ctx) })

		assert.Equal(t, "custom", dev.Identifier())
		assert.EqualValues(t, 7, dev.ID())

		id, err := dev.QueryI64(tilehal.PropertyCategoryDeviceID, "ordinal")
		require.NoError(t, err)
		assert.EqualValues(t, 7, id)
	})
}

func TestQueryI64(t *testing.T) {
	dev := openTestDevice(t, tilehal.WithSimOptions(
		sim.WithCapacity(64<<20),
		sim.WithCoreGrid(8, 9),
	))

	t.Run("DeviceID", func(t *testing.T) {
		// The ordinal category answers regardless of key.
		for _, key := range []string{"ordinal", "", "anything"} {
			id, err := dev.QueryI64(tilehal.PropertyCategoryDeviceID, key)
			require.NoError(t, err)
			assert.EqualValues(t, 0, id)
		}
	})

	t.Run("CoreGrid", func(t *testing.T) {
		x, err := dev.QueryI64(tilehal.PropertyCategoryDevice, tilehal.PropertyKeyCoreCountX)
		require.NoError(t, err)
		assert.EqualValues(t, 8, x)

		y, err := dev.QueryI64(tilehal.PropertyCategoryDevice, tilehal.PropertyKeyCoreCountY)
		require.NoError(t, err)
		assert.EqualValues(t, 9, y)
	})

	t.Run("DRAMSize", func(t *testing.T) {
		dram, err := dev.QueryI64(tilehal.PropertyCategoryDevice, tilehal.PropertyKeyDRAMSize)
		require.NoError(t, err)
		assert.EqualValues(t, 64<<20, dram)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		_, err := dev.QueryI64(tilehal.PropertyCategoryDevice, "core_frequency")
		require.ErrorIs(t, err, tilehal.ErrNotFound)

		var propErr *tilehal.PropertyNotFoundError
		require.ErrorAs(t, err, &propErr)
		assert.Equal(t, tilehal.PropertyCategoryDevice, propErr.Category)
		assert.Equal(t, "core_frequency", propErr.Key)
		assert.Contains(t, propErr.Error(), "core_frequency")
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		_, err := dev.QueryI64("hal.executable", "cache_size")
		require.ErrorIs(t, err, tilehal.ErrNotFound)
	})
}

func TestDeviceFlushAndTrim(t *testing.T) {
	ctx := context.Background()
	dev := openTestDevice(t)

	assert.NoError(t, dev.Flush(ctx))
	assert.NoError(t, dev.Trim())
}

func TestDeviceAllocatorStable(t *testing.T) {
	dev := openTestDevice(t)

	// One allocator per device, same instance on every call.
	assert.Same(t, dev.Allocator(), dev.Allocator())
}

// TestDeviceLogging verifies the structured log output carries the driver
// and device fields on every record.
func TestDeviceLogging(t *testing.T) {
	ctx := context.Background()

	var logBuf bytes.Buffer
	logger := tilehal.NewLogger(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	dev, err := tilehal.OpenDevice(ctx, "sim", 0, tilehal.WithLogger(logger))
	require.NoError(t, err)

	alloc := dev.Allocator()
	buf, err := alloc.AllocateBuffer(ctx, deviceLocalParams(), 4096)
	require.NoError(t, err)
	require.NoError(t, alloc.ReleaseBuffer(ctx, buf))
	require.NoError(t, dev.Close(ctx))

	out := logBuf.String()
	assert.Contains(t, out, "device opened")
	assert.Contains(t, out, "buffer allocated")
	assert.Contains(t, out, "buffer released")
	assert.Contains(t, out, "device closed")
	assert.Contains(t, out, "driver=sim")
	assert.Contains(t, out, "device=0")
}

// TestDeviceLogsSwallowedWriteFailure verifies the one failure the driver
// swallows on purpose still reaches the log, at warning level.
func TestDeviceLogsSwallowedWriteFailure(t *testing.T) {
	ctx := context.Background()

	backend, err := sim.New()
	require.NoError(t, err)
	fb := &failingBackend{Backend: backend, failWrites: true}

	var logBuf bytes.Buffer
	logger := tilehal.NewLogger(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	dev := openFaultyDevice(t, fb, tilehal.WithLogger(logger))

	alloc := dev.Allocator()
	buf, err := alloc.AllocateBuffer(ctx, deviceLocalParams(), 4096)
	require.NoError(t, err)

	m, err := buf.Map(ctx, tilehal.MemoryAccessWrite, 0, 4096)
	require.NoError(t, err)
	require.NoError(t, buf.Unmap(ctx, m))

	out := logBuf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "device write failed")
	assert.Contains(t, out, "injected transfer failure")

	require.NoError(t, alloc.ReleaseBuffer(ctx, buf))
}
