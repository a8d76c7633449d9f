package tilehal_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/tilehal"
	"github.com/hupe1980/tilehal/trace"
)

// Example_openDevice demonstrates opening the simulated device and querying
// its compute core grid.
func Example_openDevice() {
	ctx := context.Background()

	dev, err := tilehal.OpenDevice(ctx, "sim", 0)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close(ctx)

	gridX, err := dev.QueryI64(tilehal.PropertyCategoryDevice, tilehal.PropertyKeyCoreCountX)
	if err != nil {
		log.Fatal(err)
	}
	gridY, err := dev.QueryI64(tilehal.PropertyCategoryDevice, tilehal.PropertyKeyCoreCountY)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s device %d: %dx%d cores\n", dev.Identifier(), dev.ID(), gridX, gridY)
	// Output: sim device 0: 11x10 cores
}

// Example_transfer demonstrates the full host round trip: write a buffer
// through a mapping, then read it back. The tiled device layout never shows;
// both mappings see plain row-major float32 data.
func Example_transfer() {
	ctx := context.Background()

	dev, err := tilehal.OpenDevice(ctx, "sim", 0)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close(ctx)

	alloc := dev.Allocator()

	// 4 KiB holds one 32x32 float32 tile.
	buf, err := alloc.AllocateBuffer(ctx, tilehal.BufferParams{
		Type: tilehal.MemoryTypeDeviceLocal,
	}, 4096)
	if err != nil {
		log.Fatal(err)
	}
	defer alloc.ReleaseBuffer(ctx, buf)

	// Write: fill the mapping, unmap to push it to the device.
	m, err := buf.Map(ctx, tilehal.MemoryAccessWrite, 0, 4096)
	if err != nil {
		log.Fatal(err)
	}
	host := m.Float32s()
	for i := range host {
		host[i] = float32(i)
	}
	if err := buf.Unmap(ctx, m); err != nil {
		log.Fatal(err)
	}

	// Read: map again, the device contents are already unpacked.
	m, err = buf.Map(ctx, tilehal.MemoryAccessRead, 0, 4096)
	if err != nil {
		log.Fatal(err)
	}
	data := m.Float32s()
	fmt.Printf("%.0f %.0f %.0f\n", data[0], data[511], data[1023])

	if err := buf.Unmap(ctx, m); err != nil {
		log.Fatal(err)
	}
	// Output: 0 511 1023
}

// Example_withShape demonstrates allocating a non-square matrix. Without the
// shape the driver would infer a square layout and scatter the elements.
func Example_withShape() {
	ctx := context.Background()

	dev, err := tilehal.OpenDevice(ctx, "sim", 0)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close(ctx)

	alloc := dev.Allocator()

	// A 128x256 float32 matrix.
	const rows, cols = 128, 256
	size := int64(rows * cols * 4)

	buf, err := alloc.AllocateBuffer(ctx, tilehal.BufferParams{
		Type: tilehal.MemoryTypeDeviceLocal,
	}, size, tilehal.WithShape(rows, cols))
	if err != nil {
		log.Fatal(err)
	}
	defer alloc.ReleaseBuffer(ctx, buf)

	m, err := buf.Map(ctx, tilehal.MemoryAccessWrite, 0, size)
	if err != nil {
		log.Fatal(err)
	}
	m.Float32s()[5*cols+200] = 42
	if err := buf.Unmap(ctx, m); err != nil {
		log.Fatal(err)
	}

	m, err = buf.Map(ctx, tilehal.MemoryAccessRead, 0, size)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("shape %s, value at (5, 200): %.0f\n", buf.Shape(), m.Float32s()[5*cols+200])

	if err := buf.Unmap(ctx, m); err != nil {
		log.Fatal(err)
	}
	// Output: shape 128x256, value at (5, 200): 42
}

// Example_statistics demonstrates the allocator's aggregate byte counters.
func Example_statistics() {
	ctx := context.Background()

	dev, err := tilehal.OpenDevice(ctx, "sim", 0)
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close(ctx)

	alloc := dev.Allocator()

	buf, err := alloc.AllocateBuffer(ctx, tilehal.BufferParams{
		Type: tilehal.MemoryTypeDeviceLocal,
	}, 4096)
	if err != nil {
		log.Fatal(err)
	}
	if err := alloc.ReleaseBuffer(ctx, buf); err != nil {
		log.Fatal(err)
	}

	stats := alloc.Statistics()
	fmt.Printf("device allocated: %d\n", stats.DeviceBytesAllocated)
	fmt.Printf("device freed: %d\n", stats.DeviceBytesFreed)
	// Output:
	// device allocated: 4096
	// device freed: 4096
}

// Example_metrics demonstrates plugging in the in-memory metrics collector.
func Example_metrics() {
	ctx := context.Background()

	metrics := &tilehal.BasicMetricsCollector{}

	dev, err := tilehal.OpenDevice(ctx, "sim", 0, tilehal.WithMetricsCollector(metrics))
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close(ctx)

	alloc := dev.Allocator()

	buf, err := alloc.AllocateBuffer(ctx, tilehal.BufferParams{
		Type: tilehal.MemoryTypeDeviceLocal,
	}, 4096)
	if err != nil {
		log.Fatal(err)
	}

	m, err := buf.Map(ctx, tilehal.MemoryAccessWrite, 0, 4096)
	if err != nil {
		log.Fatal(err)
	}
	copy(m.Float32s(), []float32{1, 2, 3})
	if err := buf.Unmap(ctx, m); err != nil {
		log.Fatal(err)
	}

	if err := alloc.ReleaseBuffer(ctx, buf); err != nil {
		log.Fatal(err)
	}

	stats := metrics.GetStats()
	fmt.Printf("allocations=%d maps=%d writes=%d written_bytes=%d\n",
		stats.AllocationCount, stats.MapCount, stats.WriteCount, stats.WriteBytes)
	// Output: allocations=1 maps=1 writes=1 written_bytes=4096
}

// Example_trace demonstrates recording device memory operations to a trace
// log and replaying them.
func Example_trace() {
	ctx := context.Background()

	tracePath := "./example_trace.bin"
	defer os.Remove(tracePath) // Cleanup after example

	tw, err := trace.Create(tracePath, trace.WithCompression(trace.CompressionZSTD))
	if err != nil {
		log.Fatal(err)
	}

	dev, err := tilehal.OpenDevice(ctx, "sim", 0, tilehal.WithTraceWriter(tw))
	if err != nil {
		log.Fatal(err)
	}

	alloc := dev.Allocator()

	buf, err := alloc.AllocateBuffer(ctx, tilehal.BufferParams{
		Type: tilehal.MemoryTypeDeviceLocal,
	}, 4096)
	if err != nil {
		log.Fatal(err)
	}

	m, err := buf.Map(ctx, tilehal.MemoryAccessWrite, 0, 4096)
	if err != nil {
		log.Fatal(err)
	}
	if err := buf.Unmap(ctx, m); err != nil {
		log.Fatal(err)
	}

	if err := alloc.ReleaseBuffer(ctx, buf); err != nil {
		log.Fatal(err)
	}
	if err := dev.Close(ctx); err != nil {
		log.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		log.Fatal(err)
	}

	// Replay the recorded operations.
	r, err := trace.Open(tracePath)
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	err = r.Replay(func(e trace.Entry) error {
		fmt.Printf("%s %d\n", e.Op, e.Size)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	// Output:
	// allocate 4096
	// write 4096
	// free 4096
}

// Example_enumerate demonstrates listing the devices of a driver.
func Example_enumerate() {
	infos, err := tilehal.EnumerateDevices("sim")
	if err != nil {
		log.Fatal(err)
	}

	for _, info := range infos {
		fmt.Printf("device %d: %s\n", info.ID, info.Name)
	}
	// Output: device 0: simulated tile device
}

// Example_deviceInfo demonstrates the human-readable capability dump.
func Example_deviceInfo() {
	ctx := context.Background()

	if err := tilehal.DumpDeviceInfo(ctx, os.Stdout, "sim", 0); err != nil {
		log.Fatal(err)
	}
	// Output:
	// Device 0 (sim)
	//   Cores: 11x10 (110 total)
	//   DRAM: 256 MB
}
