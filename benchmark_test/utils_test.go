package benchmark_test

import (
	"context"
	"testing"

	"github.com/hupe1980/tilehal"
)

// openBenchDevice opens a simulated device sized for the benchmark corpus
// and closes it when the benchmark ends.
func openBenchDevice(b *testing.B, optFns ...tilehal.Option) tilehal.Device {
	b.Helper()

	dev, err := tilehal.OpenDevice(context.Background(), "sim", 0, optFns...)
	if err != nil {
		b.Fatal(err)
	}

	b.Cleanup(func() { _ = dev.Close(context.Background()) })

	return dev
}

func benchParams() tilehal.BufferParams {
	return tilehal.BufferParams{Type: tilehal.MemoryTypeDeviceLocal}
}
