package benchmark_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/hupe1980/tilehal"
	"github.com/hupe1980/tilehal/trace"
)

// BenchmarkTraceRecord measures raw trace throughput per compression codec.
// Record cost is what every traced device operation pays.
func BenchmarkTraceRecord(b *testing.B) {
	compressions := []trace.Compression{
		trace.CompressionNone,
		trace.CompressionLZ4,
		trace.CompressionZSTD,
	}

	for _, c := range compressions {
		b.Run(c.String(), func(b *testing.B) {
			tw, err := trace.NewWriter(io.Discard, trace.WithCompression(c))
			if err != nil {
				b.Fatal(err)
			}
			defer tw.Close()

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := tw.Record(trace.OpWrite, int64(i)*4096, 0, 4096); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTraceReplay measures decode throughput over a pre-built log.
func BenchmarkTraceReplay(b *testing.B) {
	compressions := []trace.Compression{
		trace.CompressionNone,
		trace.CompressionLZ4,
		trace.CompressionZSTD,
	}

	const entries = 10000

	for _, c := range compressions {
		b.Run(c.String(), func(b *testing.B) {
			var log bytes.Buffer
			tw, err := trace.NewWriter(&log, trace.WithCompression(c))
			if err != nil {
				b.Fatal(err)
			}
			for i := 0; i < entries; i++ {
				if err := tw.Record(trace.OpWrite, int64(i)*4096, 0, 4096); err != nil {
					b.Fatal(err)
				}
			}
			if err := tw.Close(); err != nil {
				b.Fatal(err)
			}

			raw := log.Bytes()

			b.SetBytes(int64(len(raw)))
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				r, err := trace.NewReader(bytes.NewReader(raw))
				if err != nil {
					b.Fatal(err)
				}
				n := 0
				err = r.Replay(func(trace.Entry) error {
					n++
					return nil
				})
				if err != nil {
					b.Fatal(err)
				}
				if n != entries {
					b.Fatalf("replayed %d entries, want %d", n, entries)
				}
			}
		})
	}
}

// BenchmarkTracingOverhead compares a traced device against an untraced one
// on the same write workload. The delta is the decorator's cost.
func BenchmarkTracingOverhead(b *testing.B) {
	ctx := context.Background()
	const size = 64 << 10

	run := func(b *testing.B, dev tilehal.Device) {
		alloc := dev.Allocator()

		buf, err := alloc.AllocateBuffer(ctx, benchParams(), size)
		if err != nil {
			b.Fatal(err)
		}
		defer alloc.ReleaseBuffer(ctx, buf)

		b.SetBytes(size)
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			m, err := buf.Map(ctx, tilehal.MemoryAccessWrite, 0, size)
			if err != nil {
				b.Fatal(err)
			}
			if err := buf.Unmap(ctx, m); err != nil {
				b.Fatal(err)
			}
		}
	}

	b.Run("untraced", func(b *testing.B) {
		run(b, openBenchDevice(b))
	})

	b.Run("traced", func(b *testing.B) {
		tw, err := trace.NewWriter(io.Discard, trace.WithCompression(trace.CompressionZSTD))
		if err != nil {
			b.Fatal(err)
		}
		defer tw.Close()

		run(b, openBenchDevice(b, tilehal.WithTraceWriter(tw)))
	})
}
