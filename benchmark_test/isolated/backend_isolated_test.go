package isolated

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/tilehal/membackend"
	"github.com/hupe1980/tilehal/membackend/sim"
	"github.com/hupe1980/tilehal/testutil"
)

// BenchmarkBackendWrite measures the raw simulated backend without the
// buffer layer above it: no conversion, no staging accounting.
func BenchmarkBackendWrite(b *testing.B) {
	ctx := context.Background()

	for _, size := range []int64{4 << 10, 1 << 20, 16 << 20} {
		b.Run(label(size), func(b *testing.B) {
			backend := newBackend(b)

			r, err := backend.Allocate(ctx, size)
			if err != nil {
				b.Fatal(err)
			}
			defer backend.Free(ctx, r)

			src := make([]byte, size)
			testutil.NewRNG(42).FillBytes(src)

			b.SetBytes(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := backend.Write(ctx, r, 0, src); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBackendRead is the read-side counterpart.
func BenchmarkBackendRead(b *testing.B) {
	ctx := context.Background()

	for _, size := range []int64{4 << 10, 1 << 20, 16 << 20} {
		b.Run(label(size), func(b *testing.B) {
			backend := newBackend(b)

			r, err := backend.Allocate(ctx, size)
			if err != nil {
				b.Fatal(err)
			}
			defer backend.Free(ctx, r)

			dst := make([]byte, size)

			b.SetBytes(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := backend.Read(ctx, r, 0, dst); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBackendAllocateFree measures page-table churn at several region
// sizes.
func BenchmarkBackendAllocateFree(b *testing.B) {
	ctx := context.Background()

	for _, size := range []int64{4 << 10, 256 << 10, 16 << 20} {
		b.Run(label(size), func(b *testing.B) {
			backend := newBackend(b)

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				r, err := backend.Allocate(ctx, size)
				if err != nil {
					b.Fatal(err)
				}
				if err := backend.Free(ctx, r); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func newBackend(b *testing.B) membackend.Backend {
	b.Helper()

	backend, err := sim.New(sim.WithCapacity(64 << 20))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = backend.Close() })

	return backend
}

func label(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%dMiB", size>>20)
	case size >= 1<<10:
		return fmt.Sprintf("%dKiB", size>>10)
	default:
		return fmt.Sprintf("%dB", size)
	}
}
