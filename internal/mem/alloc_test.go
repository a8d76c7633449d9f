package mem

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAligned(t *testing.T) {
	sizes := []int{1, 10, 31, 32, 63, 64, 65, 100, 4096}

	for _, size := range sizes {
		buf := AllocAligned(size)
		require.Len(t, buf, size)

		addr := uintptr(unsafe.Pointer(&buf[0]))
		assert.Equal(t, uintptr(0), addr%Alignment, "Address %d should be aligned to %d for size %d", addr, Alignment, size)
	}

	assert.Nil(t, AllocAligned(0))
	assert.Nil(t, AllocAligned(-1))
}

func TestAllocAlignedFloat32(t *testing.T) {
	sizes := []int{1, 16, 17, 1024, 2048}

	for _, size := range sizes {
		buf := AllocAlignedFloat32(size)
		require.Len(t, buf, size)

		addr := uintptr(unsafe.Pointer(&buf[0]))
		assert.Equal(t, uintptr(0), addr%Alignment, "Address %d should be aligned to %d for size %d", addr, Alignment, size)
	}

	assert.Nil(t, AllocAlignedFloat32(0))
	assert.Nil(t, AllocAlignedFloat32(-1))
}

func TestViews(t *testing.T) {
	t.Run("float32 over bytes", func(t *testing.T) {
		b := AllocAligned(16)
		f := AsFloat32s(b)
		require.Len(t, f, 4)

		// The view shares storage with b.
		f[2] = 1.5
		assert.Equal(t, b, AsBytes(f))
	})

	t.Run("bytes over float32", func(t *testing.T) {
		f := []float32{0, 1, 2, 3}
		b := AsBytes(f)
		require.Len(t, b, 16)

		assert.Equal(t, f, AsFloat32s(b))
	})

	t.Run("short input", func(t *testing.T) {
		assert.Nil(t, AsFloat32s(nil))
		assert.Nil(t, AsFloat32s([]byte{1, 2, 3}))
		assert.Nil(t, AsBytes(nil))
	})
}

func BenchmarkAllocAligned(b *testing.B) {
	sizes := []int{64, 4096, 65536}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = AllocAligned(size)
			}
		})
	}
}
