package mem

import (
	"unsafe"
)

// AsFloat32s reinterprets b as a float32 slice without copying. The slice
// must be 4-byte aligned (allocations from AllocAligned always are) and its
// length must be a multiple of 4; trailing bytes beyond the last full element
// are not visible through the view.
func AsFloat32s(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}

	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4) //nolint:gosec // unsafe is required for performance
}

// AsBytes reinterprets f as a byte slice without copying. The view shares the
// backing array with f.
func AsBytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4) //nolint:gosec // unsafe is required for performance
}
