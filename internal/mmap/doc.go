// Package mmap provides anonymous memory mappings for off-heap allocation.
//
// # Overview
//
// The simulated device backend models DRAM as one large, contiguous,
// page-backed address space. Taking that space from an anonymous mapping
// instead of a Go slice keeps multi-hundred-megabyte pools outside the
// garbage collector's scan set and gives allocations stable addresses for
// the lifetime of the mapping.
//
// # Usage
//
//	m, err := mmap.MapAnon(256 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to the pool
//	data := m.Bytes()
//
//	// Create a view of a specific region
//	region, _ := m.Region(offset, size)
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, hints via madvise(2)
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (advise is a no-op)
//
// Both paths demand-page: pages are backed by physical memory only once
// touched, so reserving a large pool up front is cheap.
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent read access. Close is
// idempotent and protected by atomic operations. Callers must ensure no
// goroutine touches Bytes() after Close() returns.
package mmap
