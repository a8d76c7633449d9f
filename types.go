package tilehal

import (
	"fmt"
)

// MinAlignment is the device heap's minimum allocation alignment in bytes.
// Every allocation size is rounded up to a multiple of it, which keeps
// allocations tile-page friendly.
const MinAlignment = 32

// AlignSize rounds size up to the next MinAlignment boundary.
func AlignSize(size int64) int64 {
	return (size + MinAlignment - 1) / MinAlignment * MinAlignment
}

// MemoryType describes where memory lives and how the host can reach it.
// Values combine as bit flags.
type MemoryType uint32

const (
	// MemoryTypeDeviceLocal is memory resident on the accelerator rather
	// than host-visible system RAM. The device heap serves only this type.
	MemoryTypeDeviceLocal MemoryType = 1 << iota
	// MemoryTypeHostVisible is memory the host could address directly.
	MemoryTypeHostVisible
	// MemoryTypeHostCoherent is host-visible memory that needs no explicit
	// flush or invalidate.
	MemoryTypeHostCoherent
	// MemoryTypeHostCached is host-visible memory with host-side caching.
	MemoryTypeHostCached
)

// MemoryAccess limits how a mapping may touch buffer contents.
type MemoryAccess uint32

const (
	// MemoryAccessRead permits reading mapped contents.
	MemoryAccessRead MemoryAccess = 1 << iota
	// MemoryAccessWrite permits writing mapped contents.
	MemoryAccessWrite
)

// MemoryAccessReadWrite grants both directions.
const MemoryAccessReadWrite = MemoryAccessRead | MemoryAccessWrite

func (a MemoryAccess) String() string {
	switch a {
	case MemoryAccessRead:
		return "read"
	case MemoryAccessWrite:
		return "write"
	case MemoryAccessReadWrite:
		return "read-write"
	case 0:
		return "none"
	default:
		return fmt.Sprintf("access(0x%x)", uint32(a))
	}
}

// BufferUsage declares what a buffer will be used for. Values combine as
// bit flags.
type BufferUsage uint32

const (
	// BufferUsageTransferSource allows the buffer as a transfer source.
	BufferUsageTransferSource BufferUsage = 1 << iota
	// BufferUsageTransferTarget allows the buffer as a transfer target.
	BufferUsageTransferTarget
	// BufferUsageDispatchStorage allows dispatch read/write storage access.
	BufferUsageDispatchStorage
	// BufferUsageDispatchIndirectParams allows use as indirect dispatch
	// parameters.
	BufferUsageDispatchIndirectParams
	// BufferUsageDispatchUniformRead allows uniform (constant) reads from
	// dispatches.
	BufferUsageDispatchUniformRead
	// BufferUsageMapping allows host mapping of the buffer.
	BufferUsageMapping
)

// BufferUsageTransfer covers both transfer directions.
const BufferUsageTransfer = BufferUsageTransferSource | BufferUsageTransferTarget

// BufferParams declares the intended placement and use of a buffer at
// allocation time.
type BufferParams struct {
	// Type selects the memory class. Allocation requires
	// MemoryTypeDeviceLocal; anything else is incompatible with the heap.
	Type MemoryType

	// Access limits how mappings may touch the contents.
	// Zero means read-write.
	Access MemoryAccess

	// Usage declares the intended buffer uses. Zero means
	// transfer plus dispatch storage.
	Usage BufferUsage
}

func (p BufferParams) normalize() BufferParams {
	if p.Access == 0 {
		p.Access = MemoryAccessReadWrite
	}

	if p.Usage == 0 {
		p.Usage = BufferUsageTransfer | BufferUsageDispatchStorage
	}

	return p
}

// BufferCompatibility reports how a parameter set can be used with the
// device heap.
type BufferCompatibility uint32

const (
	// BufferCompatibilityNone marks a parameter set the heap cannot serve.
	// Callers must not attempt allocation on this result.
	BufferCompatibilityNone BufferCompatibility = 0
	// BufferCompatibilityAllocatable marks parameters AllocateBuffer accepts.
	BufferCompatibilityAllocatable BufferCompatibility = 1 << 0
)

// MemoryHeap describes one pool of device memory.
type MemoryHeap struct {
	// Type is the memory class the heap serves.
	Type MemoryType
	// AllowedUsage is the set of buffer uses the heap supports.
	AllowedUsage BufferUsage
	// MaxAllocationSize is the largest single allocation in bytes.
	MaxAllocationSize int64
	// MinAlignment is the allocation size granularity in bytes.
	MinAlignment int64
}

// DeviceInfo identifies one enumerable device of a driver.
type DeviceInfo struct {
	// ID is the device ordinal used with OpenDevice.
	ID int64
	// Name is a human-readable device name.
	Name string
}
