package sim

const (
	// DefaultCapacity is the simulated DRAM pool size (256 MiB).
	DefaultCapacity int64 = 256 << 20

	// DefaultGridX and DefaultGridY mirror the reference part's compute
	// grid (11x10 cores).
	DefaultGridX = 11
	DefaultGridY = 10
)

type options struct {
	capacity           int64
	gridX              int
	gridY              int
	bandwidthPerSecond int64
}

// Option configures the simulated backend.
type Option func(*options)

// WithCapacity sets the DRAM pool size in bytes. The pool is rounded up to
// whole 4,096-byte pages. Memory is demand-paged, so a large pool costs
// address space, not resident memory.
func WithCapacity(bytes int64) Option {
	return func(o *options) {
		o.capacity = bytes
	}
}

// WithCoreGrid sets the compute core grid the backend reports.
func WithCoreGrid(x, y int) Option {
	return func(o *options) {
		o.gridX = x
		o.gridY = y
	}
}

// WithBandwidth caps simulated transfer throughput at the given bytes per
// second, so timing-sensitive callers see realistic blocking behavior.
// Zero (the default) disables the bandwidth model.
func WithBandwidth(bytesPerSecond int64) Option {
	return func(o *options) {
		o.bandwidthPerSecond = bytesPerSecond
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		capacity: DefaultCapacity,
		gridX:    DefaultGridX,
		gridY:    DefaultGridY,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
