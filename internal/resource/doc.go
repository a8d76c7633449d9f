// Package resource implements the staging-memory budget shared by all
// buffers of one device.
//
// Every map operation acquires host scratch (and, on the tile path, a
// tile-ordered staging buffer) before any device I/O happens. The Controller
// puts a hard cap on the sum of live staging bytes so that a caller mapping
// many large buffers fails fast instead of driving the process into swap.
//
// # Memory Management
//
// Tracking uses a weighted semaphore for the hard limit and an atomic counter
// for usage. AcquireMemory is non-blocking and returns immediately with
// ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if err := rc.AcquireMemory(stagingBytes); err != nil {
//	    // ErrMemoryLimitExceeded - surfaces as resource exhaustion to the caller
//	}
//	defer rc.ReleaseMemory(stagingBytes)
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops. This
// allows optional budgeting without nil checks everywhere.
package resource
