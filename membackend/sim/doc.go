// Package sim implements the simulated device-memory backend.
//
// DRAM is modeled as one anonymous memory mapping divided into 4,096-byte
// pages (the size of one 32x32 float32 tile). Keeping the pool off the Go
// heap means a multi-hundred-megabyte "device" costs no GC scan time, and
// page backing is allocated lazily by the OS as regions are touched.
//
// # Allocation
//
// Page occupancy lives in a Roaring bitmap. Allocation is first-fit over
// runs of free pages: the scan walks occupied pages and inspects the gaps,
// so freed ranges are reused and device addresses stay stable for the life
// of a region - the same properties the hardware allocator provides, which
// is what makes the backend a faithful stand-in under test.
//
// # Bandwidth
//
// An optional token-bucket model (WithBandwidth) throttles Read and Write
// by byte count. It exists for callers that need realistic blocking
// behavior; by default transfers complete at memcpy speed.
package sim
