// Package membackend defines the device-memory contract the buffer and
// allocator layers are built on.
//
// A Backend owns one device's DRAM: it hands out Regions (device address +
// reserved length) and moves bytes in and out of them with blocking,
// all-or-nothing Read and Write calls. Everything above this contract -
// alignment policy, tile conversion, staging, statistics - is
// backend-agnostic.
//
// Two implementations exist:
//
//   - sim.Backend (package membackend/sim) models DRAM with an anonymous
//     host-memory mapping. It is the default and what tests run against.
//   - RuntimeBackend bridges to a vendor runtime through the Runtime
//     interface. No vendor SDK is linked; integrators supply the
//     implementation.
//
// The variant is selected when a device is constructed, so simulated and
// hardware paths coexist in one binary.
package membackend
