package tilehal

import (
	"sync/atomic"
	"time"
)

// TransferDirection identifies which way a device transfer moved data.
type TransferDirection int

const (
	// TransferHostToDevice is a write to device memory.
	TransferHostToDevice TransferDirection = iota
	// TransferDeviceToHost is a read from device memory.
	TransferDeviceToHost
)

func (d TransferDirection) String() string {
	if d == TransferHostToDevice {
		return "host-to-device"
	}
	return "device-to-host"
}

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    allocCounter      prometheus.Counter
//	    transferHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAllocation(size int64, duration time.Duration, err error) {
//	    p.allocCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordAllocation is called after each buffer allocation.
	// size is the aligned allocation size, err is nil if successful.
	RecordAllocation(size int64, duration time.Duration, err error)

	// RecordRelease is called after each buffer release.
	RecordRelease(size int64, duration time.Duration, err error)

	// RecordMap is called after each map operation.
	// length is the requested mapping length in bytes.
	RecordMap(length int64, duration time.Duration, err error)

	// RecordUnmap is called after each unmap operation.
	RecordUnmap(length int64, duration time.Duration, err error)

	// RecordTransfer is called after each device transfer, including
	// host-to-device writes whose failure unmap swallows - this is the
	// reliable place to observe those.
	RecordTransfer(dir TransferDirection, bytes int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAllocation(int64, time.Duration, error)                 {}
func (NoopMetricsCollector) RecordRelease(int64, time.Duration, error)                    {}
func (NoopMetricsCollector) RecordMap(int64, time.Duration, error)                        {}
func (NoopMetricsCollector) RecordUnmap(int64, time.Duration, error)                      {}
func (NoopMetricsCollector) RecordTransfer(TransferDirection, int64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocationCount    atomic.Int64
	AllocationErrors   atomic.Int64
	AllocatedBytes     atomic.Int64
	ReleaseCount       atomic.Int64
	ReleaseErrors      atomic.Int64
	MapCount           atomic.Int64
	MapErrors          atomic.Int64
	MapTotalNanos      atomic.Int64
	UnmapCount         atomic.Int64
	UnmapErrors        atomic.Int64
	WriteCount         atomic.Int64
	WriteErrors        atomic.Int64
	WriteBytes         atomic.Int64
	ReadCount          atomic.Int64
	ReadErrors         atomic.Int64
	ReadBytes          atomic.Int64
	TransferTotalNanos atomic.Int64
}

// RecordAllocation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocation(size int64, duration time.Duration, err error) {
	b.AllocationCount.Add(1)
	if err != nil {
		b.AllocationErrors.Add(1)
	} else {
		b.AllocatedBytes.Add(size)
	}
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(size int64, duration time.Duration, err error) {
	b.ReleaseCount.Add(1)
	if err != nil {
		b.ReleaseErrors.Add(1)
	}
}

// RecordMap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMap(length int64, duration time.Duration, err error) {
	b.MapCount.Add(1)
	b.MapTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MapErrors.Add(1)
	}
}

// RecordUnmap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnmap(length int64, duration time.Duration, err error) {
	b.UnmapCount.Add(1)
	if err != nil {
		b.UnmapErrors.Add(1)
	}
}

// RecordTransfer implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTransfer(dir TransferDirection, bytes int64, duration time.Duration, err error) {
	b.TransferTotalNanos.Add(duration.Nanoseconds())

	if dir == TransferHostToDevice {
		b.WriteCount.Add(1)
		if err != nil {
			b.WriteErrors.Add(1)
		} else {
			b.WriteBytes.Add(bytes)
		}
		return
	}

	b.ReadCount.Add(1)
	if err != nil {
		b.ReadErrors.Add(1)
	} else {
		b.ReadBytes.Add(bytes)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocationCount:  b.AllocationCount.Load(),
		AllocationErrors: b.AllocationErrors.Load(),
		AllocatedBytes:   b.AllocatedBytes.Load(),
		ReleaseCount:     b.ReleaseCount.Load(),
		ReleaseErrors:    b.ReleaseErrors.Load(),
		MapCount:         b.MapCount.Load(),
		MapErrors:        b.MapErrors.Load(),
		MapAvgNanos:      b.getAvgMapNanos(),
		UnmapCount:       b.UnmapCount.Load(),
		UnmapErrors:      b.UnmapErrors.Load(),
		WriteCount:       b.WriteCount.Load(),
		WriteErrors:      b.WriteErrors.Load(),
		WriteBytes:       b.WriteBytes.Load(),
		ReadCount:        b.ReadCount.Load(),
		ReadErrors:       b.ReadErrors.Load(),
		ReadBytes:        b.ReadBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgMapNanos() int64 {
	count := b.MapCount.Load()
	if count == 0 {
		return 0
	}
	return b.MapTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocationCount  int64
	AllocationErrors int64
	AllocatedBytes   int64
	ReleaseCount     int64
	ReleaseErrors    int64
	MapCount         int64
	MapErrors        int64
	MapAvgNanos      int64
	UnmapCount       int64
	UnmapErrors      int64
	WriteCount       int64
	WriteErrors      int64
	WriteBytes       int64
	ReadCount        int64
	ReadErrors       int64
	ReadBytes        int64
}
