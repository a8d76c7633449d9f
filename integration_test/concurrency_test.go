package integration_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilehal"
	"github.com/hupe1980/tilehal/trace"
)

// TestConcurrentDevices opens independent devices in parallel. Each device
// owns its backend, allocator, and statistics; nothing is shared but the
// driver registry.
func TestConcurrentDevices(t *testing.T) {
	ctx := context.Background()

	const devices = 4

	var wg sync.WaitGroup
	errCh := make(chan error, devices)

	for d := 0; d < devices; d++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()

			dev, err := tilehal.OpenDevice(ctx, "sim", 0)
			if err != nil {
				errCh <- err
				return
			}
			defer dev.Close(ctx)

			alloc := dev.Allocator()
			for i := 0; i < 20; i++ {
				if err := runCycle(ctx, alloc, seed*100+i); err != nil {
					errCh <- err
					return
				}
			}

			stats := alloc.Statistics()
			if stats.DeviceBytesAllocated != stats.DeviceBytesFreed {
				errCh <- fmt.Errorf("device %d: leaked %d bytes",
					seed, stats.DeviceBytesAllocated-stats.DeviceBytesFreed)
			}
		}(d)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}
}

// TestConcurrentStagingContention drives more mappers than the staging
// budget admits at once. Mappings that lose the race see
// ErrResourceExhausted and retry; everyone finishes once budget cycles
// through.
func TestConcurrentStagingContention(t *testing.T) {
	ctx := context.Background()

	// Budget for four concurrent 4 KiB write mappings (8 KiB charge each),
	// contended by eight goroutines.
	dev, err := tilehal.OpenDevice(ctx, "sim", 0, tilehal.WithStagingLimit(4*8192))
	require.NoError(t, err)
	defer dev.Close(ctx)

	alloc := dev.Allocator()

	const (
		goroutines = 8
		cycles     = 30
	)

	deadline := time.Now().Add(30 * time.Second)

	var rejected int64
	var mu sync.Mutex

	var wg sync.WaitGroup
	errCh := make(chan error, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()

			buf, err := alloc.AllocateBuffer(ctx, tilehal.BufferParams{
				Type: tilehal.MemoryTypeDeviceLocal,
			}, 4096)
			if err != nil {
				errCh <- err
				return
			}
			defer alloc.ReleaseBuffer(ctx, buf)

			for i := 0; i < cycles; i++ {
				var m *tilehal.Mapping
				for {
					m, err = buf.Map(ctx, tilehal.MemoryAccessWrite, 0, 4096)
					if err == nil {
						break
					}
					if !errors.Is(err, tilehal.ErrResourceExhausted) {
						errCh <- err
						return
					}
					if time.Now().After(deadline) {
						errCh <- fmt.Errorf("goroutine %d starved waiting for staging", seed)
						return
					}
					mu.Lock()
					rejected++
					mu.Unlock()
					runtime.Gosched()
				}

				m.Float32s()[0] = float32(seed*cycles + i)
				if err := buf.Unmap(ctx, m); err != nil {
					errCh <- err
					return
				}
			}
		}(g)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	// All staging budget returned home.
	stats := alloc.Statistics()
	assert.Equal(t, stats.HostBytesAllocated, stats.HostBytesFreed)

	t.Logf("staging rejections under contention: %d", rejected)
}

// TestConcurrentTracing checks the trace log under parallel load: entries
// stay whole, sequence numbers stay dense, and every allocation has its
// matching free.
func TestConcurrentTracing(t *testing.T) {
	ctx := context.Background()

	var traceBuf bytes.Buffer
	tw, err := trace.NewWriter(&traceBuf, trace.WithCompression(trace.CompressionLZ4))
	require.NoError(t, err)

	dev, err := tilehal.OpenDevice(ctx, "sim", 0, tilehal.WithTraceWriter(tw))
	require.NoError(t, err)

	alloc := dev.Allocator()

	const (
		goroutines = 6
		cycles     = 20
	)

	var wg sync.WaitGroup
	errCh := make(chan error, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < cycles; i++ {
				if err := runCycle(ctx, alloc, seed*cycles+i); err != nil {
					errCh <- err
					return
				}
			}
		}(g)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	require.NoError(t, dev.Close(ctx))
	require.NoError(t, tw.Close())

	r, err := trace.NewReader(bytes.NewReader(traceBuf.Bytes()))
	require.NoError(t, err)

	var (
		entries int
		lastSeq uint64
		live    = make(map[int64]int)
		counts  = make(map[trace.Op]int)
	)

	require.NoError(t, r.Replay(func(e trace.Entry) error {
		if entries > 0 && e.Seq != lastSeq+1 {
			return fmt.Errorf("sequence gap: %d after %d", e.Seq, lastSeq)
		}
		lastSeq = e.Seq
		entries++
		counts[e.Op]++

		switch e.Op {
		case trace.OpAllocate:
			live[e.Addr]++
		case trace.OpFree:
			live[e.Addr]--
		}
		return nil
	}))

	// Each cycle is one allocate, one write, one read, one free.
	const total = goroutines * cycles
	assert.Equal(t, total, counts[trace.OpAllocate])
	assert.Equal(t, total, counts[trace.OpWrite])
	assert.Equal(t, total, counts[trace.OpRead])
	assert.Equal(t, total, counts[trace.OpFree])
	assert.Equal(t, 4*total, entries)

	for addr, outstanding := range live {
		assert.Zero(t, outstanding, "address %d allocate/free imbalance", addr)
	}
}

// runCycle is one full buffer lifecycle with verification.
func runCycle(ctx context.Context, alloc tilehal.Allocator, seed int) error {
	buf, err := alloc.AllocateBuffer(ctx, tilehal.BufferParams{
		Type: tilehal.MemoryTypeDeviceLocal,
	}, 4096)
	if err != nil {
		return err
	}
	defer func() { _ = alloc.ReleaseBuffer(ctx, buf) }()

	m, err := buf.Map(ctx, tilehal.MemoryAccessWrite, 0, 4096)
	if err != nil {
		return err
	}
	host := m.Float32s()
	for i := range host {
		host[i] = float32(seed)
	}
	if err := buf.Unmap(ctx, m); err != nil {
		return err
	}

	m, err = buf.Map(ctx, tilehal.MemoryAccessRead, 0, 4096)
	if err != nil {
		return err
	}
	for i, got := range m.Float32s() {
		if got != float32(seed) {
			_ = buf.Unmap(ctx, m)
			return fmt.Errorf("element %d: got %f, want %d", i, got, seed)
		}
	}
	return buf.Unmap(ctx, m)
}
