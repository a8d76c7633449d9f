package tilehal

import (
	"context"
	"errors"

	"github.com/hupe1980/tilehal/membackend"
	"github.com/hupe1980/tilehal/trace"
)

// tracingBackend decorates a memory backend, recording every successful
// operation to a trace log. Trace failures are logged and dropped; tracing
// never changes an operation's outcome.
type tracingBackend struct {
	membackend.Backend
	tw     *trace.Writer
	logger *Logger
}

var _ membackend.Backend = (*tracingBackend)(nil)

func newTracingBackend(inner membackend.Backend, tw *trace.Writer, logger *Logger) *tracingBackend {
	return &tracingBackend{
		Backend: inner,
		tw:      tw,
		logger:  logger,
	}
}

// Allocate implements membackend.Backend.
func (tb *tracingBackend) Allocate(ctx context.Context, size int64) (membackend.Region, error) {
	r, err := tb.Backend.Allocate(ctx, size)
	if err == nil {
		tb.record(ctx, trace.OpAllocate, r.Addr, 0, size)
	}
	return r, err
}

// Free implements membackend.Backend.
func (tb *tracingBackend) Free(ctx context.Context, r membackend.Region) error {
	err := tb.Backend.Free(ctx, r)
	if err == nil {
		tb.record(ctx, trace.OpFree, r.Addr, 0, r.Size)
	}
	return err
}

// Write implements membackend.Backend.
func (tb *tracingBackend) Write(ctx context.Context, r membackend.Region, offset int64, src []byte) error {
	err := tb.Backend.Write(ctx, r, offset, src)
	if err == nil {
		tb.record(ctx, trace.OpWrite, r.Addr, offset, int64(len(src)))
	}
	return err
}

// Read implements membackend.Backend.
func (tb *tracingBackend) Read(ctx context.Context, r membackend.Region, offset int64, dst []byte) error {
	err := tb.Backend.Read(ctx, r, offset, dst)
	if err == nil {
		tb.record(ctx, trace.OpRead, r.Addr, offset, int64(len(dst)))
	}
	return err
}

// Flush implements membackend.Backend.
func (tb *tracingBackend) Flush(ctx context.Context) error {
	err := tb.Backend.Flush(ctx)
	if err == nil {
		tb.record(ctx, trace.OpFlush, 0, 0, 0)
	}
	return err
}

// Close implements membackend.Backend. The trace writer stays open - it is
// owned by the caller - but buffered entries are flushed out.
func (tb *tracingBackend) Close() error {
	err := tb.Backend.Close()

	if ferr := tb.tw.Flush(); ferr != nil && !errors.Is(ferr, trace.ErrClosed) {
		tb.logger.Warn("trace flush failed", "error", ferr)
	}

	return err
}

func (tb *tracingBackend) record(ctx context.Context, op trace.Op, addr, offset, size int64) {
	if err := tb.tw.Record(op, addr, offset, size); err != nil && !errors.Is(err, trace.ErrClosed) {
		tb.logger.WarnContext(ctx, "trace record failed",
			"op", op.String(),
			"error", err,
		)
	}
}
