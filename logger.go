package tilehal

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with tilehal-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDevice adds a device ordinal field to the logger.
func (l *Logger) WithDevice(id int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("device", id),
	}
}

// WithDriver adds a driver name field to the logger.
func (l *Logger) WithDriver(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("driver", name),
	}
}

// LogDeviceOpen logs a device open.
func (l *Logger) LogDeviceOpen(ctx context.Context, identifier string, id int64, gridX, gridY int, dramSize int64) {
	l.InfoContext(ctx, "device opened",
		"driver", identifier,
		"device", id,
		"core_count_x", gridX,
		"core_count_y", gridY,
		"dram_size", dramSize,
	)
}

// LogDeviceClose logs a device close.
func (l *Logger) LogDeviceClose(ctx context.Context, id int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "device close failed",
			"device", id,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "device closed",
			"device", id,
		)
	}
}

// LogAllocation logs a buffer allocation.
func (l *Logger) LogAllocation(ctx context.Context, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "allocation failed",
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "buffer allocated",
			"size", size,
		)
	}
}

// LogRelease logs a buffer release.
func (l *Logger) LogRelease(ctx context.Context, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "release failed",
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "buffer released",
			"size", size,
		)
	}
}

// LogMap logs a buffer mapping.
func (l *Logger) LogMap(ctx context.Context, access MemoryAccess, offset, length int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "map failed",
			"access", access.String(),
			"offset", offset,
			"length", length,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "buffer mapped",
			"access", access.String(),
			"offset", offset,
			"length", length,
		)
	}
}

// LogUnmap logs a buffer unmap. Unmap is total, so a failure here means the
// mapping handle was invalid, not that cleanup was skipped.
func (l *Logger) LogUnmap(ctx context.Context, length int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "unmap failed",
			"length", length,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "buffer unmapped",
			"length", length,
		)
	}
}

// LogTransfer logs a device transfer. Host-to-device failures log at warning
// level: they surface during unmap, which swallows them so cleanup always
// completes. Device-to-host failures log at error level and also propagate
// to the caller.
func (l *Logger) LogTransfer(ctx context.Context, dir TransferDirection, bytes int64, err error) {
	if err != nil {
		if dir == TransferHostToDevice {
			l.WarnContext(ctx, "device write failed",
				"direction", dir.String(),
				"bytes", bytes,
				"error", err,
			)
		} else {
			l.ErrorContext(ctx, "device read failed",
				"direction", dir.String(),
				"bytes", bytes,
				"error", err,
			)
		}
	} else {
		l.DebugContext(ctx, "transfer completed",
			"direction", dir.String(),
			"bytes", bytes,
		)
	}
}

// LogFlush logs a queue flush. Flush errors are reported here and otherwise
// swallowed by Device.Flush.
func (l *Logger) LogFlush(ctx context.Context, err error) {
	if err != nil {
		l.WarnContext(ctx, "flush failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed")
	}
}
