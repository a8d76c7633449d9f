package tilehal

import (
	"log/slog"

	"github.com/hupe1980/tilehal/membackend/sim"
	"github.com/hupe1980/tilehal/trace"
)

// DefaultStagingLimitBytes bounds the live host staging memory of one
// device (1 GiB). Map charges scratch and tile staging against this budget.
const DefaultStagingLimitBytes int64 = 1 << 30

type options struct {
	logger            *Logger
	metricsCollector  MetricsCollector
	stagingLimitBytes int64
	traceWriter       *trace.Writer
	simOptions        []sim.Option
}

// Option configures device open behavior.
type Option func(*options)

// WithLogger configures structured logging for device operations.
//
// Example with JSON logging:
//
//	logger := tilehal.NewJSONLogger(slog.LevelInfo)
//	dev, _ := tilehal.OpenDevice(ctx, "sim", 0, tilehal.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tilehal.BasicMetricsCollector{}
//	dev, _ := tilehal.OpenDevice(ctx, "sim", 0, tilehal.WithMetricsCollector(metrics))
//	// ... use dev ...
//	stats := metrics.GetStats()
//	fmt.Printf("Maps: %d, Avg latency: %dns\n", stats.MapCount, stats.MapAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithStagingLimit caps the live host staging memory of the device in
// bytes. Map fails with ErrResourceExhausted once the budget is spent.
// A limit of 0 disables the cap (usage is still tracked).
func WithStagingLimit(bytes int64) Option {
	return func(o *options) {
		o.stagingLimitBytes = bytes
	}
}

// WithTraceWriter records every memory operation of the device (allocate,
// free, write, read, flush) to the given trace log. The writer stays owned
// by the caller; the device flushes it on close but does not close it.
// Tracing is diagnostic only and never affects operation outcomes.
func WithTraceWriter(tw *trace.Writer) Option {
	return func(o *options) {
		o.traceWriter = tw
	}
}

// WithSimOptions forwards options to the simulated backend. Only the "sim"
// driver honors them; other drivers ignore this option.
//
// Example:
//
//	dev, _ := tilehal.OpenDevice(ctx, "sim", 0,
//	    tilehal.WithSimOptions(sim.WithCapacity(64<<20), sim.WithBandwidth(1<<30)))
func WithSimOptions(optFns ...sim.Option) Option {
	return func(o *options) {
		o.simOptions = append(o.simOptions, optFns...)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector:  NoopMetricsCollector{},
		logger:            NoopLogger(),
		stagingLimitBytes: DefaultStagingLimitBytes,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}
