package anytable

import (
	"log/slog"

	"github.com/karthikbadam/any-table/codec"
	"github.com/karthikbadam/any-table/resource"
	"github.com/karthikbadam/any-table/scroll"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	frames           scroll.Frames
	scheduler        scroll.Options
	resourceConfig   resource.Config
	spillCache       bool
	spillCapacity    int64
	codec            codec.Codec
}

// Option configures Open behavior.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
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
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFrames supplies the animation frame source driving the scheduler.
// Tests pass scroll.NewManualFrames(); by default the table owns a
// ~60 fps ticker.
func WithFrames(frames scroll.Frames) Option {
	return func(o *options) {
		o.frames = frames
	}
}

// WithSchedulerOptions tunes overscan, pad factor and retention.
func WithSchedulerOptions(opts scroll.Options) Option {
	return func(o *options) {
		o.scheduler = opts
	}
}

// WithResourceConfig bounds retained-row memory and query rate. The zero
// config tracks usage without enforcing limits.
func WithResourceConfig(cfg resource.Config) Option {
	return func(o *options) {
		o.resourceConfig = cfg
	}
}

// WithSpillCache keeps evicted row blocks in a compressed in-memory cache
// so scrolling back does not refetch. capacityBytes <= 0 uses the cache
// default. Recovered values carry the codec's decoded shape rather than
// the parser's native types; a refetch restores the native shape.
func WithSpillCache(capacityBytes int64) Option {
	return func(o *options) {
		o.spillCache = true
		o.spillCapacity = capacityBytes
	}
}

// WithCodec configures the codec used for spill-cache row blocks.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		codec:            codec.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
