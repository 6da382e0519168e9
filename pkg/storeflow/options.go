package storeflow

import (
	"log/slog"

	"github.com/randalmurphal/storeflow/pkg/storeflow/observability"
)

// dispatcherConfig holds configuration for a Dispatcher.
type dispatcherConfig struct {
	logger             *slog.Logger
	metrics            observability.MetricsRecorder
	spans              observability.SpanManager
	maxDependencyDepth int
}

// defaultDispatcherConfig returns the default dispatcher configuration.
func defaultDispatcherConfig() dispatcherConfig {
	return dispatcherConfig{
		metrics:            observability.NoopMetrics{},
		spans:              observability.NoopSpanManager{},
		maxDependencyDepth: 100,
	}
}

// Option configures a Dispatcher.
type Option func(*dispatcherConfig)

// WithLogger enables structured logging of dispatches and store handling.
// A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *dispatcherConfig) {
		c.logger = logger
	}
}

// WithMetrics records OpenTelemetry metrics through the global meter provider.
//
// Example:
//
//	otel.SetMeterProvider(provider)
//	d := storeflow.New(storeflow.WithMetrics(true))
func WithMetrics(enabled bool) Option {
	return func(c *dispatcherConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder installs a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *dispatcherConfig) {
		if m == nil {
			m = observability.NoopMetrics{}
		}
		c.metrics = m
	}
}

// WithTracing creates OpenTelemetry spans for every dispatch and for every
// store that handles the event.
func WithTracing(enabled bool) Option {
	return func(c *dispatcherConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithSpanManager installs a custom span manager.
func WithSpanManager(m observability.SpanManager) Option {
	return func(c *dispatcherConfig) {
		if m == nil {
			m = observability.NoopSpanManager{}
		}
		c.spans = m
	}
}

// WithMaxDependencyDepth sets how many dependency hops a single store may
// trigger before dispatch fails with a DependencyDepthError.
// Default: 100
//
// A dependency cycle between stores that both handle an event would
// otherwise recurse forever.
func WithMaxDependencyDepth(n int) Option {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.maxDependencyDepth = n
		}
	}
}
