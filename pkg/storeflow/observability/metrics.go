package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records storeflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records a settled top-level dispatch.
	RecordDispatch(ctx context.Context, eventKind string, duration time.Duration, err error)

	// RecordStore records one store handling one event.
	RecordStore(ctx context.Context, storeKind string, duration time.Duration, err error)

	// RecordSnapshot records a snapshot save.
	RecordSnapshot(ctx context.Context, storeKind string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches      metric.Int64Counter
	dispatchLatency metric.Float64Histogram
	storesHandled   metric.Int64Counter
	storeLatency    metric.Float64Histogram
	storeErrors     metric.Int64Counter
	snapshotSize    metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("storeflow")

	dispatches, err := meter.Int64Counter("storeflow.dispatch.count",
		metric.WithDescription("Number of top-level dispatches"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("storeflow.dispatch.latency_ms",
		metric.WithDescription("Dispatch latency in milliseconds, including awaited handlers"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	storesHandled, err := meter.Int64Counter("storeflow.store.handled",
		metric.WithDescription("Number of store handler groups executed"),
	)
	if err != nil {
		return nil, err
	}

	storeLatency, err := meter.Float64Histogram("storeflow.store.latency_ms",
		metric.WithDescription("Store handling latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	storeErrors, err := meter.Int64Counter("storeflow.store.errors",
		metric.WithDescription("Number of failed store handler groups"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("storeflow.snapshot.size_bytes",
		metric.WithDescription("Snapshot size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:      dispatches,
		dispatchLatency: dispatchLatency,
		storesHandled:   storesHandled,
		storeLatency:    storeLatency,
		storeErrors:     storeErrors,
		snapshotSize:    snapshotSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records a top-level dispatch.
func (m *otelMetrics) RecordDispatch(ctx context.Context, eventKind string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("event_kind", eventKind),
		attribute.Bool("success", err == nil),
	)
	m.dispatches.Add(ctx, 1, attrs)
	m.dispatchLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordStore records a store handling an event.
func (m *otelMetrics) RecordStore(ctx context.Context, storeKind string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("store", storeKind),
	)
	m.storesHandled.Add(ctx, 1, attrs)
	m.storeLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)

	if err != nil {
		m.storeErrors.Add(ctx, 1, attrs)
	}
}

// RecordSnapshot records a snapshot save.
func (m *otelMetrics) RecordSnapshot(ctx context.Context, storeKind string, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes, metric.WithAttributes(
		attribute.String("store", storeKind),
	))
}
