package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordDispatch does nothing.
func (NoopMetrics) RecordDispatch(_ context.Context, _ string, _ time.Duration, _ error) {}

// RecordStore does nothing.
func (NoopMetrics) RecordStore(_ context.Context, _ string, _ time.Duration, _ error) {}

// RecordSnapshot does nothing.
func (NoopMetrics) RecordSnapshot(_ context.Context, _ string, _ int64) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartDispatchSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartDispatchSpan(ctx context.Context, _ DispatchInfo) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartStoreSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartStoreSpan(ctx context.Context, _ string, _ []string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndStoreSpan does nothing.
func (NoopSpanManager) EndStoreSpan(_ trace.Span, _ int, _ error) {}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
