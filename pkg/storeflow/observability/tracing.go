package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("storeflow")

// Span attribute keys.
const (
	AttrEventKind     = attribute.Key("event.kind")
	AttrEventID       = attribute.Key("event.id")
	AttrCorrelationID = attribute.Key("event.correlation_id")
	AttrRunID         = attribute.Key("run.id")
	AttrStoreKind     = attribute.Key("store.kind")
	AttrHandlers      = attribute.Key("store.handlers")
	AttrAwaited       = attribute.Key("store.awaited")
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
//
// A dispatch produces one dispatch span with a child span per store that
// handled the event. Store spans are siblings: a dependency's span ends
// before its dependent's starts.
type SpanManager interface {
	// StartDispatchSpan starts the span covering one top-level dispatch.
	StartDispatchSpan(ctx context.Context, info DispatchInfo) (context.Context, trace.Span)

	// StartStoreSpan starts the span for one store running handlers, named
	// by their registration names.
	StartStoreSpan(ctx context.Context, storeKind string, handlers []string) (context.Context, trace.Span)

	// EndStoreSpan completes a store span, recording how many asynchronous
	// results the store's handlers returned.
	EndStoreSpan(span trace.Span, awaited int, err error)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// Configure the global tracer provider before dispatching:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartDispatchSpan(ctx context.Context, info DispatchInfo) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		AttrEventKind.String(info.EventKind),
		AttrRunID.String(info.RunID),
	}
	if info.EventID != "" {
		attrs = append(attrs, AttrEventID.String(info.EventID))
	}
	if info.CorrelationID != "" {
		attrs = append(attrs, AttrCorrelationID.String(info.CorrelationID))
	}
	return tracer.Start(ctx, "storeflow.dispatch",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartStoreSpan(ctx context.Context, storeKind string, handlers []string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "storeflow.store."+storeKind,
		trace.WithAttributes(
			AttrStoreKind.String(storeKind),
			AttrHandlers.StringSlice(handlers),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndStoreSpan(span trace.Span, awaited int, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(AttrAwaited.Int(awaited))
	m.EndSpanWithError(span, err)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
