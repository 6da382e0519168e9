package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTracingTest installs a tracer provider with an in-memory exporter.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("storeflow")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		tracer = otel.Tracer("storeflow")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}
	return exporter, cleanup
}

func attrValue(attrs []attribute.KeyValue, key string) string {
	if v, ok := attrOf(attrs, key); ok {
		return v.AsString()
	}
	return ""
}

func attrOf(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartDispatchSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	ctx, span := m.StartDispatchSpan(context.Background(), DispatchInfo{
		RunID:         "run-1",
		EventKind:     "catalog.load",
		EventID:       "evt-1",
		CorrelationID: "corr-1",
	})
	require.NotNil(t, span)
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	m.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "storeflow.dispatch", spans[0].Name)
	assert.Equal(t, "catalog.load", attrValue(spans[0].Attributes, "event.kind"))
	assert.Equal(t, "run-1", attrValue(spans[0].Attributes, "run.id"))
	assert.Equal(t, "evt-1", attrValue(spans[0].Attributes, "event.id"))
	assert.Equal(t, "corr-1", attrValue(spans[0].Attributes, "event.correlation_id"))
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestStartDispatchSpan_WithoutIdentity(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	_, span := m.StartDispatchSpan(context.Background(), DispatchInfo{RunID: "run-1", EventKind: "ping"})
	m.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	_, ok := attrOf(spans[0].Attributes, "event.id")
	assert.False(t, ok)
	_, ok = attrOf(spans[0].Attributes, "event.correlation_id")
	assert.False(t, ok)
}

func TestStartStoreSpan_NestsUnderDispatch(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	ctx, dispatchSpan := m.StartDispatchSpan(context.Background(), DispatchInfo{RunID: "run-1", EventKind: "catalog.load"})
	_, storeSpan := m.StartStoreSpan(ctx, "catalog", []string{"catalog#0", "prices"})
	m.EndStoreSpan(storeSpan, 1, nil)
	m.EndSpanWithError(dispatchSpan, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	store := spans[0]
	assert.Equal(t, "storeflow.store.catalog", store.Name)
	assert.Equal(t, "catalog", attrValue(store.Attributes, "store.kind"))
	assert.Equal(t, spans[1].SpanContext.SpanID(), store.Parent.SpanID())

	handlers, ok := attrOf(store.Attributes, "store.handlers")
	require.True(t, ok)
	assert.Equal(t, []string{"catalog#0", "prices"}, handlers.AsStringSlice())
	awaited, ok := attrOf(store.Attributes, "store.awaited")
	require.True(t, ok)
	assert.Equal(t, int64(1), awaited.AsInt64())
	assert.Equal(t, codes.Ok, store.Status.Code)
}

func TestEndStoreSpan_Error(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	_, span := m.StartStoreSpan(context.Background(), "cart", []string{"cart#0"})
	m.EndStoreSpan(span, 0, errors.New("price lookup failed"))
	assert.NotPanics(t, func() { m.EndStoreSpan(nil, 0, nil) })

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "price lookup failed", spans[0].Status.Description)
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	_, span := m.StartStoreSpan(context.Background(), "cart", nil)
	m.EndSpanWithError(span, errors.New("handler failed"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "handler failed", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestEndSpanWithError_NilSpan(t *testing.T) {
	m := NewSpanManager()
	assert.NotPanics(t, func() { m.EndSpanWithError(nil, nil) })
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	ctx, span := m.StartStoreSpan(context.Background(), "cart", nil)
	m.AddSpanEvent(ctx, "dependency.wait", attribute.String("dependency", "catalog"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "dependency.wait", spans[0].Events[0].Name)
}

func TestAddSpanEvent_NoSpan(t *testing.T) {
	m := NewSpanManager()
	assert.NotPanics(t, func() {
		m.AddSpanEvent(context.Background(), "orphan")
	})
}

func TestNoopSpanManager(t *testing.T) {
	var m SpanManager = NoopSpanManager{}
	ctx := context.Background()

	got, span := m.StartDispatchSpan(ctx, DispatchInfo{RunID: "r", EventKind: "k"})
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, span = m.StartStoreSpan(ctx, "s", []string{"s#0"})
	assert.Equal(t, ctx, got)
	assert.NotPanics(t, func() {
		m.EndStoreSpan(span, 2, nil)
		m.EndSpanWithError(span, errors.New("x"))
		m.AddSpanEvent(ctx, "x")
	})
}
