package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records for testing.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &testHandler{buf: h.buf, level: h.level, attrs: merged}
}

func (h *testHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *testHandler) lastRecord(t *testing.T) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(h.buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var m map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &m))
	return m
}

func TestEnrichLogger(t *testing.T) {
	h := newTestHandler()
	logger := EnrichLogger(slog.New(h), DispatchInfo{
		RunID:         "run-1",
		EventKind:     "catalog.load",
		EventID:       "evt-1",
		CorrelationID: "corr-1",
	})
	require.NotNil(t, logger)

	logger.Info("hello")

	rec := h.lastRecord(t)
	assert.Equal(t, "run-1", rec["run_id"])
	assert.Equal(t, "catalog.load", rec["event_kind"])
	assert.Equal(t, "evt-1", rec["event_id"])
	assert.Equal(t, "corr-1", rec["correlation_id"])
}

func TestEnrichLogger_WithoutIdentity(t *testing.T) {
	h := newTestHandler()
	EnrichLogger(slog.New(h), DispatchInfo{RunID: "run-1", EventKind: "ping"}).Info("hello")

	rec := h.lastRecord(t)
	assert.Equal(t, "run-1", rec["run_id"])
	assert.NotContains(t, rec, "event_id")
	assert.NotContains(t, rec, "correlation_id")
}

func TestEnrichLogger_Nil(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, DispatchInfo{RunID: "run-1"}))
}

func TestLogDispatchLifecycle(t *testing.T) {
	h := newTestHandler()
	logger := EnrichLogger(slog.New(h), DispatchInfo{RunID: "run-1", EventKind: "catalog.load"})

	LogDispatchStart(logger)
	rec := h.lastRecord(t)
	assert.Equal(t, "dispatch starting", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "run-1", rec["run_id"])

	LogDispatchComplete(logger, 12.5, 3)
	rec = h.lastRecord(t)
	assert.Equal(t, "dispatch completed", rec["msg"])
	assert.Equal(t, float64(3), rec["stores_handled"])
	assert.Equal(t, 12.5, rec["duration_ms"])

	LogDispatchError(logger, errors.New("boom"), 1)
	rec = h.lastRecord(t)
	assert.Equal(t, "dispatch failed", rec["msg"])
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "boom", rec["error"])
}

func TestLogStoreLifecycle(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogStoreStart(logger, "catalog", 2)
	rec := h.lastRecord(t)
	assert.Equal(t, "store handling event", rec["msg"])
	assert.Equal(t, "catalog", rec["store"])
	assert.Equal(t, float64(2), rec["handlers"])

	LogDependency(logger, "cart", "catalog")
	rec = h.lastRecord(t)
	assert.Equal(t, "catalog", rec["dependency"])

	LogStoreComplete(logger, "catalog", 4, 1)
	rec = h.lastRecord(t)
	assert.Equal(t, "store handled event", rec["msg"])
	assert.Equal(t, float64(1), rec["awaited"])

	LogStoreError(logger, "catalog", errors.New("bad"))
	rec = h.lastRecord(t)
	assert.Equal(t, "store handler failed", rec["msg"])
	assert.Equal(t, "bad", rec["error"])
}

func TestLogSnapshot(t *testing.T) {
	h := newTestHandler()
	logger := slog.New(h)

	LogSnapshot(logger, "catalog", 128)
	rec := h.lastRecord(t)
	assert.Equal(t, float64(128), rec["size_bytes"])

	LogSnapshotError(logger, "catalog", "save", errors.New("disk full"))
	rec = h.lastRecord(t)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "save", rec["operation"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogDispatchStart(nil)
		LogDispatchComplete(nil, 1, 1)
		LogDispatchError(nil, errors.New("x"), 1)
		LogStoreStart(nil, "s", 1)
		LogStoreComplete(nil, "s", 1, 0)
		LogStoreError(nil, "s", errors.New("x"))
		LogDependency(nil, "s", "d")
		LogSnapshot(nil, "s", 1)
		LogSnapshotError(nil, "s", "save", errors.New("x"))
	})
}

func TestMilliseconds(t *testing.T) {
	assert.Equal(t, 12.5, Milliseconds(12500*time.Microsecond))
	assert.Equal(t, float64(0), Milliseconds(0))
}
