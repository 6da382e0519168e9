// Package observability provides structured logging, metrics, and tracing
// for storeflow dispatches.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// DispatchInfo identifies one top-level dispatch in logs and spans.
// EventID and CorrelationID are empty for events without identity metadata.
type DispatchInfo struct {
	RunID         string
	EventKind     string
	EventID       string
	CorrelationID string
}

func (i DispatchInfo) logAttrs() []any {
	attrs := []any{
		slog.String("run_id", i.RunID),
		slog.String("event_kind", i.EventKind),
	}
	if i.EventID != "" {
		attrs = append(attrs, slog.String("event_id", i.EventID))
	}
	if i.CorrelationID != "" {
		attrs = append(attrs, slog.String("correlation_id", i.CorrelationID))
	}
	return attrs
}

// EnrichLogger adds dispatch context to a logger.
// Returns a new logger with run_id and event_kind fields, plus event_id and
// correlation_id when the event carries them.
func EnrichLogger(logger *slog.Logger, info DispatchInfo) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(info.logAttrs()...)
}

// LogDispatchStart logs the start of a top-level dispatch.
// logger is expected to come from EnrichLogger.
func LogDispatchStart(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch starting")
}

// LogDispatchComplete logs a settled dispatch.
func LogDispatchComplete(logger *slog.Logger, durationMs float64, storeCount int) {
	if logger == nil {
		return
	}
	logger.Debug("dispatch completed",
		slog.Float64("duration_ms", durationMs),
		slog.Int("stores_handled", storeCount),
	)
}

// LogDispatchError logs a failed dispatch.
func LogDispatchError(logger *slog.Logger, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("dispatch failed",
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStoreStart logs a store starting to handle an event.
func LogStoreStart(logger *slog.Logger, storeKind string, handlers int) {
	if logger == nil {
		return
	}
	logger.Debug("store handling event",
		slog.String("store", storeKind),
		slog.Int("handlers", handlers),
	)
}

// LogStoreComplete logs a store whose handlers have all settled.
func LogStoreComplete(logger *slog.Logger, storeKind string, durationMs float64, pending int) {
	if logger == nil {
		return
	}
	logger.Debug("store handled event",
		slog.String("store", storeKind),
		slog.Float64("duration_ms", durationMs),
		slog.Int("awaited", pending),
	)
}

// LogStoreError logs a store handler failure.
func LogStoreError(logger *slog.Logger, storeKind string, err error) {
	if logger == nil {
		return
	}
	logger.Error("store handler failed",
		slog.String("store", storeKind),
		slog.String("error", err.Error()),
	)
}

// LogDependency logs a store waiting on its dependency.
func LogDependency(logger *slog.Logger, storeKind, dependency string) {
	if logger == nil {
		return
	}
	logger.Debug("store waiting for dependency",
		slog.String("store", storeKind),
		slog.String("dependency", dependency),
	)
}

// LogSnapshot logs a saved state snapshot.
func LogSnapshot(logger *slog.Logger, storeKind string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot saved",
		slog.String("store", storeKind),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotError logs a snapshot failure (non-fatal).
func LogSnapshotError(logger *slog.Logger, storeKind, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot failed",
		slog.String("store", storeKind),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// Milliseconds converts d to fractional milliseconds for duration_ms fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
