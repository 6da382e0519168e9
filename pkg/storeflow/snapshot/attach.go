package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/storeflow/pkg/storeflow/event"
	"github.com/randalmurphal/storeflow/pkg/storeflow/observability"
	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

type attachConfig struct {
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	onFailure func(kind store.Kind, op string, err error)
}

// Option configures Attach.
type Option func(*attachConfig)

// WithLogger logs saved snapshots and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *attachConfig) {
		c.logger = logger
	}
}

// WithMetrics records the size of every saved snapshot.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *attachConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithFailureHook is called when a snapshot cannot be encoded or saved.
// op is "encode" or "save".
func WithFailureHook(fn func(kind store.Kind, op string, err error)) Option {
	return func(c *attachConfig) {
		c.onFailure = fn
	}
}

// Attach saves st's state to sink after every state change. Failures never
// reach SetState; they are logged and passed to the failure hook. Dispose the
// returned subscription to stop saving.
func Attach[S any](kind store.Kind, st *store.Store[S], sink Sink, opts ...Option) event.Subscription {
	if st == nil || sink == nil {
		panic("storeflow: snapshot store and sink cannot be nil")
	}
	cfg := attachConfig{metrics: observability.NoopMetrics{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	fail := func(op string, err error) {
		observability.LogSnapshotError(cfg.logger, string(kind), op, err)
		if cfg.onFailure != nil {
			cfg.onFailure(kind, op, err)
		}
	}

	// Saves are serialized so the last save always holds the latest state.
	var mu sync.Mutex
	return st.OnStateChanged(func() {
		mu.Lock()
		defer mu.Unlock()

		data, err := json.Marshal(st.State())
		if err != nil {
			fail("encode", err)
			return
		}
		if err := sink.Save(kind, data); err != nil {
			fail("save", err)
			return
		}
		observability.LogSnapshot(cfg.logger, string(kind), len(data))
		cfg.metrics.RecordSnapshot(context.Background(), string(kind), int64(len(data)))
	})
}

// Restore replaces st's state with the last snapshot saved for kind, which
// makes the store ready. Fields missing from the snapshot are left at their
// zero value. Returns ErrNotFound if no snapshot exists, leaving st untouched.
func Restore[S any](kind store.Kind, st *store.Store[S], sink Sink) error {
	data, err := sink.Load(kind)
	if err != nil {
		return err
	}

	var restored S
	if err := json.Unmarshal(data, &restored); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", kind, err)
	}
	st.SetState(func(s *S) {
		*s = restored
	})
	return nil
}
