package storeflow

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/storeflow/pkg/storeflow/event"
	"github.com/randalmurphal/storeflow/pkg/storeflow/observability"
	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// Container resolves store instances by kind. The same kind must resolve to
// the same instance for the lifetime of the container.
type Container interface {
	Get(kind store.Kind) (any, error)
}

// Dispatcher routes events to the stores registered to handle them.
//
// A Dispatcher owns the handler registry, the dependency graph and the
// container binding. Build one at startup, register handlers and
// dependencies, call SetupStores, then dispatch from any goroutine.
//
// Example:
//
//	d := storeflow.New(storeflow.WithLogger(logger)).
//	    RegisterHandler(LoadEvent, CatalogKind, storeflow.Bind((*CatalogStore).OnLoad)).
//	    RegisterHandler(LoadEvent, CartKind, storeflow.Bind((*CartStore).OnLoad)).
//	    RegisterDependency(CartKind, CatalogKind)
//
//	if err := d.SetupStores(c, CatalogKind, CartKind); err != nil {
//	    return err
//	}
//	err := d.Dispatch(ctx, event.New(LoadEvent, req))
type Dispatcher struct {
	mu           sync.RWMutex
	handlers     map[event.Kind][]registration
	dependencies map[store.Kind]store.Kind
	container    Container

	config dispatcherConfig
}

// New creates a Dispatcher with no registrations.
func New(opts ...Option) *Dispatcher {
	cfg := defaultDispatcherConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher{
		handlers:     make(map[event.Kind][]registration),
		dependencies: make(map[store.Kind]store.Kind),
		config:       cfg,
	}
}

// SetupStores binds the container stores are resolved from and eagerly
// resolves each listed kind so its construction happens now rather than
// during the first dispatch. Call it once, before the first dispatch.
func (d *Dispatcher) SetupStores(c Container, kinds ...store.Kind) error {
	if c == nil {
		return ErrNoContainer
	}
	d.mu.Lock()
	d.container = c
	d.mu.Unlock()

	for _, kind := range kinds {
		if _, err := d.resolve(kind); err != nil {
			return err
		}
	}
	return nil
}

// resolve returns the store instance for kind.
func (d *Dispatcher) resolve(kind store.Kind) (any, error) {
	d.mu.RLock()
	c := d.container
	d.mu.RUnlock()

	if c == nil {
		return nil, &ResolveError{Store: kind, Err: ErrNoContainer}
	}
	instance, err := c.Get(kind)
	if err != nil {
		return nil, &ResolveError{Store: kind, Err: err}
	}
	return instance, nil
}

// Dispatch delivers evt to every store registered for its kind and blocks
// until all of them, including awaited asynchronous handlers, have settled.
//
// Each store handles a given dispatch at most once. A store with a
// dependency runs after the dependency has handled evt, if the dependency
// handles evt at all. Stores otherwise run in order of first registration.
//
// Dispatch returns nil without doing any work when no handler is registered
// for evt's kind. The first handler failure aborts the dispatch and is
// returned as a *HandlerError.
func (d *Dispatcher) Dispatch(ctx context.Context, evt event.Event) error {
	if evt == nil {
		return ErrNilEvent
	}
	if !d.Handles(evt.Kind()) {
		return nil
	}

	run := newDispatchRun(d.config.logger, evt)

	start := time.Now()
	observability.LogDispatchStart(run.logger)

	ctx = withRunID(ctx, run.info.RunID)
	ctx, span := d.config.spans.StartDispatchSpan(ctx, run.info)

	err := d.performDispatch(ctx, evt, "", run, 0)

	elapsed := time.Since(start)
	d.config.metrics.RecordDispatch(ctx, run.info.EventKind, elapsed, err)
	d.config.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogDispatchError(run.logger, err, observability.Milliseconds(elapsed))
		return err
	}
	observability.LogDispatchComplete(run.logger, observability.Milliseconds(elapsed), len(run.handled))
	return nil
}

// DispatchAsync runs Dispatch on a new goroutine and returns its future.
// It returns nil, the already-settled no-op, when no handler is registered
// for evt's kind. Concurrent dispatches are not serialized.
func (d *Dispatcher) DispatchAsync(ctx context.Context, evt event.Event) *Future {
	if evt == nil {
		return Resolved(ErrNilEvent)
	}
	if !d.Handles(evt.Kind()) {
		return nil
	}
	return Go(func() error {
		return d.Dispatch(ctx, evt)
	})
}

// dispatchRun records which stores finished handling one top-level dispatch.
// It is confined to the dispatching goroutine.
type dispatchRun struct {
	info    observability.DispatchInfo
	handled map[store.Kind]bool
	logger  *slog.Logger
}

func newDispatchRun(logger *slog.Logger, evt event.Event) *dispatchRun {
	info := observability.DispatchInfo{
		RunID:     uuid.New().String(),
		EventKind: string(evt.Kind()),
	}
	if identified, ok := evt.(event.Identified); ok {
		info.EventID = identified.ID()
		info.CorrelationID = identified.CorrelationID()
	}
	return &dispatchRun{
		info:    info,
		handled: make(map[store.Kind]bool),
		logger:  observability.EnrichLogger(logger, info),
	}
}

// performDispatch runs every handler group for evt, or only onlyTarget's
// group when it is set. A target without handlers for evt is a no-op.
func (d *Dispatcher) performDispatch(ctx context.Context, evt event.Event, onlyTarget store.Kind, run *dispatchRun, depth int) error {
	groups := d.groups(evt.Kind())
	if len(groups) == 0 {
		return nil
	}

	if onlyTarget != "" {
		idx := -1
		for i, g := range groups {
			if g.target == onlyTarget {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}
		groups = groups[idx : idx+1]
	}

	for _, g := range groups {
		if err := d.dispatchOnStore(ctx, evt, g, run, depth); err != nil {
			return err
		}
	}
	return nil
}

// dispatchOnStore runs one store's handlers for evt after its dependency.
func (d *Dispatcher) dispatchOnStore(ctx context.Context, evt event.Event, g handlerGroup, run *dispatchRun, depth int) error {
	if run.handled[g.target] {
		return nil
	}

	if dep, ok := d.DependencyOf(g.target); ok && !run.handled[dep] {
		if depth >= d.config.maxDependencyDepth {
			return &DependencyDepthError{Store: g.target, Dependency: dep, Max: d.config.maxDependencyDepth}
		}
		observability.LogDependency(run.logger, string(g.target), string(dep))
		d.config.spans.AddSpanEvent(ctx, "dependency",
			attribute.String("store.kind", string(g.target)),
			attribute.String("dependency", string(dep)),
		)
		if err := d.performDispatch(ctx, evt, dep, run, depth+1); err != nil {
			return err
		}
	}

	storeKind := string(g.target)
	ctx, span := d.config.spans.StartStoreSpan(ctx, storeKind, g.names())
	start := time.Now()
	observability.LogStoreStart(run.logger, storeKind, len(g.handlers))

	awaited, err := d.runHandlers(ctx, evt, g)

	elapsed := time.Since(start)
	d.config.metrics.RecordStore(ctx, storeKind, elapsed, err)
	d.config.spans.EndStoreSpan(span, awaited, err)
	if err != nil {
		observability.LogStoreError(run.logger, storeKind, err)
		return err
	}
	observability.LogStoreComplete(run.logger, storeKind, observability.Milliseconds(elapsed), awaited)

	run.handled[g.target] = true
	return nil
}

// pendingHandler is an asynchronous handler result awaiting settlement.
type pendingHandler struct {
	reg    registration
	future *Future
}

// runHandlers invokes every handler of g in order, then awaits the futures
// they returned. It reports how many futures were awaited.
func (d *Dispatcher) runHandlers(ctx context.Context, evt event.Event, g handlerGroup) (int, error) {
	instance, err := d.resolve(g.target)
	if err != nil {
		return 0, err
	}

	var pending []pendingHandler
	for _, reg := range g.handlers {
		res := d.invoke(ctx, evt, instance, reg)
		if res.err != nil {
			return 0, &HandlerError{
				Store:     reg.target,
				EventKind: reg.eventKind,
				Handler:   reg.name,
				Err:       res.err,
			}
		}
		if res.future != nil {
			pending = append(pending, pendingHandler{reg: reg, future: res.future})
		}
	}

	return len(pending), awaitAll(ctx, pending)
}

// invoke calls one handler, through its wrapper if it has one. Panics are
// recovered into a failed Result.
func (d *Dispatcher) invoke(ctx context.Context, evt event.Event, instance any, reg registration) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail(&PanicError{
				Store:   reg.target,
				Handler: reg.name,
				Value:   r,
				Stack:   string(debug.Stack()),
			})
		}
	}()

	call := func() Result {
		return reg.fn(ctx, instance, evt)
	}
	if reg.wrapper == "" {
		return call()
	}

	w, err := d.resolve(reg.wrapper)
	if err != nil {
		return Fail(err)
	}
	wrapper, ok := w.(Wrapper)
	if !ok {
		return Fail(&ResolveError{Store: reg.wrapper, Err: ErrNotWrapper})
	}
	return wrapper.Handle(ctx, call, evt)
}

// awaitAll waits for every pending future. The first failure wins and is
// returned as a *HandlerError; the remaining futures are no longer awaited.
func awaitAll(ctx context.Context, pending []pendingHandler) error {
	switch len(pending) {
	case 0:
		return nil
	case 1:
		return awaitOne(ctx, pending[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pending {
		g.Go(func() error {
			return awaitOne(gctx, p)
		})
	}
	return g.Wait()
}

func awaitOne(ctx context.Context, p pendingHandler) error {
	select {
	case <-p.future.Done():
		if err := p.future.Err(); err != nil {
			return &HandlerError{
				Store:     p.reg.target,
				EventKind: p.reg.eventKind,
				Handler:   p.reg.name,
				Async:     true,
				Err:       err,
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type runIDKey struct{}

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the ID of the dispatch ctx belongs to, or "" outside a dispatch.
// Handlers use it to correlate their own logs with the dispatcher's.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}
