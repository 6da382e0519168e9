/*
Package storeflow dispatches events to state stores in dependency order.

# Overview

An application keeps its state in stores (see package store). Stores react
to events: a handler bound to a store kind runs whenever an event of a given
kind is dispatched. The Dispatcher guarantees, per dispatch:

  - each store handles the event at most once, however many handler groups
    or dependency paths reach it
  - a store that depends on another runs only after that store has fully
    handled the event, including asynchronous work
  - a dependency that does not handle the event is skipped, not awaited

# Wiring

Registration is explicit and happens once at startup:

	const (
	    CatalogKind store.Kind = "catalog"
	    CartKind    store.Kind = "cart"
	    LoadEvent   event.Kind = "app.load"
	)

	d := storeflow.New().
	    RegisterHandler(LoadEvent, CatalogKind, storeflow.Bind((*CatalogStore).OnLoad)).
	    RegisterHandler(LoadEvent, CartKind, storeflow.Bind((*CartStore).OnLoad)).
	    RegisterDependency(CartKind, CatalogKind)

	c := container.New().
	    Provide(CatalogKind, func() (any, error) { return NewCatalogStore(), nil }).
	    Provide(CartKind, func() (any, error) { return NewCartStore(), nil })

	if err := d.SetupStores(c, CatalogKind, CartKind); err != nil {
	    log.Fatal(err)
	}

Each Dispatcher is independent, so tests build their own.

# Handler Results

Handlers return a Result. Done and Fail report synchronous outcomes. Async
hands the dispatcher a Future it awaits before the store counts as handled:

	func (s *CatalogStore) OnLoad(ctx context.Context, evt event.Event) storeflow.Result {
	    return storeflow.Async(storeflow.Go(func() error {
	        items, err := s.api.List(ctx)
	        if err != nil {
	            return err
	        }
	        s.SetState(func(st *CatalogState) { st.Items = items })
	        return nil
	    }))
	}

All handlers of a store are invoked before any of their futures is awaited.
A synchronous failure stops the store's remaining handlers at once; the
first asynchronous failure fails the dispatch.

# Wrappers

A registration may name a wrapper store implementing Wrapper. The wrapper
receives a thunk for the real handler and decides how to run it:

	d.RegisterHandler(SaveEvent, CartKind, storeflow.Bind((*CartStore).OnSave),
	    storeflow.WithWrapper(AuditKind))

# Error Handling

Handler failures are returned as *HandlerError, panics as *PanicError inside
it. Store resolution failures are *ResolveError. Use errors.Is and errors.As:

	var he *storeflow.HandlerError
	if errors.As(err, &he) {
	    log.Printf("store %s failed: %v", he.Store, he.Err)
	}

# Observability

WithLogger, WithMetrics and WithTracing enable slog logging and
OpenTelemetry metrics and spans. See package observability.
*/
package storeflow
