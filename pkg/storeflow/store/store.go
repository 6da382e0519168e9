// Package store provides the state container that dispatch targets embed.
//
// A Store starts out holding its default state and becomes ready the first
// time SetState is called. Every SetState publishes a StateChanged marker on
// the store's private bus; observers subscribe with OnStateChanged.
//
//	type CatalogStore struct {
//	    *store.Store[CatalogState]
//	}
//
//	func NewCatalogStore() *CatalogStore {
//	    return &CatalogStore{Store: store.New(func() CatalogState {
//	        return CatalogState{Page: 1}
//	    })}
//	}
package store

import (
	"context"
	"sync"

	"github.com/randalmurphal/storeflow/pkg/storeflow/event"
)

// Kind identifies a store variant. It keys the handler registry, the
// dependency graph, dispatch bookkeeping and container lookups.
type Kind string

// StateChanged is published on a store's private bus after every SetState.
const StateChanged = event.Marker("store.state_changed")

// Store holds state of type S.
//
// Store is safe for concurrent use. The update function passed to SetState
// runs under the store's write lock and must not call back into the store.
type Store[S any] struct {
	mu    sync.RWMutex
	state S

	readyOnce sync.Once
	ready     chan struct{}

	bus *event.Bus
}

// New creates a store initialised from defaultState.
// Panics if defaultState is nil.
func New[S any](defaultState func() S) *Store[S] {
	if defaultState == nil {
		panic("storeflow: default state factory cannot be nil")
	}
	return &Store[S]{
		state: defaultState(),
		ready: make(chan struct{}),
		bus:   event.NewBus(),
	}
}

// SetState applies update to the current state in place. Fields the update
// assigns replace the current values; everything else is kept.
//
// Observers are notified once per call, whether or not any value changed.
// The first call also marks the store ready and releases every Wait.
func (s *Store[S]) SetState(update func(state *S)) {
	s.mu.Lock()
	if update != nil {
		update(&s.state)
	}
	s.mu.Unlock()

	// Only OnStateChanged listeners are on the bus and they never fail
	_ = s.bus.Publish(context.Background(), StateChanged)

	s.readyOnce.Do(func() {
		close(s.ready)
	})
}

// State returns a copy of the current state.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Wait blocks until the store has received its first SetState or ctx is done.
// Once the store is ready Wait returns immediately.
func (s *Store[S]) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}

	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready returns a channel that is closed when the store becomes ready.
func (s *Store[S]) Ready() <-chan struct{} {
	return s.ready
}

// IsReady reports whether SetState has been called at least once.
func (s *Store[S]) IsReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// OnStateChanged registers fn to run after every SetState on this store.
// fn has no error result, so one observer cannot stop delivery to the others.
func (s *Store[S]) OnStateChanged(fn func()) event.Subscription {
	if fn == nil {
		panic("storeflow: state change callback cannot be nil")
	}
	return s.bus.Subscribe(StateChanged.Kind(), func(context.Context, event.Event) error {
		fn()
		return nil
	})
}
