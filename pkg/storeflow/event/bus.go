package event

import (
	"context"
	"sync"
	"sync/atomic"
)

// Listener receives published events. A returned error aborts delivery to
// the listeners registered after it and is handed back to the publisher.
type Listener func(ctx context.Context, evt Event) error

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	// Dispose removes the listener. Calling it more than once is a no-op.
	Dispose()
}

// Bus is a synchronous publish/subscribe channel keyed by event kind.
//
// Listeners run on the publisher's goroutine, in registration order. There is
// no isolation between listeners: a failing listener stops the publish call.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Kind][]*subscription

	nextID atomic.Int64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[Kind][]*subscription),
	}
}

type subscription struct {
	id       int64
	kind     Kind
	listener Listener
	bus      *Bus
	disposed atomic.Bool
}

// Subscribe registers listener for events of the given kind.
func (b *Bus) Subscribe(kind Kind, listener Listener) Subscription {
	if listener == nil {
		panic("storeflow: bus listener cannot be nil")
	}

	sub := &subscription{
		id:       b.nextID.Add(1),
		kind:     kind,
		listener: listener,
		bus:      b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[kind] = append(b.listeners[kind], sub)

	return sub
}

// Publish delivers evt to every listener currently registered for its kind.
//
// The listener set is snapshotted before delivery, so listeners that dispose
// subscriptions (their own or others') do not change who receives this event.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if evt == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	current := b.listeners[evt.Kind()]
	if len(current) == 0 {
		b.mu.RUnlock()
		return nil
	}
	snapshot := make([]*subscription, len(current))
	copy(snapshot, current)
	b.mu.RUnlock()

	for i, sub := range snapshot {
		if err := sub.listener(ctx, evt); err != nil {
			return &PublishError{
				Kind:     evt.Kind(),
				Listener: i,
				Err:      err,
			}
		}
	}
	return nil
}

// Len returns the number of listeners registered for kind.
func (b *Bus) Len(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[kind])
}

// Dispose removes the subscription from its bus.
func (s *subscription) Dispose() {
	if !s.disposed.CompareAndSwap(false, true) {
		return
	}

	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[s.kind]
	for i, candidate := range subs {
		if candidate.id != s.id {
			continue
		}
		// Build a fresh slice so snapshots held by in-flight publishes stay intact
		remaining := make([]*subscription, 0, len(subs)-1)
		remaining = append(remaining, subs[:i]...)
		remaining = append(remaining, subs[i+1:]...)
		if len(remaining) == 0 {
			delete(b.listeners, s.kind)
		} else {
			b.listeners[s.kind] = remaining
		}
		return
	}
}
