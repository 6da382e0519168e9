package storeflow

import (
	"context"
	"fmt"
	"reflect"

	"github.com/randalmurphal/storeflow/pkg/storeflow/event"
	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// HandlerFunc handles an event on behalf of a store.
//
// instance is the store resolved from the container for the registration's
// target kind. Most handlers are built with Bind or On rather than written
// against instance directly.
type HandlerFunc func(ctx context.Context, instance any, evt event.Event) Result

// Bind adapts a method expression on a store type into a HandlerFunc.
//
// Example:
//
//	d.RegisterHandler(LoadEvent, CatalogKind, storeflow.Bind((*CatalogStore).OnLoad))
//
// If the resolved instance is not an S, the handler fails with
// ErrStoreTypeMismatch.
func Bind[S any](method func(S, context.Context, event.Event) Result) HandlerFunc {
	if method == nil {
		panic("storeflow: handler method cannot be nil")
	}
	return func(ctx context.Context, instance any, evt event.Event) Result {
		s, ok := instance.(S)
		if !ok {
			return Fail(fmt.Errorf("%w: got %T, want %s", ErrStoreTypeMismatch, instance, reflect.TypeFor[S]()))
		}
		return method(s, ctx, evt)
	}
}

// On is Bind for handlers that take a concrete event type E.
//
// Example:
//
//	func (s *CartStore) OnAdd(ctx context.Context, evt *event.BaseEvent[Item]) storeflow.Result
//
//	d.RegisterHandler(AddEvent, CartKind, storeflow.On((*CartStore).OnAdd))
func On[S any, E event.Event](method func(S, context.Context, E) Result) HandlerFunc {
	if method == nil {
		panic("storeflow: handler method cannot be nil")
	}
	return Bind(func(s S, ctx context.Context, evt event.Event) Result {
		typed, ok := evt.(E)
		if !ok {
			return Fail(fmt.Errorf("%w: got %T, want %s", ErrEventTypeMismatch, evt, reflect.TypeFor[E]()))
		}
		return method(s, ctx, typed)
	})
}

// Wrapper is implemented by stores that intercept handler calls registered
// with WithWrapper. Handle receives a thunk invoking the real handler; it
// decides whether and when to call it and returns the result to dispatch.
type Wrapper interface {
	Handle(ctx context.Context, call func() Result, evt event.Event) Result
}

// WrapperFunc adapts a function into a Wrapper.
type WrapperFunc func(ctx context.Context, call func() Result, evt event.Event) Result

// Handle implements Wrapper.
func (f WrapperFunc) Handle(ctx context.Context, call func() Result, evt event.Event) Result {
	return f(ctx, call, evt)
}

// registration is one (event kind, target, handler) binding.
type registration struct {
	eventKind event.Kind
	target    store.Kind
	fn        HandlerFunc
	wrapper   store.Kind
	name      string
}

// HandlerOption configures a single handler registration.
type HandlerOption func(*registration)

// WithWrapper routes the handler through the store registered under kind,
// which must implement Wrapper.
func WithWrapper(kind store.Kind) HandlerOption {
	return func(r *registration) {
		r.wrapper = kind
	}
}

// WithHandlerName names the handler in errors, logs and spans.
// Default: "<target>#<n>", n counting the target's handlers for the event kind.
func WithHandlerName(name string) HandlerOption {
	return func(r *registration) {
		r.name = name
	}
}
