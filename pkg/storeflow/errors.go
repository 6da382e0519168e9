package storeflow

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/storeflow/pkg/storeflow/event"
	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// Sentinel errors for dispatch.
var (
	// ErrNilEvent indicates Dispatch was called with a nil event.
	ErrNilEvent = event.ErrNilEvent

	// ErrNoContainer indicates a store was resolved before SetupStores bound a container.
	ErrNoContainer = errors.New("no store container bound")

	// ErrNotWrapper indicates a registration's wrapper store does not implement Wrapper.
	ErrNotWrapper = errors.New("store does not implement Wrapper")

	// ErrStoreTypeMismatch indicates a bound handler received a store of the wrong type.
	ErrStoreTypeMismatch = errors.New("store instance has unexpected type")

	// ErrEventTypeMismatch indicates a typed handler received an event of the wrong type.
	ErrEventTypeMismatch = errors.New("event has unexpected type")

	// ErrDependencyDepth indicates the dependency chain exceeded the configured limit.
	ErrDependencyDepth = errors.New("dependency chain too deep")
)

// HandlerError wraps a failure raised by a store's handler.
type HandlerError struct {
	// Store is the target store of the failing handler.
	Store store.Kind
	// EventKind is the kind of the event being dispatched.
	EventKind event.Kind
	// Handler is the registration name of the failing handler.
	Handler string
	// Async is true when the failure came from an awaited future.
	Async bool
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	mode := "sync"
	if e.Async {
		mode = "async"
	}
	return fmt.Sprintf("store %s: handler %s (%s) for %s: %v", e.Store, e.Handler, mode, e.EventKind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic recovered from a handler or a Go future.
type PanicError struct {
	// Store is empty for panics outside a store handler.
	Store store.Kind
	// Handler is the registration name, if known.
	Handler string
	// Value is the value passed to panic().
	Value any
	// Stack is the goroutine stack at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	if e.Store == "" {
		return fmt.Sprintf("panic: %v", e.Value)
	}
	return fmt.Sprintf("panic in store %s handler %s: %v", e.Store, e.Handler, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ResolveError wraps a failure to obtain a store instance from the container.
type ResolveError struct {
	Store store.Kind
	Err   error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve store %s: %v", e.Store, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// DependencyDepthError reports a dependency chain longer than the configured
// maximum, which usually means the dependency graph has a cycle.
type DependencyDepthError struct {
	Store      store.Kind
	Dependency store.Kind
	Max        int
}

// Error implements the error interface.
func (e *DependencyDepthError) Error() string {
	return fmt.Sprintf("store %s waiting on %s: dependency depth exceeds %d (cycle?)", e.Store, e.Dependency, e.Max)
}

// Unwrap returns ErrDependencyDepth.
func (e *DependencyDepthError) Unwrap() error {
	return ErrDependencyDepth
}
