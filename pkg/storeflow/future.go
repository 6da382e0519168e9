package storeflow

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// ResolveFunc settles a Future. Only the first call has an effect.
type ResolveFunc func(err error)

// Future is the completion signal of an asynchronous operation.
//
// A Future settles exactly once, either successfully (nil error) or with an
// error. A nil *Future behaves as one that already settled successfully.
type Future struct {
	done chan struct{}
	once sync.Once
	err  error
}

// NewFuture returns an unsettled future and the function that settles it.
//
// Example:
//
//	f, resolve := storeflow.NewFuture()
//	client.Fetch(func(items []Item, err error) {
//	    s.SetState(func(st *State) { st.Items = items })
//	    resolve(err)
//	})
//	return storeflow.Async(f)
func NewFuture() (*Future, ResolveFunc) {
	f := &Future{done: make(chan struct{})}
	return f, f.resolve
}

// Resolved returns a future that has already settled with err.
func Resolved(err error) *Future {
	f, resolve := NewFuture()
	resolve(err)
	return f
}

// Go runs fn on a new goroutine and returns a future that settles with its
// result. A panic in fn settles the future with a *PanicError.
func Go(fn func() error) *Future {
	f, resolve := NewFuture()
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: string(debug.Stack())}
			}
			resolve(err)
		}()
		err = fn()
	}()
	return f
}

func (f *Future) resolve(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	if f == nil {
		return closedChan
	}
	return f.done
}

// Err returns the settled error. It is only meaningful after Done is closed.
func (f *Future) Err() error {
	if f == nil {
		return nil
	}
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Settled reports whether the future has settled.
func (f *Future) Settled() bool {
	select {
	case <-f.Done():
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) error {
	if f == nil {
		return nil
	}
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Result is what a handler returns: a synchronous outcome, or a Future the
// dispatcher awaits before the store counts as handled.
//
// The zero Result is a successful synchronous completion.
type Result struct {
	err    error
	future *Future
}

// Done reports synchronous success.
func Done() Result {
	return Result{}
}

// Fail reports a synchronous failure. Remaining handlers of the same store
// are skipped and the error surfaces from Dispatch.
func Fail(err error) Result {
	return Result{err: err}
}

// Async reports work that completes when f settles.
func Async(f *Future) Result {
	return Result{future: f}
}

// Err returns the synchronous error, if any.
func (r Result) Err() error {
	return r.err
}

// Future returns the pending future, or nil for synchronous results.
func (r Result) Future() *Future {
	return r.future
}

// IsAsync reports whether the result carries a future.
func (r Result) IsAsync() bool {
	return r.future != nil
}

// String implements fmt.Stringer.
func (r Result) String() string {
	switch {
	case r.err != nil:
		return fmt.Sprintf("failed(%v)", r.err)
	case r.future != nil:
		return "async"
	default:
		return "done"
	}
}
