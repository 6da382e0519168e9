package storeflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/storeflow/pkg/storeflow/container"
	"github.com/randalmurphal/storeflow/pkg/storeflow/event"
	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// Kinds shared across tests.
const (
	evLoad event.Kind = "test.load"
	evPing event.Kind = "test.ping"
	evSave event.Kind = "test.save"
	evNone event.Kind = "test.unhandled"

	storeA store.Kind = "a"
	storeB store.Kind = "b"
	storeC store.Kind = "c"
	storeD store.Kind = "d"
)

// testState is the state every test store holds.
type testState struct {
	Loaded bool
	Count  int
	Seen   []string
}

// testStore is a store that records handler invocations.
type testStore struct {
	*store.Store[testState]
	name string
	log  *callLog
}

func newTestStore(name string, log *callLog) *testStore {
	return &testStore{
		Store: store.New(func() testState { return testState{} }),
		name:  name,
		log:   log,
	}
}

// OnLoad records the call and marks the store loaded.
func (s *testStore) OnLoad(_ context.Context, evt event.Event) Result {
	s.log.add(s.name + ".load")
	s.SetState(func(st *testState) {
		st.Loaded = true
		st.Count++
		st.Seen = append(st.Seen, string(evt.Kind()))
	})
	return Done()
}

// OnPing records the call.
func (s *testStore) OnPing(_ context.Context, _ event.Event) Result {
	s.log.add(s.name + ".ping")
	return Done()
}

// callLog is a goroutine-safe record of handler invocations.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// harness bundles a dispatcher with its container and test stores.
type harness struct {
	d      *Dispatcher
	c      *container.Container
	log    *callLog
	stores map[store.Kind]*testStore
}

// newHarness creates a dispatcher whose container provides a testStore for
// each kind. SetupStores is not called.
func newHarness(t *testing.T, kinds []store.Kind, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		d:      New(opts...),
		c:      container.New(),
		log:    &callLog{},
		stores: make(map[store.Kind]*testStore),
	}
	for _, k := range kinds {
		s := newTestStore(string(k), h.log)
		h.stores[k] = s
		h.c.ProvideValue(k, s)
	}
	return h
}

// setup binds the container and resolves every test store.
func (h *harness) setup(t *testing.T) {
	t.Helper()
	kinds := make([]store.Kind, 0, len(h.stores))
	for k := range h.stores {
		kinds = append(kinds, k)
	}
	require.NoError(t, h.d.SetupStores(h.c, kinds...))
}

// record returns a handler that appends name to the log.
func record(log *callLog, name string) HandlerFunc {
	return func(context.Context, any, event.Event) Result {
		log.add(name)
		return Done()
	}
}

// fail returns a handler that records name and fails synchronously.
func fail(log *callLog, name string, err error) HandlerFunc {
	return func(context.Context, any, event.Event) Result {
		log.add(name)
		return Fail(err)
	}
}

// gated returns a handler whose asynchronous part waits for gate, then
// records name+".settled" and settles with err.
func gated(log *callLog, name string, gate <-chan struct{}, err error) HandlerFunc {
	return func(context.Context, any, event.Event) Result {
		log.add(name)
		return Async(Go(func() error {
			<-gate
			log.add(name + ".settled")
			return err
		}))
	}
}

// index returns the position of call in calls, or -1.
func index(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

func load() event.Event {
	return event.New(evLoad, struct{}{})
}
