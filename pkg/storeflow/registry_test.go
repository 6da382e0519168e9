package storeflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/storeflow/pkg/storeflow/event"
	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

func noop(context.Context, any, event.Event) Result { return Done() }

func TestRegisterHandler_Panics(t *testing.T) {
	tests := []struct {
		name string
		fn   func(d *Dispatcher)
		want string
	}{
		{
			name: "empty event kind",
			fn:   func(d *Dispatcher) { d.RegisterHandler("", storeA, noop) },
			want: "storeflow: event kind cannot be empty",
		},
		{
			name: "empty target",
			fn:   func(d *Dispatcher) { d.RegisterHandler(evLoad, "", noop) },
			want: "storeflow: target store kind cannot be empty",
		},
		{
			name: "nil handler",
			fn:   func(d *Dispatcher) { d.RegisterHandler(evLoad, storeA, nil) },
			want: "storeflow: handler function cannot be nil",
		},
		{
			name: "self wrapper",
			fn:   func(d *Dispatcher) { d.RegisterHandler(evLoad, storeA, noop, WithWrapper(storeA)) },
			want: "storeflow: store a cannot wrap its own handler",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PanicsWithValue(t, tt.want, func() { tt.fn(New()) })
		})
	}
}

func TestRegisterDependency_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "storeflow: store a cannot depend on itself", func() {
		New().RegisterDependency(storeA, storeA)
	})
	assert.PanicsWithValue(t, "storeflow: dependency store kinds cannot be empty", func() {
		New().RegisterDependency(storeA, "")
	})
	assert.PanicsWithValue(t, "storeflow: dependency store kinds cannot be empty", func() {
		New().RegisterDependency("", storeA)
	})
}

func TestBind_NilMethodPanics(t *testing.T) {
	assert.PanicsWithValue(t, "storeflow: handler method cannot be nil", func() {
		Bind[*testStore](nil)
	})
}

func TestRegisterDependency_Replaces(t *testing.T) {
	d := New().
		RegisterDependency(storeB, storeA).
		RegisterDependency(storeB, storeC)

	dep, ok := d.DependencyOf(storeB)
	require.True(t, ok)
	assert.Equal(t, storeC, dep)

	_, ok = d.DependencyOf(storeA)
	assert.False(t, ok)
}

func TestHandles(t *testing.T) {
	d := New().RegisterHandler(evLoad, storeA, noop)

	assert.True(t, d.Handles(evLoad))
	assert.False(t, d.Handles(evPing))
}

func TestTargets(t *testing.T) {
	d := New().
		RegisterHandler(evLoad, storeB, noop).
		RegisterHandler(evLoad, storeA, noop).
		RegisterHandler(evLoad, storeB, noop).
		RegisterHandler(evPing, storeC, noop)

	assert.Equal(t, []store.Kind{storeB, storeA}, d.Targets(evLoad))
	assert.Equal(t, []store.Kind{storeC}, d.Targets(evPing))
	assert.Empty(t, d.Targets(evNone))
}

func TestEventKinds(t *testing.T) {
	d := New().
		RegisterHandler(evSave, storeA, noop).
		RegisterHandler(evLoad, storeA, noop)

	assert.Equal(t, []event.Kind{evLoad, evSave}, d.EventKinds())
}

func TestHandlerNames(t *testing.T) {
	d := New().
		RegisterHandler(evLoad, storeA, noop).
		RegisterHandler(evLoad, storeB, noop).
		RegisterHandler(evLoad, storeA, noop).
		RegisterHandler(evLoad, storeA, noop, WithHandlerName("custom")).
		RegisterHandler(evPing, storeA, noop)

	groups := d.groups(evLoad)
	require.Len(t, groups, 2)

	names := make([]string, 0, len(groups[0].handlers))
	for _, r := range groups[0].handlers {
		names = append(names, r.name)
	}
	assert.Equal(t, []string{"a#0", "a#1", "custom"}, names)
	assert.Equal(t, "b#0", groups[1].handlers[0].name)
	assert.Equal(t, "a#0", d.groups(evPing)[0].handlers[0].name)
}
