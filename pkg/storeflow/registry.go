package storeflow

import (
	"fmt"
	"slices"

	"github.com/randalmurphal/storeflow/pkg/storeflow/event"
	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// RegisterHandler binds fn to run on the target store whenever an event of
// eventKind is dispatched. Returns the dispatcher for method chaining.
//
// A target may register several handlers for the same event kind; they run
// in registration order. Registrations are meant to be made once at startup,
// before the first dispatch.
//
// Panics if:
//   - eventKind or target is empty
//   - fn is nil
//   - the wrapper kind equals the target
func (d *Dispatcher) RegisterHandler(eventKind event.Kind, target store.Kind, fn HandlerFunc, opts ...HandlerOption) *Dispatcher {
	if eventKind == "" {
		panic("storeflow: event kind cannot be empty")
	}
	if target == "" {
		panic("storeflow: target store kind cannot be empty")
	}
	if fn == nil {
		panic("storeflow: handler function cannot be nil")
	}

	reg := registration{eventKind: eventKind, target: target, fn: fn}
	for _, opt := range opts {
		opt(&reg)
	}
	if reg.wrapper == target {
		panic(fmt.Sprintf("storeflow: store %s cannot wrap its own handler", target))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if reg.name == "" {
		n := 0
		for _, r := range d.handlers[eventKind] {
			if r.target == target {
				n++
			}
		}
		reg.name = fmt.Sprintf("%s#%d", target, n)
	}
	d.handlers[eventKind] = append(d.handlers[eventKind], reg)
	return d
}

// RegisterDependency declares that target must finish handling an event
// before its own handlers run, whenever dependency also handles that event.
// A store waits for at most one other store; registering again replaces the
// previous dependency. Returns the dispatcher for method chaining.
//
// Panics if either kind is empty or target == dependency.
func (d *Dispatcher) RegisterDependency(target, dependency store.Kind) *Dispatcher {
	if target == "" || dependency == "" {
		panic("storeflow: dependency store kinds cannot be empty")
	}
	if target == dependency {
		panic(fmt.Sprintf("storeflow: store %s cannot depend on itself", target))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dependencies[target] = dependency
	return d
}

// Handles reports whether any handler is registered for kind.
func (d *Dispatcher) Handles(kind event.Kind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind]) > 0
}

// Targets returns the stores that handle kind, in dispatch order.
func (d *Dispatcher) Targets(kind event.Kind) []store.Kind {
	groups := d.groups(kind)
	targets := make([]store.Kind, len(groups))
	for i, g := range groups {
		targets[i] = g.target
	}
	return targets
}

// DependencyOf returns the store target waits for, if any.
func (d *Dispatcher) DependencyOf(target store.Kind) (store.Kind, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dep, ok := d.dependencies[target]
	return dep, ok
}

// EventKinds returns every event kind with at least one handler, sorted.
func (d *Dispatcher) EventKinds() []event.Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()
	kinds := make([]event.Kind, 0, len(d.handlers))
	for k := range d.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// handlerGroup is the ordered set of handlers one store runs for an event.
type handlerGroup struct {
	target   store.Kind
	handlers []registration
}

// groups partitions the registrations for kind by target. Targets appear in
// the order of their first registration; handlers keep registration order.
func (d *Dispatcher) groups(kind event.Kind) []handlerGroup {
	d.mu.RLock()
	regs := d.handlers[kind]
	d.mu.RUnlock()

	var groups []handlerGroup
	index := make(map[store.Kind]int)
	for _, r := range regs {
		i, ok := index[r.target]
		if !ok {
			i = len(groups)
			index[r.target] = i
			groups = append(groups, handlerGroup{target: r.target})
		}
		groups[i].handlers = append(groups[i].handlers, r)
	}
	return groups
}

// names returns the group's handler names in run order.
func (g handlerGroup) names() []string {
	names := make([]string, len(g.handlers))
	for i, r := range g.handlers {
		names[i] = r.name
	}
	return names
}
