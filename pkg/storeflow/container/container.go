package container

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// ErrNotProvided indicates Get was called for a kind without a factory.
var ErrNotProvided = errors.New("store kind not provided")

// Factory constructs a store instance.
type Factory func() (any, error)

// Container owns one instance per store kind.
// Instances are created lazily on first Get and reused afterwards.
//
// Factories may resolve other kinds through Get. A factory must not resolve
// its own kind, directly or through another factory.
type Container struct {
	mu        sync.RWMutex
	factories map[store.Kind]Factory
	instances map[store.Kind]any

	builds singleflight.Group
}

// New creates an empty container.
func New() *Container {
	return &Container{
		factories: make(map[store.Kind]Factory),
		instances: make(map[store.Kind]any),
	}
}

// Provide registers the factory for kind. Providing a kind twice replaces
// the factory; an instance already built is kept.
// Returns the container for method chaining.
func (c *Container) Provide(kind store.Kind, factory Factory) *Container {
	if kind == "" {
		panic("storeflow: store kind cannot be empty")
	}
	if factory == nil {
		panic("storeflow: store factory cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[kind] = factory
	return c
}

// ProvideValue registers an already constructed instance for kind.
// Panics if kind already has an instance, since Get must keep returning the
// same instance.
func (c *Container) ProvideValue(kind store.Kind, instance any) *Container {
	if kind == "" {
		panic("storeflow: store kind cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.instances[kind]; ok {
		panic(fmt.Sprintf("storeflow: store %s already built", kind))
	}
	c.factories[kind] = func() (any, error) { return instance, nil }
	c.instances[kind] = instance
	return c
}

// Get returns the instance for kind, constructing it on first use.
// The factory runs outside the container lock, at most once per kind even
// under concurrent access: callers arriving while it runs share its result.
// A failed construction is retried by the next Get.
func (c *Container) Get(kind store.Kind) (any, error) {
	if instance, ok := c.instance(kind); ok {
		return instance, nil
	}

	instance, err, _ := c.builds.Do(string(kind), func() (any, error) {
		// A build that finished before this one joined already stored it
		if instance, ok := c.instance(kind); ok {
			return instance, nil
		}

		c.mu.RLock()
		factory, ok := c.factories[kind]
		c.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotProvided, kind)
		}

		instance, err := construct(kind, factory)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.instances[kind]; ok {
			return existing, nil
		}
		c.instances[kind] = instance
		return instance, nil
	})
	return instance, err
}

func (c *Container) instance(kind store.Kind) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	instance, ok := c.instances[kind]
	return instance, ok
}

// construct runs factory, turning a panic into a construction error.
func construct(kind store.Kind, factory Factory) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance, err = nil, fmt.Errorf("construct store %s: panic: %v", kind, r)
		}
	}()

	instance, err = factory()
	if err != nil {
		return nil, fmt.Errorf("construct store %s: %w", kind, err)
	}
	return instance, nil
}

// MustGet returns the instance for kind, panicking if it cannot be resolved.
func (c *Container) MustGet(kind store.Kind) any {
	instance, err := c.Get(kind)
	if err != nil {
		panic(fmt.Sprintf("storeflow: %v", err))
	}
	return instance
}

// Has reports whether a factory is registered for kind.
func (c *Container) Has(kind store.Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[kind]
	return ok
}

// Built reports whether the instance for kind has been constructed.
func (c *Container) Built(kind store.Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[kind]
	return ok
}

// Kinds returns every provided kind in sorted order.
func (c *Container) Kinds() []store.Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kinds := make([]store.Kind, 0, len(c.factories))
	for k := range c.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Lookup returns the instance for kind typed as T.
func Lookup[T any](c *Container, kind store.Kind) (T, error) {
	var zero T
	instance, err := c.Get(kind)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("store %s is %T, not %T", kind, instance, zero)
	}
	return typed, nil
}
