// Package container provides a lazily constructing store container.
//
// A Container maps each store kind to a factory and keeps exactly one
// instance per kind for its whole lifetime. It satisfies the Container
// interface the dispatcher consumes.
//
// # Basic Usage
//
//	c := container.New().
//	    Provide("catalog", func() (any, error) { return NewCatalogStore(), nil }).
//	    Provide("cart", func() (any, error) { return NewCartStore(), nil })
//
//	instance, err := c.Get("catalog") // constructed now
//	again, _ := c.Get("catalog")      // same instance
//
// Lookup gives typed access:
//
//	catalog, err := container.Lookup[*CatalogStore](c, "catalog")
//
// # Thread Safety
//
// All methods are safe for concurrent use. Factories run under the
// container's write lock, at most once per kind, and must not call back
// into the same container.
package container
