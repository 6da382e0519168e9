// Package event provides the event primitives shared by storeflow.
//
// # Events
//
// Every event implements Event, which only exposes its Kind. BaseEvent[T]
// is the general-purpose implementation carrying a typed payload plus
// identity and correlation metadata:
//
//	evt := event.New[LoadPayload]("catalog.load", LoadPayload{Page: 1})
//
//	// Derived events keep the correlation chain
//	next := event.NewFromParent(evt, "catalog.loaded", LoadedPayload{})
//
// Marker is a zero-payload event for pure notifications:
//
//	const Refresh = event.Marker("ui.refresh")
//
// # Bus
//
// Bus is a synchronous publish/subscribe channel keyed by Kind. Listeners
// run on the publisher's goroutine in registration order:
//
//	bus := event.NewBus()
//	sub := bus.Subscribe("catalog.load", func(ctx context.Context, evt event.Event) error {
//	    return nil
//	})
//	defer sub.Dispose()
//
//	err := bus.Publish(ctx, evt)
//
// A listener error stops delivery to later listeners of the same Publish
// call and is returned to the publisher wrapped in a PublishError. Panics
// are not recovered. Disposing subscriptions while a Publish is in flight is
// safe and does not change that call's recipients.
package event
