package event

import (
	"errors"
	"fmt"
)

// ErrNilEvent indicates Publish was called with a nil event.
var ErrNilEvent = errors.New("event cannot be nil")

// PublishError reports a listener failure during Publish.
type PublishError struct {
	Kind     Kind  // Kind of the event being delivered
	Listener int   // Position of the failing listener in the delivery order
	Err      error // Error returned by the listener
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: listener %d: %v", e.Kind, e.Listener, e.Err)
}

// Unwrap returns the listener's error.
func (e *PublishError) Unwrap() error {
	return e.Err
}
