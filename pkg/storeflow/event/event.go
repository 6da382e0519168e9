package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the shape of an event. It is the dispatch key used by the
// bus and by the dispatcher's handler registry.
type Kind string

// Event is the core interface for everything that can be published.
// Events are immutable once created.
type Event interface {
	// Kind returns the event kind used for routing.
	Kind() Kind
}

// Identified is implemented by events that carry identity and correlation
// metadata. The dispatcher adds ID and CorrelationID to its log records and
// to the dispatch span.
type Identified interface {
	Event

	ID() string
	CorrelationID() string
	CausationID() string
	Timestamp() time.Time
}

// Metadata contains common event metadata fields.
type Metadata struct {
	EventID       string    `json:"id"`
	EventKind     Kind      `json:"kind"`
	CorrelationID string    `json:"correlation_id"`
	CausationID   string    `json:"causation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// BaseEvent provides a generic event implementation.
// T is the payload type for type-safe access.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`
}

// Kind returns the event kind.
func (e *BaseEvent[T]) Kind() Kind {
	return e.Meta.EventKind
}

// ID returns the unique event identifier.
func (e *BaseEvent[T]) ID() string {
	return e.Meta.EventID
}

// CorrelationID returns the ID grouping related events.
func (e *BaseEvent[T]) CorrelationID() string {
	return e.Meta.CorrelationID
}

// CausationID returns the ID of the event that caused this one.
func (e *BaseEvent[T]) CausationID() string {
	return e.Meta.CausationID
}

// Timestamp returns when the event was created.
func (e *BaseEvent[T]) Timestamp() time.Time {
	return e.Meta.Timestamp
}

// Data returns the typed payload.
func (e *BaseEvent[T]) Data() T {
	return e.Payload
}

// MarshalJSON implements json.Marshaler.
func (e *BaseEvent[T]) MarshalJSON() ([]byte, error) {
	type alias BaseEvent[T]
	return json.Marshal((*alias)(e))
}

// Option configures event creation.
type Option func(*eventConfig)

type eventConfig struct {
	id            string
	correlationID string
	causationID   string
	timestamp     time.Time
}

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.id = id
	}
}

// WithCorrelationID sets the correlation ID.
func WithCorrelationID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.correlationID = id
	}
}

// WithCausationID sets the ID of the causing event.
func WithCausationID(id string) Option {
	return func(cfg *eventConfig) {
		cfg.causationID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(cfg *eventConfig) {
		cfg.timestamp = t
	}
}

// New creates an event of the given kind carrying payload.
func New[T any](kind Kind, payload T, opts ...Option) *BaseEvent[T] {
	cfg := &eventConfig{
		id:        uuid.New().String(),
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// Root events start their own correlation chain
	if cfg.correlationID == "" {
		cfg.correlationID = cfg.id
	}

	return &BaseEvent[T]{
		Meta: Metadata{
			EventID:       cfg.id,
			EventKind:     kind,
			CorrelationID: cfg.correlationID,
			CausationID:   cfg.causationID,
			Timestamp:     cfg.timestamp,
		},
		Payload: payload,
	}
}

// NewFromParent creates an event caused by parent. The correlation ID is
// inherited and the causation ID points at the parent.
func NewFromParent[T any](parent Identified, kind Kind, payload T, opts ...Option) *BaseEvent[T] {
	parentOpts := []Option{
		WithCorrelationID(parent.CorrelationID()),
		WithCausationID(parent.ID()),
	}
	return New(kind, payload, append(parentOpts, opts...)...)
}

// Marker is a zero-payload event identified only by its kind.
type Marker Kind

// Kind implements Event.
func (m Marker) Kind() Kind {
	return Kind(m)
}
