// Package snapshot persists store state so it survives process restarts.
//
// A Sink stores the latest serialized state of each store kind. Attach keeps
// a sink current by saving after every state change; Restore loads the last
// saved state back into a store at startup:
//
//	sink, err := snapshot.NewSQLiteSink("./state.db")
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//
//	if err := snapshot.Restore(CatalogKind, catalog.Store, sink); err != nil && !errors.Is(err, snapshot.ErrNotFound) {
//	    return err
//	}
//	sub := snapshot.Attach(CatalogKind, catalog.Store, sink)
//	defer sub.Dispose()
package snapshot

import (
	"errors"
	"time"

	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// Sink persists store snapshots.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Save stores the snapshot for kind, replacing any previous one.
	Save(kind store.Kind, data []byte) error

	// Load retrieves the snapshot for kind.
	// Returns ErrNotFound if none exists.
	Load(kind store.Kind) ([]byte, error)

	// List returns metadata for every snapshot, least recently saved first.
	List() ([]Info, error)

	// Delete removes the snapshot for kind.
	// Returns nil if none exists.
	Delete(kind store.Kind) error

	// Close releases any resources.
	Close() error
}

// Info describes a snapshot without loading it.
type Info struct {
	Store     store.Kind
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound indicates no snapshot exists for a store kind.
	ErrNotFound = errors.New("snapshot not found")

	// ErrSinkClosed indicates the sink has been closed.
	ErrSinkClosed = errors.New("snapshot sink closed")
)
