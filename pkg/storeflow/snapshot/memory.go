package snapshot

import (
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/storeflow/pkg/storeflow/store"
)

// MemorySink keeps snapshots in memory. Data is lost when the process exits.
type MemorySink struct {
	mu       sync.RWMutex
	data     map[store.Kind]storedSnapshot
	sequence int
	closed   bool
}

type storedSnapshot struct {
	data      []byte
	sequence  int
	timestamp time.Time
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{data: make(map[store.Kind]storedSnapshot)}
}

// Save implements Sink.
func (m *MemorySink) Save(kind store.Kind, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSinkClosed
	}

	m.sequence++
	m.data[kind] = storedSnapshot{
		data:      append([]byte(nil), data...),
		sequence:  m.sequence,
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Sink.
func (m *MemorySink) Load(kind store.Kind) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrSinkClosed
	}

	s, ok := m.data[kind]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// List implements Sink.
func (m *MemorySink) List() ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrSinkClosed
	}

	infos := make([]Info, 0, len(m.data))
	for kind, s := range m.data {
		infos = append(infos, Info{
			Store:     kind,
			Sequence:  s.sequence,
			Timestamp: s.timestamp,
			Size:      int64(len(s.data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// Delete implements Sink.
func (m *MemorySink) Delete(kind store.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSinkClosed
	}
	delete(m.data, kind)
	return nil
}

// Close implements Sink.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored snapshots.
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
