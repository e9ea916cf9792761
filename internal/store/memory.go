package store

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of [Store].
//
// Records are keyed by resource name, with new records replacing previous
// values. Change notifications are delivered through an embedded [Hub].
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	hub     Hub[Record]
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Update stores a [Record] and notifies all subscribers.
//
// A record whose Seq is lower than the stored one for the same name is
// ignored, so a late forwarder cannot roll the mirror back.
func (m *MemoryStore) Update(rec Record) {
	m.mu.Lock()
	if prev, ok := m.records[rec.Name]; ok && rec.Seq < prev.Seq {
		m.mu.Unlock()
		return
	}
	m.records[rec.Name] = rec
	m.mu.Unlock()

	m.hub.Publish(rec)
}

// Get returns the record stored under name.
func (m *MemoryStore) Get(name string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[name]
	return rec, ok
}

// GetAll returns a snapshot of all stored records ordered by name.
func (m *MemoryStore) GetAll() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		results = append(results, rec)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Record {
	return m.hub.Subscribe()
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Record) {
	m.hub.Unsubscribe(ch)
}
