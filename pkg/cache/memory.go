package cache

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests. It applies the same
// both-payloads rule as the sqlite backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory cache store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (m *MemoryStore) GetExtraction(_ context.Context, hash string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[hash]
	if !ok || entry.Extraction == nil || entry.Classification == nil {
		return nil, ErrNotFound
	}

	entry.LastAccessed = time.Now().UTC()
	return slices.Clone(entry.Extraction), nil
}

func (m *MemoryStore) GetClassification(_ context.Context, hash string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[hash]
	if !ok || entry.Classification == nil {
		return nil, ErrNotFound
	}

	entry.LastAccessed = time.Now().UTC()
	return slices.Clone(entry.Classification), nil
}

func (m *MemoryStore) PutExtraction(_ context.Context, hash, fileName string, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.upsert(hash)
	entry.FileName = fileName
	entry.Extraction = slices.Clone(payload)
	return nil
}

func (m *MemoryStore) PutClassification(_ context.Context, hash string, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.upsert(hash)
	entry.Classification = slices.Clone(payload)
	return nil
}

func (m *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{Entries: len(m.entries)}
	for _, entry := range m.entries {
		if entry.Extraction != nil {
			stats.Extractions++
			stats.SizeBytes += int64(len(entry.Extraction))
		}
		if entry.Classification != nil {
			stats.Classifications++
			stats.SizeBytes += int64(len(entry.Classification))
		}
	}
	return stats, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry)
	return nil
}

func (m *MemoryStore) upsert(hash string) *Entry {
	entry, ok := m.entries[hash]
	if !ok {
		entry = &Entry{
			ContentHash:  hash,
			CreatedAt:    time.Now().UTC(),
			LastAccessed: time.Now().UTC(),
		}
		m.entries[hash] = entry
	}
	entry.LastAccessed = time.Now().UTC()
	return entry
}
