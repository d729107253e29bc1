package checkpoint

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and by runs that disable
// durable checkpointing. It preserves the same append-only revision
// semantics as the database backends.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]Record
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]Record)}
}

func (m *MemoryStore) Save(_ context.Context, threadID string, state json.RawMessage, nextStage string, interrupt json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.threads[threadID]
	m.threads[threadID] = append(history, Record{
		ThreadID:  threadID,
		Revision:  int64(len(history)) + 1,
		State:     slices.Clone(state),
		NextStage: nextStage,
		Interrupt: slices.Clone(interrupt),
		UpdatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *MemoryStore) Load(_ context.Context, threadID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.threads[threadID]
	if len(history) == 0 {
		return nil, ErrNotFound
	}

	rec := history[len(history)-1]
	return &rec, nil
}

func (m *MemoryStore) ListPending(_ context.Context, nextStage string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []Record
	for _, history := range m.threads {
		latest := history[len(history)-1]
		if latest.NextStage == nextStage {
			pending = append(pending, latest)
		}
	}

	slices.SortFunc(pending, func(a, b Record) int {
		switch {
		case a.ThreadID < b.ThreadID:
			return -1
		case a.ThreadID > b.ThreadID:
			return 1
		default:
			return 0
		}
	})
	return pending, nil
}

// Revisions returns the number of saved revisions for a thread.
func (m *MemoryStore) Revisions(threadID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.threads[threadID])
}
