package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback used when Redis is unreachable, and
// the default in tests. Entries expire after ttl; Sweep removes the expired
// ones (the cron manager calls it periodically).
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]memoryEntry
}

type memoryEntry struct {
	form      Form
	expiresAt time.Time
}

// NewMemoryStore creates a memory store with the given TTL (DefaultTTL if 0).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[int64]memoryEntry),
	}
}

func (m *MemoryStore) Get(ctx context.Context, telegramID int64) (*Form, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[telegramID]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(m.entries, telegramID)
		return nil, ErrNoSession
	}

	form := entry.form
	if entry.form.Fields != nil {
		form.Fields = make(map[string]string, len(entry.form.Fields))
		for k, v := range entry.form.Fields {
			form.Fields[k] = v
		}
	}
	return &form, nil
}

func (m *MemoryStore) Put(ctx context.Context, telegramID int64, form *Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *form
	if form.Fields != nil {
		stored.Fields = make(map[string]string, len(form.Fields))
		for k, v := range form.Fields {
			stored.Fields[k] = v
		}
	}
	m.entries[telegramID] = memoryEntry{
		form:      stored,
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, telegramID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, telegramID)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}
