// Package progress keeps the latest progress snapshot of running processing
// requests so clients can poll it.
package progress

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired request ids.
var ErrNotFound = errors.New("progress not found")

// Snapshot is the state of one request after its last finished unit.
type Snapshot struct {
	RequestID    string    `json:"request_id"`
	Stage        string    `json:"stage"`
	File         string    `json:"file,omitempty"`
	FilePercent  float64   `json:"file_percent"`
	ChunkPercent float64   `json:"chunk_percent"`
	Done         bool      `json:"done"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists snapshots by request id.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Load(ctx context.Context, requestID string) (Snapshot, error)
}

// MemoryStore is a Store for single-instance deployments.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]Snapshot
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, items: make(map[string]Snapshot), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = m.now()
	}
	m.items[s.RequestID] = s
	m.evictLocked()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, requestID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked()
	s, ok := m.items[requestID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) evictLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := m.now().Add(-m.ttl)
	for id, s := range m.items {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.items, id)
		}
	}
}
