// Package snapshot persists the entity's last known-good observation so a
// restart does not blank the entity before the first poll completes. This is
// state retention, not a cache: one key, no TTL, no eviction, and reads never
// substitute for a poll.
package snapshot

import (
	"context"
	"sync"

	"github.com/kjstillabower/yandex-weather-bridge/internal/models"
)

// Store persists and restores the last good entity snapshot.
type Store interface {
	Load(ctx context.Context) (models.Snapshot, bool, error)
	Save(ctx context.Context, snap models.Snapshot) error
}

// MemoryStore implements Store in process memory. Survives nothing, but keeps
// the wiring uniform when memcached is not configured.
type MemoryStore struct {
	mu   sync.Mutex
	snap models.Snapshot
	set  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored snapshot, if any.
func (s *MemoryStore) Load(ctx context.Context) (models.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return models.Snapshot{}, false, nil
	}
	return s.snap, true, nil
}

// Save stores the snapshot, replacing any previous one.
func (s *MemoryStore) Save(ctx context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.set = true
	return nil
}
