package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record    *Record
	expiresAt time.Time
}

// InMemoryStore implements Store in process memory.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Begin implements Store.
func (s *InMemoryStore) Begin(_ context.Context, rec *Record, ttl time.Duration) (*Record, error) {
	if err := ValidateKey(rec.Key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[rec.Key]; ok && now.Before(e.expiresAt) {
		return copyRecord(e.record), nil
	}

	stored := copyRecord(rec)
	stored.Status = StatusProcessing
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	s.entries[rec.Key] = memoryEntry{record: stored, expiresAt: now.Add(ttl)}
	return nil, nil
}

// Complete implements Store.
func (s *InMemoryStore) Complete(_ context.Context, rec *Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyRecord(rec)
	stored.Status = StatusCompleted
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.entries[rec.Key] = memoryEntry{record: stored, expiresAt: s.now().Add(ttl)}
	return nil
}

// Release implements Store.
func (s *InMemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Get returns the live record for key, or ErrKeyNotFound.
func (s *InMemoryStore) Get(key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, ErrKeyNotFound
	}
	return copyRecord(e.record), nil
}

// DeleteExpired drops expired records and returns how many were removed.
func (s *InMemoryStore) DeleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	deleted := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

func copyRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	copied := *rec
	copied.Body = append([]byte(nil), rec.Body...)
	return &copied
}
